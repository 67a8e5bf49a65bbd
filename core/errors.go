package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the kit. Callers match with errors.Is.
var (
	// ErrNotFound indicates a referenced course, lesson, or record is absent.
	ErrNotFound = errors.New("not found")

	// ErrIneligible indicates a request that is valid but not currently
	// satisfiable (e.g., certificate requested before course completion).
	// It is a user-facing condition, not a fault.
	ErrIneligible = errors.New("ineligible")

	// ErrConflict indicates a write lost to a concurrent duplicate, such as
	// a certificate unique-index violation. Callers should re-read.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a bad or missing identifier. Surfaced, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid constructs a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientError wraps a persistence or network failure that the caller
// should retry with backoff. It is never a reason to widen access.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Returns nil if err is nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
