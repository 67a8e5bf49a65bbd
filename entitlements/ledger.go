package entitlements

import (
	"time"

	"github.com/google/uuid"
)

// Window is a resolved validity interval reduced from the grant ledger.
// Nil bounds are unbounded.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// CurrentWindow reduces a user's grant ledger for a course to the effective
// window at now: the earliest start and the latest end among grants that are
// active at the reference instant. ok is false when no grant is in force.
//
// Because grants are append-only and only ever tightened, re-running the
// reduction after an expiry cascade is idempotent.
func CurrentWindow(list []Entitlement, courseID uuid.UUID, now time.Time) (Window, bool) {
	var w Window
	found := false
	unboundedEnd := false
	for i := range list {
		e := &list[i]
		if !e.CoversCourse(courseID) || !IsActive(e, now) {
			continue
		}
		if !found {
			w.Start = e.StartsAt
			w.End = e.EndsAt
			found = true
			unboundedEnd = e.EndsAt == nil
			continue
		}
		if w.Start != nil && (e.StartsAt == nil || e.StartsAt.Before(*w.Start)) {
			w.Start = e.StartsAt
		}
		if e.EndsAt == nil {
			unboundedEnd = true
		}
		if !unboundedEnd && e.EndsAt.After(*w.End) {
			w.End = e.EndsAt
		}
	}
	if unboundedEnd {
		w.End = nil
	}
	return w, found
}

// GrantedAt returns the grant timestamp used for drip math: StartsAt when
// set, otherwise CreatedAt.
func (e *Entitlement) GrantedAt() time.Time {
	if e.StartsAt != nil {
		return *e.StartsAt
	}
	return e.CreatedAt
}
