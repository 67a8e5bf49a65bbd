// Package subscription derives subscription lifecycle state and keeps stored
// state aligned with computed truth. Status is never authoritative: every
// read path re-derives it from the record and a reference instant, and the
// stored column is only a cache refreshed by the Reconciler.
package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status is the derived lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
	StatusExpired  Status = "EXPIRED"
)

// DefaultGraceDays applies when a record does not carry its own grace period.
const DefaultGraceDays = 7

// Subscription is a paid term for one user in one school. A new purchase
// creates a new record; an expired one is never resurrected.
type Subscription struct {
	ID       uuid.UUID
	SchoolID uuid.UUID
	UserID   uuid.UUID
	// CurrentPeriodEnd is nil for lifetime subscriptions.
	CurrentPeriodEnd *time.Time
	CanceledAt       *time.Time
	GraceDays        int
	// Status is the cached derived state as of the last reconciliation.
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Subscription) graceDays() int {
	if s.GraceDays > 0 {
		return s.GraceDays
	}
	return DefaultGraceDays
}

// ResolveStatus computes the lifecycle state of sub at the reference instant.
// Rules, in order: no record is EXPIRED; a canceled record is CANCELED while
// the paid period still runs, else EXPIRED (cancellation forfeits grace); no
// period end means lifetime ACTIVE; a running period is ACTIVE; past the
// period end the record is PAST_DUE through the grace boundary, EXPIRED after.
func ResolveStatus(sub *Subscription, now time.Time) Status {
	if sub == nil {
		return StatusExpired
	}
	if sub.CanceledAt != nil {
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			return StatusCanceled
		}
		return StatusExpired
	}
	if sub.CurrentPeriodEnd == nil {
		return StatusActive
	}
	if sub.CurrentPeriodEnd.After(now) {
		return StatusActive
	}
	graceEnd := sub.CurrentPeriodEnd.Add(time.Duration(sub.graceDays()) * 24 * time.Hour)
	if !now.After(graceEnd) {
		return StatusPastDue
	}
	return StatusExpired
}

// IsActive reports whether a status still grants access. True for ACTIVE,
// PAST_DUE, and CANCELED; false only for EXPIRED. The leniency is deliberate:
// access continuity for paying customers beats a strict cutoff.
func IsActive(status Status) bool {
	return status != StatusExpired
}

// validTransitions is the one-directional lifecycle:
// ACTIVE -> {CANCELED | PAST_DUE} -> EXPIRED. A sweep that runs late may
// observe ACTIVE -> EXPIRED directly.
var validTransitions = map[[2]Status]bool{
	{StatusActive, StatusPastDue}:   true,
	{StatusActive, StatusCanceled}:  true,
	{StatusActive, StatusExpired}:   true,
	{StatusPastDue, StatusCanceled}: true,
	{StatusPastDue, StatusExpired}:  true,
	{StatusCanceled, StatusExpired}: true,
}

// CanTransition reports whether moving from one cached status to another is a
// legal lifecycle step. Same-status refreshes are not transitions. An empty
// from is a row whose cached status was never written (fresh billing sync);
// it may take any computed status.
func CanTransition(from, to Status) bool {
	if from == "" {
		return to != ""
	}
	return validTransitions[[2]Status{from, to}]
}
