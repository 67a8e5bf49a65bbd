// Package drip resolves when a lesson becomes visible under a drip schedule:
// an absolute publish date, or an offset in days from enrollment.
package drip

import (
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/entitlements"
)

// Reason says why a lesson is still locked.
type Reason string

const (
	ReasonDripDate Reason = "DRIP_DATE"
	ReasonDripDays Reason = "DRIP_DAYS"
)

// Rule is a lesson's drip configuration. When both fields are set, the
// absolute date always wins.
type Rule struct {
	PublishAt       *time.Time
	DaysAfterEnroll *int
}

// Availability is the resolved visibility of one lesson at one instant.
type Availability struct {
	Available   bool
	Reason      Reason     // set only when locked
	AvailableAt *time.Time // set when the unlock instant is known
}

// Compute resolves a lesson's availability at the reference instant.
// The absolute-date branch short-circuits the relative one; a lesson with
// neither rule (or a relative rule but no known enrollment) is available.
func Compute(rule Rule, enrolledAt *time.Time, now time.Time) Availability {
	if rule.PublishAt != nil {
		at := *rule.PublishAt
		if !at.After(now) {
			return Availability{Available: true, AvailableAt: &at}
		}
		return Availability{Reason: ReasonDripDate, AvailableAt: &at}
	}
	if rule.DaysAfterEnroll != nil && enrolledAt != nil {
		at := enrolledAt.Add(time.Duration(*rule.DaysAfterEnroll) * 24 * time.Hour)
		if !at.After(now) {
			return Availability{Available: true, AvailableAt: &at}
		}
		return Availability{Reason: ReasonDripDays, AvailableAt: &at}
	}
	return Availability{Available: true}
}

// EnrollDate returns the earliest grant timestamp among a user's entitlements
// relevant to the course (course-specific or all-courses), or nil when none
// exist. Earliest, not latest: a repeated or renewed grant must not reset a
// running drip countdown.
func EnrollDate(ents []entitlements.Entitlement, courseID uuid.UUID) *time.Time {
	var earliest *time.Time
	for i := range ents {
		if !ents[i].CoversCourse(courseID) {
			continue
		}
		at := ents[i].GrantedAt()
		if at.IsZero() {
			continue
		}
		if earliest == nil || at.Before(*earliest) {
			t := at
			earliest = &t
		}
	}
	return earliest
}
