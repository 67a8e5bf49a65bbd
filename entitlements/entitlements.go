// Package entitlements models time-windowed grants of course access and the
// pure evaluators over them. Grants are append-only: a grant is never deleted,
// only soft-expired by tightening its ends_at.
package entitlements

import (
	"time"

	"github.com/google/uuid"
)

// Type says what a grant covers.
type Type string

const (
	TypeCourse     Type = "COURSE"
	TypeAllCourses Type = "ALL_COURSES"
)

// Source says where a grant came from.
type Source string

const (
	SourceSubscription Source = "SUBSCRIPTION"
	SourcePurchase     Source = "PURCHASE"
	SourceGrant        Source = "GRANT"
)

// Entitlement grants access to one course (TypeCourse) or all courses
// (TypeAllCourses). Validity is the closed-open window [StartsAt, EndsAt):
// the start boundary is inclusive, the end boundary exclusive. A nil bound
// is unbounded on that side.
//
// SourceID is a weak back-reference for lookup (e.g., the subscription that
// produced the grant); it is not ownership.
type Entitlement struct {
	ID       uuid.UUID
	SchoolID uuid.UUID
	UserID   uuid.UUID
	Type     Type
	CourseID *uuid.UUID // set when Type is TypeCourse
	Source   Source
	SourceID *uuid.UUID
	StartsAt *time.Time
	EndsAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoversCourse reports whether the grant applies to the given course.
func (e *Entitlement) CoversCourse(courseID uuid.UUID) bool {
	if e == nil {
		return false
	}
	if e.Type == TypeAllCourses {
		return true
	}
	return e.CourseID != nil && *e.CourseID == courseID
}

// IsActive reports whether the grant is in force at the reference instant.
// False for a nil grant, before StartsAt, and from EndsAt onward.
func IsActive(e *Entitlement, now time.Time) bool {
	if e == nil {
		return false
	}
	if e.StartsAt != nil && e.StartsAt.After(now) {
		return false
	}
	if e.EndsAt != nil && !e.EndsAt.After(now) {
		return false
	}
	return true
}

// Active filters to grants in force at the reference instant. The same now is
// applied to every element so one filtering pass sees a single consistent
// snapshot; callers must capture now once per logical operation and thread it
// through rather than re-reading the clock.
func Active(list []Entitlement, now time.Time) []Entitlement {
	out := make([]Entitlement, 0, len(list))
	for i := range list {
		if IsActive(&list[i], now) {
			out = append(out, list[i])
		}
	}
	return out
}

// ActiveCovering filters to grants in force at now that cover the course.
func ActiveCovering(list []Entitlement, courseID uuid.UUID, now time.Time) []Entitlement {
	out := make([]Entitlement, 0, len(list))
	for i := range list {
		if !list[i].CoversCourse(courseID) {
			continue
		}
		if IsActive(&list[i], now) {
			out = append(out, list[i])
		}
	}
	return out
}
