// Package content holds the course/lesson/material records the access engine
// evaluates. The kit reads these; the host platform owns their authoring.
package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/drip"
)

// Course is the unit an entitlement grants access to.
type Course struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	Title       string
	Instructor  string
	IsPublished bool
	// IsFree marks a school-wide free course: FULL access for everyone,
	// entitlements not consulted.
	IsFree    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lesson belongs to a course and may carry a drip rule delaying visibility.
type Lesson struct {
	ID              uuid.UUID
	SchoolID        uuid.UUID
	CourseID        uuid.UUID
	Title           string
	Position        int
	IsPublished     bool
	DurationSeconds int
	Drip            drip.Rule
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Material is a lesson's payload as released to a viewer. What crosses the
// boundary depends on the caller's access level; see the access package.
type Material struct {
	LessonID        uuid.UUID
	ContentText     string
	MediaURL        string
	DurationSeconds int
}
