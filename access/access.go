// Package access composes entitlement activity, drip availability, and tenant
// policy into a single access level, and redacts material payloads to match.
// Every caller must apply the same composition; handlers go through Service
// rather than re-deriving levels themselves.
package access

import (
	"time"

	"github.com/open-rails/coursekit/content"
	"github.com/open-rails/coursekit/drip"
	"github.com/open-rails/coursekit/entitlements"
)

// Level governs what payload, if any, is released.
type Level string

const (
	LevelFull       Level = "FULL"
	LevelPreview    Level = "PREVIEW"
	LevelLocked     Level = "LOCKED"
	LevelDripLocked Level = "DRIP_LOCKED"
)

// Decision is a resolved access level plus the drip availability that
// produced it, so callers can render countdowns without recomputing.
type Decision struct {
	Level        Level             `json:"level"`
	Availability drip.Availability `json:"availability"`
}

// Classify resolves the access level for one lesson: LOCKED when no active
// entitlement covers the course (unless the course is school-wide free), then
// DRIP_LOCKED when the lesson's drip rule still holds it back, else FULL.
//
// PREVIEW is never produced here. It is a distinct, intentionally requested
// sampling state (see ClassifyPreview), not a synonym for "not entitled".
func Classify(course *content.Course, lesson *content.Lesson, ents []entitlements.Entitlement, enrolledAt *time.Time, now time.Time) Decision {
	if course == nil || lesson == nil {
		return Decision{Level: LevelLocked}
	}
	if !course.IsFree {
		if len(entitlements.ActiveCovering(ents, course.ID, now)) == 0 {
			return Decision{Level: LevelLocked}
		}
	}
	avail := drip.Compute(lesson.Drip, enrolledAt, now)
	if !avail.Available {
		return Decision{Level: LevelDripLocked, Availability: avail}
	}
	return Decision{Level: LevelFull, Availability: avail}
}

// ClassifyPreview resolves an explicitly requested sampling flow. Drip rules
// still apply: an unreleased lesson cannot be sampled early. Policy limits
// are enforced later by SanitizeMaterial regardless of what the caller asks.
func ClassifyPreview(lesson *content.Lesson, enrolledAt *time.Time, now time.Time) Decision {
	if lesson == nil {
		return Decision{Level: LevelLocked}
	}
	avail := drip.Compute(lesson.Drip, enrolledAt, now)
	if !avail.Available {
		return Decision{Level: LevelDripLocked, Availability: avail}
	}
	return Decision{Level: LevelPreview, Availability: avail}
}
