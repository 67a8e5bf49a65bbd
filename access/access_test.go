package access

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/content"
	"github.com/open-rails/coursekit/drip"
	"github.com/open-rails/coursekit/entitlements"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func ip(n int) *int             { return &n }

func fixtureCourse(free bool) *content.Course {
	return &content.Course{ID: uuid.New(), SchoolID: uuid.New(), IsPublished: true, IsFree: free}
}

func coveringGrant(courseID uuid.UUID) entitlements.Entitlement {
	return entitlements.Entitlement{
		ID:       uuid.New(),
		Type:     entitlements.TypeCourse,
		CourseID: &courseID,
		Source:   entitlements.SourcePurchase,
	}
}

func TestClassify_LockedWithoutEntitlement(t *testing.T) {
	course := fixtureCourse(false)
	d := Classify(course, &content.Lesson{}, nil, nil, now)
	if d.Level != LevelLocked {
		t.Fatalf("no grants should be LOCKED, got %s", d.Level)
	}
}

func TestClassify_ExpiredGrantIsLocked(t *testing.T) {
	course := fixtureCourse(false)
	g := coveringGrant(course.ID)
	g.EndsAt = tp(now) // closed-open: ends_at == now is already out
	d := Classify(course, &content.Lesson{}, []entitlements.Entitlement{g}, nil, now)
	if d.Level != LevelLocked {
		t.Fatalf("grant ending exactly now should be LOCKED, got %s", d.Level)
	}
}

func TestClassify_FreeCourseSkipsEntitlements(t *testing.T) {
	d := Classify(fixtureCourse(true), &content.Lesson{}, nil, nil, now)
	if d.Level != LevelFull {
		t.Fatalf("free course without grants should be FULL, got %s", d.Level)
	}
}

func TestClassify_DripLockedBeatsFull(t *testing.T) {
	course := fixtureCourse(false)
	future := now.Add(24 * time.Hour)
	lesson := &content.Lesson{Drip: drip.Rule{PublishAt: &future}}
	d := Classify(course, lesson, []entitlements.Entitlement{coveringGrant(course.ID)}, nil, now)
	if d.Level != LevelDripLocked {
		t.Fatalf("entitled but undripped should be DRIP_LOCKED, got %s", d.Level)
	}
	if d.Availability.AvailableAt == nil || !d.Availability.AvailableAt.Equal(future) {
		t.Fatalf("decision should carry the unlock instant, got %+v", d.Availability)
	}
}

func TestClassify_Full(t *testing.T) {
	course := fixtureCourse(false)
	enrolled := now.Add(-10 * 24 * time.Hour)
	lesson := &content.Lesson{Drip: drip.Rule{DaysAfterEnroll: ip(3)}}
	d := Classify(course, lesson, []entitlements.Entitlement{coveringGrant(course.ID)}, &enrolled, now)
	if d.Level != LevelFull {
		t.Fatalf("entitled and dripped should be FULL, got %s", d.Level)
	}
}

func TestClassify_NilInputsLock(t *testing.T) {
	if d := Classify(nil, &content.Lesson{}, nil, nil, now); d.Level != LevelLocked {
		t.Error("nil course must lock")
	}
	if d := Classify(fixtureCourse(true), nil, nil, nil, now); d.Level != LevelLocked {
		t.Error("nil lesson must lock")
	}
}

func TestClassifyPreview_DripStillApplies(t *testing.T) {
	future := now.Add(time.Hour)
	lesson := &content.Lesson{Drip: drip.Rule{PublishAt: &future}}
	if d := ClassifyPreview(lesson, nil, now); d.Level != LevelDripLocked {
		t.Fatalf("preview cannot bypass drip, got %s", d.Level)
	}
	if d := ClassifyPreview(&content.Lesson{}, nil, now); d.Level != LevelPreview {
		t.Fatalf("released lesson previews as PREVIEW, got %s", d.Level)
	}
}
