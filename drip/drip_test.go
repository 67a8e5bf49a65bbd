package drip

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/entitlements"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func ip(n int) *int             { return &n }

func TestCompute_NoRule(t *testing.T) {
	av := Compute(Rule{}, nil, now)
	if !av.Available || av.Reason != "" || av.AvailableAt != nil {
		t.Fatalf("no rule means available, got %+v", av)
	}
}

func TestCompute_AbsoluteDate(t *testing.T) {
	future := now.Add(48 * time.Hour)
	av := Compute(Rule{PublishAt: &future}, nil, now)
	if av.Available {
		t.Fatal("future publish date must lock")
	}
	if av.Reason != ReasonDripDate {
		t.Fatalf("want DRIP_DATE, got %s", av.Reason)
	}
	if av.AvailableAt == nil || !av.AvailableAt.Equal(future) {
		t.Fatalf("want unlock at %v, got %v", future, av.AvailableAt)
	}

	past := now.Add(-time.Minute)
	if av := Compute(Rule{PublishAt: &past}, nil, now); !av.Available {
		t.Fatal("passed publish date must unlock")
	}
	if av := Compute(Rule{PublishAt: &now}, nil, now); !av.Available {
		t.Fatal("publish date exactly now must unlock")
	}
}

func TestCompute_RelativeDays(t *testing.T) {
	enrolled := now.Add(-3 * 24 * time.Hour)
	locked := Compute(Rule{DaysAfterEnroll: ip(5)}, &enrolled, now)
	if locked.Available || locked.Reason != ReasonDripDays {
		t.Fatalf("day 3 of 5 must lock with DRIP_DAYS, got %+v", locked)
	}
	wantAt := enrolled.Add(5 * 24 * time.Hour)
	if locked.AvailableAt == nil || !locked.AvailableAt.Equal(wantAt) {
		t.Fatalf("want unlock at %v, got %v", wantAt, locked.AvailableAt)
	}
	open := Compute(Rule{DaysAfterEnroll: ip(3)}, &enrolled, now)
	if !open.Available {
		t.Fatal("exactly N days after enrollment must unlock")
	}
}

func TestCompute_AbsoluteBeatsRelative(t *testing.T) {
	// With PublishAt set, changing DaysAfterEnroll must never change the
	// outcome. The relative rule here would unlock immediately; the absolute
	// date still locks.
	future := now.Add(24 * time.Hour)
	enrolled := now.Add(-100 * 24 * time.Hour)
	for _, days := range []*int{nil, ip(0), ip(1), ip(365)} {
		av := Compute(Rule{PublishAt: &future, DaysAfterEnroll: days}, &enrolled, now)
		if av.Available || av.Reason != ReasonDripDate {
			t.Fatalf("days=%v: absolute date must win, got %+v", days, av)
		}
	}
}

func TestCompute_RelativeWithoutEnrollment(t *testing.T) {
	if av := Compute(Rule{DaysAfterEnroll: ip(10)}, nil, now); !av.Available {
		t.Fatal("relative rule with no known enrollment must not lock")
	}
}

func TestEnrollDate_EarliestWins(t *testing.T) {
	courseID := uuid.New()
	first := now.Add(-30 * 24 * time.Hour)
	renewal := now.Add(-2 * 24 * time.Hour)
	ents := []entitlements.Entitlement{
		{Type: entitlements.TypeAllCourses, CreatedAt: renewal},
		{Type: entitlements.TypeCourse, CourseID: &courseID, StartsAt: &first},
		{Type: entitlements.TypeCourse, CourseID: tp2(uuid.New()), CreatedAt: now.Add(-60 * 24 * time.Hour)},
	}
	got := EnrollDate(ents, courseID)
	if got == nil || !got.Equal(first) {
		t.Fatalf("want earliest covering grant %v, got %v", first, got)
	}
}

func tp2(id uuid.UUID) *uuid.UUID { return &id }

func TestEnrollDate_NoneCovering(t *testing.T) {
	if got := EnrollDate(nil, uuid.New()); got != nil {
		t.Fatalf("empty ledger should have no enroll date, got %v", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	if c := FormatCountdown(nil, now, "en"); c.Label != "Available now" || c.Days+c.Hours+c.Minutes != 0 {
		t.Fatalf("nil instant: %+v", c)
	}
	past := now.Add(-time.Hour)
	if c := FormatCountdown(&past, now, "en"); c.Label != "Available now" {
		t.Fatalf("past instant: %+v", c)
	}

	at := now.Add(2*24*time.Hour + 3*time.Hour + 30*time.Minute)
	c := FormatCountdown(&at, now, "en")
	if c.Days != 2 || c.Hours != 3 || c.Minutes != 30 {
		t.Fatalf("breakdown wrong: %+v", c)
	}
	if c.Label != "Available in 2d 3h" {
		t.Fatalf("label wrong: %q", c.Label)
	}

	soon := now.Add(90 * time.Second)
	if c := FormatCountdown(&soon, now, "en"); c.Minutes != 2 || c.Label != "Available in 2m" {
		t.Fatalf("partial minutes must round up: %+v", c)
	}
}

func TestFormatCountdown_Localized(t *testing.T) {
	at := now.Add(time.Hour)
	if c := FormatCountdown(&at, now, "es"); c.Label != "Disponible en 1h 0m" {
		t.Fatalf("spanish label: %q", c.Label)
	}
	// Unknown languages fall back to English rather than failing.
	if c := FormatCountdown(&at, now, "de"); c.Label != "Available in 1h 0m" {
		t.Fatalf("fallback label: %q", c.Label)
	}
}
