package entitlements

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

func TestIsActive_ClosedOpenWindow(t *testing.T) {
	cases := []struct {
		name     string
		startsAt *time.Time
		endsAt   *time.Time
		want     bool
	}{
		{"unbounded", nil, nil, true},
		{"starts exactly now", tp(now), nil, true},
		{"starts in future", tp(now.Add(time.Second)), nil, false},
		{"ends exactly now", nil, tp(now), false},
		{"ends one second later", nil, tp(now.Add(time.Second)), true},
		{"already ended", nil, tp(now.Add(-time.Hour)), false},
		{"inside window", tp(now.Add(-time.Hour)), tp(now.Add(time.Hour)), true},
	}
	for _, tc := range cases {
		e := &Entitlement{StartsAt: tc.startsAt, EndsAt: tc.endsAt}
		if got := IsActive(e, now); got != tc.want {
			t.Errorf("%s: want %v, got %v", tc.name, tc.want, got)
		}
	}
	if IsActive(nil, now) {
		t.Error("nil grant must not be active")
	}
}

func TestCoversCourse(t *testing.T) {
	courseID, otherID := uuid.New(), uuid.New()
	all := &Entitlement{Type: TypeAllCourses}
	if !all.CoversCourse(courseID) || !all.CoversCourse(otherID) {
		t.Error("ALL_COURSES must cover every course")
	}
	one := &Entitlement{Type: TypeCourse, CourseID: &courseID}
	if !one.CoversCourse(courseID) {
		t.Error("COURSE grant must cover its own course")
	}
	if one.CoversCourse(otherID) {
		t.Error("COURSE grant must not cover other courses")
	}
	if (&Entitlement{Type: TypeCourse}).CoversCourse(courseID) {
		t.Error("COURSE grant without a course id covers nothing")
	}
}

func TestActiveCovering(t *testing.T) {
	courseID := uuid.New()
	list := []Entitlement{
		{ID: uuid.New(), Type: TypeAllCourses},
		{ID: uuid.New(), Type: TypeCourse, CourseID: &courseID, EndsAt: tp(now)},
		{ID: uuid.New(), Type: TypeCourse, CourseID: tp2(uuid.New())},
	}
	got := ActiveCovering(list, courseID, now)
	if len(got) != 1 || got[0].ID != list[0].ID {
		t.Fatalf("want only the ALL_COURSES grant, got %d", len(got))
	}
}

func tp2(id uuid.UUID) *uuid.UUID { return &id }

func TestActive_SnapshotFilter(t *testing.T) {
	open := Entitlement{ID: uuid.New()}
	running := Entitlement{ID: uuid.New(), StartsAt: tp(now.Add(-time.Hour)), EndsAt: tp(now.Add(time.Hour))}
	endsNow := Entitlement{ID: uuid.New(), EndsAt: tp(now)}
	future := Entitlement{ID: uuid.New(), StartsAt: tp(now.Add(time.Minute))}
	expired := Entitlement{ID: uuid.New(), EndsAt: tp(now.Add(-time.Minute))}

	got := Active([]Entitlement{open, running, endsNow, future, expired}, now)
	if len(got) != 2 {
		t.Fatalf("want 2 active grants, got %d", len(got))
	}
	if got[0].ID != open.ID || got[1].ID != running.ID {
		t.Fatalf("wrong grants survived: %v, %v", got[0].ID, got[1].ID)
	}

	// One instant before the exclusive end bound the grant is still in.
	justBefore := Active([]Entitlement{endsNow}, now.Add(-time.Nanosecond))
	if len(justBefore) != 1 {
		t.Fatal("grant must be active right up to its end bound")
	}

	if got := Active(nil, now); got == nil || len(got) != 0 {
		t.Fatalf("empty ledger filters to an empty non-nil slice, got %v", got)
	}
}

func TestCurrentWindow_Reduction(t *testing.T) {
	courseID := uuid.New()
	early := now.Add(-72 * time.Hour)
	late := now.Add(48 * time.Hour)
	list := []Entitlement{
		{Type: TypeCourse, CourseID: &courseID, StartsAt: tp(now.Add(-time.Hour)), EndsAt: tp(now.Add(time.Hour))},
		{Type: TypeAllCourses, StartsAt: tp(early), EndsAt: tp(late)},
	}
	w, ok := CurrentWindow(list, courseID, now)
	if !ok {
		t.Fatal("two active grants, want ok")
	}
	if w.Start == nil || !w.Start.Equal(early) {
		t.Errorf("want earliest start %v, got %v", early, w.Start)
	}
	if w.End == nil || !w.End.Equal(late) {
		t.Errorf("want latest end %v, got %v", late, w.End)
	}
}

func TestCurrentWindow_UnboundedEndWins(t *testing.T) {
	courseID := uuid.New()
	list := []Entitlement{
		{Type: TypeCourse, CourseID: &courseID, EndsAt: tp(now.Add(time.Hour))},
		{Type: TypeAllCourses},
	}
	w, ok := CurrentWindow(list, courseID, now)
	if !ok || w.End != nil {
		t.Fatalf("an unbounded grant should make the window open-ended, got %v", w.End)
	}
}

func TestCurrentWindow_NoneActive(t *testing.T) {
	courseID := uuid.New()
	list := []Entitlement{
		{Type: TypeCourse, CourseID: &courseID, EndsAt: tp(now.Add(-time.Minute))},
	}
	if _, ok := CurrentWindow(list, courseID, now); ok {
		t.Fatal("expired ledger must reduce to no window")
	}
}

func TestGrantedAt(t *testing.T) {
	created := now.Add(-48 * time.Hour)
	started := now.Add(-24 * time.Hour)
	e := &Entitlement{CreatedAt: created, StartsAt: &started}
	if !e.GrantedAt().Equal(started) {
		t.Error("StartsAt should win when set")
	}
	e.StartsAt = nil
	if !e.GrantedAt().Equal(created) {
		t.Error("CreatedAt is the fallback")
	}
}
