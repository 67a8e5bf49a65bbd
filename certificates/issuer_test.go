package certificates_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/certificates"
	"github.com/open-rails/coursekit/content"
	"github.com/open-rails/coursekit/core"
	memorystore "github.com/open-rails/coursekit/storage/memory"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	content    *memorystore.ContentStore
	completion *memorystore.CompletionStore
	certs      *memorystore.CertificateStore
	issuer     *certificates.Issuer
	course     *content.Course
	userID     uuid.UUID
	lessonIDs  []uuid.UUID
}

func newFixture(t *testing.T, lessons int) *fixture {
	t.Helper()
	f := &fixture{
		content: memorystore.NewContentStore(),
		certs:   memorystore.NewCertificateStore(),
		userID:  uuid.New(),
	}
	f.completion = memorystore.NewCompletionStore(f.content)
	f.course = &content.Course{
		ID:          uuid.New(),
		SchoolID:    uuid.New(),
		Title:       "Intro to Pottery",
		Instructor:  "R. Vance",
		IsPublished: true,
	}
	f.content.PutCourse(*f.course)
	for i := 0; i < lessons; i++ {
		id := uuid.New()
		f.lessonIDs = append(f.lessonIDs, id)
		f.content.PutLesson(content.Lesson{ID: id, SchoolID: f.course.SchoolID, CourseID: f.course.ID, IsPublished: true})
	}
	f.issuer = certificates.NewIssuer(f.certs, f.completion, nil)
	return f
}

func (f *fixture) completeAll(t *testing.T) {
	t.Helper()
	for _, id := range f.lessonIDs {
		if err := f.completion.MarkCompleted(context.Background(), f.course.SchoolID, f.userID, id, now); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
	}
}

func TestIssueIfEligible_CompletedCourse(t *testing.T) {
	f := newFixture(t, 3)
	f.completeAll(t)

	cert, err := f.issuer.IssueIfEligible(context.Background(), now, f.course, f.userID, false)
	if err != nil {
		t.Fatalf("IssueIfEligible: %v", err)
	}
	if cert.CourseTitle != "Intro to Pottery" || cert.Instructor != "R. Vance" {
		t.Fatalf("certificate must snapshot course fields, got %+v", cert)
	}
	if !cert.IssuedAt.Equal(now) {
		t.Fatalf("issued at %v, want %v", cert.IssuedAt, now)
	}
	if !strings.HasPrefix(cert.ID, "1785585600-") {
		t.Fatalf("id should start with the issuance unix timestamp, got %q", cert.ID)
	}
}

func TestIssueIfEligible_Incomplete(t *testing.T) {
	f := newFixture(t, 3)
	// Complete two of three lessons.
	for _, id := range f.lessonIDs[:2] {
		_ = f.completion.MarkCompleted(context.Background(), f.course.SchoolID, f.userID, id, now)
	}
	_, err := f.issuer.IssueIfEligible(context.Background(), now, f.course, f.userID, false)
	if !errors.Is(err, core.ErrIneligible) {
		t.Fatalf("want ErrIneligible, got %v", err)
	}
}

func TestIssueIfEligible_ZeroPublishedLessons(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.issuer.IssueIfEligible(context.Background(), now, f.course, f.userID, false)
	if !errors.Is(err, core.ErrIneligible) {
		t.Fatalf("a course with no published lessons can never complete, got %v", err)
	}
}

func TestIssueIfEligible_Idempotent(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	first, err := f.issuer.IssueIfEligible(ctx, now, f.course, f.userID, true)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	// Complete the course and retitle it; the repeat must still return the
	// original snapshot untouched.
	f.completeAll(t)
	f.course.Title = "Renamed Later"
	second, err := f.issuer.IssueIfEligible(ctx, now.Add(time.Hour), f.course, f.userID, true)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat issuance must return the same certificate: %s vs %s", first.ID, second.ID)
	}
	if second.CourseTitle != "Intro to Pottery" || !second.IssuedAt.Equal(now) {
		t.Fatalf("existing certificate was rewritten: %+v", second)
	}
}

func TestIssueIfEligible_ForceSkipsCompletion(t *testing.T) {
	f := newFixture(t, 5)
	cert, err := f.issuer.IssueIfEligible(context.Background(), now, f.course, f.userID, true)
	if err != nil {
		t.Fatalf("forced issue on incomplete course: %v", err)
	}
	if cert == nil {
		t.Fatal("forced issue should mint a certificate")
	}
}

// racingStore returns absent on the first Get, then behaves like the inner
// store. The first Create hits the unique index.
type racingStore struct {
	*memorystore.CertificateStore
	gets int
}

func (s *racingStore) Get(ctx context.Context, schoolID, userID, courseID uuid.UUID) (*certificates.Certificate, error) {
	s.gets++
	if s.gets == 1 {
		return nil, nil
	}
	return s.CertificateStore.Get(ctx, schoolID, userID, courseID)
}

func TestIssueIfEligible_ConvergesAfterConflict(t *testing.T) {
	f := newFixture(t, 1)
	f.completeAll(t)
	ctx := context.Background()

	// A concurrent issuance wins between our existence check and our insert.
	winner := &certificates.Certificate{
		ID:       certificates.NewID(now.Add(-time.Second)),
		SchoolID: f.course.SchoolID,
		UserID:   f.userID,
		CourseID: f.course.ID,
		IssuedAt: now.Add(-time.Second),
	}
	if err := f.certs.Create(ctx, winner); err != nil {
		t.Fatalf("seed winner: %v", err)
	}
	issuer := certificates.NewIssuer(&racingStore{CertificateStore: f.certs}, f.completion, nil)

	cert, err := issuer.IssueIfEligible(ctx, now, f.course, f.userID, false)
	if err != nil {
		t.Fatalf("conflict should converge, not fail: %v", err)
	}
	if cert.ID != winner.ID {
		t.Fatalf("loser must adopt the winner's row: %s vs %s", cert.ID, winner.ID)
	}
}

func TestNewID_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := certificates.NewID(now)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
