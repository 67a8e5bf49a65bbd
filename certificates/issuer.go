// Package certificates mints completion certificates. Issuance is idempotent
// per (school, user, course): repeats return the existing certificate, and a
// storage unique index makes concurrent first issuance converge on one row.
package certificates

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/coursekit/content"
	"github.com/open-rails/coursekit/core"
)

// Certificate is immutable once issued. Title and instructor are snapshots
// taken at issuance so later course edits do not rewrite history.
type Certificate struct {
	ID          string
	SchoolID    uuid.UUID
	UserID      uuid.UUID
	CourseID    uuid.UUID
	CourseTitle string
	Instructor  string
	IssuedAt    time.Time
}

// Store persists certificates. Get returns (nil, nil) when absent; Create
// returns core.ErrConflict when the (school, user, course) unique index
// rejects a duplicate.
type Store interface {
	Get(ctx context.Context, schoolID, userID, courseID uuid.UUID) (*Certificate, error)
	Create(ctx context.Context, cert *Certificate) error
}

// CompletionSource counts a user's progress through a course's published
// lessons. Zero published lessons means the course cannot be completed.
type CompletionSource interface {
	LessonCounts(ctx context.Context, schoolID, courseID, userID uuid.UUID) (published, completed int, err error)
}

// Issuer mints certificates.
type Issuer struct {
	store      Store
	completion CompletionSource
	log        *logrus.Entry
}

func NewIssuer(store Store, completion CompletionSource, log *logrus.Entry) *Issuer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Issuer{store: store, completion: completion, log: log}
}

// NewID mints a certificate id: issuance unix timestamp plus a base58 random
// suffix. Uniqueness of the certificate itself is enforced by the storage
// index on (school, user, course), not by this id.
func NewID(now time.Time) string {
	suffix := make([]byte, 6)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s", now.Unix(), base58.Encode(suffix))
}

// IssueIfEligible returns the existing certificate unchanged when one exists
// for (school, user, course). Otherwise it requires 100% completion of the
// course's published lessons (unless force) and mints a snapshot certificate.
// An incomplete course yields core.ErrIneligible.
func (i *Issuer) IssueIfEligible(ctx context.Context, now time.Time, course *content.Course, userID uuid.UUID, force bool) (*Certificate, error) {
	if course == nil {
		return nil, core.ErrNotFound
	}
	if userID == uuid.Nil {
		return nil, core.Invalid("user_id", "required")
	}

	existing, err := i.store.Get(ctx, course.SchoolID, userID, course.ID)
	if err != nil {
		return nil, core.Transient("certificates: lookup", err)
	}
	if existing != nil {
		return existing, nil
	}

	if !force {
		published, completed, err := i.completion.LessonCounts(ctx, course.SchoolID, course.ID, userID)
		if err != nil {
			return nil, core.Transient("certificates: completion counts", err)
		}
		// Zero published lessons can never be 100% complete; also avoids a
		// divide by zero on the ratio.
		if published == 0 || completed < published {
			return nil, fmt.Errorf("course %s not completed (%d/%d): %w", course.ID, completed, published, core.ErrIneligible)
		}
	}

	cert := &Certificate{
		ID:          NewID(now),
		SchoolID:    course.SchoolID,
		UserID:      userID,
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Instructor:  course.Instructor,
		IssuedAt:    now,
	}
	if err := i.store.Create(ctx, cert); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Lost the race to a concurrent issuance; converge on its row.
			winner, rerr := i.store.Get(ctx, course.SchoolID, userID, course.ID)
			if rerr != nil {
				return nil, core.Transient("certificates: re-read after conflict", rerr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, core.Transient("certificates: create", err)
	}
	i.log.WithFields(logrus.Fields{
		"school_id":      cert.SchoolID,
		"user_id":        cert.UserID,
		"course_id":      cert.CourseID,
		"certificate_id": cert.ID,
		"forced":         force,
	}).Info("certificate issued")
	return cert, nil
}
