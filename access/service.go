package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/coursekit/content"
	"github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/drip"
	"github.com/open-rails/coursekit/entitlements"
)

// ContentStore reads courses, lessons, and materials. Absent records return
// (nil, nil); errors are persistence faults.
type ContentStore interface {
	GetCourse(ctx context.Context, schoolID, courseID uuid.UUID) (*content.Course, error)
	GetLesson(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Lesson, error)
	GetMaterial(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Material, error)
}

// EntitlementLister reads a user's grant ledger.
type EntitlementLister interface {
	ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]entitlements.Entitlement, error)
}

// PolicyStore reads a school's content protection policy.
type PolicyStore interface {
	GetPolicy(ctx context.Context, schoolID uuid.UUID) (Policy, error)
}

// DecisionCache is an advisory cache of resolved decisions. Misses recompute;
// errors degrade to a miss.
type DecisionCache interface {
	Get(ctx context.Context, schoolID, userID, lessonID uuid.UUID) (Decision, bool, error)
	Put(ctx context.Context, schoolID, userID, lessonID uuid.UUID, d Decision) error
}

// Service is the single entry point handlers use to resolve access and fetch
// sanitized material. Read paths fail soft: a backend hiccup degrades to
// "treat as not entitled" rather than an error page, and the asymmetry is
// deliberate (deny on doubt for exposure; never widen on doubt).
type Service struct {
	store  ContentStore
	ents   EntitlementLister
	policy PolicyStore   // optional; defaults apply
	cache  DecisionCache // optional
	log    *logrus.Entry
}

// NewService wires an access service. policy and cache may be nil.
func NewService(store ContentStore, ents EntitlementLister, policy PolicyStore, cache DecisionCache, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, ents: ents, policy: policy, cache: cache, log: log}
}

// LessonAccess resolves the caller's access level for one lesson. preview
// requests the sampling flow (userID may be Nil then). The reference instant
// now must be captured once per request and passed through.
//
// Returns core.ErrNotFound when the lesson or its course does not exist.
func (s *Service) LessonAccess(ctx context.Context, now time.Time, schoolID, userID, lessonID uuid.UUID, preview bool) (Decision, error) {
	if schoolID == uuid.Nil || lessonID == uuid.Nil {
		return Decision{Level: LevelLocked}, core.Invalid("id", "school and lesson id required")
	}
	cacheable := !preview && s.cache != nil && userID != uuid.Nil
	if cacheable {
		if d, ok, err := s.cache.Get(ctx, schoolID, userID, lessonID); err == nil && ok {
			return d, nil
		}
	}

	lesson, err := s.store.GetLesson(ctx, schoolID, lessonID)
	if err != nil {
		s.log.WithError(err).WithField("lesson_id", lessonID).Warn("lesson read failed; denying")
		return Decision{Level: LevelLocked}, nil
	}
	if lesson == nil {
		return Decision{Level: LevelLocked}, core.ErrNotFound
	}
	course, err := s.store.GetCourse(ctx, schoolID, lesson.CourseID)
	if err != nil {
		s.log.WithError(err).WithField("course_id", lesson.CourseID).Warn("course read failed; denying")
		return Decision{Level: LevelLocked}, nil
	}
	if course == nil {
		return Decision{Level: LevelLocked}, core.ErrNotFound
	}

	ents, enrolledAt := s.userGrants(ctx, schoolID, userID, lesson.CourseID)

	var d Decision
	if preview {
		d = ClassifyPreview(lesson, enrolledAt, now)
	} else {
		d = Classify(course, lesson, ents, enrolledAt, now)
	}
	if cacheable {
		if err := s.cache.Put(ctx, schoolID, userID, lessonID, d); err != nil {
			s.log.WithError(err).Debug("decision cache put failed")
		}
	}
	return d, nil
}

// LessonMaterial resolves access and, only when the level warrants it,
// fetches and sanitizes the payload. The nil material for LOCKED/DRIP_LOCKED
// is the contract: retrieval is skipped entirely, not fetched and hidden.
func (s *Service) LessonMaterial(ctx context.Context, now time.Time, schoolID, userID, lessonID uuid.UUID, preview bool) (*content.Material, Decision, error) {
	d, err := s.LessonAccess(ctx, now, schoolID, userID, lessonID, preview)
	if err != nil {
		return nil, d, err
	}
	if !ShouldFetchMaterials(d.Level) {
		return nil, d, nil
	}
	m, err := s.store.GetMaterial(ctx, schoolID, lessonID)
	if err != nil {
		s.log.WithError(err).WithField("lesson_id", lessonID).Warn("material read failed; withholding")
		return nil, d, nil
	}
	if m == nil {
		return nil, d, core.ErrNotFound
	}
	return SanitizeMaterial(m, d.Level, s.schoolPolicy(ctx, schoolID)), d, nil
}

// userGrants loads the ledger and derives the drip enrollment date. Failures
// degrade to an empty ledger.
func (s *Service) userGrants(ctx context.Context, schoolID, userID, courseID uuid.UUID) ([]entitlements.Entitlement, *time.Time) {
	if userID == uuid.Nil || s.ents == nil {
		return nil, nil
	}
	ents, err := s.ents.ListByUser(ctx, schoolID, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("entitlement read failed; treating as none")
		return nil, nil
	}
	return ents, drip.EnrollDate(ents, courseID)
}

func (s *Service) schoolPolicy(ctx context.Context, schoolID uuid.UUID) Policy {
	if s.policy == nil {
		return Policy{}
	}
	p, err := s.policy.GetPolicy(ctx, schoolID)
	if err != nil {
		s.log.WithError(err).Debug("policy read failed; using defaults")
		return Policy{}
	}
	return p
}
