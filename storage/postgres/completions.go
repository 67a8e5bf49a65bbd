package pgstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompletionStore counts lesson completion for certificate eligibility.
type CompletionStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewCompletionStore(pg *pgxpool.Pool, schema string) *CompletionStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &CompletionStore{pg: pg, schema: s}
}

func (s *CompletionStore) lessons() string     { return s.schema + ".lessons" }
func (s *CompletionStore) completions() string { return s.schema + ".lesson_completions" }

// LessonCounts returns how many lessons of the course are published and how
// many of those the user has completed. Completions of since-unpublished
// lessons do not count toward the ratio.
func (s *CompletionStore) LessonCounts(ctx context.Context, schoolID, courseID, userID uuid.UUID) (published, completed int, err error) {
	if s.pg == nil || schoolID == uuid.Nil || courseID == uuid.Nil || userID == uuid.Nil {
		return 0, 0, nil
	}
	err = s.pg.QueryRow(ctx, `SELECT
			COUNT(*) FILTER (WHERE l.is_published),
			COUNT(*) FILTER (WHERE l.is_published AND c.user_id IS NOT NULL)
		FROM `+s.lessons()+` l
		LEFT JOIN `+s.completions()+` c
			ON c.lesson_id = l.id AND c.school_id = l.school_id AND c.user_id = $3
		WHERE l.school_id=$1 AND l.course_id=$2`, schoolID, courseID, userID).
		Scan(&published, &completed)
	return published, completed, err
}

// MarkCompleted records a lesson completion. Idempotent: repeats are no-ops.
func (s *CompletionStore) MarkCompleted(ctx context.Context, schoolID, userID, lessonID uuid.UUID) error {
	if s.pg == nil || schoolID == uuid.Nil || userID == uuid.Nil || lessonID == uuid.Nil {
		return nil
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.completions()+`
		(school_id, user_id, lesson_id, completed_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (school_id, user_id, lesson_id) DO NOTHING`, schoolID, userID, lessonID)
	return err
}
