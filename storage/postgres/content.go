package pgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/coursekit/access"
	"github.com/open-rails/coursekit/content"
)

// ContentStore reads courses, lessons, and materials. Absent rows return
// (nil, nil) so the access service can distinguish not-found from faults.
type ContentStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewContentStore(pg *pgxpool.Pool, schema string) *ContentStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &ContentStore{pg: pg, schema: s}
}

func (s *ContentStore) courses() string   { return s.schema + ".courses" }
func (s *ContentStore) lessons() string   { return s.schema + ".lessons" }
func (s *ContentStore) materials() string { return s.schema + ".materials" }
func (s *ContentStore) policies() string  { return s.schema + ".protection_policies" }

func (s *ContentStore) GetCourse(ctx context.Context, schoolID, courseID uuid.UUID) (*content.Course, error) {
	if s.pg == nil || schoolID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var c content.Course
	err := s.pg.QueryRow(ctx, `SELECT id, school_id, title, instructor, is_published, is_free, created_at, updated_at
		FROM `+s.courses()+` WHERE school_id=$1 AND id=$2 LIMIT 1`, schoolID, courseID).
		Scan(&c.ID, &c.SchoolID, &c.Title, &c.Instructor, &c.IsPublished, &c.IsFree, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ContentStore) GetLesson(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Lesson, error) {
	if s.pg == nil || schoolID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var l content.Lesson
	err := s.pg.QueryRow(ctx, `SELECT id, school_id, course_id, title, position, is_published,
			duration_seconds, drip_publish_at, drip_days_after_enroll, created_at, updated_at
		FROM `+s.lessons()+` WHERE school_id=$1 AND id=$2 LIMIT 1`, schoolID, lessonID).
		Scan(&l.ID, &l.SchoolID, &l.CourseID, &l.Title, &l.Position, &l.IsPublished,
			&l.DurationSeconds, &l.Drip.PublishAt, &l.Drip.DaysAfterEnroll, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *ContentStore) GetMaterial(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Material, error) {
	if s.pg == nil || schoolID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var m content.Material
	err := s.pg.QueryRow(ctx, `SELECT m.lesson_id, m.content_text, m.media_url, m.duration_seconds
		FROM `+s.materials()+` m
		JOIN `+s.lessons()+` l ON l.id = m.lesson_id
		WHERE l.school_id=$1 AND m.lesson_id=$2 LIMIT 1`, schoolID, lessonID).
		Scan(&m.LessonID, &m.ContentText, &m.MediaURL, &m.DurationSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetPolicy returns the school's preview limits, or zero values (caller
// applies defaults) when none are stored.
func (s *ContentStore) GetPolicy(ctx context.Context, schoolID uuid.UUID) (access.Policy, error) {
	if s.pg == nil || schoolID == uuid.Nil {
		return access.Policy{}, nil
	}
	var p access.Policy
	err := s.pg.QueryRow(ctx, `SELECT max_preview_chars, max_preview_seconds
		FROM `+s.policies()+` WHERE school_id=$1 LIMIT 1`, schoolID).
		Scan(&p.MaxPreviewChars, &p.MaxPreviewSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return access.Policy{}, nil
	}
	if err != nil {
		return access.Policy{}, err
	}
	return p, nil
}
