package pgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/coursekit/certificates"
	"github.com/open-rails/coursekit/core"
)

// CertificateStore persists issued certificates. The unique index on
// (school_id, user_id, course_id) is what closes the issue-twice race; a
// duplicate insert surfaces as core.ErrConflict.
type CertificateStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewCertificateStore(pg *pgxpool.Pool, schema string) *CertificateStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &CertificateStore{pg: pg, schema: s}
}

func (s *CertificateStore) table() string { return s.schema + ".certificates" }

func (s *CertificateStore) Get(ctx context.Context, schoolID, userID, courseID uuid.UUID) (*certificates.Certificate, error) {
	if s.pg == nil || schoolID == uuid.Nil || userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var c certificates.Certificate
	err := s.pg.QueryRow(ctx, `SELECT id, school_id, user_id, course_id, course_title, instructor, issued_at
		FROM `+s.table()+` WHERE school_id=$1 AND user_id=$2 AND course_id=$3 LIMIT 1`,
		schoolID, userID, courseID).
		Scan(&c.ID, &c.SchoolID, &c.UserID, &c.CourseID, &c.CourseTitle, &c.Instructor, &c.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CertificateStore) Create(ctx context.Context, cert *certificates.Certificate) error {
	if s.pg == nil || cert == nil {
		return nil
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+`
		(id, school_id, user_id, course_id, course_title, instructor, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		cert.ID, cert.SchoolID, cert.UserID, cert.CourseID, cert.CourseTitle, cert.Instructor, cert.IssuedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.ErrConflict
	}
	return err
}
