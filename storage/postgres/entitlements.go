package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/coursekit/entitlements"
)

// EntitlementStore reads and appends to the grant ledger. Rows are never
// deleted; expiry only tightens ends_at.
type EntitlementStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewEntitlementStore(pg *pgxpool.Pool, schema string) *EntitlementStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &EntitlementStore{pg: pg, schema: s}
}

func (s *EntitlementStore) table() string { return s.schema + ".entitlements" }

const entitlementCols = `id, school_id, user_id, type, course_id, source, source_id, starts_at, ends_at, created_at, updated_at`

// ListByUser returns the user's full grant ledger in the school.
func (s *EntitlementStore) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]entitlements.Entitlement, error) {
	if s.pg == nil || schoolID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	rows, err := s.pg.Query(ctx, `SELECT `+entitlementCols+` FROM `+s.table()+`
		WHERE school_id=$1 AND user_id=$2 ORDER BY created_at ASC`, schoolID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []entitlements.Entitlement
	for rows.Next() {
		var e entitlements.Entitlement
		if err := rows.Scan(&e.ID, &e.SchoolID, &e.UserID, &e.Type, &e.CourseID,
			&e.Source, &e.SourceID, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create appends a grant to the ledger.
func (s *EntitlementStore) Create(ctx context.Context, e *entitlements.Entitlement) error {
	if s.pg == nil || e == nil || e.SchoolID == uuid.Nil {
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+`
		(id, school_id, user_id, type, course_id, source, source_id, starts_at, ends_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())`,
		e.ID, e.SchoolID, e.UserID, e.Type, e.CourseID, e.Source, e.SourceID, e.StartsAt, e.EndsAt)
	return err
}

// CapBySource tightens ends_at to endsAt for grants sourced from sourceID.
// Rows already ending at or before the cap are untouched: an expiry is never
// pulled forward to a later instant, and a re-run is a no-op.
func (s *EntitlementStore) CapBySource(ctx context.Context, schoolID, sourceID uuid.UUID, endsAt time.Time) (int, error) {
	if s.pg == nil || schoolID == uuid.Nil || sourceID == uuid.Nil {
		return 0, nil
	}
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.table()+` SET ends_at=$3, updated_at=NOW()
		WHERE school_id=$1 AND source_id=$2
		  AND (ends_at IS NULL OR ends_at > $3)`, schoolID, sourceID, endsAt)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
