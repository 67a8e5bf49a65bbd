// Package pgstore provides the pgx-backed stores. Every query is scoped by
// school_id; nothing here lists across tenants.
package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/coursekit/subscription"
)

const defaultSchema = "coursekit"

// SubscriptionStore reads and writes subscription rows against the coursekit
// schema.
type SubscriptionStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewSubscriptionStore(pg *pgxpool.Pool, schema string) *SubscriptionStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &SubscriptionStore{pg: pg, schema: s}
}

func (s *SubscriptionStore) table() string { return s.schema + ".subscriptions" }

const subscriptionCols = `id, school_id, user_id, current_period_end, canceled_at, grace_days, status, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (subscription.Subscription, error) {
	var sub subscription.Subscription
	err := row.Scan(&sub.ID, &sub.SchoolID, &sub.UserID, &sub.CurrentPeriodEnd, &sub.CanceledAt,
		&sub.GraceDays, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// ListByUser returns all of a user's subscriptions in the school, newest first.
func (s *SubscriptionStore) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]subscription.Subscription, error) {
	if s.pg == nil || schoolID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	rows, err := s.pg.Query(ctx, `SELECT `+subscriptionCols+` FROM `+s.table()+`
		WHERE school_id=$1 AND user_id=$2 ORDER BY created_at DESC`, schoolID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListDue returns subscriptions whose cached status may be stale at now:
// still marked as granting access but with a period end already behind us.
func (s *SubscriptionStore) ListDue(ctx context.Context, schoolID uuid.UUID, now time.Time, limit int) ([]subscription.Subscription, error) {
	if s.pg == nil || schoolID == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pg.Query(ctx, `SELECT `+subscriptionCols+` FROM `+s.table()+`
		WHERE school_id=$1 AND status <> 'EXPIRED'
		  AND current_period_end IS NOT NULL AND current_period_end <= $2
		ORDER BY current_period_end ASC LIMIT $3`, schoolID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// UpdateStatus refreshes the cached status column.
func (s *SubscriptionStore) UpdateStatus(ctx context.Context, schoolID, id uuid.UUID, status subscription.Status, now time.Time) error {
	if s.pg == nil || schoolID == uuid.Nil || id == uuid.Nil {
		return nil
	}
	_, err := s.pg.Exec(ctx, `UPDATE `+s.table()+` SET status=$3, updated_at=$4
		WHERE school_id=$1 AND id=$2`, schoolID, id, status, now)
	return err
}

// Upsert reconciles a remote billing record into local storage. Existing rows
// update period end, cancellation, and grace; the cached status is left for
// the reconciler to refresh.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	if s.pg == nil || sub == nil || sub.SchoolID == uuid.Nil {
		return nil
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+`
		(id, school_id, user_id, current_period_end, canceled_at, grace_days, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		ON CONFLICT (id) DO UPDATE SET
			current_period_end=EXCLUDED.current_period_end,
			canceled_at=EXCLUDED.canceled_at,
			grace_days=EXCLUDED.grace_days,
			updated_at=NOW()`,
		sub.ID, sub.SchoolID, sub.UserID, sub.CurrentPeriodEnd, sub.CanceledAt, sub.GraceDays, sub.Status)
	return err
}
