// Package memorystore provides mutex-guarded in-memory implementations of the
// kit's store interfaces, for tests and single-node local mode. They are
// interchangeable with the pgstore equivalents.
package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/subscription"
)

// SubscriptionStore is an in-memory subscription.Store.
type SubscriptionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]subscription.Subscription
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{rows: make(map[uuid.UUID]subscription.Subscription)}
}

// Put inserts or replaces a row (test/fixture path).
func (s *SubscriptionStore) Put(sub subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sub.ID] = sub
}

// Get returns a copy of one row, for assertions.
func (s *SubscriptionStore) Get(id uuid.UUID) (subscription.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	return sub, ok
}

func (s *SubscriptionStore) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]subscription.Subscription, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []subscription.Subscription
	for _, sub := range s.rows {
		if sub.SchoolID == schoolID && sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SubscriptionStore) ListDue(ctx context.Context, schoolID uuid.UUID, now time.Time, limit int) ([]subscription.Subscription, error) {
	_ = ctx
	if limit <= 0 {
		limit = 200
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []subscription.Subscription
	for _, sub := range s.rows {
		if sub.SchoolID != schoolID || sub.Status == subscription.StatusExpired {
			continue
		}
		if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.After(now) {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CurrentPeriodEnd.Before(*out[j].CurrentPeriodEnd)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SubscriptionStore) UpdateStatus(ctx context.Context, schoolID, id uuid.UUID, status subscription.Status, now time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	if !ok || sub.SchoolID != schoolID {
		return nil
	}
	sub.Status = status
	sub.UpdatedAt = now
	s.rows[id] = sub
	return nil
}
