package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/entitlements"
)

// EntitlementStore is an in-memory grant ledger.
type EntitlementStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]entitlements.Entitlement
}

func NewEntitlementStore() *EntitlementStore {
	return &EntitlementStore{rows: make(map[uuid.UUID]entitlements.Entitlement)}
}

// Put inserts or replaces a grant (test/fixture path).
func (s *EntitlementStore) Put(e entitlements.Entitlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.rows[e.ID] = e
}

// Get returns a copy of one grant, for assertions.
func (s *EntitlementStore) Get(id uuid.UUID) (entitlements.Entitlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	return e, ok
}

func (s *EntitlementStore) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]entitlements.Entitlement, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entitlements.Entitlement
	for _, e := range s.rows {
		if e.SchoolID == schoolID && e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *EntitlementStore) Create(ctx context.Context, e *entitlements.Entitlement) error {
	_ = ctx
	if e == nil {
		return nil
	}
	s.Put(*e)
	return nil
}

// CapBySource tightens ends_at for grants sourced from sourceID, leaving
// earlier expiries alone.
func (s *EntitlementStore) CapBySource(ctx context.Context, schoolID, sourceID uuid.UUID, endsAt time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	capped := 0
	for id, e := range s.rows {
		if e.SchoolID != schoolID || e.SourceID == nil || *e.SourceID != sourceID {
			continue
		}
		if e.EndsAt != nil && !e.EndsAt.After(endsAt) {
			continue
		}
		t := endsAt
		e.EndsAt = &t
		e.UpdatedAt = endsAt
		s.rows[id] = e
		capped++
	}
	return capped, nil
}
