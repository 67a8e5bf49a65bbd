package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/entitlements"
	memorystore "github.com/open-rails/coursekit/storage/memory"
	"github.com/open-rails/coursekit/subscription"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

func TestReconcileUser_NoOpWhenFresh(t *testing.T) {
	schoolID, userID := uuid.New(), uuid.New()
	subs := memorystore.NewSubscriptionStore()
	subs.Put(subscription.Subscription{
		ID:               uuid.New(),
		SchoolID:         schoolID,
		UserID:           userID,
		CurrentPeriodEnd: tp(now.Add(24 * time.Hour)),
		Status:           subscription.StatusActive,
	})
	r := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Checked != 1 || res.Updated != 0 || res.Cascaded != 0 || res.Failed != 0 {
		t.Fatalf("fresh record should be a no-op, got %+v", res)
	}
}

func TestReconcileUser_ExpiryCascadesToEntitlements(t *testing.T) {
	schoolID, userID := uuid.New(), uuid.New()
	subID := uuid.New()
	subs := memorystore.NewSubscriptionStore()
	subs.Put(subscription.Subscription{
		ID:               subID,
		SchoolID:         schoolID,
		UserID:           userID,
		CurrentPeriodEnd: tp(now.Add(-30 * 24 * time.Hour)),
		Status:           subscription.StatusPastDue,
	})
	ents := memorystore.NewEntitlementStore()
	openEnded := uuid.New()
	ents.Put(entitlements.Entitlement{
		ID:       openEnded,
		SchoolID: schoolID,
		UserID:   userID,
		Type:     entitlements.TypeAllCourses,
		Source:   entitlements.SourceSubscription,
		SourceID: &subID,
	})
	r := subscription.NewReconciler(subs, ents, nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Updated != 1 || res.Cascaded != 1 {
		t.Fatalf("want 1 update and 1 capped grant, got %+v", res)
	}
	sub, _ := subs.Get(subID)
	if sub.Status != subscription.StatusExpired {
		t.Fatalf("cached status not refreshed, got %s", sub.Status)
	}
	e, _ := ents.Get(openEnded)
	if e.EndsAt == nil || !e.EndsAt.Equal(now) {
		t.Fatalf("open-ended grant should be capped at reconcile instant, got %v", e.EndsAt)
	}
}

func TestReconcileUser_CascadeNeverExtends(t *testing.T) {
	schoolID, userID := uuid.New(), uuid.New()
	subID := uuid.New()
	subs := memorystore.NewSubscriptionStore()
	subs.Put(subscription.Subscription{
		ID:               subID,
		SchoolID:         schoolID,
		UserID:           userID,
		CurrentPeriodEnd: tp(now.Add(-30 * 24 * time.Hour)),
		Status:           subscription.StatusPastDue,
	})
	ents := memorystore.NewEntitlementStore()
	already := now.Add(-10 * 24 * time.Hour)
	earlier := uuid.New()
	ents.Put(entitlements.Entitlement{
		ID:       earlier,
		SchoolID: schoolID,
		UserID:   userID,
		Type:     entitlements.TypeCourse,
		Source:   entitlements.SourceSubscription,
		SourceID: &subID,
		EndsAt:   &already,
	})
	r := subscription.NewReconciler(subs, ents, nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Cascaded != 0 {
		t.Fatalf("grant already expired must not be touched, got %+v", res)
	}
	e, _ := ents.Get(earlier)
	if !e.EndsAt.Equal(already) {
		t.Fatalf("cap moved an earlier expiry: %v", e.EndsAt)
	}
}

func TestReconcileUser_RecapsGrantsWhenAlreadyExpired(t *testing.T) {
	// A crash between the status write and the cascade leaves the row cached
	// EXPIRED with its grants still open-ended. The next pass must cap them
	// even though the status itself is a no-op.
	schoolID, userID := uuid.New(), uuid.New()
	subID := uuid.New()
	subs := memorystore.NewSubscriptionStore()
	subs.Put(subscription.Subscription{
		ID:               subID,
		SchoolID:         schoolID,
		UserID:           userID,
		CurrentPeriodEnd: tp(now.Add(-30 * 24 * time.Hour)),
		Status:           subscription.StatusExpired,
	})
	ents := memorystore.NewEntitlementStore()
	orphaned := uuid.New()
	ents.Put(entitlements.Entitlement{
		ID:       orphaned,
		SchoolID: schoolID,
		UserID:   userID,
		Type:     entitlements.TypeAllCourses,
		Source:   entitlements.SourceSubscription,
		SourceID: &subID,
	})
	r := subscription.NewReconciler(subs, ents, nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Checked != 1 || res.Updated != 0 || res.Cascaded != 1 || res.Failed != 0 {
		t.Fatalf("want the orphaned grant capped without a status write, got %+v", res)
	}
	e, _ := ents.Get(orphaned)
	if e.EndsAt == nil || !e.EndsAt.Equal(now) {
		t.Fatalf("grant not healed, ends at %v", e.EndsAt)
	}

	// Repeating the pass is a clean no-op: the cap only tightens once.
	res, err = r.ReconcileUser(context.Background(), schoolID, userID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Cascaded != 0 || res.Failed != 0 {
		t.Fatalf("second pass should find nothing to cap, got %+v", res)
	}
}

func TestReconcileUser_InitializesUnsetStatus(t *testing.T) {
	// Rows upserted from the billing provider arrive with no cached status.
	schoolID, userID := uuid.New(), uuid.New()
	subID := uuid.New()
	subs := memorystore.NewSubscriptionStore()
	subs.Put(subscription.Subscription{
		ID:               subID,
		SchoolID:         schoolID,
		UserID:           userID,
		CurrentPeriodEnd: tp(now.Add(30 * 24 * time.Hour)),
	})
	r := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("ReconcileUser: %v", err)
	}
	if res.Updated != 1 || res.Failed != 0 {
		t.Fatalf("unset status must initialize, not fail, got %+v", res)
	}
	sub, _ := subs.Get(subID)
	if sub.Status != subscription.StatusActive {
		t.Fatalf("want ACTIVE written, got %q", sub.Status)
	}
}

// failingStore wraps the memory store and fails UpdateStatus for one id.
type failingStore struct {
	*memorystore.SubscriptionStore
	failID uuid.UUID
}

func (s *failingStore) UpdateStatus(ctx context.Context, schoolID, id uuid.UUID, status subscription.Status, now time.Time) error {
	if id == s.failID {
		return errors.New("write timeout")
	}
	return s.SubscriptionStore.UpdateStatus(ctx, schoolID, id, status, now)
}

func TestReconcileUser_FailureIsolation(t *testing.T) {
	schoolID, userID := uuid.New(), uuid.New()
	badID, goodID := uuid.New(), uuid.New()
	inner := memorystore.NewSubscriptionStore()
	for _, id := range []uuid.UUID{badID, goodID} {
		inner.Put(subscription.Subscription{
			ID:               id,
			SchoolID:         schoolID,
			UserID:           userID,
			CurrentPeriodEnd: tp(now.Add(-time.Hour)),
			Status:           subscription.StatusActive,
		})
	}
	subs := &failingStore{SubscriptionStore: inner, failID: badID}
	r := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)

	res, err := r.ReconcileUser(context.Background(), schoolID, userID, now)
	if err != nil {
		t.Fatalf("per-record failure must not abort the pass: %v", err)
	}
	if res.Checked != 2 || res.Updated != 1 || res.Failed != 1 {
		t.Fatalf("want 2 checked, 1 updated, 1 failed, got %+v", res)
	}
	good, _ := inner.Get(goodID)
	if good.Status != subscription.StatusPastDue {
		t.Fatalf("healthy record should still reconcile, got %s", good.Status)
	}
}

func TestReconcileBatch_RefusesInvalidTransition(t *testing.T) {
	schoolID := uuid.New()
	// Cached EXPIRED but a running period: computed ACTIVE. The lifecycle is
	// one-directional, so the reconciler must refuse and count a failure.
	batch := []subscription.Subscription{{
		ID:               uuid.New(),
		SchoolID:         schoolID,
		UserID:           uuid.New(),
		CurrentPeriodEnd: tp(now.Add(24 * time.Hour)),
		Status:           subscription.StatusExpired,
	}}
	r := subscription.NewReconciler(memorystore.NewSubscriptionStore(), memorystore.NewEntitlementStore(), nil, nil)

	res := r.ReconcileBatch(context.Background(), batch, now)
	if res.Failed != 1 || res.Updated != 0 {
		t.Fatalf("invalid transition should fail, not write, got %+v", res)
	}
}
