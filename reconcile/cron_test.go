package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/reconcile"
	memorystore "github.com/open-rails/coursekit/storage/memory"
	"github.com/open-rails/coursekit/subscription"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

func TestSweep_ReconcilesDueAcrossSchools(t *testing.T) {
	schoolA, schoolB := uuid.New(), uuid.New()
	subs := memorystore.NewSubscriptionStore()
	overdueA, overdueB, freshA := uuid.New(), uuid.New(), uuid.New()
	subs.Put(subscription.Subscription{
		ID: overdueA, SchoolID: schoolA, UserID: uuid.New(),
		CurrentPeriodEnd: tp(now.Add(-time.Hour)), Status: subscription.StatusActive,
	})
	subs.Put(subscription.Subscription{
		ID: overdueB, SchoolID: schoolB, UserID: uuid.New(),
		CurrentPeriodEnd: tp(now.Add(-30 * 24 * time.Hour)), Status: subscription.StatusPastDue,
	})
	subs.Put(subscription.Subscription{
		ID: freshA, SchoolID: schoolA, UserID: uuid.New(),
		CurrentPeriodEnd: tp(now.Add(24 * time.Hour)), Status: subscription.StatusActive,
	})

	rec := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)
	schools := func(ctx context.Context) ([]uuid.UUID, error) {
		return []uuid.UUID{schoolA, schoolB}, nil
	}
	runner, err := reconcile.NewCronRunner("", subs, rec, schools, 0, nil)
	if err != nil {
		t.Fatalf("NewCronRunner: %v", err)
	}

	total := runner.Sweep(context.Background(), now)
	if total.Checked != 2 || total.Updated != 2 || total.Failed != 0 {
		t.Fatalf("want both overdue records reconciled, got %+v", total)
	}
	if got, _ := subs.Get(overdueA); got.Status != subscription.StatusPastDue {
		t.Errorf("school A record: %s", got.Status)
	}
	if got, _ := subs.Get(overdueB); got.Status != subscription.StatusExpired {
		t.Errorf("school B record: %s", got.Status)
	}
	if got, _ := subs.Get(freshA); got.Status != subscription.StatusActive {
		t.Errorf("fresh record must be untouched: %s", got.Status)
	}
}

func TestSweep_SchoolListerFailure(t *testing.T) {
	subs := memorystore.NewSubscriptionStore()
	rec := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)
	schools := func(ctx context.Context) ([]uuid.UUID, error) {
		return nil, errors.New("directory down")
	}
	runner, err := reconcile.NewCronRunner("", subs, rec, schools, 0, nil)
	if err != nil {
		t.Fatalf("NewCronRunner: %v", err)
	}
	total := runner.Sweep(context.Background(), now)
	if total.Checked != 0 {
		t.Fatalf("nothing should run when enumeration fails, got %+v", total)
	}
}

func TestNewCronRunner_BadSchedule(t *testing.T) {
	subs := memorystore.NewSubscriptionStore()
	rec := subscription.NewReconciler(subs, memorystore.NewEntitlementStore(), nil, nil)
	schools := func(ctx context.Context) ([]uuid.UUID, error) { return nil, nil }
	if _, err := reconcile.NewCronRunner("not a cron spec", subs, rec, schools, 0, nil); err == nil {
		t.Fatal("invalid schedule must be rejected")
	}
}
