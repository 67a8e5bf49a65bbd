package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/coursekit/core"
)

// Store is the scoped persistence the Reconciler reads and writes. Every call
// is school-scoped; the kit never issues an unscoped list.
type Store interface {
	// ListByUser returns all of a user's subscriptions in the school.
	ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]Subscription, error)
	// ListDue returns subscriptions whose cached status may be stale at the
	// reference instant (period end or grace boundary crossed), oldest first.
	ListDue(ctx context.Context, schoolID uuid.UUID, now time.Time, limit int) ([]Subscription, error)
	// UpdateStatus persists a recomputed cached status.
	UpdateStatus(ctx context.Context, schoolID, id uuid.UUID, status Status, now time.Time) error
}

// Capper caps ends_at for entitlements sourced from a subscription. The
// implementation must only tighten: rows whose ends_at is already at or
// before the cap are left alone (never pull an earlier expiry forward).
// Returns the number of grants capped.
type Capper interface {
	CapBySource(ctx context.Context, schoolID, sourceID uuid.UUID, endsAt time.Time) (int, error)
}

// Invalidator drops cached access decisions after state changes. Best-effort.
type Invalidator interface {
	InvalidateUser(ctx context.Context, schoolID, userID uuid.UUID) error
}

// Result aggregates one reconciliation pass. Failures are isolated per
// subscription and counted here rather than aborting the pass.
type Result struct {
	Checked  int
	Updated  int
	Cascaded int
	Failed   int
}

// Reconciler recomputes subscription status and persists corrections,
// cascading entitlement expiry when a subscription transitions into EXPIRED.
type Reconciler struct {
	subs  Store
	ents  Capper
	cache Invalidator // optional
	log   *logrus.Entry
}

// NewReconciler wires a reconciler. cache may be nil.
func NewReconciler(subs Store, ents Capper, cache Invalidator, log *logrus.Entry) *Reconciler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reconciler{subs: subs, ents: ents, cache: cache, log: log}
}

// ReconcileUser recomputes every subscription of one user against the
// reference instant. A failing update is logged and counted; it never aborts
// the remaining subscriptions. The returned error covers only the initial
// listing (nothing was reconciled).
func (r *Reconciler) ReconcileUser(ctx context.Context, schoolID, userID uuid.UUID, now time.Time) (Result, error) {
	var res Result
	if schoolID == uuid.Nil || userID == uuid.Nil {
		return res, core.Invalid("id", "school and user id required")
	}
	subs, err := r.subs.ListByUser(ctx, schoolID, userID)
	if err != nil {
		return res, core.Transient("reconcile: list subscriptions", err)
	}
	changed := false
	for i := range subs {
		upd, casc, ok := r.reconcileOne(ctx, &subs[i], now)
		res.Checked++
		if !ok {
			res.Failed++
			continue
		}
		if upd {
			res.Updated++
		}
		res.Cascaded += casc
		if upd || casc > 0 {
			changed = true
		}
	}
	if changed && r.cache != nil {
		if err := r.cache.InvalidateUser(ctx, schoolID, userID); err != nil {
			r.log.WithError(err).WithField("user_id", userID).Warn("decision cache invalidation failed")
		}
	}
	return res, nil
}

// ReconcileBatch reconciles an already-fetched batch (the cron sweep path).
func (r *Reconciler) ReconcileBatch(ctx context.Context, subs []Subscription, now time.Time) Result {
	var res Result
	touched := map[uuid.UUID]uuid.UUID{} // user -> school
	for i := range subs {
		upd, casc, ok := r.reconcileOne(ctx, &subs[i], now)
		res.Checked++
		if !ok {
			res.Failed++
			continue
		}
		if upd {
			res.Updated++
		}
		res.Cascaded += casc
		if upd || casc > 0 {
			touched[subs[i].UserID] = subs[i].SchoolID
		}
	}
	if r.cache != nil {
		for userID, schoolID := range touched {
			if err := r.cache.InvalidateUser(ctx, schoolID, userID); err != nil {
				r.log.WithError(err).WithField("user_id", userID).Warn("decision cache invalidation failed")
			}
		}
	}
	return res
}

// reconcileOne recomputes one subscription. Reports whether the cached status
// changed, how many grants were capped, and whether the step succeeded.
func (r *Reconciler) reconcileOne(ctx context.Context, sub *Subscription, now time.Time) (updated bool, cascaded int, ok bool) {
	computed := ResolveStatus(sub, now)
	if computed == sub.Status {
		if computed != StatusExpired {
			return false, 0, true // idempotent no-op
		}
		// Already EXPIRED: a crash between the status write and the cascade
		// leaves open-ended grants behind, so re-run the (idempotent) cap.
		n, err := r.capSourcedGrants(ctx, sub, now)
		if err != nil {
			return false, 0, false
		}
		return false, n, true
	}
	log := r.log.WithFields(logrus.Fields{
		"school_id":       sub.SchoolID,
		"subscription_id": sub.ID,
		"from":            sub.Status,
		"to":              computed,
	})
	if !CanTransition(sub.Status, computed) {
		log.Warn("refusing invalid status transition")
		return false, 0, false
	}
	if err := r.subs.UpdateStatus(ctx, sub.SchoolID, sub.ID, computed, now); err != nil {
		log.WithError(err).Error("status update failed")
		return false, 0, false
	}
	log.Info("subscription status reconciled")
	if computed != StatusExpired {
		return true, 0, true
	}
	// A crash between the status write and the cascade leaves grants
	// temporarily over-broad, never under-broad; the no-op branch above
	// heals it on the next pass.
	n, err := r.capSourcedGrants(ctx, sub, now)
	if err != nil {
		return true, 0, false
	}
	return true, n, true
}

// capSourcedGrants tightens ends_at on the subscription's grants. Safe to
// repeat: already-capped grants are left alone.
func (r *Reconciler) capSourcedGrants(ctx context.Context, sub *Subscription, now time.Time) (int, error) {
	n, err := r.ents.CapBySource(ctx, sub.SchoolID, sub.ID, now)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"school_id":       sub.SchoolID,
			"subscription_id": sub.ID,
		}).Error("entitlement expiry cascade failed")
		return 0, err
	}
	if n > 0 {
		r.log.WithFields(logrus.Fields{
			"school_id":       sub.SchoolID,
			"subscription_id": sub.ID,
			"capped":          n,
		}).Info("entitlements capped after expiry")
	}
	return n, nil
}
