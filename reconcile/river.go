package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/coursekit/billing"
	"github.com/open-rails/coursekit/subscription"
)

// ReconcileUserArgs is enqueued by the host app's billing webhook handler.
type ReconcileUserArgs struct {
	SchoolID uuid.UUID `json:"school_id"`
	UserID   uuid.UUID `json:"user_id"`
	// Sync pulls fresh records from the billing provider before reconciling.
	Sync bool `json:"sync"`
}

func (ReconcileUserArgs) Kind() string { return "reconcile_user" }

// Upserter persists billing-provider records ahead of reconciliation.
type Upserter interface {
	Upsert(ctx context.Context, sub *subscription.Subscription) error
}

// ReconcileUserWorker reconciles one user per job. Failed jobs retry with
// river's backoff, which is exactly the contract for transient store errors.
type ReconcileUserWorker struct {
	river.WorkerDefaults[ReconcileUserArgs]
	rec      *subscription.Reconciler
	provider *billing.Provider // optional; required for Sync jobs
	upserts  Upserter
	log      *logrus.Entry
}

func NewReconcileUserWorker(rec *subscription.Reconciler, provider *billing.Provider, upserts Upserter, log *logrus.Entry) *ReconcileUserWorker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ReconcileUserWorker{rec: rec, provider: provider, upserts: upserts, log: log}
}

func (w *ReconcileUserWorker) Work(ctx context.Context, job *river.Job[ReconcileUserArgs]) error {
	args := job.Args
	now := time.Now()
	if args.Sync && w.provider != nil {
		remote, err := w.provider.FetchSubscriptions(ctx, args.SchoolID, args.UserID)
		if err != nil {
			return err // transient; river retries with backoff
		}
		for i := range remote {
			if err := w.upserts.Upsert(ctx, &remote[i]); err != nil {
				return err
			}
		}
	}
	res, err := w.rec.ReconcileUser(ctx, args.SchoolID, args.UserID, now)
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		"school_id": args.SchoolID,
		"user_id":   args.UserID,
		"checked":   res.Checked,
		"updated":   res.Updated,
		"cascaded":  res.Cascaded,
		"failed":    res.Failed,
	}).Info("user reconciliation job finished")
	return nil
}

// NewRiverClient builds a river client with the reconcile worker registered.
// The host app owns starting and stopping it.
func NewRiverClient(pool *pgxpool.Pool, worker *ReconcileUserWorker, maxWorkers int) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
}

// EnqueueReconcile inserts a reconcile job, deduplicating identical args over
// a short period so webhook storms collapse to one run.
func EnqueueReconcile(ctx context.Context, client *river.Client[pgx.Tx], args ReconcileUserArgs) error {
	_, err := client.Insert(ctx, args, &river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: time.Minute},
	})
	return err
}
