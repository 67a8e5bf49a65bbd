// Package reconcile runs the subscription reconciler: a periodic cron sweep
// over due subscriptions, and a river worker for webhook-driven single-user
// reconciliation.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/coursekit/subscription"
)

// DefaultSweepSchedule runs once an hour, offset from the top of the hour to
// avoid colliding with billing-provider batch jobs.
const DefaultSweepSchedule = "17 * * * *"

// SchoolLister is supplied by the host app; school enumeration lives outside
// the kit's scoped stores.
type SchoolLister func(ctx context.Context) ([]uuid.UUID, error)

// CronRunner periodically sweeps each school's due subscriptions.
type CronRunner struct {
	c          *cron.Cron
	subs       subscription.Store
	rec        *subscription.Reconciler
	schools    SchoolLister
	batchLimit int
	log        *logrus.Entry
}

// NewCronRunner wires a sweep runner. schedule defaults to
// DefaultSweepSchedule; batchLimit bounds each school's sweep.
func NewCronRunner(schedule string, subs subscription.Store, rec *subscription.Reconciler, schools SchoolLister, batchLimit int, log *logrus.Entry) (*CronRunner, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if batchLimit <= 0 {
		batchLimit = 500
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &CronRunner{
		c:          cron.New(),
		subs:       subs,
		rec:        rec,
		schools:    schools,
		batchLimit: batchLimit,
		log:        log,
	}
	if _, err := r.c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		r.Sweep(ctx, time.Now())
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the schedule. Stop stops it and waits for a running sweep.
func (r *CronRunner) Start() { r.c.Start() }

func (r *CronRunner) Stop() context.Context { return r.c.Stop() }

// Sweep reconciles every school's due subscriptions against one reference
// instant. Per-school failures are logged and do not stop the sweep.
func (r *CronRunner) Sweep(ctx context.Context, now time.Time) subscription.Result {
	var total subscription.Result
	schools, err := r.schools(ctx)
	if err != nil {
		r.log.WithError(err).Error("sweep: listing schools failed")
		return total
	}
	for _, schoolID := range schools {
		due, err := r.subs.ListDue(ctx, schoolID, now, r.batchLimit)
		if err != nil {
			r.log.WithError(err).WithField("school_id", schoolID).Error("sweep: listing due subscriptions failed")
			continue
		}
		if len(due) == 0 {
			continue
		}
		res := r.rec.ReconcileBatch(ctx, due, now)
		total.Checked += res.Checked
		total.Updated += res.Updated
		total.Cascaded += res.Cascaded
		total.Failed += res.Failed
	}
	r.log.WithFields(logrus.Fields{
		"checked":  total.Checked,
		"updated":  total.Updated,
		"cascaded": total.Cascaded,
		"failed":   total.Failed,
	}).Info("reconciliation sweep finished")
	return total
}
