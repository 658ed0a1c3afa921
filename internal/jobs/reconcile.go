// Package jobs runs scheduled maintenance over certificate records.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/metrics"
)

// Sweeper marks unpaid records submitted before a cutoff as abandoned.
type Sweeper interface {
	AbandonStale(ctx context.Context, before time.Time) (int, error)
}

// Reconciler closes out submissions whose payment never started. These are
// left behind when the submission wizard fails between creating a record and
// initializing its payment.
type Reconciler struct {
	sweepers map[string]Sweeper
	maxAge   time.Duration
	log      *logger.Logger
	now      func() time.Time
	cron     *cron.Cron
}

func NewReconciler(sweepers map[string]Sweeper, maxAge time.Duration, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		sweepers: sweepers,
		maxAge:   maxAge,
		log:      log,
		now:      time.Now,
		cron:     cron.New(),
	}
}

// RunOnce sweeps every record type and returns how many records were abandoned per type.
func (r *Reconciler) RunOnce(ctx context.Context) map[string]int {
	cutoff := r.now().Add(-r.maxAge)
	out := make(map[string]int, len(r.sweepers))
	for name, s := range r.sweepers {
		n, err := s.AbandonStale(ctx, cutoff)
		metrics.RecordJobRun("abandon_stale_"+name, err == nil)
		if err != nil {
			r.log.Errorf(err, "abandon stale %s records", name)
			continue
		}
		out[name] = n
		if n > 0 {
			r.log.Infof("abandoned %d stale %s records submitted before %s", n, name, cutoff.Format(time.RFC3339))
		}
	}
	return out
}

// Start schedules RunOnce on spec (e.g. "@every 1h").
func (r *Reconciler) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}
