package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// WorkerIntervals controls how often each background job runs. A zero interval disables the job.
type WorkerIntervals struct {
	ExpirySweep    time.Duration
	Reconcile      time.Duration
	IntentResolver time.Duration
}

// Workers runs the expiry sweep, intent resolution and scheduled reconciliation
type Workers struct {
	scheduler  gocron.Scheduler
	challenges *ChallengeHandler
	payouts    *PayoutExecutor
	reporter   *ReconciliationReporter
	intervals  WorkerIntervals
}

// NewWorkers creates the background workers; call Start to schedule them
func NewWorkers(
	challenges *ChallengeHandler,
	payouts *PayoutExecutor,
	reporter *ReconciliationReporter,
	intervals WorkerIntervals,
) (*Workers, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Workers{
		scheduler:  scheduler,
		challenges: challenges,
		payouts:    payouts,
		reporter:   reporter,
		intervals:  intervals,
	}, nil
}

// Start registers the jobs and starts the scheduler. Jobs stop when ctx is cancelled
// or Shutdown is called.
func (w *Workers) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context)
	}{
		{"expiry-sweep", w.intervals.ExpirySweep, w.sweepExpired},
		{"intent-resolver", w.intervals.IntentResolver, w.resolveIntents},
		{"reconcile", w.intervals.Reconcile, w.reconcile},
	}

	for _, job := range jobs {
		if job.interval <= 0 {
			log.WithField("job", job.name).Info("Background job disabled")
			continue
		}

		run := job.run
		_, err := w.scheduler.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				if ctx.Err() != nil {
					return
				}
				run(ctx)
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}

		log.WithFields(log.Fields{
			"job":      job.name,
			"interval": job.interval,
		}).Info("Background job scheduled")
	}

	w.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler and waits for running jobs to finish
func (w *Workers) Shutdown() error {
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

func (w *Workers) sweepExpired(ctx context.Context) {
	expired, err := w.challenges.ExpireDue(ctx)
	if err != nil {
		log.WithError(err).Error("Expiry sweep finished with errors")
	}
	if expired > 0 {
		log.WithField("expired", expired).Info("Expired challenges past their deadline")
	}
}

func (w *Workers) resolveIntents(ctx context.Context) {
	if _, err := w.payouts.ResolveOutstanding(ctx); err != nil {
		log.WithError(err).Error("Intent resolution finished with errors")
	}
}

func (w *Workers) reconcile(ctx context.Context) {
	if _, err := w.reporter.Reconcile(ctx); err != nil {
		log.WithError(err).Error("Scheduled reconciliation failed")
	}
}
