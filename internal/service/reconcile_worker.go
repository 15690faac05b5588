package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
)

// Reconciler recounts submission counters from the votes table and returns
// the ids whose counters were repaired.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]string, error)
}

// ReconcileWorker is a cron-scheduled job that repairs drift between the
// submissions' running counters and the votes they were built from.
type ReconcileWorker struct {
	store    Reconciler
	scores   *ScoreWorker
	cache    *CacheService
	schedule string
}

// NewReconcileWorker creates a worker for the given standard cron schedule
// (e.g. "@hourly"). scores may be nil.
func NewReconcileWorker(store Reconciler, scores *ScoreWorker, cache *CacheService, schedule string) *ReconcileWorker {
	return &ReconcileWorker{store: store, scores: scores, cache: cache, schedule: schedule}
}

// Start schedules the job and blocks until ctx is cancelled. An empty
// schedule disables the worker.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	logger := log.With().Str("component", "reconcile-worker").Logger()
	if w.schedule == "" {
		logger.Info().Msg("disabled (no schedule)")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.tick(ctx) }); err != nil {
		return err
	}
	logger.Info().Str("schedule", w.schedule).Msg("starting")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info().Msg("stopping (context cancelled)")
	return nil
}

func (w *ReconcileWorker) tick(ctx context.Context) {
	start := time.Now()
	n, err := w.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "reconcile-worker").Msg("reconcile failed")
		return
	}
	log.Info().Str("component", "reconcile-worker").
		Int("repaired", n).Dur("elapsed", time.Since(start)).
		Msg("tick complete")
}

// RunOnce performs a single reconciliation pass and returns how many
// submissions were repaired.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (int, error) {
	ids, err := w.store.Reconcile(ctx)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := w.cache.InvalidateSubmission(ctx, id); err != nil {
			log.Warn().Err(err).Str("submission_id", id).Msg("reconcile-worker: cache invalidate failed")
		}
		if w.scores != nil {
			w.scores.Enqueue(id)
		}
	}
	metrics.AddReconciled(len(ids))
	return len(ids), nil
}
