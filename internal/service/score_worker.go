package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// ScoreWorker listens for PostgreSQL NOTIFY on the vote_changes channel
// and batches score recalculations. If 50 votes hit submission X within one
// window, it recalculates once.
type ScoreWorker struct {
	pool     *pgxpool.Pool
	scoreSvc *ScoreService
	cache    *CacheService
	window   time.Duration

	mu      sync.Mutex
	pending map[string]struct{} // submission IDs waiting for recalculation
}

// NewScoreWorker creates a score recalculation worker. window <= 0 uses 5s.
func NewScoreWorker(pool *pgxpool.Pool, scoreSvc *ScoreService, cache *CacheService, window time.Duration) *ScoreWorker {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &ScoreWorker{
		pool:     pool,
		scoreSvc: scoreSvc,
		cache:    cache,
		window:   window,
		pending:  make(map[string]struct{}),
	}
}

// Start begins listening for vote_changes notifications and processing
// batches. It blocks until ctx is cancelled.
func (w *ScoreWorker) Start(ctx context.Context) {
	logger := log.With().Str("component", "score-worker").Logger()
	logger.Info().Dur("batch_window", w.window).Msg("starting")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	done := make(chan struct{})
	go func() {
		w.flushLoop(flushCtx)
		close(done)
	}()
	defer func() { <-done }()

	for {
		err := w.listenLoop(ctx)
		if ctx.Err() != nil {
			logger.Info().Msg("stopping (context cancelled)")
			return
		}
		logger.Warn().Err(err).Msg("listen error, reconnecting in 5s")
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			logger.Info().Msg("stopping (context cancelled)")
			return
		}
	}
}

// listenLoop acquires a dedicated connection and LISTENs on vote_changes
// until the connection fails or ctx is cancelled.
func (w *ScoreWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+repository.VoteChannel); err != nil {
		return err
	}
	log.Debug().Str("component", "score-worker").Msg("listening on " + repository.VoteChannel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.Enqueue(notification.Payload)
	}
}

// Enqueue marks a submission for recalculation in the next batch.
func (w *ScoreWorker) Enqueue(submissionID string) {
	if submissionID == "" {
		return
	}
	w.mu.Lock()
	w.pending[submissionID] = struct{}{}
	w.mu.Unlock()
}

// flushLoop periodically drains the pending set and recalculates scores.
func (w *ScoreWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.Flush(finalCtx)
			cancel()
			return
		}
	}
}

// Flush drains the pending set and recalculates each submission's score.
// Returns the number of submissions recalculated.
func (w *ScoreWorker) Flush(ctx context.Context) int {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return 0
	}

	// Swap out the pending map
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	recalculated := 0
	for id := range batch {
		err := w.scoreSvc.Recalculate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("component", "score-worker").Str("submission_id", id).Msg("recalculate failed")
			continue
		}

		if err := w.cache.InvalidateSubmission(ctx, id); err != nil {
			log.Warn().Err(err).Str("submission_id", id).Msg("score-worker: cache invalidate failed")
		}
		recalculated++
	}

	if recalculated > 0 {
		log.Info().Str("component", "score-worker").
			Int("recalculated", recalculated).Int("notifications", len(batch)).
			Msg("batch complete")
	}
	return recalculated
}
