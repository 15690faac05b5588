package cli

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LabMasd/craftorcrap-sub000/internal/config"
	"github.com/LabMasd/craftorcrap-sub000/internal/db"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

// Backend is what the commands operate on.
type Backend interface {
	Migrate(ctx context.Context) error
	// Reconcile recomputes counters from the vote rows and rescores the
	// repaired submissions.
	Reconcile(ctx context.Context) (repaired, rescored int, err error)
	Tokens() *service.TokenService
	Close()
}

// Opener connects a Backend.
type Opener func(ctx context.Context) (Backend, error)

// PostgresOpener returns an Opener backed by the configured database.
func PostgresOpener(cfg *config.Config) Opener {
	return func(ctx context.Context) (Backend, error) {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		return &postgresBackend{pool: pool, cache: service.NewCacheService(cfg.RedisURL)}, nil
	}
}

type postgresBackend struct {
	pool  *pgxpool.Pool
	cache *service.CacheService
}

func (b *postgresBackend) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, b.pool)
}

func (b *postgresBackend) Reconcile(ctx context.Context) (int, int, error) {
	return RunReconcile(ctx, repository.NewSubmissionRepo(b.pool), b.cache)
}

func (b *postgresBackend) Tokens() *service.TokenService {
	return service.NewTokenService(repository.NewTokenRepo(b.pool))
}

func (b *postgresBackend) Close() {
	_ = b.cache.Close()
	b.pool.Close()
}

// ReconcileStore is the submission persistence a reconcile pass needs.
type ReconcileStore interface {
	service.Reconciler
	service.ScoreStore
}

// RunReconcile runs one reconciliation pass and rescores synchronously,
// without waiting for a batch window.
func RunReconcile(ctx context.Context, store ReconcileStore, cache *service.CacheService) (int, int, error) {
	scores := service.NewScoreWorker(nil, service.NewScoreService(store), cache, 0)
	repaired, err := service.NewReconcileWorker(store, scores, cache, "").RunOnce(ctx)
	if err != nil {
		return 0, 0, err
	}
	return repaired, scores.Flush(ctx), nil
}
