package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/config"
	"github.com/LabMasd/craftorcrap-sub000/internal/db"
	"github.com/LabMasd/craftorcrap-sub000/internal/handler"
	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
	"github.com/LabMasd/craftorcrap-sub000/internal/router"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	middleware.InitLogger(cfg.LogLevel, "craftorcrap-api")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	metrics.Init(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	// Repositories
	submissionRepo := repository.NewSubmissionRepo(pool)
	voteRepo := repository.NewVoteRepo(pool)
	boardRepo := repository.NewBoardRepo(pool)
	tokenRepo := repository.NewTokenRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// Identity: session JWTs first, then extension API tokens.
	var auth identity.Chain
	if cfg.AuthJWTSecret != "" {
		auth = append(auth, identity.NewJWTAuthenticator(cfg.AuthJWTSecret, cfg.AuthIssuer))
	} else {
		log.Warn().Msg("auth: no JWT secret configured, session tokens disabled")
	}
	auth = append(auth, identity.NewAPITokenAuthenticator(tokenRepo))
	resolver := identity.NewResolver(auth)

	// Services
	submissionSvc := service.NewSubmissionService(submissionRepo, cache)
	voteSvc := service.NewVoteService(resolver, service.NewRejectDuplicatePolicy(voteRepo, cache), submissionSvc)
	boardSvc := service.NewBoardService(boardRepo, resolver, service.NewUpsertPolicy(boardRepo), cache)
	categorySvc := service.NewCategoryService(submissionRepo, cache)
	statsSvc := service.NewStatsService(statsRepo)
	scoreSvc := service.NewScoreService(submissionRepo)

	// Background workers
	scoreWorker := service.NewScoreWorker(pool, scoreSvc, cache, cfg.ScoreBatchWindow)
	reconcileWorker := service.NewReconcileWorker(submissionRepo, scoreWorker, cache, cfg.ReconcileSchedule)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scoreWorker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := reconcileWorker.Start(ctx); err != nil {
			log.Error().Err(err).Msg("reconcile worker failed to start")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "craftorcrap API",
		ServerHeader: "craftorcrap",
		ErrorHandler: handler.ErrorHandler,
		Immutable:    true,
	})

	router.Setup(app, &router.Handlers{
		Vote:       handler.NewVoteHandler(voteSvc),
		Board:      handler.NewBoardHandler(boardSvc),
		Category:   handler.NewCategoryHandler(categorySvc),
		Submission: handler.NewSubmissionHandler(submissionSvc, resolver),
		Stats:      handler.NewStatsHandler(statsSvc),
		Health: handler.NewHealthHandler(
			handler.Dependency{Name: "database", Check: handler.PostgresCheck(pool), Required: true},
			handler.Dependency{Name: "redis", Check: handler.RedisCheck(cache.Client())},
		),
	}, router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		VoteRateLimit: cfg.VoteRateLimit,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("craftorcrap API starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}

	stop()
	wg.Wait()
}
