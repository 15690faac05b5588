package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/LabMasd/craftorcrap-sub000/internal/handler"
	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote       *handler.VoteHandler
	Board      *handler.BoardHandler
	Category   *handler.CategoryHandler
	Submission *handler.SubmissionHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Options tunes the middleware stack.
type Options struct {
	CORSOrigins   string
	VoteRateLimit int // per minute per credential or IP; 0 disables
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(metrics.Middleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics (before API group, no auth needed)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", metrics.Handler())

	// API routes
	api := app.Group("/api")

	voteLimit := middleware.NewVoteRateLimiter(opts.VoteRateLimit)
	reads := middleware.NewReadRateLimiter().Handler()

	// Vote routes
	api.Post("/vote", voteLimit, h.Vote.Public)
	api.Post("/extension/vote", voteLimit, h.Vote.Extension)
	api.Get("/extension/ratings", reads, h.Submission.Ratings)

	// Board routes
	api.Get("/boards/:token", reads, h.Board.Get)
	api.Post("/boards/:token/vote", voteLimit, h.Board.Vote)

	// Submission routes
	api.Post("/category", h.Category.Assign)
	api.Post("/submissions", middleware.NewSubmitRateLimiter().Handler(), h.Submission.Submit)
	api.Get("/submissions", reads, h.Submission.Feed)
	api.Get("/submissions/:id", reads, h.Submission.Get)

	// Stats routes
	api.Get("/stats", middleware.NewStatsRateLimiter().Handler(), h.Stats.GetStats)
}
