package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Version is reported by the readiness probe. Overridden at build time with
// -ldflags "-X .../internal/handler.Version=...".
var Version = "dev"

// Check probes one dependency. A nil Check reports the dependency as disabled.
type Check func(ctx context.Context) error

// Dependency is a named readiness check. Required dependencies mark the
// service unavailable when down; optional ones only degrade it.
type Dependency struct {
	Name     string
	Check    Check
	Required bool
}

type HealthHandler struct {
	deps    []Dependency
	startAt time.Time
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, startAt: time.Now()}
}

// PostgresCheck pings the pool.
func PostgresCheck(pool *pgxpool.Pool) Check {
	if pool == nil {
		return nil
	}
	return pool.Ping
}

// RedisCheck pings the client. A nil client means caching is disabled.
func RedisCheck(rdb *redis.Client) Check {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// Live handles GET /health/live: liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready: readiness probe with dependency checks.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := make(fiber.Map, len(h.deps))
	overallStatus := "healthy"

	for _, d := range h.deps {
		result := runCheck(ctx, d.Check)
		checks[d.Name] = result
		if result["status"] != "down" {
			continue
		}
		if d.Required {
			overallStatus = "unhealthy"
		} else if overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	resp := fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        Version,
	}

	status := fiber.StatusOK
	if overallStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}

func runCheck(ctx context.Context, check Check) fiber.Map {
	if check == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := check(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
