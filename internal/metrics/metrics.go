// Package metrics holds the Prometheus collectors for the API and its
// background workers. Helpers are no-ops until Init is called, so services
// can record unconditionally and tests need no registry.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors for the craftorcrap API.
var Metrics = struct {
	VotesTotal          *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	DBPoolActive        prometheus.GaugeFunc
	DBPoolIdle          prometheus.GaugeFunc
	RequestsInFlight    prometheus.Gauge
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	ScoreRecalcDuration prometheus.Histogram
	ReconciledTotal     prometheus.Counter
}{}

// Init registers all Prometheus metrics. Call once at startup.
func Init(pool *pgxpool.Pool) {
	Metrics.VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftorcrap_votes_total",
			Help: "Total vote attempts, by surface, verdict and outcome.",
		},
		[]string{"surface", "verdict", "outcome"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "craftorcrap_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "craftorcrap_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	Metrics.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "craftorcrap_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	Metrics.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "craftorcrap_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	Metrics.ScoreRecalcDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "craftorcrap_score_recalculation_duration_seconds",
			Help:    "Duration of craft score recalculations.",
			Buckets: prometheus.DefBuckets,
		},
	)

	Metrics.ReconciledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "craftorcrap_reconciled_submissions_total",
			Help: "Submissions whose counters were repaired by reconciliation.",
		},
	)

	// DB pool gauges read live stats from pgxpool
	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "craftorcrap_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "craftorcrap_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		prometheus.MustRegister(Metrics.DBPoolActive)
		prometheus.MustRegister(Metrics.DBPoolIdle)
	}

	prometheus.MustRegister(
		Metrics.VotesTotal,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.CacheHits,
		Metrics.CacheMisses,
		Metrics.ScoreRecalcDuration,
		Metrics.ReconciledTotal,
	)
}

// ObserveVote counts one vote attempt.
func ObserveVote(surface, verdict, outcome string) {
	if Metrics.VotesTotal == nil {
		return
	}
	Metrics.VotesTotal.WithLabelValues(surface, verdict, outcome).Inc()
}

// CacheHit counts a Redis cache hit.
func CacheHit() {
	if Metrics.CacheHits != nil {
		Metrics.CacheHits.Inc()
	}
}

// CacheMiss counts a Redis cache miss.
func CacheMiss() {
	if Metrics.CacheMisses != nil {
		Metrics.CacheMisses.Inc()
	}
}

// ObserveScoreRecalc records how long a score recalculation took.
func ObserveScoreRecalc(d time.Duration) {
	if Metrics.ScoreRecalcDuration != nil {
		Metrics.ScoreRecalcDuration.Observe(d.Seconds())
	}
}

// AddReconciled counts submissions repaired by reconciliation.
func AddReconciled(n int) {
	if Metrics.ReconciledTotal != nil {
		Metrics.ReconciledTotal.Add(float64(n))
	}
}

// Middleware records request duration and in-flight count for Prometheus.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if Metrics.RequestDuration == nil || c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(): Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/boards/") && strings.HasSuffix(path, "/vote"):
		return "/api/boards/:token/vote"
	case strings.HasPrefix(path, "/api/boards/"):
		return "/api/boards/:token"
	case strings.HasPrefix(path, "/api/submissions/"):
		return "/api/submissions/:id"
	default:
		return path
	}
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
