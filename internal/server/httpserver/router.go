// Package httpserver provides the HTTP/HTTPS server for LockScope.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
	"github.com/yndnr/lockscope-go/internal/server/httpserver/handler"
	"github.com/yndnr/lockscope-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Recorder is the contention tracking engine.
	Recorder *recorder.Recorder

	// Stats aggregates per-lock statistics.
	Stats *stats.Aggregator

	// Records serves persisted record queries; nil when the store
	// sink is disabled.
	Records handler.RecordStore

	// Metrics exposes the Prometheus registry.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// GlobalRateLimit is the ingest rate limit per IP (requests/second).
	GlobalRateLimit int

	// EnableAudit enables audit logging for admin requests.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := handler.New(cfg.Recorder, cfg.Stats, cfg.Records, cfg.Logger)

	mux := http.NewServeMux()

	// Health endpoints - minimal middleware
	probeHandler := Chain(h, RequestID(), Recover(cfg.Logger))
	mux.Handle("GET /health", probeHandler)
	mux.Handle("GET /ready", probeHandler)

	// Metrics endpoint - Prometheus exposition format
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(
			cfg.Metrics.Handler(),
			RequestID(),
			Recover(cfg.Logger),
		))
	}

	// Ingest endpoints - hot path, counted and rate limited
	ingestMiddlewares := []Middleware{
		RequestID(),
		Recover(cfg.Logger),
	}
	if cfg.Metrics != nil {
		ingestMiddlewares = append(ingestMiddlewares, countIngest(cfg.Metrics))
	}
	if cfg.GlobalRateLimit > 0 {
		ingestMiddlewares = append(ingestMiddlewares, RateLimit(cfg.GlobalRateLimit))
	}
	ingestHandler := Chain(h, ingestMiddlewares...)
	mux.Handle("POST /ingest/v1/wait", ingestHandler)
	mux.Handle("POST /ingest/v1/wake", ingestHandler)

	// Admin endpoints - optional network ACL and audit trail
	adminMiddlewares := []Middleware{
		RequestID(),
		Recover(cfg.Logger),
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		adminMiddlewares = append(adminMiddlewares, CORS(cfg.CORSAllowedOrigins))
	}
	if len(cfg.AdminAllowList) > 0 {
		adminMiddlewares = append(adminMiddlewares, NetworkACL(&NetworkACLConfig{
			AllowList: cfg.AdminAllowList,
			Logger:    cfg.Logger,
		}))
	}
	if cfg.EnableAudit {
		adminMiddlewares = append(adminMiddlewares, Audit(cfg.Logger))
	}
	adminHandler := Chain(h, adminMiddlewares...)

	mux.Handle("GET /admin/v1/status", adminHandler)
	mux.Handle("POST /admin/v1/reset", adminHandler)
	mux.Handle("GET /admin/v1/locks", adminHandler)
	mux.Handle("GET /admin/v1/records", adminHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		GlobalRateLimit: 5000, // ingest is bursty under contention storms
		EnableAudit:     true,
	}
}

// countIngest records per-endpoint ingest outcomes.
func countIngest(m *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			outcome := "accepted"
			if wrapped.statusCode >= 400 {
				outcome = "rejected"
			}
			m.IngestRequests.WithLabelValues(r.URL.Path, outcome).Inc()
		})
	}
}
