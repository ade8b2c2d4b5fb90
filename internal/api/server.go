// Package api provides the REST API server for the package registry backend.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v0 "github.com/pricorephp/pricore/internal/api/v0"
	"github.com/pricorephp/pricore/internal/store"
	pkgsync "github.com/pricorephp/pricore/internal/sync"
)

// requestTimeout bounds request handling; sync work itself runs in the
// background, so handlers only do store reads and run bookkeeping.
const requestTimeout = 10 * time.Second

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
	metricsReg  *prometheus.Registry
	logger      *slog.Logger
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsRegistry exposes the given Prometheus registry at /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsReg = reg
	}
}

// WithLogger sets the logger used by the API handlers.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(cfg *serverConfig) {
		cfg.logger = logger
	}
}

// NewServer creates and configures the HTTP router
func NewServer(engine pkgsync.Engine, s store.Store, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)

	if cfg.metricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			cfg.metricsReg, promhttp.HandlerOpts{}))
	}

	r.Mount("/api/v0", v0.Router(engine, s, cfg.logger))

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
