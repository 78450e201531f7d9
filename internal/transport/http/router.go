// Package httptransport assembles the public HTTP surface: the PAR,
// arrangement-revocation, and introspection endpoints plus health and
// metrics.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/authzerror"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries the router's dependencies.
type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers []Registrar
	// ErrorDetails enables the authorize-error rewriting middleware when
	// non-nil.
	ErrorDetails authzerror.DetailsResolver
	// Checkers are consulted by /health; any failure makes it report 503.
	Checkers []HealthChecker
}

// NewRouter wires the middleware stack and all registered handlers.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Latency(cfg.Metrics))
	if cfg.ErrorDetails != nil {
		r.Use(authzerror.Middleware(cfg.ErrorDetails, cfg.Logger))
	}

	for _, h := range cfg.Handlers {
		h.Register(r)
	}

	r.Get("/health", handleHealth(cfg.Checkers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealth(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checkers {
			if err := c.Health(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
