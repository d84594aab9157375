// Package httptransport assembles the public HTTP surface of the registry:
// middleware chain, operational endpoints, and the domain handler mounts.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"vestry/internal/platform/metrics"
	"vestry/internal/platform/middleware"
	"vestry/internal/platform/ratelimit"
	"vestry/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

// Registrar is implemented by domain handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Check probes one backing dependency for the health endpoint.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Options carries the optional parts of the surface. Nil fields switch the
// corresponding feature off.
type Options struct {
	Limiter *ratelimit.Middleware
	Metrics *metrics.HTTP
	Checks  []Check
}

// NewRouter wires the middleware chain and mounts every handler. The
// operational endpoints sit outside the rate limiter so orchestrators are
// never throttled away from /healthz.
func NewRouter(logger *slog.Logger, opts Options, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.Get("/healthz", handleHealth(logger, opts.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.AuthProof)
		if opts.Limiter != nil {
			api.Use(opts.Limiter.Limit)
		}
		for _, h := range handlers {
			h.Register(api)
		}
	})

	return otelhttp.NewHandler(r, "vestry.http")
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth probes every dependency in parallel and reports per-check
// results. Any failure degrades the whole endpoint to 503.
func handleHealth(logger *slog.Logger, checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		results := make([]string, len(checks))
		var g errgroup.Group
		for i, check := range checks {
			g.Go(func() error {
				if err := check.Probe(ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		statuses := make(map[string]string, len(checks))
		for i, check := range checks {
			statuses[check.Name] = results[i]
		}

		if err != nil {
			logger.ErrorContext(ctx, "health check failed", "checks", statuses)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status: "degraded",
				Checks: statuses,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{
			Status: "ok",
			Checks: statuses,
		})
	}
}
