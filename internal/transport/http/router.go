package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agora/internal/platform/health"
	"agora/internal/platform/middleware"
)

// RouterConfig carries the optional collaborators the router wires in.
type RouterConfig struct {
	Health *health.Handler
	Auth   func(http.Handler) http.Handler
}

// NewRouter wires all endpoints with the middleware stack. Health and metrics
// stay outside the auth boundary so probes and scrapers need no token.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		if cfg.Auth != nil {
			api.Use(cfg.Auth)
		}
		h.Register(api)
	})

	return r
}
