package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates a new Chi router with all middleware and routes.
// Health probes bypass the rate limiter. A zero requestTimeout disables the
// per-request deadline.
func NewRouter(handler *Handler, logger *zap.Logger, rateLimiter *RateLimiter, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Healthz)
	r.Get("/readyz", handler.Readyz)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		if requestTimeout > 0 {
			r.Use(middleware.Timeout(requestTimeout))
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/stats", handler.SystemStats)
			r.Route("/links", func(r chi.Router) {
				r.Get("/", handler.ListLinks)
				r.Post("/", handler.CreateLink)
				r.Get("/{code}", handler.GetLinkStats)
				r.Delete("/{code}", handler.DeleteLink)
				r.Post("/{code}/uptime-checks", handler.RecordUptimeCheck)
			})
		})

		r.Get("/{code}", handler.Redirect)
	})

	return r
}
