package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/internal/config"
	"github.com/jakechorley/activity-log/internal/httpserver/handler"
	"github.com/jakechorley/activity-log/internal/httpserver/middleware"
)

func NewRouter(cfg *config.Config, handlers *handler.Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORS(cfg.AllowedOrigins))

	r.Get("/health", handlers.Health)

	// A full reload can outlast the request timeout
	r.Post("/admin/resync", handlers.Resync)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout(cfg)))

		r.Get("/users", handlers.ListUsers)
		r.Get("/users/{uid}", handlers.GetUser)
		r.Post("/users/{uid}", handlers.CreateEntries)
		r.Get("/users/{uid}/{eid}", handlers.GetEntry)

		r.Get("/admin", handlers.ListPending)
		r.Post("/admin/{uid}/{eid}", handlers.ReviewEntry)
	})

	return r
}

// requestTimeout leaves room for a few sequential store calls per request
func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.StoreTimeout <= 0 {
		return 30 * time.Second
	}
	return 2 * cfg.StoreTimeout
}
