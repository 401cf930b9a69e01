// Package router assembles the HTTP surface for the call engine API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/tradeline-ai-platform/internal/api/handlers"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	CallsHandler   *handlers.CallsHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", cfg.CallsHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/calls", func(calls chi.Router) {
		calls.Post("/init", cfg.CallsHandler.InitCall)
		calls.Post("/turn", cfg.CallsHandler.ProcessTurn)
		calls.Post("/finalize", cfg.CallsHandler.FinalizeCall)
	})

	return r
}
