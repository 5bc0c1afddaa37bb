// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights-api/handlers"
	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights-api/middleware"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, ag *agent.Agent, cfg *AppConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.WithComponent("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	health := handlers.NewHealthHandler(logger, ag, cfg.ServiceName)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	questions := handlers.NewQuestionsHandler(logger, ag)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/questions", func(r chi.Router) {
			r.Post("/", questions.Ask)
			r.Post("/selection", questions.Select)
		})
		r.Get("/campaigns/matches", questions.Matches)
		r.Get("/history", questions.History)
	})

	return r
}

// AppConfig holds router settings.
type AppConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		ServiceName:    "campaign-insights",
		RequestTimeout: 30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}
