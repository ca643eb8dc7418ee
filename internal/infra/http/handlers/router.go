package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/prospect-crm/internal/infra/http/middleware"
)

type RouterConfig struct {
	Prospects   *ProspectHandler
	Dashboard   *DashboardHandler
	Sessions    *SessionHandler
	Health      *HealthHandler
	Auth        middleware.SessionValidator
	CreateLimit *middleware.RateLimiter
	CORSOrigins []string
	// RequestLog is optional; chi's logger is used when nil.
	RequestLog func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if cfg.RequestLog != nil {
		r.Use(cfg.RequestLog)
	} else {
		r.Use(chimw.Logger)
	}
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", cfg.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Auth))

		r.Get("/session", cfg.Sessions.Current)
		r.Post("/session/signout", cfg.Sessions.SignOut)
		r.Get("/events", cfg.Sessions.Events)

		r.Get("/dashboard", cfg.Dashboard.Dashboard)
		r.Get("/stages", cfg.Dashboard.Stages)

		r.Route("/prospects", func(r chi.Router) {
			r.Get("/", cfg.Prospects.List)
			r.With(middleware.RateLimit(cfg.CreateLimit)).Post("/", cfg.Prospects.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Prospects.Get)
				r.Patch("/", cfg.Prospects.Update)
				r.Delete("/", cfg.Prospects.Delete)
				r.Get("/activities", cfg.Prospects.Activities)
				r.Get("/files", cfg.Prospects.Files)
			})
		})
	})

	return r
}
