package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/http/handlers"
	httpmiddleware "github.com/KLcoding01/K-AI-Scribe-sub000/internal/http/middleware"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	NotesHandler       *handlers.NotesHandler
	ConversionsHandler *handlers.ConversionsHandler
	AuditHandler       *handlers.AuditHandler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (probes, metrics)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Live)
			public.Get("/ready", cfg.HealthHandler.Ready)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Core API, rate limited per client IP.
	r.Group(func(api chi.Router) {
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		if cfg.NotesHandler != nil {
			api.Post("/notes:generate", cfg.NotesHandler.GenerateNote)
		}
		if cfg.ConversionsHandler != nil {
			api.Route("/conversions", func(conv chi.Router) {
				conv.Post("/", cfg.ConversionsHandler.CreateConversion)
				conv.Get("/jobs/{jobID}", cfg.ConversionsHandler.GetConversionJob)
			})
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" && cfg.AuditHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/audit", cfg.AuditHandler.QueryEvents)
		})
	}

	return r
}
