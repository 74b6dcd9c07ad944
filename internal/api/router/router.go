// Package router assembles the HTTP surface: the public contact endpoint
// behind the rate limiter, and the JWT-protected admin API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/internal/http/handlers"
	httpmiddleware "github.com/atelierlumen/leadgate/internal/http/middleware"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Contact       *handlers.ContactHandler
	AdminLeads    *handlers.AdminLeadsHandler
	AdminSecurity *handlers.AdminSecurityHandler

	// RateLimiter guards the public contact endpoint. Optional.
	RateLimiter httpmiddleware.Limiter
	// RateLimitEvents records rate_limit security events. Optional.
	RateLimitEvents audit.Recorder

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Contact != nil {
			public.Route("/api/contact", func(contact chi.Router) {
				if cfg.RateLimiter != nil {
					contact.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.RateLimitEvents, cfg.Logger))
				}
				contact.Post("/", cfg.Contact.Submit)
			})
		}
	})

	// Admin routes (protected by HMAC JWT)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.AdminLeads != nil {
			admin.Route("/leads", func(lr chi.Router) {
				lr.Get("/", cfg.AdminLeads.List)
				lr.Route("/{id}", func(lead chi.Router) {
					lead.Get("/", cfg.AdminLeads.Get)
					lead.Patch("/status", cfg.AdminLeads.UpdateStatus)
					lead.Delete("/", cfg.AdminLeads.Delete)
					lead.Post("/notes", cfg.AdminLeads.AddNote)
					lead.Put("/notes/{noteID}", cfg.AdminLeads.UpdateNote)
					lead.Delete("/notes/{noteID}", cfg.AdminLeads.DeleteNote)
					lead.Post("/quote", cfg.AdminLeads.SendQuote)
				})
			})
		}
		if cfg.AdminSecurity != nil {
			admin.Get("/security/events", cfg.AdminSecurity.ListEvents)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
