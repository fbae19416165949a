package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures the router. corsOrigins lists the frontend
// origins allowed to call the API.
func SetupRoutes(h *Handlers, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/filters", h.Filters)
		r.Get("/campaigns", h.Campaigns)
		r.Get("/campaign-advertiser", h.CampaignAdvertiser)
		r.Post("/dashboard-data", h.DashboardData)
		r.Get("/reload", h.Reload)
		r.Post("/reload", h.Reload)
		r.Get("/fetch", h.Fetch)
		r.Post("/fetch", h.Fetch)
		r.Get("/data-status", h.DataStatus)
	})

	return r
}
