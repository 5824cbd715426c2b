/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/runs/*      Trigger and inspect reconciliation runs
  /api/review/*    Flagged components awaiting a human
  /api/audit       Append-only audit trail
  /api/records/*   Raw source rows (inspection)
  /api/seed        Demo dataset (dev only)

SECURITY NOTE:
  No authentication middleware. This service is expected to run inside the
  office network only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.TriggerRun)
			r.Get("/{id}", h.GetRun)
			r.Get("/{id}/audit", h.GetRunAudit)
		})

		r.Route("/review", func(r chi.Router) {
			r.Get("/", h.ListReview)
			r.Post("/{id}/resolve", h.ResolveReview)
		})

		r.Get("/audit", h.QueryAudit)

		r.Route("/records", func(r chi.Router) {
			r.Get("/{kind}", h.ListRecords)
		})

		r.Post("/seed", h.SeedDemo)
	})

	return r
}
