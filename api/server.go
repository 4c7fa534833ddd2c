/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/branches/*       Branch catalog, rooms, reports
  /api/tenants/*        Tenancy lifecycle (move in, renew, move out, transfer)
  /api/bills/*          Bill edits, penalties, payments
  /api/settings/*       Billing settings
  /api/audit            Audit trail queries

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Branch routes
		r.Route("/branches", func(r chi.Router) {
			r.Get("/", h.ListBranches)
			r.Post("/", h.CreateBranch)
			r.Get("/{id}", h.GetBranch)
			r.Get("/{id}/rooms", h.ListRooms)
			r.Post("/{id}/rooms", h.CreateRoom)
			r.Get("/{id}/report", h.GetBranchReport)
			r.Get("/{id}/report.xlsx", h.DownloadBranchReport)
		})

		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.MoveIn)
			r.Get("/{id}", h.GetTenant)
			r.Get("/{id}/bills", h.ListBills)
			r.Post("/{id}/bills", h.GenerateBill)
			r.Post("/{id}/renew", h.RenewContract)
			r.Post("/{id}/move-out", h.MoveOut)
			r.Post("/{id}/transfer", h.TransferRoom)
		})

		// Bill routes
		r.Route("/bills", func(r chi.Router) {
			r.Get("/{id}", h.GetBill)
			r.Put("/{id}", h.EditBill)
			r.Post("/{id}/penalty", h.ApplyPenalty)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/regenerate", h.RegenerateFinalBill)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/penalty", h.GetPenaltySetting)
			r.Put("/penalty", h.UpdatePenaltySetting)
		})

		// Audit routes
		r.Get("/audit", h.QueryAudit)
	})

	return r
}
