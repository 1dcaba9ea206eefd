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
  /api/points/*           Point charges
  /api/accounts/*         Balance and history
  /api/reservations/*     Booking and cancellation
  /api/events/*           Event catalog
  /api/clinics/*          Clinic-facing views
  /api/clinic-applications  Clinic onboarding
  /api/notifications/*    Notification feed
  /api/admin/*            Approval, settlement, audit
  /api/scenarios/*        Demo scenarios
  /metrics                Prometheus metrics

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, reg *prometheus.Registry) *chi.Mux {
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
		r.Get("/health", h.Health)

		// Point routes
		r.Route("/points", func(r chi.Router) {
			r.Post("/charge", h.ChargePoints)
		})

		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/{ref}/balance", h.GetBalance)
			r.Get("/{ref}/transactions", h.GetTransactions)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.BookReservation)
			r.Post("/{id}/cancel", h.CancelReservation)
		})

		// Event routes
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
		})

		// Clinic routes
		r.Route("/clinics", func(r chi.Router) {
			r.Get("/{ref}/financials", h.ClinicFinancials)
			r.Get("/{ref}/reservations", h.ClinicReservations)
			r.Get("/{ref}/events", h.ClinicEvents)
		})
		r.Post("/clinic-applications", h.ApplyClinic)

		// Notification routes
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/{recipient}", h.ListNotifications)
			r.Post("/read", h.MarkNotificationRead)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/clinics", h.ListClinics)
			r.Get("/clinics/pending", h.PendingClinics)
			r.Post("/clinics/approve", h.ApproveClinic)
			r.Get("/users", h.ListUsers)
			r.Get("/financials", h.PlatformFinancials)
			r.Put("/clinics/{ref}/commission", h.SetCommissionRate)
			r.Post("/promotions/toggle", h.TogglePromotion)
			r.Get("/settlements/calculate", h.CalculateSettlement)
			r.Get("/audit", h.AuditTrail)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
