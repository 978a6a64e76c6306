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
  /api/requests/*             Staffing request negotiation
  /api/responses/*            Agency response decisions
  /api/placements/*           Recurring placements
  /api/assignments/*          Assignment lifecycle
  /api/shifts/*               Shifts, generation and offers
  /api/offers/*               Offer responses and expiry
  /api/timesheets/*           Two-stage timesheet approval
  /api/workers/*              Availability probes
  /api/scenarios/*            Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Staffing request routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/publish", h.PublishRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
			r.Post("/{id}/responses", h.SubmitResponse)
		})

		// Agency response routes
		r.Route("/responses", func(r chi.Router) {
			r.Get("/{id}", h.GetResponse)
			r.Post("/{id}/accept", h.AcceptResponse)
			r.Post("/{id}/reject", h.RejectResponse)
			r.Post("/{id}/withdraw", h.WithdrawResponse)
			r.Post("/{id}/counter", h.CounterResponse)
		})

		// Placement routes
		r.Route("/placements", func(r chi.Router) {
			r.Post("/", h.CreatePlacement)
			r.Get("/{id}", h.GetPlacement)
			r.Post("/{id}/responses", h.SubmitPlacementResponse)
		})
		r.Route("/placement-responses", func(r chi.Router) {
			r.Post("/{id}/accept", h.AcceptPlacementResponse)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Get("/{id}", h.GetAssignment)
			r.Patch("/{id}", h.UpdateAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
			r.Post("/{id}/activate", h.ActivateAssignment)
			r.Post("/{id}/complete", h.CompleteAssignment)
			r.Post("/{id}/cancel", h.CancelAssignment)
			r.Post("/{id}/suspend", h.SuspendAssignment)
			r.Post("/{id}/reactivate", h.ReactivateAssignment)
			r.Post("/{id}/extend", h.ExtendAssignment)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/generate", h.GenerateShifts)
			r.Post("/offers/bulk", h.BulkOffer)
			r.Post("/assign/bulk", h.BulkAssign)
			r.Get("/{id}", h.GetShift)
			r.Post("/{id}/status", h.ChangeShiftStatus)
			r.Post("/{id}/offers", h.OfferShift)
			r.Get("/{id}/offers", h.ListShiftOffers)
			r.Post("/{id}/clock-in", h.ClockIn)
		})

		// Offer routes
		r.Route("/offers", func(r chi.Router) {
			r.Post("/sweep", h.SweepOffers)
			r.Post("/{id}/respond", h.RespondToOffer)
			r.Post("/{id}/expire", h.ExpireOffer)
		})

		// Timesheet routes
		r.Route("/timesheets", func(r chi.Router) {
			r.Get("/{id}", h.GetTimesheet)
			r.Post("/{id}/clock-out", h.ClockOut)
			r.Post("/{id}/clocks", h.RecordClocks)
			r.Post("/{id}/approve/agency", h.ApproveTimesheetAgency)
			r.Post("/{id}/approve/employer", h.ApproveTimesheetEmployer)
			r.Post("/{id}/reject", h.RejectTimesheet)
			r.Post("/{id}/dispute", h.DisputeTimesheet)
		})

		// Worker routes
		r.Route("/workers", func(r chi.Router) {
			r.Get("/{id}/availability", h.CheckAvailability)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
