/*
handlers.go - HTTP API handlers for the staffing engine

PURPOSE:
  Exposes the staffing lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Requests:
    POST   /api/requests                     Create staffing request
    GET    /api/requests/{id}                Get request details
    POST   /api/requests/{id}/publish        Publish a draft
    POST   /api/requests/{id}/cancel         Cancel a request
    POST   /api/requests/{id}/responses      Agency submits a proposal

  Responses:
    GET    /api/responses/{id}               Get response details
    POST   /api/responses/{id}/accept        Employer accepts terms
    POST   /api/responses/{id}/reject        Employer rejects terms
    POST   /api/responses/{id}/withdraw      Agency withdraws
    POST   /api/responses/{id}/counter       Employer counters terms

  Placements:
    POST   /api/placements                   Create placement
    GET    /api/placements/{id}              Get placement details
    POST   /api/placements/{id}/responses    Agency submits a proposal
    POST   /api/placement-responses/{id}/accept  Fill the placement

  Assignments:
    POST   /api/assignments                  Create assignment
    GET    /api/assignments/{id}             Get assignment details
    PATCH  /api/assignments/{id}             Update fields
    DELETE /api/assignments/{id}             Delete (pending only)
    POST   /api/assignments/{id}/activate    ... and complete, cancel,
           suspend, reactivate, extend       lifecycle operations

  Shifts & Offers:
    POST   /api/shifts/generate              Expand a recurrence template
    GET    /api/shifts/{id}                  Get shift details
    POST   /api/shifts/{id}/status           Move along the status graph
    POST   /api/shifts/{id}/offers           Offer to a candidate
    GET    /api/shifts/{id}/offers           List offers for a shift
    POST   /api/offers/{id}/respond          Candidate accepts/rejects
    POST   /api/offers/{id}/expire           Force-expire an offer
    POST   /api/offers/sweep                 Expire all overdue offers
    POST   /api/shifts/offers/bulk           Bulk offer
    POST   /api/shifts/assign/bulk           Bulk direct assign

  Timesheets:
    POST   /api/shifts/{id}/clock-in         Open a timesheet
    GET    /api/timesheets/{id}              Get timesheet details
    POST   /api/timesheets/{id}/clock-out    Close with break
    POST   /api/timesheets/{id}/clocks       Record both clocks
    POST   /api/timesheets/{id}/approve/agency    First-stage approval
    POST   /api/timesheets/{id}/approve/employer  Second-stage approval
    POST   /api/timesheets/{id}/reject       Reject with reason
    POST   /api/timesheets/{id}/dispute      Dispute agency approval

  Workers:
    GET    /api/workers/{id}/availability    Availability probe

ERROR HANDLING:
  Domain errors map to HTTP status by category:
  - 400: Validation errors (stateless invariants, bad input)
  - 404: Entity not found
  - 409: Optimistic-concurrency conflicts
  - 422: Precondition failures (wrong state, expired, not permitted)
  - 502: Collaborator lookups unavailable
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public
  and approver identity is caller-asserted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background offer-expiry sweep
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
	"github.com/warp/staffing-engine/shift"
	"github.com/warp/staffing-engine/store/sqlite"
	"github.com/warp/staffing-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Negotiation  *negotiation.Service
	Assignments  *assignment.Service
	Shifts       *shift.Service
	Timesheets   *timesheet.Service
	Availability *availability.Checker
	Clock        engine.Clock
	Log          *logrus.Logger

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler wires the domain services over the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	clock := engine.SystemClock{}
	events := &engine.LogPublisher{Log: log}
	checker := store.Checker()

	return &Handler{
		Store: store,
		Negotiation: &negotiation.Service{
			Contracts:          store.Contracts,
			Requests:           store.Requests,
			Responses:          store.Responses,
			Placements:         store.Placements,
			PlacementResponses: store.PlacementResponses,
			Availability:       checker,
			Events:             events,
			Clock:              clock,
		},
		Assignments: &assignment.Service{
			Contracts:     store.Contracts,
			Registrations: store.Registrations,
			Assignments:   store.Assignments,
			Events:        events,
			Clock:         clock,
		},
		Shifts: &shift.Service{
			Shifts:       store.Shifts,
			Offers:       store.Offers,
			Availability: checker,
			Events:       events,
			Clock:        clock,
			Log:          log,
		},
		Timesheets: &timesheet.Service{
			Timesheets: store.Timesheets,
			Events:     events,
			Clock:      clock,
		},
		Availability: checker,
		Clock:        clock,
		Log:          log,
	}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest creates a staffing request, published unless draft is set.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateShiftRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates, err := parseDateRange(body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	rate, err := engine.NewRateFromString(body.MaxHourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_hourly_rate", err)
		return
	}
	deadline, err := time.Parse(time.RFC3339, body.ResponseDeadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid response_deadline", err)
		return
	}
	if body.PositionsNeeded < 1 {
		writeError(w, http.StatusBadRequest, "positions_needed must be at least 1", nil)
		return
	}

	agencies := make([]engine.AgencyID, 0, len(body.TargetAgencies))
	for _, a := range body.TargetAgencies {
		agencies = append(agencies, engine.AgencyID(a))
	}

	status := negotiation.RequestPublished
	if body.Draft {
		status = negotiation.RequestDraft
	}

	now := h.Clock.Now()
	req := &negotiation.ShiftRequest{
		ID:               engine.RequestID(uuid.NewString()),
		EmployerID:       engine.EmployerID(body.EmployerID),
		LocationID:       engine.LocationID(body.LocationID),
		Role:             body.Role,
		Qualifications:   body.Qualifications,
		Dates:            dates,
		MaxHourlyRate:    rate,
		TargetAgencies:   agencies,
		ResponseDeadline: deadline,
		PositionsNeeded:  body.PositionsNeeded,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Store.Requests.Save(r.Context(), req); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftRequestDTO(req))
}

// GetRequest returns a staffing request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.Requests.Get(r.Context(), engine.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftRequestDTO(req))
}

// PublishRequest moves a draft request to published.
func (h *Handler) PublishRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionRequest(w, r, negotiation.RequestPublished)
}

// CancelRequest cancels a request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionRequest(w, r, negotiation.RequestCancelled)
}

func (h *Handler) transitionRequest(w http.ResponseWriter, r *http.Request, to negotiation.RequestStatus) {
	ctx := r.Context()
	req, err := h.Store.Requests.Get(ctx, engine.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if err := req.Transition(to, h.Clock.Now()); err != nil {
		handleDomainError(w, err)
		return
	}
	if err := h.Store.Requests.Save(ctx, req); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftRequestDTO(req))
}

// =============================================================================
// RESPONSE HANDLERS
// =============================================================================

// SubmitResponse records an agency's proposal against a request.
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	requestID := engine.RequestID(chi.URLParam(r, "id"))

	var body SubmitResponseDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	terms, err := parseTerms(body.Rate, body.WorkerID, body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid terms", err)
		return
	}

	resp, err := h.Negotiation.SubmitResponse(r.Context(), negotiation.SubmitResponseInput{
		RequestID: requestID,
		AgencyID:  engine.AgencyID(body.AgencyID),
		Terms:     terms,
		Notes:     body.Notes,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponseDTO(resp))
}

// GetResponse returns an agency response.
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Store.Responses.Get(r.Context(), engine.ResponseID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// AcceptResponse accepts the agency's terms and counts toward the fill.
func (h *Handler) AcceptResponse(w http.ResponseWriter, r *http.Request) {
	var body DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	resp, err := h.Negotiation.Accept(r.Context(), engine.ResponseID(chi.URLParam(r, "id")), body.DecidedBy)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// RejectResponse rejects the agency's terms.
func (h *Handler) RejectResponse(w http.ResponseWriter, r *http.Request) {
	var body DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	resp, err := h.Negotiation.Reject(r.Context(), engine.ResponseID(chi.URLParam(r, "id")), body.DecidedBy, body.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// WithdrawResponse withdraws a pending proposal.
func (h *Handler) WithdrawResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Negotiation.Withdraw(r.Context(), engine.ResponseID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// CounterResponse revises the terms of a pending proposal.
func (h *Handler) CounterResponse(w http.ResponseWriter, r *http.Request) {
	var body CounterOfferDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	terms, err := parseTerms(body.Rate, body.WorkerID, body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid terms", err)
		return
	}
	resp, err := h.Negotiation.CounterOffer(r.Context(), engine.ResponseID(chi.URLParam(r, "id")), terms)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// =============================================================================
// PLACEMENT HANDLERS
// =============================================================================

// CreatePlacement creates a recurring placement, active unless draft is set.
func (h *Handler) CreatePlacement(w http.ResponseWriter, r *http.Request) {
	var body CreatePlacementDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates, err := parseDateRange(body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	weekday, err := parseWeekday(body.Weekday)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekday", err)
		return
	}
	dayStart, err := parseTimeOfDay(body.DayStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day_start", err)
		return
	}
	dayEnd, err := parseTimeOfDay(body.DayEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day_end", err)
		return
	}
	budget, err := engine.NewRateFromString(body.BudgetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid budget_amount", err)
		return
	}
	maxRate, err := engine.NewRateFromString(body.MaxHourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_hourly_rate", err)
		return
	}

	status := negotiation.PlacementActive
	if body.Draft {
		status = negotiation.PlacementDraft
	}

	now := h.Clock.Now()
	p := &negotiation.Placement{
		ID:                      engine.PlacementID(uuid.NewString()),
		EmployerID:              engine.EmployerID(body.EmployerID),
		LocationID:              engine.LocationID(body.LocationID),
		Role:                    body.Role,
		Dates:                   dates,
		ShiftPattern:            body.ShiftPattern,
		Recurrence:              negotiation.Recurrence(body.Recurrence),
		Weekday:                 weekday,
		DayStart:                dayStart,
		DayEnd:                  dayEnd,
		BudgetType:              negotiation.BudgetType(body.BudgetType),
		BudgetAmount:            budget,
		MaxHourlyRate:           maxRate,
		BackgroundCheckRequired: body.BackgroundCheckRequired,
		Status:                  status,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := h.Store.Placements.Save(r.Context(), p); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlacementDTO(p))
}

// GetPlacement returns a placement.
func (h *Handler) GetPlacement(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Placements.Get(r.Context(), engine.PlacementID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlacementDTO(p))
}

// SubmitPlacementResponse records an agency's proposal for a placement.
func (h *Handler) SubmitPlacementResponse(w http.ResponseWriter, r *http.Request) {
	placementID := engine.PlacementID(chi.URLParam(r, "id"))

	var body SubmitResponseDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	terms, err := parseTerms(body.Rate, body.WorkerID, body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid terms", err)
		return
	}

	resp, err := h.Negotiation.SubmitPlacementResponse(r.Context(), negotiation.SubmitPlacementResponseInput{
		PlacementID: placementID,
		AgencyID:    engine.AgencyID(body.AgencyID),
		Terms:       terms,
		Notes:       body.Notes,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlacementResponseDTO(resp))
}

// AcceptPlacementResponse accepts a proposal and fills the placement.
func (h *Handler) AcceptPlacementResponse(w http.ResponseWriter, r *http.Request) {
	var body DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	resp, err := h.Negotiation.AcceptPlacementResponse(r.Context(), engine.ResponseID(chi.URLParam(r, "id")), body.DecidedBy)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlacementResponseDTO(resp))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment binds a worker to an employer under agreed rates.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var body CreateAssignmentDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates, err := parseDateRange(body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	agreed, err := engine.NewRateFromString(body.AgreedRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agreed_rate", err)
		return
	}
	pay, err := engine.NewRateFromString(body.PayRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pay_rate", err)
		return
	}
	weekly, err := decimal.NewFromString(body.WeeklyHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekly_hours", err)
		return
	}

	a, err := h.Assignments.Create(r.Context(), assignment.CreateInput{
		ContractID:  engine.ContractID(body.ContractID),
		EmployerID:  engine.EmployerID(body.EmployerID),
		AgencyID:    engine.AgencyID(body.AgencyID),
		WorkerID:    engine.WorkerID(body.WorkerID),
		RequestID:   (*engine.RequestID)(body.RequestID),
		ResponseID:  (*engine.ResponseID)(body.ResponseID),
		LocationID:  engine.LocationID(body.LocationID),
		Role:        body.Role,
		Dates:       dates,
		AgreedRate:  agreed,
		PayRate:     pay,
		WeeklyHours: weekly,
		Type:        assignment.Type(body.Type),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// GetAssignment returns an assignment.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.Assignments.Get(r.Context(), engine.AssignmentID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// UpdateAssignment edits rates, role, location, weekly hours or status.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var body UpdateAssignmentDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var input assignment.UpdateInput
	if body.AgreedRate != nil {
		rate, err := engine.NewRateFromString(*body.AgreedRate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid agreed_rate", err)
			return
		}
		input.AgreedRate = &rate
	}
	if body.PayRate != nil {
		rate, err := engine.NewRateFromString(*body.PayRate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid pay_rate", err)
			return
		}
		input.PayRate = &rate
	}
	if body.WeeklyHours != nil {
		weekly, err := decimal.NewFromString(*body.WeeklyHours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid weekly_hours", err)
			return
		}
		input.WeeklyHours = &weekly
	}
	input.LocationID = (*engine.LocationID)(body.LocationID)
	input.Role = body.Role
	input.Status = (*assignment.Status)(body.Status)

	a, err := h.Assignments.Update(r.Context(), engine.AssignmentID(chi.URLParam(r, "id")), input)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// DeleteAssignment removes a pending assignment.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Assignments.Delete(r.Context(), engine.AssignmentID(chi.URLParam(r, "id"))); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateAssignment starts a pending assignment.
func (h *Handler) ActivateAssignment(w http.ResponseWriter, r *http.Request) {
	h.assignmentOp(w, r, h.Assignments.Activate)
}

// CompleteAssignment completes an assignment at or past its end date.
func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	h.assignmentOp(w, r, h.Assignments.Complete)
}

// CancelAssignment cancels an assignment and frees the worker's calendar.
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	h.assignmentOp(w, r, h.Assignments.Cancel)
}

// SuspendAssignment pauses an active assignment.
func (h *Handler) SuspendAssignment(w http.ResponseWriter, r *http.Request) {
	h.assignmentOp(w, r, h.Assignments.Suspend)
}

// ReactivateAssignment resumes a suspended assignment.
func (h *Handler) ReactivateAssignment(w http.ResponseWriter, r *http.Request) {
	h.assignmentOp(w, r, h.Assignments.Reactivate)
}

func (h *Handler) assignmentOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id engine.AssignmentID) (*assignment.Assignment, error)) {
	a, err := op(r.Context(), engine.AssignmentID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// ExtendAssignment moves the end date out, re-checking overlap.
func (h *Handler) ExtendAssignment(w http.ResponseWriter, r *http.Request) {
	var body ExtendAssignmentDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	newEnd, err := time.Parse(dateLayout, body.NewEndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_end_date", err)
		return
	}
	a, err := h.Assignments.Extend(r.Context(), engine.AssignmentID(chi.URLParam(r, "id")), newEnd, body.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// GenerateShifts expands a recurrence template into concrete shifts.
func (h *Handler) GenerateShifts(w http.ResponseWriter, r *http.Request) {
	var body GenerateShiftsDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	weekday, err := parseWeekday(body.Weekday)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekday", err)
		return
	}
	dayStart, err := parseTimeOfDay(body.DayStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day_start", err)
		return
	}
	dayEnd, err := parseTimeOfDay(body.DayEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day_end", err)
		return
	}
	rate, err := engine.NewRateFromString(body.HourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hourly_rate", err)
		return
	}
	from, err := time.Parse(dateLayout, body.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := time.Parse(dateLayout, body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	var anchor time.Time
	if body.AnchorDate != nil {
		anchor, err = time.Parse(dateLayout, *body.AnchorDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid anchor_date", err)
			return
		}
	}

	tmpl := &shift.Template{
		ID:           engine.TemplateID(uuid.NewString()),
		EmployerID:   engine.EmployerID(body.EmployerID),
		AgencyID:     engine.AgencyID(body.AgencyID),
		WorkerID:     (*engine.WorkerID)(body.WorkerID),
		AssignmentID: (*engine.AssignmentID)(body.AssignmentID),
		PlacementID:  (*engine.PlacementID)(body.PlacementID),
		LocationID:   engine.LocationID(body.LocationID),
		Recurrence:   negotiation.Recurrence(body.Recurrence),
		Weekday:      weekday,
		DayStart:     dayStart,
		DayEnd:       dayEnd,
		HourlyRate:   rate,
		Anchor:       anchor,
	}

	result, err := h.Shifts.GenerateFromTemplate(r.Context(), tmpl, from, to)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	dto := GenerationResultDTO{Created: make([]ShiftDTO, len(result.Created))}
	for i, sh := range result.Created {
		dto.Created[i] = toShiftDTO(sh)
	}
	for _, d := range result.Skipped {
		dto.Skipped = append(dto.Skipped, fmtDate(d))
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetShift returns a shift.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	sh, err := h.Store.Shifts.Get(r.Context(), engine.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// ChangeShiftStatus moves a shift along its status graph.
func (h *Handler) ChangeShiftStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	sh, err := h.Store.Shifts.Get(ctx, engine.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if err := sh.Transition(shift.Status(body.Status), h.Clock.Now()); err != nil {
		handleDomainError(w, err)
		return
	}
	if err := h.Store.Shifts.Save(ctx, sh); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(sh))
}

// =============================================================================
// OFFER HANDLERS
// =============================================================================

// OfferShift offers an open shift to a candidate.
func (h *Handler) OfferShift(w http.ResponseWriter, r *http.Request) {
	var body OfferShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	expires, err := time.Parse(time.RFC3339, body.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expires_at", err)
		return
	}

	o, err := h.Shifts.OfferShift(r.Context(), engine.ShiftID(chi.URLParam(r, "id")), engine.WorkerID(body.WorkerID), expires, body.OfferedBy)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOfferDTO(o))
}

// ListShiftOffers lists the offers made for a shift.
func (h *Handler) ListShiftOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.Store.Offers.ListByShift(r.Context(), engine.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	dtos := make([]OfferDTO, len(offers))
	for i, o := range offers {
		dtos[i] = toOfferDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RespondToOffer records the candidate's answer. Accepting staffs the
// shift and supersedes sibling offers.
func (h *Handler) RespondToOffer(w http.ResponseWriter, r *http.Request) {
	var body RespondOfferDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	o, err := h.Shifts.RespondToOffer(r.Context(), engine.OfferID(chi.URLParam(r, "id")), body.Accept, body.Notes)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTO(o))
}

// ExpireOffer force-expires a pending offer.
func (h *Handler) ExpireOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.Shifts.ExpireOffer(r.Context(), engine.OfferID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTO(o))
}

// SweepOffers expires every pending offer past its deadline.
func (h *Handler) SweepOffers(w http.ResponseWriter, r *http.Request) {
	n, err := h.Shifts.SweepExpiredOffers(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResultDTO{Expired: n})
}

// BulkOffer offers multiple (shift, candidate) pairs independently.
func (h *Handler) BulkOffer(w http.ResponseWriter, r *http.Request) {
	var body BulkOfferDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	requests := make([]shift.OfferRequest, 0, len(body.Offers))
	for _, item := range body.Offers {
		expires, err := time.Parse(time.RFC3339, item.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid expires_at for shift %s", item.ShiftID), err)
			return
		}
		requests = append(requests, shift.OfferRequest{
			ShiftID:   engine.ShiftID(item.ShiftID),
			WorkerID:  engine.WorkerID(item.WorkerID),
			ExpiresAt: expires,
		})
	}

	results := h.Shifts.BulkOffer(r.Context(), requests, body.OfferedBy)
	writeJSON(w, http.StatusOK, toBulkResultDTOs(results))
}

// BulkAssign staffs multiple shifts directly, skipping the offer flow.
func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var body BulkAssignDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	requests := make([]shift.AssignRequest, 0, len(body.Assignments))
	for _, item := range body.Assignments {
		requests = append(requests, shift.AssignRequest{
			ShiftID:  engine.ShiftID(item.ShiftID),
			WorkerID: engine.WorkerID(item.WorkerID),
		})
	}

	results := h.Shifts.BulkAssign(r.Context(), requests)
	writeJSON(w, http.StatusOK, toBulkResultDTOs(results))
}

func toBulkResultDTOs(results []shift.BulkResult) []BulkResultDTO {
	dtos := make([]BulkResultDTO, len(results))
	for i, res := range results {
		dto := BulkResultDTO{
			ShiftID:  string(res.ShiftID),
			WorkerID: string(res.WorkerID),
		}
		if res.Offer != nil {
			o := toOfferDTO(res.Offer)
			dto.Offer = &o
		}
		if res.Err != nil {
			dto.Error = res.Err.Error()
		}
		dtos[i] = dto
	}
	return dtos
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// ClockIn opens a timesheet for a shift.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var body ClockInDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.ClockIn(r.Context(), engine.ShiftID(chi.URLParam(r, "id")), engine.WorkerID(body.WorkerID))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimesheetDTO(t))
}

// GetTimesheet returns a timesheet.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.Timesheets.Get(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// ClockOut closes the open timesheet and computes hours.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var body ClockOutDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.ClockOut(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), body.BreakMinutes)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// RecordClocks sets both clock events after the fact.
func (h *Handler) RecordClocks(w http.ResponseWriter, r *http.Request) {
	var body RecordClocksDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := time.Parse(time.RFC3339, body.ClockIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_in", err)
		return
	}
	out, err := time.Parse(time.RFC3339, body.ClockOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_out", err)
		return
	}
	t, err := h.Timesheets.RecordClocks(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), in, out, body.BreakMinutes)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// ApproveTimesheetAgency records the first-stage (agency) approval.
func (h *Handler) ApproveTimesheetAgency(w http.ResponseWriter, r *http.Request) {
	var body ApprovalDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.ApproveAgency(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), approverFromDTO(body))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// ApproveTimesheetEmployer records the second-stage (employer) approval.
func (h *Handler) ApproveTimesheetEmployer(w http.ResponseWriter, r *http.Request) {
	var body ApprovalDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.ApproveEmployer(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), approverFromDTO(body))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// RejectTimesheet rejects a timesheet with a reason.
func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	var body RejectTimesheetDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.Reject(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), approverFromDTO(body.ApprovalDTO), body.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// DisputeTimesheet opens a dispute on an agency-approved timesheet.
func (h *Handler) DisputeTimesheet(w http.ResponseWriter, r *http.Request) {
	var body DisputeDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Timesheets.Dispute(r.Context(), engine.TimesheetID(chi.URLParam(r, "id")), body.By, body.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(t))
}

// approverFromDTO builds the capability carrier for an approval call.
// With no auth layer the caller asserts its own profile flags.
func approverFromDTO(dto ApprovalDTO) engine.Approver {
	if dto.EmployerID != "" {
		return engine.EmployerContact{
			ID:                dto.ApproverID,
			EmployerID:        engine.EmployerID(dto.EmployerID),
			TimesheetApproval: dto.TimesheetApproval,
		}
	}
	return engine.AgencyAgent{
		ID:                dto.ApproverID,
		AgencyID:          engine.AgencyID(dto.AgencyID),
		TimesheetApproval: dto.TimesheetApproval,
	}
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// CheckAvailability probes a worker's availability over a window.
// GET /api/workers/{id}/availability?start=RFC3339&end=RFC3339
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	workerID := engine.WorkerID(chi.URLParam(r, "id"))

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	available, err := h.Availability.IsAvailable(r.Context(), workerID, start, end)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		WorkerID:  string(workerID),
		Start:     fmtInstant(start),
		End:       fmtInstant(end),
		Available: available,
	})
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func parseDateRange(start string, end *string) (engine.DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return engine.DateRange{}, fmt.Errorf("invalid start_date: %w", err)
	}
	r := engine.DateRange{Start: s}
	if end != nil && *end != "" {
		e, err := time.Parse(dateLayout, *end)
		if err != nil {
			return engine.DateRange{}, fmt.Errorf("invalid end_date: %w", err)
		}
		r.End = &e
	}
	return r, nil
}

func parseTerms(rate string, workerID *string, start string, end *string) (negotiation.ProposedTerms, error) {
	parsed, err := engine.NewRateFromString(rate)
	if err != nil {
		return negotiation.ProposedTerms{}, fmt.Errorf("invalid rate: %w", err)
	}
	dates, err := parseDateRange(start, end)
	if err != nil {
		return negotiation.ProposedTerms{}, err
	}
	return negotiation.ProposedTerms{
		Rate:   parsed,
		Worker: (*engine.WorkerID)(workerID),
		Dates:  dates,
	}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

func parseTimeOfDay(s string) (engine.TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	return engine.NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// handleDomainError maps domain error categories to HTTP status codes.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, "Concurrent modification, retry", err)
	case engine.IsPrecondition(err):
		writeError(w, http.StatusUnprocessableEntity, "Operation not permitted in current state", err)
	case errors.Is(err, engine.ErrDependency):
		writeError(w, http.StatusBadGateway, "Upstream dependency unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
