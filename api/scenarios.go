/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates contracts, workers,
	requests, assignments and shifts that demonstrate specific features.

AVAILABLE SCENARIOS:

	open-request:       Published staffing request with a pending proposal
	staffed-week:       Active assignment with a week of generated shifts
	timesheet-approval: Completed shift mid-way through the approval chain

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Activate contracts and worker registrations
 3. Declare worker availability windows
 4. Drive the normal domain services to build the state

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "staffed-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Error mapping and service wiring
  - server.go: Scenario routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
	"github.com/warp/staffing-engine/shift"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "open-request",
		Name:        "Open Request",
		Description: "Published staffing request with one pending agency proposal",
		Category:    "negotiation",
	},
	{
		ID:          "staffed-week",
		Name:        "Staffed Week",
		Description: "Active assignment with generated weekly shifts and an open offer",
		Category:    "shifts",
	},
	{
		ID:          "timesheet-approval",
		Name:        "Timesheet Approval",
		Description: "Completed shift with an agency-approved timesheet awaiting the employer",
		Category:    "timesheets",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch body.ScenarioID {
	case "open-request":
		err = h.loadOpenRequestScenario(ctx)
	case "staffed-week":
		err = h.loadStaffedWeekScenario(ctx)
	case "timesheet-approval":
		err = h.loadTimesheetApprovalScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", body.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = body.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": body.ScenarioID})
}

// ResetDatabase clears all data without loading a scenario.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedMarketplace activates the demo contracts, registrations and
// availability every scenario builds on.
func (h *Handler) seedMarketplace(ctx context.Context) error {
	if err := h.Store.Contracts.SetActive(ctx, "employer-north", "agency-alpha", true); err != nil {
		return err
	}
	if err := h.Store.Contracts.SetActive(ctx, "employer-north", "agency-beta", true); err != nil {
		return err
	}
	if err := h.Store.Registrations.SetActive(ctx, "worker-dana", "agency-alpha", true); err != nil {
		return err
	}
	if err := h.Store.Registrations.SetActive(ctx, "worker-eli", "agency-alpha", true); err != nil {
		return err
	}

	// Both demo workers take weekday shifts between 07:00 and 19:00.
	days := engine.NewWeekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	for _, worker := range []engine.WorkerID{"worker-dana", "worker-eli"} {
		window := availability.Window{
			ID:       uuid.NewString(),
			WorkerID: worker,
			Valid:    engine.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			Days:     days,
			DayStart: engine.NewTimeOfDay(7, 0),
			DayEnd:   engine.NewTimeOfDay(19, 0),
		}
		if err := h.Store.Availability.AddWindow(ctx, window); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadOpenRequestScenario(ctx context.Context) error {
	if err := h.seedMarketplace(ctx); err != nil {
		return err
	}

	now := h.Clock.Now()
	ceiling, _ := engine.NewRateFromString("24.00")
	start := engine.TruncateToDay(now.AddDate(0, 0, 7))
	end := start.AddDate(0, 0, 30)

	req := &negotiation.ShiftRequest{
		ID:               "req-demo-1",
		EmployerID:       "employer-north",
		LocationID:       "loc-warehouse-1",
		Role:             "forklift operator",
		Qualifications:   []string{"forklift-license"},
		Dates:            engine.DateRange{Start: start, End: &end},
		MaxHourlyRate:    ceiling,
		ResponseDeadline: now.Add(72 * time.Hour),
		PositionsNeeded:  2,
		Status:           negotiation.RequestPublished,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Store.Requests.Save(ctx, req); err != nil {
		return err
	}

	rate, _ := engine.NewRateFromString("22.50")
	worker := engine.WorkerID("worker-dana")
	_, err := h.Negotiation.SubmitResponse(ctx, negotiation.SubmitResponseInput{
		RequestID: req.ID,
		AgencyID:  "agency-alpha",
		Terms: negotiation.ProposedTerms{
			Rate:   rate,
			Worker: &worker,
			Dates:  req.Dates,
		},
		Notes: "Dana holds a current forklift license",
	})
	return err
}

func (h *Handler) loadStaffedWeekScenario(ctx context.Context) error {
	if err := h.seedMarketplace(ctx); err != nil {
		return err
	}

	now := h.Clock.Now()
	start := engine.TruncateToDay(now)
	end := start.AddDate(0, 3, 0)
	agreed, _ := engine.NewRateFromString("24.00")
	pay, _ := engine.NewRateFromString("18.00")

	a, err := h.Assignments.Create(ctx, assignment.CreateInput{
		ContractID:  "contract-north-alpha",
		EmployerID:  "employer-north",
		AgencyID:    "agency-alpha",
		WorkerID:    "worker-dana",
		LocationID:  "loc-warehouse-1",
		Role:        "forklift operator",
		Dates:       engine.DateRange{Start: start, End: &end},
		AgreedRate:  agreed,
		PayRate:     pay,
		WeeklyHours: decimal.NewFromInt(40),
		Type:        assignment.TypeTemp,
	})
	if err != nil {
		return err
	}
	if _, err := h.Assignments.Activate(ctx, a.ID); err != nil {
		return err
	}

	// A month of staffed Monday shifts under the assignment.
	worker := a.WorkerID
	staffed := &shift.Template{
		ID:           engine.TemplateID(uuid.NewString()),
		EmployerID:   a.EmployerID,
		AgencyID:     a.AgencyID,
		WorkerID:     &worker,
		AssignmentID: &a.ID,
		LocationID:   a.LocationID,
		Recurrence:   negotiation.RecurWeekly,
		Weekday:      time.Monday,
		DayStart:     engine.NewTimeOfDay(9, 0),
		DayEnd:       engine.NewTimeOfDay(17, 0),
		HourlyRate:   pay,
	}
	if _, err := h.Shifts.GenerateFromTemplate(ctx, staffed, start, start.AddDate(0, 1, 0)); err != nil {
		return err
	}

	// One open Wednesday shift, offered to the second worker.
	open := &shift.Template{
		ID:         engine.TemplateID(uuid.NewString()),
		EmployerID: a.EmployerID,
		AgencyID:   a.AgencyID,
		LocationID: a.LocationID,
		Recurrence: negotiation.RecurMonthly,
		Weekday:    time.Wednesday,
		DayStart:   engine.NewTimeOfDay(9, 0),
		DayEnd:     engine.NewTimeOfDay(17, 0),
		HourlyRate: pay,
	}
	result, err := h.Shifts.GenerateFromTemplate(ctx, open, start, start.AddDate(0, 1, 0))
	if err != nil {
		return err
	}
	if len(result.Created) > 0 {
		_, err = h.Shifts.OfferShift(ctx, result.Created[0].ID, "worker-eli", now.Add(48*time.Hour), "agent-demo")
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadTimesheetApprovalScenario(ctx context.Context) error {
	if err := h.seedMarketplace(ctx); err != nil {
		return err
	}

	now := h.Clock.Now()
	yesterday := engine.TruncateToDay(now.AddDate(0, 0, -1))
	rate, _ := engine.NewRateFromString("18.00")
	worker := engine.WorkerID("worker-dana")

	sh := &shift.Shift{
		ID:         "shift-demo-1",
		EmployerID: "employer-north",
		AgencyID:   "agency-alpha",
		WorkerID:   &worker,
		LocationID: "loc-warehouse-1",
		Window:     engine.NewTimeWindow(yesterday.Add(9*time.Hour), yesterday.Add(17*time.Hour)),
		HourlyRate: rate,
		Status:     shift.StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Store.Shifts.Save(ctx, sh); err != nil {
		return err
	}
	for _, status := range []shift.Status{shift.StatusInProgress, shift.StatusCompleted} {
		if err := sh.Transition(status, now); err != nil {
			return err
		}
	}
	if err := h.Store.Shifts.Save(ctx, sh); err != nil {
		return err
	}

	t, err := h.Timesheets.ClockIn(ctx, sh.ID, worker)
	if err != nil {
		return err
	}
	t, err = h.Timesheets.RecordClocks(ctx, t.ID, yesterday.Add(9*time.Hour), yesterday.Add(17*time.Hour+30*time.Minute), 30)
	if err != nil {
		return err
	}

	agent := engine.AgencyAgent{ID: "agent-demo", AgencyID: "agency-alpha", TimesheetApproval: true}
	_, err = h.Timesheets.ApproveAgency(ctx, t.ID, agent)
	return err
}
