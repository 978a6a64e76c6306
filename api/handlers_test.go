/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Request negotiation over HTTP (submit, accept, fill tracking)
- Error category to HTTP status mapping
- Assignment creation and overlap refusal
- Offer accept staffing the shift
- Two-stage timesheet approval ordering
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/shift"
	"github.com/warp/staffing-engine/store/sqlite"
)

func setupTestServer(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store, log)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return h, srv
}

// seedParties activates the contract, registration and weekday
// availability the happy paths rely on.
func seedParties(t *testing.T, h *Handler) {
	t.Helper()
	ctx := context.Background()

	if err := h.Store.Contracts.SetActive(ctx, "employer-1", "agency-1", true); err != nil {
		t.Fatalf("Failed to activate contract: %v", err)
	}
	if err := h.Store.Registrations.SetActive(ctx, "worker-1", "agency-1", true); err != nil {
		t.Fatalf("Failed to activate registration: %v", err)
	}

	window := availability.Window{
		ID:       "win-1",
		WorkerID: "worker-1",
		Valid:    engine.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		Days:     engine.AllWeekdays,
		DayStart: engine.NewTimeOfDay(0, 0),
		DayEnd:   engine.NewTimeOfDay(23, 59),
	}
	if err := h.Store.Availability.AddWindow(ctx, window); err != nil {
		t.Fatalf("Failed to add availability window: %v", err)
	}
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp
}

func TestRequestNegotiation_EndToEnd(t *testing.T) {
	// GIVEN: An active contract and a published single-position request
	h, srv := setupTestServer(t)
	seedParties(t, h)

	deadline := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339)
	var created ShiftRequestDTO
	resp := doJSON(t, srv, http.MethodPost, "/api/requests", CreateShiftRequestDTO{
		EmployerID:       "employer-1",
		LocationID:       "loc-1",
		Role:             "nurse",
		StartDate:        "2025-07-01",
		MaxHourlyRate:    "30.00",
		ResponseDeadline: deadline,
		PositionsNeeded:  1,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 creating request, got %d", resp.StatusCode)
	}
	if created.Status != "published" {
		t.Errorf("Expected published status, got %s", created.Status)
	}

	// WHEN: An agency submits a proposal under the ceiling
	workerID := "worker-1"
	var proposal ResponseDTO
	resp = doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/responses", SubmitResponseDTO{
		AgencyID:  "agency-1",
		Rate:      "28.00",
		WorkerID:  &workerID,
		StartDate: "2025-07-01",
	}, &proposal)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 submitting response, got %d", resp.StatusCode)
	}
	if proposal.Status != "pending" {
		t.Errorf("Expected pending proposal, got %s", proposal.Status)
	}

	// AND: The employer accepts it
	var accepted ResponseDTO
	resp = doJSON(t, srv, http.MethodPost, "/api/responses/"+proposal.ID+"/accept", DecisionDTO{DecidedBy: "manager-1"}, &accepted)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 accepting response, got %d", resp.StatusCode)
	}
	if accepted.Status != "accepted" {
		t.Errorf("Expected accepted status, got %s", accepted.Status)
	}

	// THEN: The single-position request is filled
	var after ShiftRequestDTO
	doJSON(t, srv, http.MethodGet, "/api/requests/"+created.ID, nil, &after)
	if after.Status != "filled" {
		t.Errorf("Expected filled request, got %s", after.Status)
	}
}

func TestSubmitResponse_OverCeilingRejected(t *testing.T) {
	// GIVEN: A published request with a 30.00 ceiling
	h, srv := setupTestServer(t)
	seedParties(t, h)

	deadline := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	var created ShiftRequestDTO
	doJSON(t, srv, http.MethodPost, "/api/requests", CreateShiftRequestDTO{
		EmployerID:       "employer-1",
		LocationID:       "loc-1",
		Role:             "nurse",
		StartDate:        "2025-07-01",
		MaxHourlyRate:    "30.00",
		ResponseDeadline: deadline,
		PositionsNeeded:  1,
	}, &created)

	// WHEN: An agency proposes above the ceiling
	resp := doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/responses", SubmitResponseDTO{
		AgencyID:  "agency-1",
		Rate:      "31.00",
		StartDate: "2025-07-01",
	}, nil)

	// THEN: The proposal is a validation failure
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for over-ceiling rate, got %d", resp.StatusCode)
	}
}

func TestCreateAssignment_OverlapRejected(t *testing.T) {
	// GIVEN: An existing assignment for the worker in July
	h, srv := setupTestServer(t)
	seedParties(t, h)

	end := "2025-07-31"
	input := CreateAssignmentDTO{
		ContractID:  "contract-1",
		EmployerID:  "employer-1",
		AgencyID:    "agency-1",
		WorkerID:    "worker-1",
		LocationID:  "loc-1",
		Role:        "nurse",
		StartDate:   "2025-07-01",
		EndDate:     &end,
		AgreedRate:  "30.00",
		PayRate:     "22.00",
		WeeklyHours: "40",
		Type:        "temp",
	}
	resp := doJSON(t, srv, http.MethodPost, "/api/assignments", input, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 creating assignment, got %d", resp.StatusCode)
	}

	// WHEN: A second assignment overlaps the same worker's dates
	resp = doJSON(t, srv, http.MethodPost, "/api/assignments", input, nil)

	// THEN: The overlap rule rejects the input
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for overlap, got %d", resp.StatusCode)
	}
}

func TestCreateAssignment_InvertedRatesMapsTo400(t *testing.T) {
	// GIVEN: Active parties
	h, srv := setupTestServer(t)
	seedParties(t, h)

	// WHEN: The pay rate exceeds the agreed bill rate
	resp := doJSON(t, srv, http.MethodPost, "/api/assignments", CreateAssignmentDTO{
		ContractID:  "contract-1",
		EmployerID:  "employer-1",
		AgencyID:    "agency-1",
		WorkerID:    "worker-1",
		LocationID:  "loc-1",
		Role:        "nurse",
		StartDate:   "2025-07-01",
		AgreedRate:  "20.00",
		PayRate:     "25.00",
		WeeklyHours: "40",
		Type:        "temp",
	}, nil)

	// THEN: The rate ordering violation is a validation failure
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for inverted rates, got %d", resp.StatusCode)
	}
}

func TestOfferAccept_StaffsShift(t *testing.T) {
	// GIVEN: An open shift and an available candidate
	h, srv := setupTestServer(t)
	seedParties(t, h)

	now := time.Now().UTC()
	day := engine.TruncateToDay(now.AddDate(0, 0, 7))
	rate, _ := engine.NewRateFromString("18.00")
	sh := &shift.Shift{
		ID:         "shift-1",
		EmployerID: "employer-1",
		AgencyID:   "agency-1",
		LocationID: "loc-1",
		Window:     engine.NewTimeWindow(day.Add(9*time.Hour), day.Add(17*time.Hour)),
		HourlyRate: rate,
		Status:     shift.StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Store.Shifts.Save(context.Background(), sh); err != nil {
		t.Fatalf("Failed to seed shift: %v", err)
	}

	// WHEN: The shift is offered and the candidate accepts
	var offer OfferDTO
	resp := doJSON(t, srv, http.MethodPost, "/api/shifts/shift-1/offers", OfferShiftDTO{
		WorkerID:  "worker-1",
		ExpiresAt: now.Add(48 * time.Hour).Format(time.RFC3339),
		OfferedBy: "agent-1",
	}, &offer)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 offering shift, got %d", resp.StatusCode)
	}

	var answered OfferDTO
	resp = doJSON(t, srv, http.MethodPost, "/api/offers/"+offer.ID+"/respond", RespondOfferDTO{Accept: true}, &answered)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 accepting offer, got %d", resp.StatusCode)
	}
	if answered.Status != "accepted" {
		t.Errorf("Expected accepted offer, got %s", answered.Status)
	}

	// THEN: The shift is staffed with the candidate
	var staffed ShiftDTO
	doJSON(t, srv, http.MethodGet, "/api/shifts/shift-1", nil, &staffed)
	if staffed.WorkerID == nil || *staffed.WorkerID != "worker-1" {
		t.Errorf("Expected shift staffed with worker-1, got %v", staffed.WorkerID)
	}
}

func TestTimesheetApproval_OrderingEnforced(t *testing.T) {
	// GIVEN: A clocked-out timesheet on a seeded shift
	h, srv := setupTestServer(t)
	seedParties(t, h)

	now := time.Now().UTC()
	worker := engine.WorkerID("worker-1")
	rate, _ := engine.NewRateFromString("18.00")
	sh := &shift.Shift{
		ID:         "shift-ts",
		EmployerID: "employer-1",
		AgencyID:   "agency-1",
		WorkerID:   &worker,
		LocationID: "loc-1",
		Window:     engine.NewTimeWindow(now.Add(-9*time.Hour), now.Add(-time.Hour)),
		HourlyRate: rate,
		Status:     shift.StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Store.Shifts.Save(context.Background(), sh); err != nil {
		t.Fatalf("Failed to seed shift: %v", err)
	}

	var ts TimesheetDTO
	resp := doJSON(t, srv, http.MethodPost, "/api/shifts/shift-ts/clock-in", ClockInDTO{WorkerID: "worker-1"}, &ts)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 clocking in, got %d", resp.StatusCode)
	}
	resp = doJSON(t, srv, http.MethodPost, "/api/timesheets/"+ts.ID+"/clocks", RecordClocksDTO{
		ClockIn:      now.Add(-9 * time.Hour).Format(time.RFC3339),
		ClockOut:     now.Add(-time.Hour).Format(time.RFC3339),
		BreakMinutes: 30,
	}, &ts)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 recording clocks, got %d", resp.StatusCode)
	}

	agency := ApprovalDTO{ApproverID: "agent-1", AgencyID: "agency-1", TimesheetApproval: true}
	employer := ApprovalDTO{ApproverID: "contact-1", EmployerID: "employer-1", TimesheetApproval: true}

	// WHEN: The employer tries to approve before the agency
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/timesheets/%s/approve/employer", ts.ID), employer, nil)

	// THEN: The out-of-order approval is refused
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for employer-first approval, got %d", resp.StatusCode)
	}

	// AND: Agency then employer approval clears both stages
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/timesheets/%s/approve/agency", ts.ID), agency, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for agency approval, got %d", resp.StatusCode)
	}
	var final TimesheetDTO
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/timesheets/%s/approve/employer", ts.ID), employer, &final)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for employer approval, got %d", resp.StatusCode)
	}
	if !final.BillingEligible {
		t.Error("Expected timesheet to be billing eligible after both approvals")
	}
}

func TestGetRequest_UnknownMapsTo404(t *testing.T) {
	// GIVEN: An empty store
	_, srv := setupTestServer(t)

	// WHEN: Fetching a request that does not exist
	resp := doJSON(t, srv, http.MethodGet, "/api/requests/nope", nil, nil)

	// THEN: The miss maps to 404
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown request, got %d", resp.StatusCode)
	}
}
