/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Contracts and registrations are active
	- Requests, assignments and shifts exist with the right status
	- Loading a second scenario replaces the first

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHandler(store, log)
}

func TestScenario_OpenRequest(t *testing.T) {
	// GIVEN: A fresh handler
	h := setupTestHandler(t)
	ctx := context.Background()

	// WHEN: The open-request scenario loads
	if err := h.loadOpenRequestScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	// THEN: The demo request is published with a pending proposal
	req, err := h.Store.Requests.Get(ctx, "req-demo-1")
	if err != nil {
		t.Fatalf("Failed to get demo request: %v", err)
	}
	if string(req.Status) != "published" {
		t.Errorf("Expected published request, got %s", req.Status)
	}

	n, err := h.Store.Responses.CountAccepted(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to count accepted responses: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no accepted responses yet, got %d", n)
	}

	active, err := h.Store.Contracts.IsActive(ctx, "employer-north", "agency-alpha")
	if err != nil {
		t.Fatalf("Failed to check contract: %v", err)
	}
	if !active {
		t.Error("Expected employer-north/agency-alpha contract to be active")
	}
}

func TestScenario_StaffedWeek(t *testing.T) {
	// GIVEN: A fresh handler
	h := setupTestHandler(t)
	ctx := context.Background()

	// WHEN: The staffed-week scenario loads
	if err := h.loadStaffedWeekScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	// THEN: Dana holds one open, active assignment covering today
	now := h.Clock.Now()
	tomorrow := now.AddDate(0, 0, 1)
	around := engine.DateRange{Start: now.AddDate(0, 0, -1), End: &tomorrow}
	overlapping, err := h.Store.Assignments.FindOverlapping(ctx, "worker-dana", around, "")
	if err != nil {
		t.Fatalf("Failed to find assignments: %v", err)
	}
	if len(overlapping) != 1 {
		t.Fatalf("Expected one open assignment for worker-dana, got %d", len(overlapping))
	}
	if string(overlapping[0].Status) != "active" {
		t.Errorf("Expected active assignment, got %s", overlapping[0].Status)
	}

	// AND: The generated Monday shifts are booked under the assignment
	n, err := h.Store.Assignments.CountShifts(ctx, overlapping[0].ID)
	if err != nil {
		t.Fatalf("Failed to count shifts: %v", err)
	}
	if n < 4 {
		t.Errorf("Expected at least 4 generated shifts for the month, got %d", n)
	}
}

func TestScenario_TimesheetApproval(t *testing.T) {
	// GIVEN: A fresh handler
	h := setupTestHandler(t)
	ctx := context.Background()

	// WHEN: The timesheet-approval scenario loads
	if err := h.loadTimesheetApprovalScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	// THEN: The demo timesheet is agency approved and not yet billable
	ts, err := h.Store.Timesheets.FindByShift(ctx, "shift-demo-1")
	if err != nil {
		t.Fatalf("Failed to get demo timesheet: %v", err)
	}
	if string(ts.Status) != "agency_approved" {
		t.Errorf("Expected agency_approved timesheet, got %s", ts.Status)
	}
	if ts.BillingEligible() {
		t.Error("Expected timesheet to still await employer approval")
	}
	if ts.HoursWorked.String() != "8" {
		t.Errorf("Expected 8 hours net of break, got %s", ts.HoursWorked)
	}
}

func TestScenario_ReloadReplacesState(t *testing.T) {
	// GIVEN: The timesheet-approval scenario is loaded
	h := setupTestHandler(t)
	ctx := context.Background()
	if err := h.loadTimesheetApprovalScenario(ctx); err != nil {
		t.Fatalf("Failed to load first scenario: %v", err)
	}

	// WHEN: The database is reset and another scenario loads
	if err := h.Store.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if err := h.loadOpenRequestScenario(ctx); err != nil {
		t.Fatalf("Failed to load second scenario: %v", err)
	}

	// THEN: The first scenario's data is gone
	if _, err := h.Store.Timesheets.FindByShift(ctx, "shift-demo-1"); err == nil {
		t.Error("Expected demo timesheet to be cleared by reset")
	}
	if _, err := h.Store.Requests.Get(ctx, "req-demo-1"); err != nil {
		t.Errorf("Expected demo request from second scenario: %v", err)
	}
}
