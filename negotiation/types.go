/*
Package negotiation models employer demand and agency responses.

PURPOSE:
  Employers signal demand through two models:
  - ShiftRequest: a broadcast request with a rate ceiling and deadline
  - Placement:    a richer model with scheduling metadata and a budget

  Agencies answer with one of three response shapes (one per demand
  model, plus direct assignment proposals). All responses to requests
  and placements share one state machine; assignment responses use a
  smaller review pipeline.

  An accepted response is the trigger that (externally) leads to
  Assignment creation; IsValidForAssignment is the gate the assignment
  lifecycle calls before converting.

SEE ALSO:
  - response.go: the response types and their state machines
  - service.go:  submit/accept/reject/withdraw/counter operations
*/
package negotiation

import (
	"time"

	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// SHIFT REQUEST - Broadcast demand with a rate ceiling
// =============================================================================

type RequestStatus string

const (
	RequestDraft      RequestStatus = "draft"
	RequestPublished  RequestStatus = "published"
	RequestInProgress RequestStatus = "in_progress"
	RequestFilled     RequestStatus = "filled"
	RequestCancelled  RequestStatus = "cancelled"
	RequestCompleted  RequestStatus = "completed"
)

// RequestTransitions is the ShiftRequest status graph. Once non-draft,
// a request only moves by engine transitions.
var RequestTransitions = engine.Transitions[RequestStatus]{
	RequestDraft:      {RequestPublished, RequestCancelled},
	RequestPublished:  {RequestInProgress, RequestFilled, RequestCancelled},
	RequestInProgress: {RequestFilled, RequestCancelled},
	RequestFilled:     {RequestCompleted, RequestCancelled},
	RequestCancelled:  {},
	RequestCompleted:  {},
}

type ShiftRequest struct {
	ID             engine.RequestID
	EmployerID     engine.EmployerID
	LocationID     engine.LocationID
	Role           string
	Qualifications []string
	Dates          engine.DateRange
	MaxHourlyRate  engine.Rate
	// TargetAgencies nil/empty = open to all agencies.
	TargetAgencies   []engine.AgencyID
	ResponseDeadline time.Time
	PositionsNeeded  int
	Status           RequestStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsTargeted reports whether the agency may respond to this request.
func (r *ShiftRequest) IsTargeted(agency engine.AgencyID) bool {
	if len(r.TargetAgencies) == 0 {
		return true
	}
	for _, a := range r.TargetAgencies {
		if a == agency {
			return true
		}
	}
	return false
}

// AcceptingResponses reports whether agencies may still submit.
func (r *ShiftRequest) AcceptingResponses(now time.Time) bool {
	if r.Status != RequestPublished && r.Status != RequestInProgress {
		return false
	}
	return now.Before(r.ResponseDeadline)
}

// Transition moves the request along the status graph.
func (r *ShiftRequest) Transition(to RequestStatus, now time.Time) error {
	if err := RequestTransitions.Step("shift_request", r.Status, to); err != nil {
		return err
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// =============================================================================
// PLACEMENT - Demand with richer scheduling metadata
// =============================================================================

type PlacementStatus string

const (
	PlacementDraft     PlacementStatus = "draft"
	PlacementActive    PlacementStatus = "active"
	PlacementFilled    PlacementStatus = "filled"
	PlacementCancelled PlacementStatus = "cancelled"
	PlacementCompleted PlacementStatus = "completed"
)

var PlacementTransitions = engine.Transitions[PlacementStatus]{
	PlacementDraft:     {PlacementActive, PlacementCancelled},
	PlacementActive:    {PlacementFilled, PlacementCancelled},
	PlacementFilled:    {PlacementCompleted, PlacementCancelled},
	PlacementCancelled: {},
	PlacementCompleted: {},
}

type BudgetType string

const (
	BudgetHourly BudgetType = "hourly"
	BudgetTotal  BudgetType = "total"
)

type Recurrence string

const (
	RecurWeekly   Recurrence = "weekly"
	RecurBiweekly Recurrence = "biweekly"
	RecurMonthly  Recurrence = "monthly"
)

type Placement struct {
	ID         engine.PlacementID
	EmployerID engine.EmployerID
	LocationID engine.LocationID
	Role       string
	Dates      engine.DateRange
	// ShiftPattern is a free-form pattern label, e.g. "early", "night".
	ShiftPattern            string
	Recurrence              Recurrence
	Weekday                 time.Weekday
	DayStart                engine.TimeOfDay
	DayEnd                  engine.TimeOfDay
	BudgetType              BudgetType
	BudgetAmount            engine.Rate
	MaxHourlyRate           engine.Rate
	BackgroundCheckRequired bool
	Status                  PlacementStatus
	// Set once filled.
	SelectedAgency   *engine.AgencyID
	SelectedEmployee *engine.WorkerID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Transition moves the placement along the status graph.
func (p *Placement) Transition(to PlacementStatus, now time.Time) error {
	if err := PlacementTransitions.Step("placement", p.Status, to); err != nil {
		return err
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// Fill marks the placement filled by the given agency and worker.
func (p *Placement) Fill(agency engine.AgencyID, worker *engine.WorkerID, now time.Time) error {
	if err := p.Transition(PlacementFilled, now); err != nil {
		return err
	}
	p.SelectedAgency = &agency
	p.SelectedEmployee = worker
	return nil
}
