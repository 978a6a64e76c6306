/*
Package assignment implements the central binding engagement of the
staffing lifecycle: one worker, one employer, one agency contract,
agreed terms.

PURPOSE:
  An Assignment is created from an accepted negotiation (or directly)
  and carries the rate pair from which the agency markup derives. This
  file defines the entity, its status graph, and the derived read-only
  values; service.go holds the operations and their invariants.

INVARIANTS (enforced on create and update):
  - agreed_rate >= pay_rate, always
  - markup recomputed whenever either rate changes
  - referenced contract active, worker registration active
  - "standard" type requires an originating agency response
  - no two assignments for one worker overlap while both are open
    (pending/active/suspended); a nil end date overlaps everything
    from the start date onward

STATUS GRAPH:
  pending   -> active, cancelled
  active    -> completed, suspended, cancelled
  suspended -> active, cancelled
  completed, cancelled: terminal
*/
package assignment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// STATUS & TYPE
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended"
)

// StatusTransitions is the fixed directed graph for assignment status
// changes. Consulted by every status mutation; there is no other path.
var StatusTransitions = engine.Transitions[Status]{
	StatusPending:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusSuspended, StatusCancelled},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// OpenStatuses are the states in which an assignment occupies its
// worker's calendar for overlap purposes.
var OpenStatuses = []Status{StatusPending, StatusActive, StatusSuspended}

func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusActive || s == StatusSuspended
}

func (s Status) IsTerminal() bool { return StatusTransitions.IsTerminal(s) }

type Type string

const (
	TypeDirect   Type = "direct"
	TypeStandard Type = "standard" // contract placement via agency response
	TypeTemp     Type = "temp"
)

// =============================================================================
// ASSIGNMENT
// =============================================================================

type Assignment struct {
	ID         engine.AssignmentID
	ContractID engine.ContractID
	EmployerID engine.EmployerID
	AgencyID   engine.AgencyID
	WorkerID   engine.WorkerID

	// Originating negotiation, when any.
	RequestID  *engine.RequestID
	ResponseID *engine.ResponseID

	LocationID engine.LocationID
	Role       string
	Dates      engine.DateRange // End nil = open-ended

	AgreedRate    engine.Rate
	PayRate       engine.Rate
	MarkupAmount  engine.Rate
	MarkupPercent decimal.Decimal

	WeeklyHours decimal.Decimal
	Status      Status
	Type        Type

	// Version guards optimistic concurrency on save.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecomputeMarkup refreshes the derived markup fields from the rates.
// Call after every rate change.
func (a *Assignment) RecomputeMarkup() {
	m := engine.ComputeMarkup(a.AgreedRate, a.PayRate)
	a.MarkupAmount = m.Amount
	a.MarkupPercent = m.Percent
}

// DurationDays is nil for open-ended assignments.
func (a *Assignment) DurationDays() *int { return a.Dates.DurationDays() }

// IsOngoing is true iff the assignment is active with no end date.
func (a *Assignment) IsOngoing() bool {
	return a.Status == StatusActive && a.Dates.IsOpenEnded()
}

// TotalExpectedHours projects weekly hours over the assignment span.
// Nil for open-ended assignments.
func (a *Assignment) TotalExpectedHours() *decimal.Decimal {
	days := a.DurationDays()
	if days == nil {
		return nil
	}
	weeks := decimal.NewFromInt(int64(*days)).Div(decimal.NewFromInt(7))
	total := a.WeeklyHours.Mul(weeks)
	return &total
}

// pastEnd reports whether the assignment's end date has passed.
// Open-ended assignments are completable at any time.
func (a *Assignment) pastEnd(now time.Time) bool {
	if a.Dates.End == nil {
		return true
	}
	return !now.Before(*a.Dates.End)
}
