/*
Package timesheet implements worked-time capture and the two-stage
approval chain gating billing.

PURPOSE:
  A timesheet records a worker's actual clocked time for one shift.
  Billing eligibility requires two independent sign-offs, agency first,
  then employer:

    pending -> agency_approved -> employer_approved   (happy path)
    pending | agency_approved -> disputed
    pending -> rejected

  Both approvals keep their own approver identity and timestamp so the
  audit trail (who approved, when, at each stage) is always
  reconstructable.

HOURS:
  hours_worked = (clock_out - clock_in) - break_minutes/60. A negative
  result means malformed clock data and is a ValidationError - never
  silently clamped to zero.

ORDERING:
  Employer approval is only reachable from agency_approved: the graph
  itself enforces agency-before-employer ordering.
*/
package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending          Status = "pending"
	StatusAgencyApproved   Status = "agency_approved"
	StatusEmployerApproved Status = "employer_approved"
	StatusDisputed         Status = "disputed"
	StatusRejected         Status = "rejected"
)

var StatusTransitions = engine.Transitions[Status]{
	StatusPending:          {StatusAgencyApproved, StatusDisputed, StatusRejected},
	StatusAgencyApproved:   {StatusEmployerApproved, StatusDisputed},
	StatusEmployerApproved: {},
	StatusDisputed:         {},
	StatusRejected:         {},
}

// =============================================================================
// TIMESHEET
// =============================================================================

type Timesheet struct {
	ID       engine.TimesheetID
	ShiftID  engine.ShiftID
	WorkerID engine.WorkerID

	ClockIn      *time.Time
	ClockOut     *time.Time
	BreakMinutes int
	HoursWorked  decimal.Decimal

	Status Status

	// Independent approver stamps, one per stage.
	AgencyApproverID   *string
	AgencyApprovedAt   *time.Time
	EmployerApproverID *string
	EmployerApprovedAt *time.Time

	RejectionReason *string
	DisputeReason   *string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillingEligible reports whether the timesheet cleared both approvals.
func (t *Timesheet) BillingEligible() bool { return t.Status == StatusEmployerApproved }

// =============================================================================
// HOURS COMPUTATION
// =============================================================================

var minutesPerHour = decimal.NewFromInt(60)

// ComputeHours derives worked hours from clock data. Returns a
// ValidationError when the result would be negative.
func ComputeHours(clockIn, clockOut time.Time, breakMinutes int) (decimal.Decimal, error) {
	if breakMinutes < 0 {
		return decimal.Zero, &engine.ValidationError{
			Rule: "clock_data", Message: "break minutes cannot be negative",
		}
	}
	worked := clockOut.Sub(clockIn)
	hours := decimal.NewFromFloat(worked.Minutes()).
		Sub(decimal.NewFromInt(int64(breakMinutes))).
		Div(minutesPerHour)
	if hours.IsNegative() {
		return decimal.Zero, &engine.ValidationError{
			Rule: "clock_data", Message: "clock data yields negative worked hours",
		}
	}
	return hours, nil
}
