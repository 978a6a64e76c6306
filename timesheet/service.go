/*
service.go - Timesheet operations

PURPOSE:
  ClockIn / ClockOut   capture worked time for a shift
  ApproveAgency        first-stage sign-off (agency side)
  ApproveEmployer      second-stage sign-off, gated on the first
  Reject / Dispute     off-ramps

  Approval capability is checked through the engine.Approver interface;
  the API boundary resolves the concrete party (agency agent, employer
  contact) before calling in.
*/
package timesheet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Repository persists timesheets with optimistic versioning.
type Repository interface {
	Get(ctx context.Context, id engine.TimesheetID) (*Timesheet, error)
	Save(ctx context.Context, t *Timesheet) error
	// FindByShift returns the shift's timesheet, or a NotFoundError.
	FindByShift(ctx context.Context, shift engine.ShiftID) (*Timesheet, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Timesheets Repository
	Events     engine.EventPublisher
	Clock      engine.Clock
}

// ClockIn opens a timesheet for the shift. A shift has at most one.
func (s *Service) ClockIn(ctx context.Context, shiftID engine.ShiftID, worker engine.WorkerID) (*Timesheet, error) {
	if existing, err := s.Timesheets.FindByShift(ctx, shiftID); err == nil {
		return nil, &engine.PreconditionError{
			Entity: "timesheet", ID: string(existing.ID), State: string(existing.Status),
			Message: "shift already has a timesheet",
		}
	} else if !engine.IsNotFound(err) {
		return nil, err
	}

	now := s.Clock.Now()
	t := &Timesheet{
		ID:        engine.TimesheetID(uuid.NewString()),
		ShiftID:   shiftID,
		WorkerID:  worker,
		ClockIn:   &now,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetClockIn, map[string]any{
		"timesheet_id": t.ID, "shift_id": shiftID, "worker_id": worker,
	})
	return t, nil
}

// ClockOut stamps the end of work and computes hours.
func (s *Service) ClockOut(ctx context.Context, id engine.TimesheetID, breakMinutes int) (*Timesheet, error) {
	t, err := s.Timesheets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ClockIn == nil {
		return nil, &engine.PreconditionError{
			Entity: "timesheet", ID: string(id), State: string(t.Status),
			Message: "timesheet has no clock-in",
		}
	}
	if t.ClockOut != nil {
		return nil, &engine.PreconditionError{
			Entity: "timesheet", ID: string(id), State: string(t.Status),
			Message: "timesheet is already clocked out",
		}
	}

	now := s.Clock.Now()
	hours, err := ComputeHours(*t.ClockIn, now, breakMinutes)
	if err != nil {
		return nil, err
	}

	t.ClockOut = &now
	t.BreakMinutes = breakMinutes
	t.HoursWorked = hours
	t.UpdatedAt = now
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetClockOut, map[string]any{
		"timesheet_id": t.ID, "hours_worked": hours,
	})
	return t, nil
}

// RecordClocks sets both clock stamps explicitly (manual entry or
// corrections before approval). Hours are recomputed; negative results
// are rejected, never clamped.
func (s *Service) RecordClocks(ctx context.Context, id engine.TimesheetID, in, out time.Time, breakMinutes int) (*Timesheet, error) {
	t, err := s.Timesheets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusPending {
		return nil, &engine.PreconditionError{
			Entity: "timesheet", ID: string(id), State: string(t.Status),
			Message: "clock data can only be edited while pending",
		}
	}

	hours, err := ComputeHours(in, out, breakMinutes)
	if err != nil {
		return nil, err
	}
	t.ClockIn = &in
	t.ClockOut = &out
	t.BreakMinutes = breakMinutes
	t.HoursWorked = hours
	t.UpdatedAt = s.Clock.Now()
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ApproveAgency is the first-stage sign-off.
func (s *Service) ApproveAgency(ctx context.Context, id engine.TimesheetID, approver engine.Approver) (*Timesheet, error) {
	t, err := s.loadForApproval(ctx, id, approver)
	if err != nil {
		return nil, err
	}
	if err := StatusTransitions.Step("timesheet", t.Status, StatusAgencyApproved); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	actor := approver.ApproverID()
	t.Status = StatusAgencyApproved
	t.AgencyApproverID = &actor
	t.AgencyApprovedAt = &now
	t.UpdatedAt = now
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetAgencyOK, map[string]any{
		"timesheet_id": t.ID, "approver": actor,
	})
	return t, nil
}

// ApproveEmployer is the second-stage sign-off. The transition graph
// only admits it from agency_approved, enforcing the ordering.
func (s *Service) ApproveEmployer(ctx context.Context, id engine.TimesheetID, approver engine.Approver) (*Timesheet, error) {
	t, err := s.loadForApproval(ctx, id, approver)
	if err != nil {
		return nil, err
	}
	if err := StatusTransitions.Step("timesheet", t.Status, StatusEmployerApproved); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	actor := approver.ApproverID()
	t.Status = StatusEmployerApproved
	t.EmployerApproverID = &actor
	t.EmployerApprovedAt = &now
	t.UpdatedAt = now
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetEmployerOK, map[string]any{
		"timesheet_id": t.ID, "approver": actor,
	})
	return t, nil
}

// Reject refuses a pending timesheet.
func (s *Service) Reject(ctx context.Context, id engine.TimesheetID, approver engine.Approver, reason string) (*Timesheet, error) {
	t, err := s.loadForApproval(ctx, id, approver)
	if err != nil {
		return nil, err
	}
	if err := StatusTransitions.Step("timesheet", t.Status, StatusRejected); err != nil {
		return nil, err
	}
	t.Status = StatusRejected
	t.RejectionReason = &reason
	t.UpdatedAt = s.Clock.Now()
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetRejected, map[string]any{
		"timesheet_id": t.ID, "reason": reason,
	})
	return t, nil
}

// Dispute flags a timesheet from pending or agency_approved.
func (s *Service) Dispute(ctx context.Context, id engine.TimesheetID, by string, reason string) (*Timesheet, error) {
	t, err := s.Timesheets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := StatusTransitions.Step("timesheet", t.Status, StatusDisputed); err != nil {
		return nil, err
	}
	t.Status = StatusDisputed
	t.DisputeReason = &reason
	t.UpdatedAt = s.Clock.Now()
	if err := s.Timesheets.Save(ctx, t); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventTimesheetDisputed, map[string]any{
		"timesheet_id": t.ID, "by": by, "reason": reason,
	})
	return t, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Service) loadForApproval(ctx context.Context, id engine.TimesheetID, approver engine.Approver) (*Timesheet, error) {
	if !approver.CanApproveTimesheets() {
		return nil, &engine.ValidationError{
			Rule:    "approver_capability",
			Message: "actor " + approver.ApproverID() + " cannot approve timesheets",
		}
	}
	t, err := s.Timesheets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ClockOut == nil {
		return nil, &engine.PreconditionError{
			Entity: "timesheet", ID: string(id), State: string(t.Status),
			Message: "timesheet has no recorded clock-out",
		}
	}
	return t, nil
}
