/*
events.go - Fire-and-forget state transition notifications

PURPOSE:
  Lifecycle components announce state transitions (shift offered,
  timesheet approved, assignment suspended) through EventPublisher.
  Delivery is advisory: a failure to publish never rolls back the
  underlying state transition, so Publish returns nothing.

IMPLEMENTATIONS:
  NopPublisher: discards events (tests, tools)
  LogPublisher: structured logging via logrus (default server wiring)

  A webhook or message-queue publisher implements the same interface
  outside this core.
*/
package engine

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EventPublisher dispatches state-transition notifications.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Event names emitted by the lifecycle components.
const (
	EventResponseSubmitted    = "negotiation.response_submitted"
	EventResponseAccepted     = "negotiation.response_accepted"
	EventResponseRejected     = "negotiation.response_rejected"
	EventResponseWithdrawn    = "negotiation.response_withdrawn"
	EventResponseCountered    = "negotiation.response_countered"
	EventAssignmentCreated    = "assignment.created"
	EventAssignmentStatus     = "assignment.status_changed"
	EventAssignmentExtended   = "assignment.extended"
	EventAssignmentDeleted    = "assignment.deleted"
	EventShiftsGenerated      = "shift.generated"
	EventShiftOffered         = "shift.offered"
	EventOfferAccepted        = "shift.offer_accepted"
	EventOfferRejected        = "shift.offer_rejected"
	EventOfferExpired         = "shift.offer_expired"
	EventShiftAssigned        = "shift.assigned"
	EventTimesheetClockIn     = "timesheet.clock_in"
	EventTimesheetClockOut    = "timesheet.clock_out"
	EventTimesheetAgencyOK    = "timesheet.agency_approved"
	EventTimesheetEmployerOK  = "timesheet.employer_approved"
	EventTimesheetRejected    = "timesheet.rejected"
	EventTimesheetDisputed    = "timesheet.disputed"
)

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, map[string]any) {}

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	Log *logrus.Logger
}

func (p *LogPublisher) Publish(_ context.Context, event string, payload map[string]any) {
	if p.Log == nil {
		return
	}
	fields := make(logrus.Fields, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	p.Log.WithFields(fields).Info(event)
}
