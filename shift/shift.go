/*
Package shift implements dated work periods and the offer workflow used
to staff them.

PURPOSE:
  Shifts are generated ad hoc, from a recurring template, or from a
  placement. An unstaffed shift is filled through Offers: a pending
  offer to a specific candidate either gets accepted (staffing the
  shift and superseding sibling offers), rejected (shift stays open),
  or expires.

STATUS GRAPHS:
  Shift: scheduled -> in_progress, cancelled, no_show
         in_progress -> completed, cancelled
  Offer: pending -> accepted, rejected, expired; all others terminal

SEE ALSO:
  - template.go: recurrence expansion
  - service.go:  offer operations, bulk staffing, expiry sweep
*/
package shift

import (
	"time"

	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// SHIFT
// =============================================================================

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

var StatusTransitions = engine.Transitions[Status]{
	StatusScheduled:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// Conflicting reports whether a shift in this status blocks its worker's
// calendar. Cancelled and no-show shifts do not.
func (s Status) Conflicting() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Shift struct {
	ID         engine.ShiftID
	EmployerID engine.EmployerID
	AgencyID   engine.AgencyID
	// WorkerID nil = unstaffed/open.
	WorkerID     *engine.WorkerID
	AssignmentID *engine.AssignmentID
	TemplateID   *engine.TemplateID
	PlacementID  *engine.PlacementID
	LocationID   engine.LocationID
	Window       engine.TimeWindow
	HourlyRate   engine.Rate
	Status       Status

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Shift) IsStaffed() bool { return s.WorkerID != nil }

// Transition moves the shift along the status graph.
func (s *Shift) Transition(to Status, now time.Time) error {
	if err := StatusTransitions.Step("shift", s.Status, to); err != nil {
		return err
	}
	s.Status = to
	s.UpdatedAt = now
	return nil
}

// =============================================================================
// OFFER
// =============================================================================

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

var OfferTransitions = engine.Transitions[OfferStatus]{
	OfferPending:  {OfferAccepted, OfferRejected, OfferExpired},
	OfferAccepted: {},
	OfferRejected: {},
	OfferExpired:  {},
}

type Offer struct {
	ID          engine.OfferID
	ShiftID     engine.ShiftID
	WorkerID    engine.WorkerID // the candidate
	OfferedBy   string          // offering agent/user
	Status      OfferStatus
	ExpiresAt   time.Time
	RespondedAt *time.Time
	Notes       string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActionable reports whether the offer can still be responded to at
// the given instant.
func (o *Offer) IsActionable(now time.Time) bool {
	return o.Status == OfferPending && now.Before(o.ExpiresAt)
}
