/*
response.go - Agency response types and their state machines

PURPOSE:
  Three response shapes for the three demand models:
  - AgencyResponse          -> ShiftRequest
  - AgencyPlacementResponse -> Placement
  - AgencyAssignmentResponse -> direct assignment proposals

  The first two share one state machine through ResponseCore:

    pending -> {accepted, rejected, withdrawn, counter_offered}

  counter_offered does NOT loop back to pending, but remains
  independently actionable: accept, reject and withdraw are all still
  permitted from it. CounterOffer itself is only permitted from pending
  and overwrites the proposed terms in place.

  Assignment responses use a smaller review pipeline:

    submitted -> reviewed -> {accepted, rejected}

DECISION STAMPING:
  Accept/Reject record the deciding actor and instant; Reject records a
  reason. The stamps are never overwritten - terminal states are final.
*/
package negotiation

import (
	"time"

	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// SHARED RESPONSE STATE MACHINE
// =============================================================================

type ResponseStatus string

const (
	ResponsePending        ResponseStatus = "pending"
	ResponseAccepted       ResponseStatus = "accepted"
	ResponseRejected       ResponseStatus = "rejected"
	ResponseWithdrawn      ResponseStatus = "withdrawn"
	ResponseCounterOffered ResponseStatus = "counter_offered"
)

var ResponseTransitions = engine.Transitions[ResponseStatus]{
	ResponsePending:        {ResponseAccepted, ResponseRejected, ResponseWithdrawn, ResponseCounterOffered},
	ResponseCounterOffered: {ResponseAccepted, ResponseRejected, ResponseWithdrawn},
	ResponseAccepted:       {},
	ResponseRejected:       {},
	ResponseWithdrawn:      {},
}

// ProposedTerms are the negotiable fields of a response. A counter-offer
// replaces them wholesale.
type ProposedTerms struct {
	Rate   engine.Rate
	Worker *engine.WorkerID // nil = agency will staff later
	Dates  engine.DateRange
}

// ResponseCore carries the fields and transitions shared by request and
// placement responses.
type ResponseCore struct {
	ID       engine.ResponseID
	AgencyID engine.AgencyID
	Status   ResponseStatus
	Terms    ProposedTerms
	Notes    string

	DecidedBy       *string
	DecidedAt       *time.Time
	RejectionReason *string

	// Set once the response has been converted into an assignment.
	AssignmentID *engine.AssignmentID

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *ResponseCore) CanBeAccepted() bool {
	return ResponseTransitions.CanTransition(c.Status, ResponseAccepted)
}

func (c *ResponseCore) CanBeRejected() bool {
	return ResponseTransitions.CanTransition(c.Status, ResponseRejected)
}

func (c *ResponseCore) CanBeWithdrawn() bool {
	return ResponseTransitions.CanTransition(c.Status, ResponseWithdrawn)
}

// Accept stamps the decision and moves to accepted.
func (c *ResponseCore) Accept(decidedBy string, now time.Time) error {
	if err := ResponseTransitions.Step("agency_response", c.Status, ResponseAccepted); err != nil {
		return err
	}
	c.Status = ResponseAccepted
	c.DecidedBy = &decidedBy
	c.DecidedAt = &now
	c.UpdatedAt = now
	return nil
}

// Reject stamps the decision and stores the reason.
func (c *ResponseCore) Reject(decidedBy, reason string, now time.Time) error {
	if err := ResponseTransitions.Step("agency_response", c.Status, ResponseRejected); err != nil {
		return err
	}
	c.Status = ResponseRejected
	c.DecidedBy = &decidedBy
	c.DecidedAt = &now
	c.RejectionReason = &reason
	c.UpdatedAt = now
	return nil
}

// Withdraw is agency-initiated.
func (c *ResponseCore) Withdraw(now time.Time) error {
	if err := ResponseTransitions.Step("agency_response", c.Status, ResponseWithdrawn); err != nil {
		return err
	}
	c.Status = ResponseWithdrawn
	c.UpdatedAt = now
	return nil
}

// CounterOffer overwrites the proposed terms. Only permitted from pending.
func (c *ResponseCore) CounterOffer(terms ProposedTerms, now time.Time) error {
	if err := ResponseTransitions.Step("agency_response", c.Status, ResponseCounterOffered); err != nil {
		return err
	}
	c.Status = ResponseCounterOffered
	c.Terms = terms
	c.UpdatedAt = now
	return nil
}

// =============================================================================
// CONCRETE RESPONSE TYPES
// =============================================================================

// AgencyResponse answers a ShiftRequest.
type AgencyResponse struct {
	ResponseCore
	RequestID engine.RequestID
}

// AgencyPlacementResponse answers a Placement.
type AgencyPlacementResponse struct {
	ResponseCore
	PlacementID engine.PlacementID
}

// =============================================================================
// ASSIGNMENT RESPONSE - Review pipeline for direct assignment proposals
// =============================================================================

type AssignmentResponseStatus string

const (
	AssignmentResponseSubmitted AssignmentResponseStatus = "submitted"
	AssignmentResponseReviewed  AssignmentResponseStatus = "reviewed"
	AssignmentResponseAccepted  AssignmentResponseStatus = "accepted"
	AssignmentResponseRejected  AssignmentResponseStatus = "rejected"
)

var AssignmentResponseTransitions = engine.Transitions[AssignmentResponseStatus]{
	AssignmentResponseSubmitted: {AssignmentResponseReviewed},
	AssignmentResponseReviewed:  {AssignmentResponseAccepted, AssignmentResponseRejected},
	AssignmentResponseAccepted:  {},
	AssignmentResponseRejected:  {},
}

// AgencyAssignmentResponse answers a directly proposed assignment.
type AgencyAssignmentResponse struct {
	ID                   engine.ResponseID
	AgencyID             engine.AgencyID
	ProposedAssignmentID engine.AssignmentID
	Status               AssignmentResponseStatus
	Terms                ProposedTerms
	Notes                string
	DecidedBy            *string
	DecidedAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// MarkReviewed advances submitted -> reviewed.
func (r *AgencyAssignmentResponse) MarkReviewed(now time.Time) error {
	if err := AssignmentResponseTransitions.Step("agency_assignment_response", r.Status, AssignmentResponseReviewed); err != nil {
		return err
	}
	r.Status = AssignmentResponseReviewed
	r.UpdatedAt = now
	return nil
}

// Decide moves a reviewed response to accepted or rejected.
func (r *AgencyAssignmentResponse) Decide(accept bool, decidedBy string, now time.Time) error {
	target := AssignmentResponseRejected
	if accept {
		target = AssignmentResponseAccepted
	}
	if err := AssignmentResponseTransitions.Step("agency_assignment_response", r.Status, target); err != nil {
		return err
	}
	r.Status = target
	r.DecidedBy = &decidedBy
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}
