/*
service.go - Negotiation operations

PURPOSE:
  Orchestrates the response lifecycle against persistence and the
  collaborator lookups:

  SubmitResponse        validate ceiling + contract, persist pending
  Accept/Reject/Withdraw/CounterOffer
                        drive the shared state machine
  IsValidForAssignment  the gate the assignment lifecycle calls before
                        converting an accepted response

VALIDATION AT CREATION:
  A proposed rate above the parent request's ceiling, or a response from
  an agency without an active contract, is a ValidationError raised
  before persistence - never silently clamped.

FILL TRACKING:
  Accepting a response counts toward the request's PositionsNeeded;
  when enough responses are accepted, the request transitions to filled.
*/
package negotiation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// COLLABORATOR INTERFACES - Implemented by persistence / external layers
// =============================================================================

// ContractLookup answers whether an employer-agency contract is active.
type ContractLookup interface {
	IsActive(ctx context.Context, employer engine.EmployerID, agency engine.AgencyID) (bool, error)
}

// AvailabilityChecker is the read-side eligibility check. Negotiation
// only needs the day-level answer: proposed terms carry calendar dates,
// not shift hours.
type AvailabilityChecker interface {
	IsAvailableOnDay(ctx context.Context, worker engine.WorkerID, day time.Time) (bool, error)
}

type RequestRepository interface {
	Get(ctx context.Context, id engine.RequestID) (*ShiftRequest, error)
	Save(ctx context.Context, r *ShiftRequest) error
}

type ResponseRepository interface {
	Get(ctx context.Context, id engine.ResponseID) (*AgencyResponse, error)
	Save(ctx context.Context, r *AgencyResponse) error
	// CountAccepted returns the number of accepted responses for a request.
	CountAccepted(ctx context.Context, request engine.RequestID) (int, error)
}

type PlacementRepository interface {
	Get(ctx context.Context, id engine.PlacementID) (*Placement, error)
	Save(ctx context.Context, p *Placement) error
}

type PlacementResponseRepository interface {
	Get(ctx context.Context, id engine.ResponseID) (*AgencyPlacementResponse, error)
	Save(ctx context.Context, r *AgencyPlacementResponse) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Contracts          ContractLookup
	Requests           RequestRepository
	Responses          ResponseRepository
	Placements         PlacementRepository
	PlacementResponses PlacementResponseRepository
	Availability       AvailabilityChecker
	Events             engine.EventPublisher
	Clock              engine.Clock
}

// SubmitResponseInput carries an agency's proposal for a ShiftRequest.
type SubmitResponseInput struct {
	RequestID engine.RequestID
	AgencyID  engine.AgencyID
	Terms     ProposedTerms
	Notes     string
}

// SubmitResponse validates and persists a new pending response.
func (s *Service) SubmitResponse(ctx context.Context, input SubmitResponseInput) (*AgencyResponse, error) {
	req, err := s.Requests.Get(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if !req.AcceptingResponses(now) {
		return nil, &engine.PreconditionError{
			Entity: "shift_request", ID: string(req.ID), State: string(req.Status),
			Message: "request is not accepting responses",
		}
	}
	if !req.IsTargeted(input.AgencyID) {
		return nil, &engine.ValidationError{
			Rule:    "agency_targeting",
			Message: fmt.Sprintf("agency %s is not targeted by request %s", input.AgencyID, req.ID),
		}
	}
	if input.Terms.Rate.GreaterThan(req.MaxHourlyRate) {
		return nil, &engine.ValidationError{
			Rule: "rate_ceiling",
			Message: fmt.Sprintf("proposed rate %s exceeds ceiling %s",
				input.Terms.Rate, req.MaxHourlyRate),
		}
	}
	if err := s.requireActiveContract(ctx, req.EmployerID, input.AgencyID); err != nil {
		return nil, err
	}

	resp := &AgencyResponse{
		ResponseCore: ResponseCore{
			ID:        engine.ResponseID(uuid.NewString()),
			AgencyID:  input.AgencyID,
			Status:    ResponsePending,
			Terms:     input.Terms,
			Notes:     input.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		},
		RequestID: req.ID,
	}
	if err := s.Responses.Save(ctx, resp); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventResponseSubmitted, map[string]any{
		"response_id": resp.ID, "request_id": req.ID, "agency_id": resp.AgencyID,
	})
	return resp, nil
}

// Accept accepts a response on behalf of the employer. When enough
// responses are accepted the parent request transitions to filled.
func (s *Service) Accept(ctx context.Context, id engine.ResponseID, decidedBy string) (*AgencyResponse, error) {
	resp, err := s.Responses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if err := resp.ResponseCore.Accept(decidedBy, now); err != nil {
		return nil, err
	}
	if err := s.Responses.Save(ctx, resp); err != nil {
		return nil, err
	}

	if err := s.trackFill(ctx, resp.RequestID, now); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventResponseAccepted, map[string]any{
		"response_id": resp.ID, "request_id": resp.RequestID, "decided_by": decidedBy,
	})
	return resp, nil
}

// Reject rejects a response, storing the reason.
func (s *Service) Reject(ctx context.Context, id engine.ResponseID, decidedBy, reason string) (*AgencyResponse, error) {
	resp, err := s.Responses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := resp.ResponseCore.Reject(decidedBy, reason, s.Clock.Now()); err != nil {
		return nil, err
	}
	if err := s.Responses.Save(ctx, resp); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventResponseRejected, map[string]any{
		"response_id": resp.ID, "request_id": resp.RequestID, "reason": reason,
	})
	return resp, nil
}

// Withdraw is the agency pulling its own response.
func (s *Service) Withdraw(ctx context.Context, id engine.ResponseID) (*AgencyResponse, error) {
	resp, err := s.Responses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := resp.ResponseCore.Withdraw(s.Clock.Now()); err != nil {
		return nil, err
	}
	if err := s.Responses.Save(ctx, resp); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventResponseWithdrawn, map[string]any{
		"response_id": resp.ID, "request_id": resp.RequestID,
	})
	return resp, nil
}

// CounterOffer overwrites the proposed terms. The new rate is validated
// against the parent request's ceiling like the original submission.
func (s *Service) CounterOffer(ctx context.Context, id engine.ResponseID, terms ProposedTerms) (*AgencyResponse, error) {
	resp, err := s.Responses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err := s.Requests.Get(ctx, resp.RequestID)
	if err != nil {
		return nil, err
	}
	if terms.Rate.GreaterThan(req.MaxHourlyRate) {
		return nil, &engine.ValidationError{
			Rule: "rate_ceiling",
			Message: fmt.Sprintf("countered rate %s exceeds ceiling %s",
				terms.Rate, req.MaxHourlyRate),
		}
	}
	if err := resp.ResponseCore.CounterOffer(terms, s.Clock.Now()); err != nil {
		return nil, err
	}
	if err := s.Responses.Save(ctx, resp); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventResponseCountered, map[string]any{
		"response_id": resp.ID, "request_id": resp.RequestID,
	})
	return resp, nil
}

// IsValidForAssignment is the conversion gate: true only if the response
// is accepted, not yet converted, the contract is still active, the
// proposed rate is within the ceiling, and the proposed worker (if any)
// is available for the proposed dates.
func (s *Service) IsValidForAssignment(ctx context.Context, id engine.ResponseID) (bool, error) {
	resp, err := s.Responses.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if resp.Status != ResponseAccepted || resp.AssignmentID != nil {
		return false, nil
	}

	req, err := s.Requests.Get(ctx, resp.RequestID)
	if err != nil {
		return false, err
	}
	if resp.Terms.Rate.GreaterThan(req.MaxHourlyRate) {
		return false, nil
	}

	active, err := s.Contracts.IsActive(ctx, req.EmployerID, resp.AgencyID)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "contract_lookup", Err: err}
	}
	if !active {
		return false, nil
	}

	if resp.Terms.Worker != nil {
		// Day-level check on the engagement's first day. Per-date
		// conflicts deeper in the range surface later as skipped dates
		// when shifts are generated.
		ok, err := s.Availability.IsAvailableOnDay(ctx, *resp.Terms.Worker, resp.Terms.Dates.Start)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// =============================================================================
// PLACEMENT RESPONSES
// =============================================================================

// SubmitPlacementResponseInput carries an agency's proposal for a Placement.
type SubmitPlacementResponseInput struct {
	PlacementID engine.PlacementID
	AgencyID    engine.AgencyID
	Terms       ProposedTerms
	Notes       string
}

// SubmitPlacementResponse validates and persists a response to a placement.
func (s *Service) SubmitPlacementResponse(ctx context.Context, input SubmitPlacementResponseInput) (*AgencyPlacementResponse, error) {
	placement, err := s.Placements.Get(ctx, input.PlacementID)
	if err != nil {
		return nil, err
	}
	if placement.Status != PlacementActive {
		return nil, &engine.PreconditionError{
			Entity: "placement", ID: string(placement.ID), State: string(placement.Status),
			Message: "placement is not accepting responses",
		}
	}
	if input.Terms.Rate.GreaterThan(placement.MaxHourlyRate) {
		return nil, &engine.ValidationError{
			Rule: "rate_ceiling",
			Message: fmt.Sprintf("proposed rate %s exceeds ceiling %s",
				input.Terms.Rate, placement.MaxHourlyRate),
		}
	}
	if err := s.requireActiveContract(ctx, placement.EmployerID, input.AgencyID); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	resp := &AgencyPlacementResponse{
		ResponseCore: ResponseCore{
			ID:        engine.ResponseID(uuid.NewString()),
			AgencyID:  input.AgencyID,
			Status:    ResponsePending,
			Terms:     input.Terms,
			Notes:     input.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PlacementID: placement.ID,
	}
	if err := s.PlacementResponses.Save(ctx, resp); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventResponseSubmitted, map[string]any{
		"response_id": resp.ID, "placement_id": placement.ID, "agency_id": resp.AgencyID,
	})
	return resp, nil
}

// AcceptPlacementResponse accepts a placement response and fills the
// placement with the responding agency and proposed worker.
func (s *Service) AcceptPlacementResponse(ctx context.Context, id engine.ResponseID, decidedBy string) (*AgencyPlacementResponse, error) {
	resp, err := s.PlacementResponses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if err := resp.ResponseCore.Accept(decidedBy, now); err != nil {
		return nil, err
	}

	placement, err := s.Placements.Get(ctx, resp.PlacementID)
	if err != nil {
		return nil, err
	}
	if err := placement.Fill(resp.AgencyID, resp.Terms.Worker, now); err != nil {
		return nil, err
	}

	if err := s.PlacementResponses.Save(ctx, resp); err != nil {
		return nil, err
	}
	if err := s.Placements.Save(ctx, placement); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventResponseAccepted, map[string]any{
		"response_id": resp.ID, "placement_id": resp.PlacementID, "decided_by": decidedBy,
	})
	return resp, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Service) requireActiveContract(ctx context.Context, employer engine.EmployerID, agency engine.AgencyID) error {
	active, err := s.Contracts.IsActive(ctx, employer, agency)
	if err != nil {
		return &engine.DependencyError{Collaborator: "contract_lookup", Err: err}
	}
	if !active {
		return &engine.ValidationError{
			Rule:    "contract_active",
			Message: fmt.Sprintf("agency %s has no active contract with employer %s", agency, employer),
		}
	}
	return nil
}

// trackFill counts accepted responses and fills the request when the
// target is reached. A request without an explicit target fills on the
// first acceptance.
func (s *Service) trackFill(ctx context.Context, requestID engine.RequestID, now time.Time) error {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return err
	}
	accepted, err := s.Responses.CountAccepted(ctx, requestID)
	if err != nil {
		return err
	}

	needed := req.PositionsNeeded
	if needed <= 0 {
		needed = 1
	}
	if accepted >= needed {
		if req.Status == RequestPublished || req.Status == RequestInProgress {
			if err := req.Transition(RequestFilled, now); err != nil {
				return err
			}
			return s.Requests.Save(ctx, req)
		}
		return nil
	}
	if req.Status == RequestPublished {
		if err := req.Transition(RequestInProgress, now); err != nil {
			return err
		}
		return s.Requests.Save(ctx, req)
	}
	return nil
}
