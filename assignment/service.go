/*
service.go - Assignment lifecycle operations

PURPOSE:
  Create / ChangeStatus / Update / Extend / Delete, with the binding
  invariants checked at every mutation. Validation stops on the first
  violated rule; the ValidationError names it.

CONCURRENCY:
  Every mutation is validate-then-write on a versioned aggregate. The
  repository's Save rejects stale versions with a ConflictError.
  Creation cannot lean on a version (there is no existing row), so the
  insert goes through CreateExclusive: the repository re-runs the
  overlap check and inserts under one lock, and an overlap that slipped
  in between the service's check and the write comes back as a
  ConflictError. Callers may retry once on conflict.

EVENTS:
  Every state transition is published fire-and-forget; publish failures
  never roll back the transition.
*/
package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// ContractRepository answers contract activity for employer-agency pairs.
type ContractRepository interface {
	IsActive(ctx context.Context, employer engine.EmployerID, agency engine.AgencyID) (bool, error)
}

// WorkerRegistrationRepository answers whether an agency-scoped worker
// registration is active.
type WorkerRegistrationRepository interface {
	IsActive(ctx context.Context, worker engine.WorkerID) (bool, error)
}

// Repository persists assignments. Save enforces optimistic versioning:
// a stale Version is rejected with a ConflictError.
type Repository interface {
	Get(ctx context.Context, id engine.AssignmentID) (*Assignment, error)
	Save(ctx context.Context, a *Assignment) error
	// CreateExclusive inserts a new assignment with the overlap check and
	// the insert serialized as one unit. An open assignment overlapping
	// the new one at write time is a ConflictError.
	CreateExclusive(ctx context.Context, a *Assignment) error
	Delete(ctx context.Context, id engine.AssignmentID) error
	// FindOverlapping returns open (pending/active/suspended) assignments
	// for the worker overlapping the range, excluding excludeID.
	FindOverlapping(ctx context.Context, worker engine.WorkerID, dates engine.DateRange, excludeID engine.AssignmentID) ([]*Assignment, error)
	// CountShifts is the number of shifts generated under the assignment.
	CountShifts(ctx context.Context, id engine.AssignmentID) (int, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Contracts     ContractRepository
	Registrations WorkerRegistrationRepository
	Assignments   Repository
	Events        engine.EventPublisher
	Clock         engine.Clock
}

// CreateInput carries everything needed to bind an assignment.
type CreateInput struct {
	ContractID  engine.ContractID
	EmployerID  engine.EmployerID
	AgencyID    engine.AgencyID
	WorkerID    engine.WorkerID
	RequestID   *engine.RequestID
	ResponseID  *engine.ResponseID
	LocationID  engine.LocationID
	Role        string
	Dates       engine.DateRange
	AgreedRate  engine.Rate
	PayRate     engine.Rate
	WeeklyHours decimal.Decimal
	Type        Type
}

// Create validates in order - rate ordering, contract activity,
// registration activity, standard-type origination, overlap freedom -
// then computes markup and persists with status pending.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Assignment, error) {
	if !input.Dates.IsValid() {
		return nil, &engine.ValidationError{Rule: "date_range", Message: "end date before start date"}
	}
	if err := engine.ValidateRates(input.AgreedRate, input.PayRate); err != nil {
		return nil, err
	}

	active, err := s.Contracts.IsActive(ctx, input.EmployerID, input.AgencyID)
	if err != nil {
		return nil, &engine.DependencyError{Collaborator: "contract_lookup", Err: err}
	}
	if !active {
		return nil, &engine.ValidationError{
			Rule:    "contract_active",
			Message: fmt.Sprintf("contract between %s and %s is not active", input.EmployerID, input.AgencyID),
		}
	}

	registered, err := s.Registrations.IsActive(ctx, input.WorkerID)
	if err != nil {
		return nil, &engine.DependencyError{Collaborator: "registration_lookup", Err: err}
	}
	if !registered {
		return nil, &engine.ValidationError{
			Rule:    "registration_active",
			Message: fmt.Sprintf("worker registration %s is not active", input.WorkerID),
		}
	}

	if input.Type == TypeStandard && input.ResponseID == nil {
		return nil, &engine.ValidationError{
			Rule:    "standard_requires_response",
			Message: "standard assignments require an originating agency response",
		}
	}

	if err := s.ensureNoOverlap(ctx, input.WorkerID, input.Dates, ""); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	a := &Assignment{
		ID:          engine.AssignmentID(uuid.NewString()),
		ContractID:  input.ContractID,
		EmployerID:  input.EmployerID,
		AgencyID:    input.AgencyID,
		WorkerID:    input.WorkerID,
		RequestID:   input.RequestID,
		ResponseID:  input.ResponseID,
		LocationID:  input.LocationID,
		Role:        input.Role,
		Dates:       input.Dates,
		AgreedRate:  input.AgreedRate,
		PayRate:     input.PayRate,
		WeeklyHours: input.WeeklyHours,
		Status:      StatusPending,
		Type:        input.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	a.RecomputeMarkup()

	if err := s.Assignments.CreateExclusive(ctx, a); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventAssignmentCreated, map[string]any{
		"assignment_id": a.ID, "worker_id": a.WorkerID, "employer_id": a.EmployerID,
	})
	return a, nil
}

// ChangeStatus moves an assignment along the status graph, with the
// complete/suspend/reactivate preconditions on top of the graph itself.
func (s *Service) ChangeStatus(ctx context.Context, id engine.AssignmentID, target Status) (*Assignment, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := StatusTransitions.Step("assignment", a.Status, target); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if err := ensureCompletable(a, target, now); err != nil {
		return nil, err
	}

	from := a.Status
	a.Status = target
	a.UpdatedAt = now
	if err := s.Assignments.Save(ctx, a); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventAssignmentStatus, map[string]any{
		"assignment_id": a.ID, "from": from, "to": target,
	})
	return a, nil
}

// Convenience wrappers over ChangeStatus.

func (s *Service) Activate(ctx context.Context, id engine.AssignmentID) (*Assignment, error) {
	return s.ChangeStatus(ctx, id, StatusActive)
}

func (s *Service) Complete(ctx context.Context, id engine.AssignmentID) (*Assignment, error) {
	return s.ChangeStatus(ctx, id, StatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, id engine.AssignmentID) (*Assignment, error) {
	return s.ChangeStatus(ctx, id, StatusCancelled)
}

// Suspend requires the assignment to currently be active.
func (s *Service) Suspend(ctx context.Context, id engine.AssignmentID) (*Assignment, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: "only active assignments can be suspended",
		}
	}
	return s.ChangeStatus(ctx, id, StatusSuspended)
}

// Reactivate requires the assignment to currently be suspended.
func (s *Service) Reactivate(ctx context.Context, id engine.AssignmentID) (*Assignment, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusSuspended {
		return nil, &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: "only suspended assignments can be reactivated",
		}
	}
	return s.ChangeStatus(ctx, id, StatusActive)
}

// UpdateInput carries the mutable fields; nil means unchanged.
type UpdateInput struct {
	AgreedRate  *engine.Rate
	PayRate     *engine.Rate
	LocationID  *engine.LocationID
	Role        *string
	WeeklyHours *decimal.Decimal
	Status      *Status
}

// Update edits an assignment. Rate changes re-validate the ordering
// invariant and recompute markup; status changes go through the graph;
// terminal assignments are immutable.
func (s *Service) Update(ctx context.Context, id engine.AssignmentID, input UpdateInput) (*Assignment, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: "terminal assignments cannot be edited",
		}
	}

	agreed, pay := a.AgreedRate, a.PayRate
	if input.AgreedRate != nil {
		agreed = *input.AgreedRate
	}
	if input.PayRate != nil {
		pay = *input.PayRate
	}
	if input.AgreedRate != nil || input.PayRate != nil {
		if err := engine.ValidateRates(agreed, pay); err != nil {
			return nil, err
		}
		a.AgreedRate, a.PayRate = agreed, pay
		a.RecomputeMarkup()
	}

	if input.LocationID != nil {
		a.LocationID = *input.LocationID
	}
	if input.Role != nil {
		a.Role = *input.Role
	}
	if input.WeeklyHours != nil {
		a.WeeklyHours = *input.WeeklyHours
	}

	if input.Status != nil && *input.Status != a.Status {
		if err := StatusTransitions.Step("assignment", a.Status, *input.Status); err != nil {
			return nil, err
		}
		if err := ensureCompletable(a, *input.Status, s.Clock.Now()); err != nil {
			return nil, err
		}
		a.Status = *input.Status
	}

	a.UpdatedAt = s.Clock.Now()
	if err := s.Assignments.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Extend moves the end date. Permitted while pending/active/suspended;
// the overlap check re-runs against the extended range.
func (s *Service) Extend(ctx context.Context, id engine.AssignmentID, newEnd time.Time, reason string) (*Assignment, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.IsOpen() {
		return nil, &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: "only pending, active or suspended assignments can be extended",
		}
	}
	if !newEnd.After(a.Dates.Start) {
		return nil, &engine.ValidationError{Rule: "date_range", Message: "new end date must be after start date"}
	}

	extended := engine.ClosedDateRange(a.Dates.Start, newEnd)
	if err := s.ensureNoOverlap(ctx, a.WorkerID, extended, a.ID); err != nil {
		return nil, err
	}

	a.Dates = extended
	a.UpdatedAt = s.Clock.Now()
	if err := s.Assignments.Save(ctx, a); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventAssignmentExtended, map[string]any{
		"assignment_id": a.ID, "new_end": newEnd, "reason": reason,
	})
	return a, nil
}

// Delete removes an assignment. Permitted only while pending and
// shift-free; anything else is corrected via cancellation.
func (s *Service) Delete(ctx context.Context, id engine.AssignmentID) error {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != StatusPending {
		return &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: "only pending assignments can be deleted",
		}
	}
	shifts, err := s.Assignments.CountShifts(ctx, id)
	if err != nil {
		return err
	}
	if shifts > 0 {
		return &engine.PreconditionError{
			Entity: "assignment", ID: string(id), State: string(a.Status),
			Message: fmt.Sprintf("assignment owns %d shifts", shifts),
		}
	}
	if err := s.Assignments.Delete(ctx, id); err != nil {
		return err
	}
	s.Events.Publish(ctx, engine.EventAssignmentDeleted, map[string]any{"assignment_id": id})
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// ensureCompletable refuses completion before the end date has passed.
// The graph already requires active; open-ended assignments may complete
// at any time.
func ensureCompletable(a *Assignment, target Status, now time.Time) error {
	if target != StatusCompleted || a.pastEnd(now) {
		return nil
	}
	return &engine.PreconditionError{
		Entity: "assignment", ID: string(a.ID), State: string(a.Status),
		Message: fmt.Sprintf("cannot complete before end date %s", a.Dates.End.Format(time.DateOnly)),
	}
}

func (s *Service) ensureNoOverlap(ctx context.Context, worker engine.WorkerID, dates engine.DateRange, exclude engine.AssignmentID) error {
	overlapping, err := s.Assignments.FindOverlapping(ctx, worker, dates, exclude)
	if err != nil {
		return &engine.DependencyError{Collaborator: "assignment_store", Err: err}
	}
	if len(overlapping) > 0 {
		return &engine.ValidationError{
			Rule: "overlap",
			Message: fmt.Sprintf("worker %s already has assignment %s overlapping the requested dates",
				worker, overlapping[0].ID),
		}
	}
	return nil
}
