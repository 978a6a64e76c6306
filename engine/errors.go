/*
errors.go - Centralized error taxonomy for the lifecycle engine

PURPOSE:
  All business-failure categories in one place for consistency.
  Every mutating operation returns a typed error from one of four
  categories; the calling layer maps them without string matching.

ERROR CATEGORIES:
  1. Validation errors   - input violates a stateless invariant
  2. Precondition errors - entity state forbids the operation
                           (includes invalid transitions and expired offers)
  3. Conflict errors     - a concurrent mutation invalidated a check
  4. Dependency errors   - an external collaborator failed

USAGE:
  Callers classify with the helpers:

    if engine.IsRetryable(err) {
        // re-read state and retry the whole operation once
    }

SEE ALSO:
  - transition.go: Produces InvalidTransitionError
  - assignment, shift, timesheet packages: wrap these errors with context
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all stateless-invariant violations.
	// Recoverable by the caller correcting input; never retried.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is the root of all state-dependent refusals.
	// The operation was well-formed but the entity's current state forbids it.
	ErrPrecondition = errors.New("precondition failed")

	// ErrInvalidTransition marks a status change not present in the
	// entity's transition graph. A kind of precondition failure.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrPrecondition)

	// ErrOfferExpired marks a response to an offer past its expiry.
	// A kind of precondition failure.
	ErrOfferExpired = fmt.Errorf("%w: offer expired", ErrPrecondition)

	// ErrConflict is returned when a concurrent mutation invalidated an
	// optimistic check. Safe to retry once after re-reading state.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrDependency is returned when an external collaborator
	// (contract lookup, persistence) failed or was unavailable.
	ErrDependency = errors.New("dependency failure")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the first violated rule. Stop-on-first-failure:
// operations do not batch violations.
type ValidationError struct {
	Rule    string // e.g. "rate_ordering", "rate_ceiling", "overlap"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PreconditionError reports that the target entity's current state
// forbids the operation.
type PreconditionError struct {
	Entity  string // e.g. "assignment", "offer", "timesheet"
	ID      string
	State   string // current state at refusal time
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s %s in state %q: %s", e.Entity, e.ID, e.State, e.Message)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// InvalidTransitionError reports a status change outside the entity's
// transition graph.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s not permitted", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// OfferExpiredError reports a response to an offer past its expiry time.
type OfferExpiredError struct {
	OfferID OfferID
}

func (e *OfferExpiredError) Error() string {
	return fmt.Sprintf("offer %s has expired", e.OfferID)
}

func (e *OfferExpiredError) Unwrap() error { return ErrOfferExpired }

// ConflictError reports that a concurrent mutation won the race.
type ConflictError struct {
	Entity  string
	ID      string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Entity, e.ID, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// DependencyError wraps a collaborator failure with the collaborator's name.
type DependencyError struct {
	Collaborator string // e.g. "contract_lookup", "store"
	Err          error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *DependencyError) Unwrap() []error { return []error{ErrDependency, e.Err} }

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for stateless-invariant violations.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsPrecondition returns true for state-dependent refusals, including
// invalid transitions and expired offers.
func IsPrecondition(err error) bool { return errors.Is(err, ErrPrecondition) }

// IsConflict returns true if a concurrent mutation invalidated a check.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRetryable returns true if the operation might succeed on retry.
// Validation and precondition failures are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrDependency)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
