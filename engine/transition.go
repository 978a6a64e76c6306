/*
transition.go - Generic status-transition tables

PURPOSE:
  Every lifecycle entity (assignment, shift, offer, timesheet, response)
  restricts its status changes to a fixed directed graph. Rather than
  scattering canBeX() methods across status types, each entity declares
  ONE table and consults it through CanTransition/Step.

EXAMPLE:
  var assignmentTransitions = engine.Transitions[Status]{
      StatusPending:   {StatusActive, StatusCancelled},
      StatusActive:    {StatusCompleted, StatusSuspended, StatusCancelled},
      StatusSuspended: {StatusActive, StatusCancelled},
      StatusCompleted: {},
      StatusCancelled: {},
  }

  if err := assignmentTransitions.Step("assignment", a.Status, target); err != nil {
      return err // *InvalidTransitionError
  }

SEE ALSO:
  - errors.go: InvalidTransitionError
*/
package engine

import "fmt"

// Transitions maps each state to the states reachable from it.
// States absent from the map, or mapped to an empty slice, are terminal.
type Transitions[S comparable] map[S][]S

// CanTransition reports whether from -> to is in the graph.
func (t Transitions[S]) CanTransition(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state has no outgoing transitions.
func (t Transitions[S]) IsTerminal(s S) bool { return len(t[s]) == 0 }

// Step validates from -> to, returning *InvalidTransitionError when the
// transition is not in the graph. The entity name is used in the error.
func (t Transitions[S]) Step(entity string, from, to S) error {
	if !t.CanTransition(from, to) {
		return &InvalidTransitionError{
			Entity: entity,
			From:   fmt.Sprint(from),
			To:     fmt.Sprint(to),
		}
	}
	return nil
}
