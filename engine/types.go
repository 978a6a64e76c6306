/*
Package engine provides the core primitives of the staffing lifecycle engine.

PURPOSE:
  This package contains the domain-agnostic building blocks shared by every
  lifecycle component: typed identifiers, decimal-backed hourly rates, the
  clock abstraction, time windows and date ranges, the error taxonomy, and
  generic status-transition tables.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed IDs: strong typing prevents mixing an AgencyID with an EmployerID
  - Rate: an hourly rate with decimal precision (never float)
  - Markup: the margin between the billed rate and the paid rate

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money math
  2. Type Safety: Strong typing for IDs prevents cross-entity mixups
  3. Explicit time: operations take a Clock, never call time.Now directly
  4. Typed errors: business failures are classified, never generic

SEE ALSO:
  - rates.go: Markup computation and rate ordering validation
  - transition.go: Status-transition tables
  - errors.go: Error taxonomy
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	EmployerID   string
	AgencyID     string
	WorkerID     string // agency-scoped employee registration
	ContractID   string
	LocationID   string
	RequestID    string
	PlacementID  string
	ResponseID   string
	AssignmentID string
	ShiftID      string
	TemplateID   string
	OfferID      string
	TimesheetID  string
)

// =============================================================================
// RATE - Hourly rate with decimal precision
// =============================================================================

type Rate struct {
	Value decimal.Decimal
}

func NewRate(value float64) Rate {
	return Rate{Value: decimal.NewFromFloat(value)}
}

func NewRateFromString(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, err
	}
	return Rate{Value: d}, nil
}

// MustRate parses a rate literal, panicking on malformed input.
// Intended for constants and tests only.
func MustRate(s string) Rate {
	r, err := NewRateFromString(s)
	if err != nil {
		panic(err)
	}
	return r
}

func ZeroRate() Rate { return Rate{Value: decimal.Zero} }

func (r Rate) Add(o Rate) Rate         { return Rate{Value: r.Value.Add(o.Value)} }
func (r Rate) Sub(o Rate) Rate         { return Rate{Value: r.Value.Sub(o.Value)} }
func (r Rate) IsZero() bool            { return r.Value.IsZero() }
func (r Rate) IsNegative() bool        { return r.Value.IsNegative() }
func (r Rate) IsPositive() bool        { return r.Value.IsPositive() }
func (r Rate) LessThan(o Rate) bool    { return r.Value.LessThan(o.Value) }
func (r Rate) GreaterThan(o Rate) bool { return r.Value.GreaterThan(o.Value) }
func (r Rate) Equal(o Rate) bool       { return r.Value.Equal(o.Value) }
func (r Rate) String() string          { return r.Value.StringFixed(2) }

// =============================================================================
// MARKUP - Agency margin between agreed (billed) and pay rates
// =============================================================================

type Markup struct {
	Amount  Rate            // agreed - pay
	Percent decimal.Decimal // amount / pay * 100, zero when pay is zero
}
