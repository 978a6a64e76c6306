/*
rates.go - Rate & markup calculator

PURPOSE:
  Pure functions computing the agency margin between the rate the
  employer is billed (agreed rate) and the rate the worker is paid
  (pay rate), and enforcing the agreed >= pay ordering invariant.

INVARIANTS:
  - markup_amount  = agreed_rate - pay_rate
  - markup_percent = markup_amount / pay_rate * 100  (0 when pay_rate is 0)
  - agreed_rate >= pay_rate, always; violations are ValidationErrors,
    never silently clamped

SEE ALSO:
  - assignment package: recomputes markup on every rate change
*/
package engine

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeMarkup derives the markup amount and percent from the agreed
// (billed) and pay rates. Percent is zero when the pay rate is zero.
func ComputeMarkup(agreed, pay Rate) Markup {
	amount := agreed.Sub(pay)
	percent := decimal.Zero
	if pay.Value.IsPositive() {
		percent = amount.Value.Div(pay.Value).Mul(hundred)
	}
	return Markup{Amount: amount, Percent: percent}
}

// ValidateRates enforces agreed >= pay. Returns a ValidationError naming
// the rate_ordering rule on violation.
func ValidateRates(agreed, pay Rate) error {
	if agreed.LessThan(pay) {
		return &ValidationError{
			Rule:    "rate_ordering",
			Message: "agreed rate " + agreed.String() + " is below pay rate " + pay.String(),
		}
	}
	return nil
}
