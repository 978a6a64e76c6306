package engine_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/staffing-engine/engine"
)

func TestComputeMarkup_StandardRates(t *testing.T) {
	// GIVEN: agreed 20.00, pay 15.00
	// WHEN: markup is computed
	// THEN: amount 5.00, percent ~33.33

	m := engine.ComputeMarkup(engine.MustRate("20.00"), engine.MustRate("15.00"))

	if !m.Amount.Equal(engine.MustRate("5.00")) {
		t.Errorf("expected markup amount 5.00, got %v", m.Amount)
	}
	want := decimal.RequireFromString("33.33")
	if !m.Percent.Round(2).Equal(want) {
		t.Errorf("expected markup percent 33.33, got %v", m.Percent)
	}
}

func TestComputeMarkup_ZeroPayRate(t *testing.T) {
	// Percent must be zero when pay rate is zero, not a division error.
	m := engine.ComputeMarkup(engine.MustRate("10.00"), engine.ZeroRate())

	if !m.Amount.Equal(engine.MustRate("10.00")) {
		t.Errorf("expected markup amount 10.00, got %v", m.Amount)
	}
	if !m.Percent.IsZero() {
		t.Errorf("expected zero percent for zero pay rate, got %v", m.Percent)
	}
}

func TestComputeMarkup_RoundTrip(t *testing.T) {
	// Reconstructing pay = agreed - amount must return the original pay rate.
	cases := []struct{ agreed, pay string }{
		{"20.00", "15.00"},
		{"31.75", "24.30"},
		{"18.00", "18.00"},
		{"12.50", "0"},
	}

	for _, c := range cases {
		agreed := engine.MustRate(c.agreed)
		pay := engine.MustRate(c.pay)
		m := engine.ComputeMarkup(agreed, pay)
		back := agreed.Sub(m.Amount)
		if !back.Equal(pay) {
			t.Errorf("round trip %s/%s: reconstructed pay %v", c.agreed, c.pay, back)
		}
	}
}

func TestValidateRates_Ordering(t *testing.T) {
	if err := engine.ValidateRates(engine.MustRate("20"), engine.MustRate("15")); err != nil {
		t.Errorf("agreed > pay should pass, got %v", err)
	}
	if err := engine.ValidateRates(engine.MustRate("15"), engine.MustRate("15")); err != nil {
		t.Errorf("agreed == pay should pass, got %v", err)
	}

	err := engine.ValidateRates(engine.MustRate("14.99"), engine.MustRate("15"))
	if err == nil {
		t.Fatal("agreed < pay should fail")
	}
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Rule != "rate_ordering" {
		t.Errorf("expected rate_ordering rule, got %s", verr.Rule)
	}
	if !engine.IsValidation(err) {
		t.Error("expected IsValidation to report true")
	}
	if engine.IsRetryable(err) {
		t.Error("validation errors are never retryable")
	}
}
