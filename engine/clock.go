package engine

import "time"

// =============================================================================
// CLOCK - Explicit time source
// =============================================================================

// Clock is threaded through every operation that needs "now".
// Business logic never calls time.Now directly, which makes expiry and
// deadline behavior deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a fixed instant, advanced manually. For tests.
type FixedClock struct {
	T time.Time
}

func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{T: t} }

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
