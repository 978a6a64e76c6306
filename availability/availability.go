/*
Package availability answers "is worker X available for window [s, e)?".

PURPOSE:
  Pure read-side eligibility checking combining four inputs:
  1. Approved time off (inclusive day-level conflicts)
  2. Recurring availability windows (validity range, weekday mask,
     time-of-day window, optional max-hours-per-shift cap)
  3. Existing booked shifts (half-open instant overlap)

  The checker holds no state and mutates nothing. Callers decide whether
  an unavailable answer blocks an operation or is merely advisory - the
  offer workflow blocks, shift generation just skips the date.

CONCURRENCY:
  Reads run unlocked: availability is an advisory input to a
  lock-protected decision (the offer accept, the assignment insert),
  not a final authority.

SEE ALSO:
  - shift package: consulted before offering and when expanding templates
  - negotiation package: consulted by IsValidForAssignment
*/
package availability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// AVAILABILITY WINDOW - Recurring weekly availability declaration
// =============================================================================

// Window declares when a worker is generally available: a validity date
// range (open-ended permitted), a weekday mask, a time-of-day span, and
// an optional cap on hours per single shift.
type Window struct {
	ID       string
	WorkerID engine.WorkerID
	Valid    engine.DateRange
	Days     engine.Weekdays
	DayStart engine.TimeOfDay
	DayEnd   engine.TimeOfDay
	// MaxHoursPerShift caps a single shift's length; nil = uncapped.
	MaxHoursPerShift *decimal.Decimal
}

// Covers reports whether this window permits a shift running [start, end)
// on the same day.
func (w Window) Covers(start, end time.Time) bool {
	if !w.Valid.ContainsDate(start) {
		return false
	}
	if !w.Days.On(start.Weekday()) {
		return false
	}

	from := engine.TimeOfDayOf(start)
	// Minutes past start-of-day; exceeds 24h for shifts crossing midnight,
	// which then only fit windows declared past midnight (there are none),
	// so midnight-crossing shifts correctly fail the day window.
	to := engine.TimeOfDay(int(end.Sub(engine.TruncateToDay(start)).Minutes()))
	if from < w.DayStart || to > w.DayEnd {
		return false
	}

	if w.MaxHoursPerShift != nil {
		hours := engine.NewTimeWindow(start, end).Hours()
		if hours.GreaterThan(*w.MaxHoursPerShift) {
			return false
		}
	}
	return true
}

// =============================================================================
// READ-SIDE SOURCES - Implemented by the persistence layer
// =============================================================================

// TimeOffSource supplies approved time-off ranges for a worker.
type TimeOffSource interface {
	ApprovedTimeOff(ctx context.Context, worker engine.WorkerID) ([]engine.DateRange, error)
}

// WindowSource supplies a worker's recurring availability windows.
type WindowSource interface {
	Windows(ctx context.Context, worker engine.WorkerID) ([]Window, error)
}

// ShiftSource supplies the instant windows of a worker's existing shifts
// that can conflict (implementations exclude cancelled and no-show shifts).
type ShiftSource interface {
	BookedWindows(ctx context.Context, worker engine.WorkerID, around engine.TimeWindow) ([]engine.TimeWindow, error)
}

// =============================================================================
// CHECKER
// =============================================================================

type Checker struct {
	TimeOff TimeOffSource
	Windows WindowSource
	Shifts  ShiftSource
}

// IsAvailable reports whether the worker can take a shift over [start, end).
// Order of checks: time off, then declared availability, then booked
// shifts. Source failures surface as DependencyErrors; a plain false is
// a business answer, not a failure.
func (c *Checker) IsAvailable(ctx context.Context, worker engine.WorkerID, start, end time.Time) (bool, error) {
	window := engine.NewTimeWindow(start, end)
	if !window.IsValid() {
		return false, &engine.ValidationError{Rule: "window", Message: "end must be after start"}
	}

	offs, err := c.TimeOff.ApprovedTimeOff(ctx, worker)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "time_off_source", Err: err}
	}
	for _, off := range offs {
		// Inclusive at day level: time off through June 12 conflicts with
		// any shift on June 12.
		if off.ContainsDate(start) || off.ContainsDate(end.Add(-time.Nanosecond)) {
			return false, nil
		}
	}

	windows, err := c.Windows.Windows(ctx, worker)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "availability_source", Err: err}
	}
	covered := false
	for _, w := range windows {
		if w.Covers(start, end) {
			covered = true
			break
		}
	}
	if !covered {
		return false, nil
	}

	booked, err := c.Shifts.BookedWindows(ctx, worker, window)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "shift_source", Err: err}
	}
	for _, b := range booked {
		if b.Overlaps(window) {
			return false, nil
		}
	}

	return true, nil
}

// IsAvailableOnDay reports whether the worker can work at all on the
// given calendar day: no approved time off covers it, and some window's
// validity range and weekday mask admit it. The window's own declared
// hours are the span on offer, so no instant window is involved. Booked
// shifts are not consulted - a day can hold several shifts, so minute
// conflicts are the per-shift IsAvailable check's concern.
func (c *Checker) IsAvailableOnDay(ctx context.Context, worker engine.WorkerID, day time.Time) (bool, error) {
	day = engine.TruncateToDay(day)

	offs, err := c.TimeOff.ApprovedTimeOff(ctx, worker)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "time_off_source", Err: err}
	}
	for _, off := range offs {
		if off.ContainsDate(day) {
			return false, nil
		}
	}

	windows, err := c.Windows.Windows(ctx, worker)
	if err != nil {
		return false, &engine.DependencyError{Collaborator: "availability_source", Err: err}
	}
	for _, w := range windows {
		if w.Valid.ContainsDate(day) && w.Days.On(day.Weekday()) && w.DayStart < w.DayEnd {
			return true, nil
		}
	}
	return false, nil
}
