/*
window.go - Temporal primitives shared by every lifecycle component

PURPOSE:
  Defines the two interval shapes the engine reasons about:

  TimeWindow: a half-open instant interval [Start, End) used for shifts
              and availability checks.
  DateRange:  a date interval with an optional end; a nil end means
              open-ended, which overlaps everything from Start onward.
              Used for assignments, demand requests, and time off.

  Plus the time-of-day and weekday-mask primitives used by recurring
  availability windows and shift templates.

OVERLAP SEMANTICS:
  TimeWindow overlap is strict half-open: [9,17) and [17,21) do NOT
  overlap. DateRange overlap for time-off conflicts is inclusive at the
  day level: a request ending June 12 conflicts with a shift on June 12.

SEE ALSO:
  - availability package: combines these into the eligibility check
  - shift package: template expansion over DateRanges
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME WINDOW - Half-open instant interval [Start, End)
// =============================================================================

type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{Start: start, End: end}
}

// IsValid reports whether the window has positive length.
func (w TimeWindow) IsValid() bool { return w.End.After(w.Start) }

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether t falls within [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w TimeWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// Hours returns the window length in decimal hours.
func (w TimeWindow) Hours() decimal.Decimal {
	return decimal.NewFromFloat(w.Duration().Minutes()).Div(decimal.NewFromInt(60))
}

// =============================================================================
// DATE RANGE - Date interval with optional (open) end
// =============================================================================

type DateRange struct {
	Start time.Time
	End   *time.Time // nil = open-ended
}

func NewDateRange(start time.Time, end *time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

func ClosedDateRange(start, end time.Time) DateRange {
	return DateRange{Start: start, End: &end}
}

func OpenDateRange(start time.Time) DateRange {
	return DateRange{Start: start}
}

// IsOpenEnded reports whether the range has no end date.
func (r DateRange) IsOpenEnded() bool { return r.End == nil }

// IsValid reports whether End (when set) is not before Start.
func (r DateRange) IsValid() bool {
	return r.End == nil || !r.End.Before(r.Start)
}

// Overlaps reports whether two ranges intersect under half-open
// [start, end) semantics. An open-ended range overlaps everything
// from its start onward.
func (r DateRange) Overlaps(o DateRange) bool {
	if o.End != nil && !r.Start.Before(*o.End) {
		return false
	}
	if r.End != nil && !o.Start.Before(*r.End) {
		return false
	}
	return true
}

// ContainsDate reports whether day falls within the range, end-inclusive
// at day granularity. Used for time-off conflicts and availability
// validity windows, where "valid through June 12" includes June 12.
func (r DateRange) ContainsDate(day time.Time) bool {
	d := TruncateToDay(day)
	if d.Before(TruncateToDay(r.Start)) {
		return false
	}
	if r.End != nil && d.After(TruncateToDay(*r.End)) {
		return false
	}
	return true
}

// DurationDays returns the whole-day length of the range, nil when
// open-ended.
func (r DateRange) DurationDays() *int {
	if r.End == nil {
		return nil
	}
	days := int(TruncateToDay(*r.End).Sub(TruncateToDay(r.Start)).Hours() / 24)
	return &days
}

// TruncateToDay drops the time-of-day component in UTC.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// TIME OF DAY - Minutes since midnight
// =============================================================================

type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// At anchors the time-of-day on a concrete date, in UTC.
func (t TimeOfDay) At(day time.Time) time.Time {
	d := TruncateToDay(day)
	return d.Add(time.Duration(t) * time.Minute)
}

// =============================================================================
// WEEKDAYS - 7-bit day-of-week mask
// =============================================================================

type Weekdays uint8

const AllWeekdays Weekdays = 0x7F

func NewWeekdays(days ...time.Weekday) Weekdays {
	var m Weekdays
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

// On reports whether the mask includes the given weekday.
func (m Weekdays) On(d time.Weekday) bool { return m&(1<<uint(d)) != 0 }

// With returns the mask with the given weekday added.
func (m Weekdays) With(d time.Weekday) Weekdays { return m | 1<<uint(d) }
