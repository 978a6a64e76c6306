/*
template.go - Recurring shift templates and their expansion

PURPOSE:
  A ShiftTemplate describes a repeating work period: a recurrence rule
  (weekly, biweekly, monthly), a specific weekday, and a time-of-day
  window. Expand materializes the rule over a target date range into
  concrete dates; the service then turns those into Shift rows, skipping
  dates where a pre-assigned worker is unavailable.

RECURRENCE SEMANTICS:
  weekly:   every matching weekday in the range
  biweekly: every other matching weekday. Parity is anchored at the
            template's Anchor date so split expansions over adjacent
            ranges line up; a zero Anchor falls back to the first match
            in the requested range.
  monthly:  the first matching weekday of each month
*/
package shift

import (
	"time"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
)

// Template is a recurring shift pattern, typically owned by an
// assignment or a placement.
type Template struct {
	ID         engine.TemplateID
	EmployerID engine.EmployerID
	AgencyID   engine.AgencyID
	// WorkerID nil = generated shifts start unstaffed.
	WorkerID     *engine.WorkerID
	AssignmentID *engine.AssignmentID
	PlacementID  *engine.PlacementID
	LocationID   engine.LocationID

	Recurrence negotiation.Recurrence
	Weekday    time.Weekday
	DayStart   engine.TimeOfDay
	DayEnd     engine.TimeOfDay
	HourlyRate engine.Rate

	// Anchor pins biweekly parity to a stable date, typically the owning
	// assignment's start. Zero means the first match in the expansion
	// range, which flips parity between split expansions.
	Anchor time.Time
}

// Expand lists the concrete dates the template's recurrence rule hits
// within [from, to] inclusive.
func (t *Template) Expand(from, to time.Time) []time.Time {
	from = engine.TruncateToDay(from)
	to = engine.TruncateToDay(to)
	if to.Before(from) {
		return nil
	}

	var dates []time.Time
	var anchor time.Time // matching weekday fixing biweekly parity
	if !t.Anchor.IsZero() {
		anchor = engine.TruncateToDay(t.Anchor)
		for anchor.Weekday() != t.Weekday {
			anchor = anchor.AddDate(0, 0, 1)
		}
	}
	lastMonth := -1

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != t.Weekday {
			continue
		}
		if anchor.IsZero() {
			anchor = d
		}

		switch t.Recurrence {
		case negotiation.RecurWeekly:
			dates = append(dates, d)
		case negotiation.RecurBiweekly:
			weeks := int(d.Sub(anchor).Hours()) / (24 * 7)
			if weeks%2 == 0 {
				dates = append(dates, d)
			}
		case negotiation.RecurMonthly:
			month := int(d.Month()) + d.Year()*12
			if month != lastMonth {
				dates = append(dates, d)
				lastMonth = month
			}
		}
	}
	return dates
}

// WindowOn anchors the template's time-of-day span on a concrete date.
func (t *Template) WindowOn(date time.Time) engine.TimeWindow {
	return engine.NewTimeWindow(t.DayStart.At(date), t.DayEnd.At(date))
}
