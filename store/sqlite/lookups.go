/*
lookups.go - Contract/registration activity lookups and availability sources

These back the read-side interfaces the lifecycle services consult:
contract activity, worker registration activity, and the three
availability sources (time off, recurring windows, booked shifts).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
)

// =============================================================================
// CONTRACTS
// =============================================================================

type ContractStore struct {
	db *sql.DB
}

var _ assignment.ContractRepository = (*ContractStore)(nil)
var _ negotiation.ContractLookup = (*ContractStore)(nil)

func (s *ContractStore) IsActive(ctx context.Context, employer engine.EmployerID, agency engine.AgencyID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM contracts
		WHERE employer_id = ? AND agency_id = ? AND status = 'active'`,
		string(employer), string(agency)).Scan(&n)
	return n > 0, err
}

// SetActive upserts the contract row for the pair.
func (s *ContractStore) SetActive(ctx context.Context, employer engine.EmployerID, agency engine.AgencyID, active bool) error {
	status := "inactive"
	if active {
		status = "active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, employer_id, agency_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employer_id, agency_id) DO UPDATE SET status = excluded.status`,
		uuid.NewString(), string(employer), string(agency), status, fmtTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

// =============================================================================
// WORKER REGISTRATIONS
// =============================================================================

type RegistrationStore struct {
	db *sql.DB
}

var _ assignment.WorkerRegistrationRepository = (*RegistrationStore)(nil)

func (s *RegistrationStore) IsActive(ctx context.Context, worker engine.WorkerID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM worker_registrations
		WHERE worker_id = ? AND status = 'active'`, string(worker)).Scan(&n)
	return n > 0, err
}

// SetActive upserts the worker's registration row.
func (s *RegistrationStore) SetActive(ctx context.Context, worker engine.WorkerID, agency engine.AgencyID, active bool) error {
	status := "inactive"
	if active {
		status = "active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_registrations (worker_id, agency_id, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			agency_id = excluded.agency_id, status = excluded.status`,
		string(worker), string(agency), status, fmtTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save worker registration: %w", err)
	}
	return nil
}

// =============================================================================
// AVAILABILITY SOURCES
// =============================================================================

type AvailabilityStore struct {
	db *sql.DB
}

var _ availability.TimeOffSource = (*AvailabilityStore)(nil)
var _ availability.WindowSource = (*AvailabilityStore)(nil)
var _ availability.ShiftSource = (*AvailabilityStore)(nil)

// AddWindow persists a recurring availability window.
func (s *AvailabilityStore) AddWindow(ctx context.Context, w availability.Window) error {
	var maxHours sql.NullString
	if w.MaxHoursPerShift != nil {
		maxHours = sql.NullString{String: w.MaxHoursPerShift.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_windows
			(id, worker_id, valid_from, valid_to, days_mask, day_start, day_end, max_hours_per_shift)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, string(w.WorkerID), fmtTime(w.Valid.Start), nullTime(w.Valid.End),
		int(w.Days), int(w.DayStart), int(w.DayEnd), maxHours,
	)
	if err != nil {
		return fmt.Errorf("failed to save availability window: %w", err)
	}
	return nil
}

// AddTimeOff persists an approved time-off range.
func (s *AvailabilityStore) AddTimeOff(ctx context.Context, worker engine.WorkerID, r engine.DateRange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_off (id, worker_id, start_date, end_date)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(worker), fmtTime(r.Start), nullTime(r.End),
	)
	if err != nil {
		return fmt.Errorf("failed to save time off: %w", err)
	}
	return nil
}

func (s *AvailabilityStore) ApprovedTimeOff(ctx context.Context, worker engine.WorkerID) ([]engine.DateRange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_date, end_date FROM time_off WHERE worker_id = ?`, string(worker))
	if err != nil {
		return nil, fmt.Errorf("failed to query time off: %w", err)
	}
	defer rows.Close()

	var out []engine.DateRange
	for rows.Next() {
		var start string
		var end sql.NullString
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, dateRange(start, end))
	}
	return out, rows.Err()
}

func (s *AvailabilityStore) Windows(ctx context.Context, worker engine.WorkerID) ([]availability.Window, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, valid_from, valid_to, days_mask, day_start, day_end, max_hours_per_shift
		FROM availability_windows WHERE worker_id = ?`, string(worker))
	if err != nil {
		return nil, fmt.Errorf("failed to query availability windows: %w", err)
	}
	defer rows.Close()

	var out []availability.Window
	for rows.Next() {
		var w availability.Window
		var validFrom string
		var validTo, maxHours sql.NullString
		var days, dayStart, dayEnd int
		if err := rows.Scan(&w.ID, &w.WorkerID, &validFrom, &validTo, &days, &dayStart, &dayEnd, &maxHours); err != nil {
			return nil, err
		}
		w.Valid = dateRange(validFrom, validTo)
		w.Days = engine.Weekdays(days)
		w.DayStart = engine.TimeOfDay(dayStart)
		w.DayEnd = engine.TimeOfDay(dayEnd)
		if maxHours.Valid {
			d := parseDecimal(maxHours.String)
			w.MaxHoursPerShift = &d
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// BookedWindows returns the instant windows of the worker's calendar-
// blocking shifts that intersect the queried window.
func (s *AvailabilityStore) BookedWindows(ctx context.Context, worker engine.WorkerID, around engine.TimeWindow) ([]engine.TimeWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT window_start, window_end FROM shifts
		WHERE worker_id = ?
		  AND status NOT IN ('cancelled', 'no_show')
		  AND window_start < ? AND window_end > ?`,
		string(worker), fmtTime(around.End), fmtTime(around.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to query booked windows: %w", err)
	}
	defer rows.Close()

	var out []engine.TimeWindow
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, engine.TimeWindow{Start: parseTime(start), End: parseTime(end)})
	}
	return out, rows.Err()
}
