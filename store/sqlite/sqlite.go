/*
Package sqlite provides the SQLite-backed implementation of the
lifecycle repositories.

PURPOSE:
  Implements every repository interface the lifecycle packages consume.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

OPTIMISTIC VERSIONING:
  Assignments, shifts, offers and timesheets carry a version column.
  Updates run as

    UPDATE ... SET version = version + 1 WHERE id = ? AND version = ?

  and a zero row count surfaces as a ConflictError, mirroring the
  in-memory store exactly. Concurrency tests written against one store
  hold against the other.

KEY TABLES:
  shift_requests, agency_responses:      broadcast negotiation
  placements, placement_responses:       placement negotiation
  assignments:                           the binding engagement
  shifts, shift_offers:                  dated work and staffing offers
  timesheets:                            worked time + approval chain
  contracts, worker_registrations:       activity lookups
  availability_windows, time_off:        availability sources

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time.

USAGE:
  st, err := sqlite.New("./data/staffing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := &assignment.Service{Assignments: st.Assignments, ...}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/memory: the in-memory implementation of the same interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
)

// Store bundles every repository over one SQLite database.
type Store struct {
	db *sql.DB

	Requests           *RequestStore
	Responses          *ResponseStore
	Placements         *PlacementStore
	PlacementResponses *PlacementResponseStore
	Assignments        *AssignmentStore
	Shifts             *ShiftStore
	Offers             *OfferStore
	Timesheets         *TimesheetStore
	Contracts          *ContractStore
	Registrations      *RegistrationStore
	Availability       *AvailabilityStore
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	// _txlock=immediate makes BeginTx take the write lock up front, so a
	// check-then-insert transaction serializes against competing writers.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.Requests = &RequestStore{db: db}
	s.Responses = &ResponseStore{db: db}
	s.Placements = &PlacementStore{db: db}
	s.PlacementResponses = &PlacementResponseStore{db: db}
	s.Assignments = &AssignmentStore{db: db}
	s.Shifts = &ShiftStore{db: db}
	s.Offers = &OfferStore{db: db}
	s.Timesheets = &TimesheetStore{db: db}
	s.Contracts = &ContractStore{db: db}
	s.Registrations = &RegistrationStore{db: db}
	s.Availability = &AvailabilityStore{db: db}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Reset clears every table. Demo and test use only.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"shift_requests", "agency_responses",
		"placements", "placement_responses",
		"assignments", "shifts", "shift_offers", "timesheets",
		"contracts", "worker_registrations",
		"availability_windows", "time_off",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Checker wires the availability checker over this store's data.
func (s *Store) Checker() *availability.Checker {
	return &availability.Checker{
		TimeOff: s.Availability,
		Windows: s.Availability,
		Shifts:  s.Availability,
	}
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Broadcast demand
	CREATE TABLE IF NOT EXISTS shift_requests (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		role TEXT NOT NULL,
		qualifications TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT,
		max_hourly_rate TEXT NOT NULL,
		target_agencies TEXT NOT NULL DEFAULT '',
		response_deadline TEXT NOT NULL,
		positions_needed INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employer
		ON shift_requests(employer_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON shift_requests(status);

	CREATE TABLE IF NOT EXISTS agency_responses (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		agency_id TEXT NOT NULL,
		status TEXT NOT NULL,
		rate TEXT NOT NULL,
		worker_id TEXT,
		terms_start TEXT NOT NULL,
		terms_end TEXT,
		notes TEXT NOT NULL DEFAULT '',
		decided_by TEXT,
		decided_at TEXT,
		rejection_reason TEXT,
		assignment_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: fill tracking counts accepted responses per request
	CREATE INDEX IF NOT EXISTS idx_responses_request_status
		ON agency_responses(request_id, status);

	-- Placement demand
	CREATE TABLE IF NOT EXISTS placements (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		role TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		shift_pattern TEXT NOT NULL DEFAULT '',
		recurrence TEXT NOT NULL DEFAULT 'weekly',
		weekday INTEGER NOT NULL DEFAULT 0,
		day_start INTEGER NOT NULL DEFAULT 0,
		day_end INTEGER NOT NULL DEFAULT 0,
		budget_type TEXT NOT NULL,
		budget_amount TEXT NOT NULL,
		max_hourly_rate TEXT NOT NULL,
		background_check INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		selected_agency TEXT,
		selected_employee TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_placements_employer
		ON placements(employer_id, status);

	CREATE TABLE IF NOT EXISTS placement_responses (
		id TEXT PRIMARY KEY,
		placement_id TEXT NOT NULL,
		agency_id TEXT NOT NULL,
		status TEXT NOT NULL,
		rate TEXT NOT NULL,
		worker_id TEXT,
		terms_start TEXT NOT NULL,
		terms_end TEXT,
		notes TEXT NOT NULL DEFAULT '',
		decided_by TEXT,
		decided_at TEXT,
		rejection_reason TEXT,
		assignment_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_placement_responses_placement
		ON placement_responses(placement_id, status);

	-- Assignments
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		agency_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		request_id TEXT,
		response_id TEXT,
		location_id TEXT NOT NULL,
		role TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		agreed_rate TEXT NOT NULL,
		pay_rate TEXT NOT NULL,
		markup_amount TEXT NOT NULL,
		markup_percent TEXT NOT NULL,
		weekly_hours TEXT NOT NULL,
		status TEXT NOT NULL,
		type TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: the overlap check scans a worker's open assignments
	CREATE INDEX IF NOT EXISTS idx_assignments_worker_status
		ON assignments(worker_id, status);
	CREATE INDEX IF NOT EXISTS idx_assignments_employer
		ON assignments(employer_id);

	-- Shifts and offers
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		agency_id TEXT NOT NULL,
		worker_id TEXT,
		assignment_id TEXT,
		template_id TEXT,
		placement_id TEXT,
		location_id TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: booked-window lookups for the availability check
	CREATE INDEX IF NOT EXISTS idx_shifts_worker_window
		ON shifts(worker_id, window_start);
	CREATE INDEX IF NOT EXISTS idx_shifts_assignment
		ON shifts(assignment_id) WHERE assignment_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS shift_offers (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		offered_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		responded_at TEXT,
		notes TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_offers_shift
		ON shift_offers(shift_id);
	-- Hot path: the expiry sweep
	CREATE INDEX IF NOT EXISTS idx_offers_pending_expiry
		ON shift_offers(expires_at) WHERE status = 'pending';

	-- Timesheets
	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL UNIQUE,
		worker_id TEXT NOT NULL,
		clock_in TEXT,
		clock_out TEXT,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		hours_worked TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		agency_approver_id TEXT,
		agency_approved_at TEXT,
		employer_approver_id TEXT,
		employer_approved_at TEXT,
		rejection_reason TEXT,
		dispute_reason TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timesheets_status
		ON timesheets(status);

	-- Lookup tables
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		agency_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		UNIQUE(employer_id, agency_id)
	);

	CREATE TABLE IF NOT EXISTS worker_registrations (
		worker_id TEXT PRIMARY KEY,
		agency_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	-- Availability sources
	CREATE TABLE IF NOT EXISTS availability_windows (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		days_mask INTEGER NOT NULL,
		day_start INTEGER NOT NULL,
		day_end INTEGER NOT NULL,
		max_hours_per_shift TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_availability_worker
		ON availability_windows(worker_id);

	CREATE TABLE IF NOT EXISTS time_off (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_time_off_worker
		ON time_off(worker_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Timestamps are stored as RFC3339 text. The fixed width keeps SQL
// string comparison consistent with chronological order.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func parseRate(s string) engine.Rate {
	r, err := engine.NewRateFromString(s)
	if err != nil {
		return engine.ZeroRate()
	}
	return r
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func dateRange(start string, end sql.NullString) engine.DateRange {
	return engine.DateRange{Start: parseTime(start), End: timePtr(end)}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
