/*
negotiation.go - SQLite persistence for demand and agency responses

Requests, placements and their responses are last-write-wins upserts;
the negotiation state machines guard correctness at the entity level,
so these rows carry no version column. List-valued fields
(qualifications, target agencies) are stored as JSON text.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
)

// =============================================================================
// SHIFT REQUESTS
// =============================================================================

type RequestStore struct {
	db *sql.DB
}

var _ negotiation.RequestRepository = (*RequestStore)(nil)

func (r *RequestStore) Get(ctx context.Context, id engine.RequestID) (*negotiation.ShiftRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, employer_id, location_id, role, qualifications, start_date, end_date,
		       max_hourly_rate, target_agencies, response_deadline, positions_needed,
		       status, created_at, updated_at
		FROM shift_requests WHERE id = ?`, string(id))

	var req negotiation.ShiftRequest
	var qualifications, targetAgencies, startDate, rate, deadline, createdAt, updatedAt string
	var endDate sql.NullString
	err := row.Scan(
		&req.ID, &req.EmployerID, &req.LocationID, &req.Role, &qualifications,
		&startDate, &endDate, &rate, &targetAgencies, &deadline,
		&req.PositionsNeeded, &req.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "shift_request", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}

	req.Qualifications = fromJSONList(qualifications)
	for _, a := range fromJSONList(targetAgencies) {
		req.TargetAgencies = append(req.TargetAgencies, engine.AgencyID(a))
	}
	req.Dates = dateRange(startDate, endDate)
	req.MaxHourlyRate = parseRate(rate)
	req.ResponseDeadline = parseTime(deadline)
	req.CreatedAt = parseTime(createdAt)
	req.UpdatedAt = parseTime(updatedAt)
	return &req, nil
}

func (r *RequestStore) Save(ctx context.Context, req *negotiation.ShiftRequest) error {
	agencies := make([]string, len(req.TargetAgencies))
	for i, a := range req.TargetAgencies {
		agencies[i] = string(a)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shift_requests
			(id, employer_id, location_id, role, qualifications, start_date, end_date,
			 max_hourly_rate, target_agencies, response_deadline, positions_needed,
			 status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role, qualifications = excluded.qualifications,
			start_date = excluded.start_date, end_date = excluded.end_date,
			max_hourly_rate = excluded.max_hourly_rate,
			target_agencies = excluded.target_agencies,
			response_deadline = excluded.response_deadline,
			positions_needed = excluded.positions_needed,
			status = excluded.status, updated_at = excluded.updated_at`,
		string(req.ID), string(req.EmployerID), string(req.LocationID), req.Role,
		toJSONList(req.Qualifications), fmtTime(req.Dates.Start), nullTime(req.Dates.End),
		req.MaxHourlyRate.String(), toJSONList(agencies), fmtTime(req.ResponseDeadline),
		req.PositionsNeeded, string(req.Status), fmtTime(req.CreatedAt), fmtTime(req.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save shift request: %w", err)
	}
	return nil
}

// =============================================================================
// AGENCY RESPONSES (requests and placements share the row shape)
// =============================================================================

type ResponseStore struct {
	db *sql.DB
}

var _ negotiation.ResponseRepository = (*ResponseStore)(nil)

func (r *ResponseStore) Get(ctx context.Context, id engine.ResponseID) (*negotiation.AgencyResponse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+responseColumns+`, request_id FROM agency_responses WHERE id = ?`, string(id))

	var resp negotiation.AgencyResponse
	core, parentID, err := scanResponseCore(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "agency_response", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	resp.ResponseCore = *core
	resp.RequestID = engine.RequestID(parentID)
	return &resp, nil
}

func (r *ResponseStore) Save(ctx context.Context, resp *negotiation.AgencyResponse) error {
	return saveResponse(ctx, r.db, "agency_responses", "request_id",
		string(resp.RequestID), &resp.ResponseCore)
}

func (r *ResponseStore) CountAccepted(ctx context.Context, request engine.RequestID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agency_responses
		WHERE request_id = ? AND status = 'accepted'`, string(request)).Scan(&n)
	return n, err
}

type PlacementResponseStore struct {
	db *sql.DB
}

var _ negotiation.PlacementResponseRepository = (*PlacementResponseStore)(nil)

func (r *PlacementResponseStore) Get(ctx context.Context, id engine.ResponseID) (*negotiation.AgencyPlacementResponse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+responseColumns+`, placement_id FROM placement_responses WHERE id = ?`, string(id))

	var resp negotiation.AgencyPlacementResponse
	core, parentID, err := scanResponseCore(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "agency_placement_response", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	resp.ResponseCore = *core
	resp.PlacementID = engine.PlacementID(parentID)
	return &resp, nil
}

func (r *PlacementResponseStore) Save(ctx context.Context, resp *negotiation.AgencyPlacementResponse) error {
	return saveResponse(ctx, r.db, "placement_responses", "placement_id",
		string(resp.PlacementID), &resp.ResponseCore)
}

const responseColumns = `id, agency_id, status, rate, worker_id, terms_start, terms_end,
	notes, decided_by, decided_at, rejection_reason, assignment_id, created_at, updated_at`

func scanResponseCore(row rowScanner) (*negotiation.ResponseCore, string, error) {
	var c negotiation.ResponseCore
	var workerID, termsEnd, decidedBy, decidedAt, rejection, assignmentID sql.NullString
	var rate, termsStart, createdAt, updatedAt, parentID string

	err := row.Scan(
		&c.ID, &c.AgencyID, &c.Status, &rate, &workerID, &termsStart, &termsEnd,
		&c.Notes, &decidedBy, &decidedAt, &rejection, &assignmentID,
		&createdAt, &updatedAt, &parentID,
	)
	if err != nil {
		return nil, "", err
	}

	c.Terms = negotiation.ProposedTerms{
		Rate:   parseRate(rate),
		Worker: (*engine.WorkerID)(strPtr(workerID)),
		Dates:  dateRange(termsStart, termsEnd),
	}
	c.DecidedBy = strPtr(decidedBy)
	c.DecidedAt = timePtr(decidedAt)
	c.RejectionReason = strPtr(rejection)
	c.AssignmentID = (*engine.AssignmentID)(strPtr(assignmentID))
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, parentID, nil
}

func saveResponse(ctx context.Context, db *sql.DB, table, parentColumn, parentID string, c *negotiation.ResponseCore) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+table+`
			(id, `+parentColumn+`, agency_id, status, rate, worker_id, terms_start, terms_end,
			 notes, decided_by, decided_at, rejection_reason, assignment_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, rate = excluded.rate,
			worker_id = excluded.worker_id, terms_start = excluded.terms_start,
			terms_end = excluded.terms_end, notes = excluded.notes,
			decided_by = excluded.decided_by, decided_at = excluded.decided_at,
			rejection_reason = excluded.rejection_reason,
			assignment_id = excluded.assignment_id, updated_at = excluded.updated_at`,
		string(c.ID), parentID, string(c.AgencyID), string(c.Status),
		c.Terms.Rate.String(), nullString((*string)(c.Terms.Worker)),
		fmtTime(c.Terms.Dates.Start), nullTime(c.Terms.Dates.End),
		c.Notes, nullString(c.DecidedBy), nullTime(c.DecidedAt),
		nullString(c.RejectionReason), nullString((*string)(c.AssignmentID)),
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", table, err)
	}
	return nil
}

// =============================================================================
// PLACEMENTS
// =============================================================================

type PlacementStore struct {
	db *sql.DB
}

var _ negotiation.PlacementRepository = (*PlacementStore)(nil)

func (r *PlacementStore) Get(ctx context.Context, id engine.PlacementID) (*negotiation.Placement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, employer_id, location_id, role, start_date, end_date, shift_pattern,
		       recurrence, weekday, day_start, day_end, budget_type, budget_amount,
		       max_hourly_rate, background_check, status, selected_agency,
		       selected_employee, created_at, updated_at
		FROM placements WHERE id = ?`, string(id))

	var p negotiation.Placement
	var endDate, selectedAgency, selectedEmployee sql.NullString
	var startDate, budgetAmount, maxRate, createdAt, updatedAt string
	var weekday, dayStart, dayEnd int
	var backgroundCheck int
	err := row.Scan(
		&p.ID, &p.EmployerID, &p.LocationID, &p.Role, &startDate, &endDate,
		&p.ShiftPattern, &p.Recurrence, &weekday, &dayStart, &dayEnd,
		&p.BudgetType, &budgetAmount, &maxRate, &backgroundCheck, &p.Status,
		&selectedAgency, &selectedEmployee, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "placement", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}

	p.Dates = dateRange(startDate, endDate)
	p.Weekday = time.Weekday(weekday)
	p.DayStart = engine.TimeOfDay(dayStart)
	p.DayEnd = engine.TimeOfDay(dayEnd)
	p.BudgetAmount = parseRate(budgetAmount)
	p.MaxHourlyRate = parseRate(maxRate)
	p.BackgroundCheckRequired = backgroundCheck != 0
	p.SelectedAgency = (*engine.AgencyID)(strPtr(selectedAgency))
	p.SelectedEmployee = (*engine.WorkerID)(strPtr(selectedEmployee))
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *PlacementStore) Save(ctx context.Context, p *negotiation.Placement) error {
	backgroundCheck := 0
	if p.BackgroundCheckRequired {
		backgroundCheck = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO placements
			(id, employer_id, location_id, role, start_date, end_date, shift_pattern,
			 recurrence, weekday, day_start, day_end, budget_type, budget_amount,
			 max_hourly_rate, background_check, status, selected_agency,
			 selected_employee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role, start_date = excluded.start_date,
			end_date = excluded.end_date, shift_pattern = excluded.shift_pattern,
			recurrence = excluded.recurrence, weekday = excluded.weekday,
			day_start = excluded.day_start, day_end = excluded.day_end,
			budget_type = excluded.budget_type, budget_amount = excluded.budget_amount,
			max_hourly_rate = excluded.max_hourly_rate,
			background_check = excluded.background_check, status = excluded.status,
			selected_agency = excluded.selected_agency,
			selected_employee = excluded.selected_employee,
			updated_at = excluded.updated_at`,
		string(p.ID), string(p.EmployerID), string(p.LocationID), p.Role,
		fmtTime(p.Dates.Start), nullTime(p.Dates.End), p.ShiftPattern,
		string(p.Recurrence), int(p.Weekday), int(p.DayStart), int(p.DayEnd),
		string(p.BudgetType), p.BudgetAmount.String(), p.MaxHourlyRate.String(),
		backgroundCheck, string(p.Status),
		nullString((*string)(p.SelectedAgency)), nullString((*string)(p.SelectedEmployee)),
		fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save placement: %w", err)
	}
	return nil
}

// =============================================================================
// JSON LIST HELPERS
// =============================================================================

func toJSONList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func fromJSONList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	_ = json.Unmarshal([]byte(s), &items)
	return items
}
