/*
timesheets.go - SQLite persistence for timesheets

The shift_id UNIQUE constraint backs the one-timesheet-per-shift rule
at the storage level; the service checks it first for a cleaner error.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/timesheet"
)

type TimesheetStore struct {
	db *sql.DB
}

var _ timesheet.Repository = (*TimesheetStore)(nil)

const timesheetColumns = `id, shift_id, worker_id, clock_in, clock_out,
	break_minutes, hours_worked, status, agency_approver_id, agency_approved_at,
	employer_approver_id, employer_approved_at, rejection_reason, dispute_reason,
	version, created_at, updated_at`

func (r *TimesheetStore) Get(ctx context.Context, id engine.TimesheetID) (*timesheet.Timesheet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+timesheetColumns+` FROM timesheets WHERE id = ?`, string(id))
	t, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "timesheet", ID: string(id)}
	}
	return t, err
}

func (r *TimesheetStore) FindByShift(ctx context.Context, shiftID engine.ShiftID) (*timesheet.Timesheet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+timesheetColumns+` FROM timesheets WHERE shift_id = ?`, string(shiftID))
	t, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "timesheet", ID: "shift:" + string(shiftID)}
	}
	return t, err
}

func (r *TimesheetStore) Save(ctx context.Context, t *timesheet.Timesheet) error {
	if t.Version == 0 {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO timesheets (`+timesheetColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			string(t.ID), string(t.ShiftID), string(t.WorkerID),
			nullTime(t.ClockIn), nullTime(t.ClockOut), t.BreakMinutes, t.HoursWorked.String(),
			string(t.Status), nullString(t.AgencyApproverID), nullTime(t.AgencyApprovedAt),
			nullString(t.EmployerApproverID), nullTime(t.EmployerApprovedAt),
			nullString(t.RejectionReason), nullString(t.DisputeReason),
			fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return &engine.ConflictError{Entity: "timesheet", ID: string(t.ID), Message: "shift already has a timesheet"}
			}
			return fmt.Errorf("failed to insert timesheet: %w", err)
		}
		t.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE timesheets SET
			clock_in = ?, clock_out = ?, break_minutes = ?, hours_worked = ?,
			status = ?, agency_approver_id = ?, agency_approved_at = ?,
			employer_approver_id = ?, employer_approved_at = ?,
			rejection_reason = ?, dispute_reason = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		nullTime(t.ClockIn), nullTime(t.ClockOut), t.BreakMinutes, t.HoursWorked.String(),
		string(t.Status), nullString(t.AgencyApproverID), nullTime(t.AgencyApprovedAt),
		nullString(t.EmployerApproverID), nullTime(t.EmployerApprovedAt),
		nullString(t.RejectionReason), nullString(t.DisputeReason), fmtTime(t.UpdatedAt),
		string(t.ID), t.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.ConflictError{Entity: "timesheet", ID: string(t.ID), Message: "stale version"}
	}
	t.Version++
	return nil
}

func scanTimesheet(row rowScanner) (*timesheet.Timesheet, error) {
	var t timesheet.Timesheet
	var clockIn, clockOut, agencyApprover, agencyAt, employerApprover, employerAt sql.NullString
	var rejection, dispute sql.NullString
	var hours, createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.ShiftID, &t.WorkerID, &clockIn, &clockOut,
		&t.BreakMinutes, &hours, &t.Status, &agencyApprover, &agencyAt,
		&employerApprover, &employerAt, &rejection, &dispute,
		&t.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ClockIn = timePtr(clockIn)
	t.ClockOut = timePtr(clockOut)
	t.HoursWorked = parseDecimal(hours)
	t.AgencyApproverID = strPtr(agencyApprover)
	t.AgencyApprovedAt = timePtr(agencyAt)
	t.EmployerApproverID = strPtr(employerApprover)
	t.EmployerApprovedAt = timePtr(employerAt)
	t.RejectionReason = strPtr(rejection)
	t.DisputeReason = strPtr(dispute)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}
