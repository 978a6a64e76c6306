/*
assignments.go - SQLite persistence for the assignment aggregate

The version column guards optimistic concurrency: the update runs
conditionally on the caller's version and a zero row count means a
competing writer got there first.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/engine"
)

type AssignmentStore struct {
	db *sql.DB
}

var _ assignment.Repository = (*AssignmentStore)(nil)

const assignmentColumns = `id, contract_id, employer_id, agency_id, worker_id,
	request_id, response_id, location_id, role, start_date, end_date,
	agreed_rate, pay_rate, markup_amount, markup_percent, weekly_hours,
	status, type, version, created_at, updated_at`

func (r *AssignmentStore) Get(ctx context.Context, id engine.AssignmentID) (*assignment.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, string(id))
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "assignment", ID: string(id)}
	}
	return a, err
}

func (r *AssignmentStore) Save(ctx context.Context, a *assignment.Assignment) error {
	if a.Version == 0 {
		if err := insertAssignment(ctx, r.db, a); err != nil {
			return err
		}
		a.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET
			location_id = ?, role = ?, start_date = ?, end_date = ?,
			agreed_rate = ?, pay_rate = ?, markup_amount = ?, markup_percent = ?,
			weekly_hours = ?, status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(a.LocationID), a.Role, fmtTime(a.Dates.Start), nullTime(a.Dates.End),
		a.AgreedRate.String(), a.PayRate.String(), a.MarkupAmount.String(), a.MarkupPercent.String(),
		a.WeeklyHours.String(), string(a.Status), fmtTime(a.UpdatedAt),
		string(a.ID), a.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.ConflictError{Entity: "assignment", ID: string(a.ID), Message: "stale version"}
	}
	a.Version++
	return nil
}

// CreateExclusive re-checks overlap freedom and inserts inside one
// transaction. Connections open transactions with BEGIN IMMEDIATE, so
// the write lock is held across the check and the insert and two racing
// creates serialize; the loser sees the winner's row and conflicts.
func (r *AssignmentStore) CreateExclusive(ctx context.Context, a *assignment.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin assignment insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT COUNT(*) FROM assignments
		WHERE worker_id = ?
		  AND status IN ('pending', 'active', 'suspended')
		  AND (end_date IS NULL OR end_date > ?)`
	args := []any{string(a.WorkerID), fmtTime(a.Dates.Start)}
	if a.Dates.End != nil {
		query += ` AND start_date < ?`
		args = append(args, fmtTime(*a.Dates.End))
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return fmt.Errorf("failed to re-check assignment overlap: %w", err)
	}
	if n > 0 {
		return &engine.ConflictError{
			Entity: "assignment", ID: string(a.ID),
			Message: "an overlapping assignment was created concurrently",
		}
	}

	if err := insertAssignment(ctx, tx, a); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment insert: %w", err)
	}
	a.Version = 1
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAssignment(ctx context.Context, ex execer, a *assignment.Assignment) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		string(a.ID), string(a.ContractID), string(a.EmployerID), string(a.AgencyID), string(a.WorkerID),
		nullString((*string)(a.RequestID)), nullString((*string)(a.ResponseID)),
		string(a.LocationID), a.Role, fmtTime(a.Dates.Start), nullTime(a.Dates.End),
		a.AgreedRate.String(), a.PayRate.String(), a.MarkupAmount.String(), a.MarkupPercent.String(),
		a.WeeklyHours.String(), string(a.Status), string(a.Type),
		fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &engine.ConflictError{Entity: "assignment", ID: string(a.ID), Message: "already exists"}
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (r *AssignmentStore) Delete(ctx context.Context, id engine.AssignmentID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.NotFoundError{Entity: "assignment", ID: string(id)}
	}
	return nil
}

// FindOverlapping scans the worker's open assignments; half-open date
// semantics, a NULL end date extends forever.
func (r *AssignmentStore) FindOverlapping(ctx context.Context, worker engine.WorkerID, dates engine.DateRange, excludeID engine.AssignmentID) ([]*assignment.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM assignments
		WHERE worker_id = ? AND id != ?
		  AND status IN ('pending', 'active', 'suspended')
		  AND (end_date IS NULL OR end_date > ?)`
	args := []any{string(worker), string(excludeID), fmtTime(dates.Start)}
	if dates.End != nil {
		query += ` AND start_date < ?`
		args = append(args, fmtTime(*dates.End))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping assignments: %w", err)
	}
	defer rows.Close()

	var out []*assignment.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentStore) CountShifts(ctx context.Context, id engine.AssignmentID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shifts WHERE assignment_id = ?`, string(id)).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*assignment.Assignment, error) {
	var a assignment.Assignment
	var requestID, responseID, endDate sql.NullString
	var startDate, agreed, pay, markupAmt, markupPct, weekly, createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.ContractID, &a.EmployerID, &a.AgencyID, &a.WorkerID,
		&requestID, &responseID, &a.LocationID, &a.Role, &startDate, &endDate,
		&agreed, &pay, &markupAmt, &markupPct, &weekly,
		&a.Status, &a.Type, &a.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.RequestID = (*engine.RequestID)(strPtr(requestID))
	a.ResponseID = (*engine.ResponseID)(strPtr(responseID))
	a.Dates = dateRange(startDate, endDate)
	a.AgreedRate = parseRate(agreed)
	a.PayRate = parseRate(pay)
	a.MarkupAmount = parseRate(markupAmt)
	a.MarkupPercent = parseDecimal(markupPct)
	a.WeeklyHours = parseDecimal(weekly)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
