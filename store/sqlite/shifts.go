/*
shifts.go - SQLite persistence for shifts and staffing offers

Both aggregates are versioned; competing shift accepts race on the
shift row's version, matching the in-memory store's behavior.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/shift"
)

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftStore struct {
	db *sql.DB
}

var _ shift.Repository = (*ShiftStore)(nil)

const shiftColumns = `id, employer_id, agency_id, worker_id, assignment_id,
	template_id, placement_id, location_id, window_start, window_end,
	hourly_rate, status, version, created_at, updated_at`

func (r *ShiftStore) Get(ctx context.Context, id engine.ShiftID) (*shift.Shift, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, string(id))
	sh, err := scanShift(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "shift", ID: string(id)}
	}
	return sh, err
}

func (r *ShiftStore) Save(ctx context.Context, sh *shift.Shift) error {
	if sh.Version == 0 {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO shifts (`+shiftColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			string(sh.ID), string(sh.EmployerID), string(sh.AgencyID),
			nullString((*string)(sh.WorkerID)), nullString((*string)(sh.AssignmentID)),
			nullString((*string)(sh.TemplateID)), nullString((*string)(sh.PlacementID)),
			string(sh.LocationID), fmtTime(sh.Window.Start), fmtTime(sh.Window.End),
			sh.HourlyRate.String(), string(sh.Status),
			fmtTime(sh.CreatedAt), fmtTime(sh.UpdatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return &engine.ConflictError{Entity: "shift", ID: string(sh.ID), Message: "already exists"}
			}
			return fmt.Errorf("failed to insert shift: %w", err)
		}
		sh.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE shifts SET
			worker_id = ?, window_start = ?, window_end = ?, hourly_rate = ?,
			status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		nullString((*string)(sh.WorkerID)), fmtTime(sh.Window.Start), fmtTime(sh.Window.End),
		sh.HourlyRate.String(), string(sh.Status), fmtTime(sh.UpdatedAt),
		string(sh.ID), sh.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.ConflictError{Entity: "shift", ID: string(sh.ID), Message: "stale version"}
	}
	sh.Version++
	return nil
}

func scanShift(row rowScanner) (*shift.Shift, error) {
	var sh shift.Shift
	var workerID, assignmentID, templateID, placementID sql.NullString
	var windowStart, windowEnd, rate, createdAt, updatedAt string

	err := row.Scan(
		&sh.ID, &sh.EmployerID, &sh.AgencyID, &workerID, &assignmentID,
		&templateID, &placementID, &sh.LocationID, &windowStart, &windowEnd,
		&rate, &sh.Status, &sh.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sh.WorkerID = (*engine.WorkerID)(strPtr(workerID))
	sh.AssignmentID = (*engine.AssignmentID)(strPtr(assignmentID))
	sh.TemplateID = (*engine.TemplateID)(strPtr(templateID))
	sh.PlacementID = (*engine.PlacementID)(strPtr(placementID))
	sh.Window = engine.TimeWindow{Start: parseTime(windowStart), End: parseTime(windowEnd)}
	sh.HourlyRate = parseRate(rate)
	sh.CreatedAt = parseTime(createdAt)
	sh.UpdatedAt = parseTime(updatedAt)
	return &sh, nil
}

// =============================================================================
// OFFERS
// =============================================================================

type OfferStore struct {
	db *sql.DB
}

var _ shift.OfferRepository = (*OfferStore)(nil)

const offerColumns = `id, shift_id, worker_id, offered_by, status,
	expires_at, responded_at, notes, version, created_at, updated_at`

func (r *OfferStore) Get(ctx context.Context, id engine.OfferID) (*shift.Offer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM shift_offers WHERE id = ?`, string(id))
	o, err := scanOffer(row)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Entity: "offer", ID: string(id)}
	}
	return o, err
}

func (r *OfferStore) Save(ctx context.Context, o *shift.Offer) error {
	if o.Version == 0 {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO shift_offers (`+offerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			string(o.ID), string(o.ShiftID), string(o.WorkerID), o.OfferedBy,
			string(o.Status), fmtTime(o.ExpiresAt), nullTime(o.RespondedAt), o.Notes,
			fmtTime(o.CreatedAt), fmtTime(o.UpdatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return &engine.ConflictError{Entity: "offer", ID: string(o.ID), Message: "already exists"}
			}
			return fmt.Errorf("failed to insert offer: %w", err)
		}
		o.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE shift_offers SET
			status = ?, responded_at = ?, notes = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		string(o.Status), nullTime(o.RespondedAt), o.Notes, fmtTime(o.UpdatedAt),
		string(o.ID), o.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.ConflictError{Entity: "offer", ID: string(o.ID), Message: "stale version"}
	}
	o.Version++
	return nil
}

func (r *OfferStore) ListByShift(ctx context.Context, shiftID engine.ShiftID) ([]*shift.Offer, error) {
	return r.queryOffers(ctx,
		`SELECT `+offerColumns+` FROM shift_offers WHERE shift_id = ? ORDER BY created_at`,
		string(shiftID))
}

func (r *OfferStore) ListExpiring(ctx context.Context, before time.Time) ([]*shift.Offer, error) {
	return r.queryOffers(ctx,
		`SELECT `+offerColumns+` FROM shift_offers
		 WHERE status = 'pending' AND expires_at <= ?`,
		fmtTime(before))
}

func (r *OfferStore) queryOffers(ctx context.Context, query string, args ...any) ([]*shift.Offer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var out []*shift.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOffer(row rowScanner) (*shift.Offer, error) {
	var o shift.Offer
	var respondedAt sql.NullString
	var expiresAt, createdAt, updatedAt string

	err := row.Scan(
		&o.ID, &o.ShiftID, &o.WorkerID, &o.OfferedBy, &o.Status,
		&expiresAt, &respondedAt, &o.Notes, &o.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ExpiresAt = parseTime(expiresAt)
	o.RespondedAt = timePtr(respondedAt)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}
