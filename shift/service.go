/*
service.go - Shift generation and the offer workflow

PURPOSE:
  GenerateFromTemplate  expand a recurrence into persisted shifts
  OfferShift            create a pending offer to one candidate
  RespondToOffer        accept (staff the shift, supersede siblings)
                        or reject; expired-on-touch handling
  ExpireOffer           pending -> expired, idempotently refused after
  SweepExpiredOffers    periodic batch expiry
  BulkOffer/BulkAssign  per-pair independent units of work

SIBLING SUPERSESSION:
  Accepting one offer expires every other pending offer on the same
  shift. This preserves the one-worker-per-shift invariant; sibling
  expiry failures are logged and swallowed since the accept itself has
  already committed.

CONCURRENCY:
  The shift and offer aggregates are versioned; the repositories reject
  stale saves with ConflictError. Two concurrent accepts for one shift
  race on the shift's version: exactly one staffs it, the other gets a
  ConflictError (or a PreconditionError if it reloads first).
*/
package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/staffing-engine/engine"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// AvailabilityChecker is the read-side eligibility check.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, worker engine.WorkerID, start, end time.Time) (bool, error)
}

// Repository persists shifts with optimistic versioning.
type Repository interface {
	Get(ctx context.Context, id engine.ShiftID) (*Shift, error)
	Save(ctx context.Context, s *Shift) error
}

// OfferRepository persists offers with optimistic versioning.
type OfferRepository interface {
	Get(ctx context.Context, id engine.OfferID) (*Offer, error)
	Save(ctx context.Context, o *Offer) error
	// ListByShift returns all offers for a shift.
	ListByShift(ctx context.Context, shift engine.ShiftID) ([]*Offer, error)
	// ListExpiring returns pending offers whose expiry is at or before the instant.
	ListExpiring(ctx context.Context, before time.Time) ([]*Offer, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Shifts       Repository
	Offers       OfferRepository
	Availability AvailabilityChecker
	Events       engine.EventPublisher
	Clock        engine.Clock
	Log          *logrus.Logger
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerationResult reports what a template expansion produced.
type GenerationResult struct {
	Created []*Shift
	// Skipped lists dates dropped because the pre-assigned worker was
	// unavailable.
	Skipped []time.Time
}

// GenerateFromTemplate expands the template over [from, to] and persists
// a shift per date. When the template pre-assigns a worker, dates the
// worker is unavailable for are skipped; otherwise shifts are created
// unstaffed.
func (s *Service) GenerateFromTemplate(ctx context.Context, tmpl *Template, from, to time.Time) (*GenerationResult, error) {
	result := &GenerationResult{}
	now := s.Clock.Now()

	for _, date := range tmpl.Expand(from, to) {
		window := tmpl.WindowOn(date)

		worker := tmpl.WorkerID
		if worker != nil {
			ok, err := s.Availability.IsAvailable(ctx, *worker, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Skipped = append(result.Skipped, date)
				continue
			}
		}

		sh := &Shift{
			ID:           engine.ShiftID(uuid.NewString()),
			EmployerID:   tmpl.EmployerID,
			AgencyID:     tmpl.AgencyID,
			WorkerID:     worker,
			AssignmentID: tmpl.AssignmentID,
			TemplateID:   &tmpl.ID,
			PlacementID:  tmpl.PlacementID,
			LocationID:   tmpl.LocationID,
			Window:       window,
			HourlyRate:   tmpl.HourlyRate,
			Status:       StatusScheduled,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Shifts.Save(ctx, sh); err != nil {
			return nil, err
		}
		result.Created = append(result.Created, sh)
	}

	s.Events.Publish(ctx, engine.EventShiftsGenerated, map[string]any{
		"template_id": tmpl.ID, "created": len(result.Created), "skipped": len(result.Skipped),
	})
	return result, nil
}

// =============================================================================
// OFFER WORKFLOW
// =============================================================================

// OfferShift creates a pending offer to a candidate. Fails if the shift
// is already staffed, has an accepted offer, the candidate already holds
// an actionable offer, or the candidate fails the availability check.
func (s *Service) OfferShift(ctx context.Context, shiftID engine.ShiftID, candidate engine.WorkerID, expiresAt time.Time, offeredBy string) (*Offer, error) {
	sh, err := s.Shifts.Get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()

	if sh.Status != StatusScheduled {
		return nil, &engine.PreconditionError{
			Entity: "shift", ID: string(shiftID), State: string(sh.Status),
			Message: "only scheduled shifts can be offered",
		}
	}
	if sh.IsStaffed() {
		return nil, &engine.PreconditionError{
			Entity: "shift", ID: string(shiftID), State: string(sh.Status),
			Message: "shift is already staffed",
		}
	}

	existing, err := s.Offers.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	for _, o := range existing {
		if o.Status == OfferAccepted {
			return nil, &engine.PreconditionError{
				Entity: "shift", ID: string(shiftID), State: string(sh.Status),
				Message: "shift already has an accepted offer",
			}
		}
		if o.WorkerID == candidate && o.IsActionable(now) {
			return nil, &engine.PreconditionError{
				Entity: "offer", ID: string(o.ID), State: string(o.Status),
				Message: "candidate already holds an actionable offer for this shift",
			}
		}
	}

	ok, err := s.Availability.IsAvailable(ctx, candidate, sh.Window.Start, sh.Window.End)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &engine.ValidationError{
			Rule:    "availability",
			Message: fmt.Sprintf("worker %s is not available for the shift window", candidate),
		}
	}

	offer := &Offer{
		ID:        engine.OfferID(uuid.NewString()),
		ShiftID:   shiftID,
		WorkerID:  candidate,
		OfferedBy: offeredBy,
		Status:    OfferPending,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Offers.Save(ctx, offer); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, engine.EventShiftOffered, map[string]any{
		"offer_id": offer.ID, "shift_id": shiftID, "worker_id": candidate,
	})
	return offer, nil
}

// RespondToOffer accepts or rejects a pending offer. Responses past the
// expiry transition the offer to expired on touch and fail with
// OfferExpiredError. Accepting staffs the shift and supersedes sibling
// pending offers.
func (s *Service) RespondToOffer(ctx context.Context, offerID engine.OfferID, accept bool, notes string) (*Offer, error) {
	offer, err := s.Offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()

	if offer.Status != OfferPending {
		return nil, &engine.PreconditionError{
			Entity: "offer", ID: string(offerID), State: string(offer.Status),
			Message: "only pending offers can be responded to",
		}
	}
	if !now.Before(offer.ExpiresAt) {
		// Expired on touch: persist the expiry, then refuse the response.
		offer.Status = OfferExpired
		offer.UpdatedAt = now
		if err := s.Offers.Save(ctx, offer); err != nil {
			return nil, err
		}
		s.Events.Publish(ctx, engine.EventOfferExpired, map[string]any{"offer_id": offer.ID})
		return nil, &engine.OfferExpiredError{OfferID: offerID}
	}

	if !accept {
		offer.Status = OfferRejected
		offer.RespondedAt = &now
		offer.Notes = notes
		offer.UpdatedAt = now
		if err := s.Offers.Save(ctx, offer); err != nil {
			return nil, err
		}
		s.Events.Publish(ctx, engine.EventOfferRejected, map[string]any{
			"offer_id": offer.ID, "shift_id": offer.ShiftID,
		})
		return offer, nil
	}

	// Accept: the shift's version guards the race between competing
	// accepts - the losing save comes back as a ConflictError.
	sh, err := s.Shifts.Get(ctx, offer.ShiftID)
	if err != nil {
		return nil, err
	}
	if sh.Status != StatusScheduled {
		// The shift moved on (cancelled, started) while the offer sat
		// pending; the offer no longer has anything to staff.
		return nil, &engine.PreconditionError{
			Entity: "shift", ID: string(sh.ID), State: string(sh.Status),
			Message: "only scheduled shifts can accept offers",
		}
	}
	if sh.IsStaffed() {
		return nil, &engine.ConflictError{
			Entity: "shift", ID: string(sh.ID),
			Message: "shift was staffed by a competing offer",
		}
	}
	sh.WorkerID = &offer.WorkerID
	sh.UpdatedAt = now
	if err := s.Shifts.Save(ctx, sh); err != nil {
		return nil, err
	}

	offer.Status = OfferAccepted
	offer.RespondedAt = &now
	offer.Notes = notes
	offer.UpdatedAt = now
	if err := s.Offers.Save(ctx, offer); err != nil {
		return nil, err
	}

	s.supersedeSiblings(ctx, offer, now)

	s.Events.Publish(ctx, engine.EventOfferAccepted, map[string]any{
		"offer_id": offer.ID, "shift_id": offer.ShiftID, "worker_id": offer.WorkerID,
	})
	return offer, nil
}

// ExpireOffer moves a pending offer to expired. A second call fails with
// a PreconditionError and leaves responded_at untouched.
func (s *Service) ExpireOffer(ctx context.Context, offerID engine.OfferID) (*Offer, error) {
	offer, err := s.Offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != OfferPending {
		return nil, &engine.PreconditionError{
			Entity: "offer", ID: string(offerID), State: string(offer.Status),
			Message: "only pending offers can be expired",
		}
	}
	offer.Status = OfferExpired
	offer.UpdatedAt = s.Clock.Now()
	if err := s.Offers.Save(ctx, offer); err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, engine.EventOfferExpired, map[string]any{"offer_id": offer.ID})
	return offer, nil
}

// SweepExpiredOffers expires every pending offer past its expiry. Run
// periodically; returns the number expired.
func (s *Service) SweepExpiredOffers(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	pending, err := s.Offers.ListExpiring(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range pending {
		offer.Status = OfferExpired
		offer.UpdatedAt = now
		if err := s.Offers.Save(ctx, offer); err != nil {
			// A conflict means someone responded concurrently; skip it.
			if engine.IsConflict(err) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// =============================================================================
// BULK OPERATIONS - Each pair is an independent unit of work
// =============================================================================

// BulkResult reports the outcome for one (shift, worker) pair.
type BulkResult struct {
	ShiftID  engine.ShiftID
	WorkerID engine.WorkerID
	Offer    *Offer
	Err      error
}

// OfferRequest is one (shift, candidate) pair in a bulk offer.
type OfferRequest struct {
	ShiftID   engine.ShiftID
	WorkerID  engine.WorkerID
	ExpiresAt time.Time
}

// BulkOffer applies OfferShift to each pair independently. A failure on
// one pair never rolls back another.
func (s *Service) BulkOffer(ctx context.Context, requests []OfferRequest, offeredBy string) []BulkResult {
	results := make([]BulkResult, len(requests))
	for i, r := range requests {
		offer, err := s.OfferShift(ctx, r.ShiftID, r.WorkerID, r.ExpiresAt, offeredBy)
		results[i] = BulkResult{ShiftID: r.ShiftID, WorkerID: r.WorkerID, Offer: offer, Err: err}
	}
	return results
}

// AssignRequest is one (shift, worker) pair in a bulk direct assignment.
type AssignRequest struct {
	ShiftID  engine.ShiftID
	WorkerID engine.WorkerID
}

// BulkAssign staffs each shift directly, skipping the offer workflow.
// The same availability and staffing rules apply per pair.
func (s *Service) BulkAssign(ctx context.Context, requests []AssignRequest) []BulkResult {
	results := make([]BulkResult, len(requests))
	for i, r := range requests {
		results[i] = BulkResult{ShiftID: r.ShiftID, WorkerID: r.WorkerID}
		results[i].Err = s.assignWorker(ctx, r.ShiftID, r.WorkerID)
	}
	return results
}

func (s *Service) assignWorker(ctx context.Context, shiftID engine.ShiftID, worker engine.WorkerID) error {
	sh, err := s.Shifts.Get(ctx, shiftID)
	if err != nil {
		return err
	}
	if sh.Status != StatusScheduled {
		return &engine.PreconditionError{
			Entity: "shift", ID: string(shiftID), State: string(sh.Status),
			Message: "only scheduled shifts can be assigned",
		}
	}
	if sh.IsStaffed() {
		return &engine.PreconditionError{
			Entity: "shift", ID: string(shiftID), State: string(sh.Status),
			Message: "shift is already staffed",
		}
	}

	ok, err := s.Availability.IsAvailable(ctx, worker, sh.Window.Start, sh.Window.End)
	if err != nil {
		return err
	}
	if !ok {
		return &engine.ValidationError{
			Rule:    "availability",
			Message: fmt.Sprintf("worker %s is not available for the shift window", worker),
		}
	}

	sh.WorkerID = &worker
	sh.UpdatedAt = s.Clock.Now()
	if err := s.Shifts.Save(ctx, sh); err != nil {
		return err
	}
	s.Events.Publish(ctx, engine.EventShiftAssigned, map[string]any{
		"shift_id": shiftID, "worker_id": worker,
	})
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// supersedeSiblings expires every other pending offer on the accepted
// offer's shift. The accept has already committed, so failures here are
// logged and swallowed.
func (s *Service) supersedeSiblings(ctx context.Context, accepted *Offer, now time.Time) {
	siblings, err := s.Offers.ListByShift(ctx, accepted.ShiftID)
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).WithField("shift_id", accepted.ShiftID).
				Warn("failed to list sibling offers for supersession")
		}
		return
	}
	for _, sib := range siblings {
		if sib.ID == accepted.ID || sib.Status != OfferPending {
			continue
		}
		sib.Status = OfferExpired
		sib.UpdatedAt = now
		if err := s.Offers.Save(ctx, sib); err != nil {
			if s.Log != nil {
				s.Log.WithError(err).WithField("offer_id", sib.ID).
					Warn("failed to supersede sibling offer")
			}
			continue
		}
		s.Events.Publish(ctx, engine.EventOfferExpired, map[string]any{
			"offer_id": sib.ID, "superseded_by": accepted.ID,
		})
	}
}
