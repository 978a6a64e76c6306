package shift_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/shift"
	"github.com/warp/staffing-engine/store/memory"
)

const (
	employerA = engine.EmployerID("employer-a")
	agencyX   = engine.AgencyID("agency-x")
	workerW   = engine.WorkerID("worker-w")
	workerV   = engine.WorkerID("worker-v")
)

type fixture struct {
	store *memory.Store
	clock *engine.FixedClock
	svc   *shift.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	clock := engine.NewFixedClock(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	for _, w := range []engine.WorkerID{workerW, workerV} {
		st.Availability.AddWindow(availability.Window{
			ID:       "win-" + string(w),
			WorkerID: w,
			Valid:    engine.OpenDateRange(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			Days:     engine.AllWeekdays,
			DayStart: engine.NewTimeOfDay(0, 0),
			DayEnd:   engine.NewTimeOfDay(23, 59),
		})
	}
	return &fixture{
		store: st,
		clock: clock,
		svc: &shift.Service{
			Shifts:       st.Shifts,
			Offers:       st.Offers,
			Availability: st.Checker(),
			Events:       engine.NopPublisher{},
			Clock:        clock,
		},
	}
}

func (f *fixture) seedShift(t *testing.T, worker *engine.WorkerID) *shift.Shift {
	t.Helper()
	sh := &shift.Shift{
		ID:         "shift-1",
		EmployerID: employerA,
		AgencyID:   agencyX,
		WorkerID:   worker,
		LocationID: "loc-1",
		Window: engine.TimeWindow{
			Start: time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 9, 17, 0, 0, 0, time.UTC),
		},
		HourlyRate: engine.MustRate("18.00"),
		Status:     shift.StatusScheduled,
	}
	require.NoError(t, f.store.Shifts.Save(context.Background(), sh))
	return sh
}

func (f *fixture) expiry() time.Time { return f.clock.Now().Add(48 * time.Hour) }

func TestOfferShift(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending offer for an available candidate", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)

		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)
		assert.Equal(t, shift.OfferPending, offer.Status)
		assert.Equal(t, workerW, offer.WorkerID)
	})

	t.Run("staffed shift cannot be offered", func(t *testing.T) {
		f := newFixture(t)
		w := workerV
		f.seedShift(t, &w)

		_, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("duplicate actionable offer to the same candidate is refused", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)
		_, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		_, err = f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("unavailable candidate fails the availability rule", func(t *testing.T) {
		// GIVEN the candidate has approved time off over the shift date
		f := newFixture(t)
		f.seedShift(t, nil)
		end := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
		f.store.Availability.AddTimeOff(workerW, engine.DateRange{
			Start: time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
			End:   &end,
		})

		// WHEN the shift is offered to them
		_, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")

		// THEN the offer is refused with the availability rule
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "availability", verr.Rule)
	})

	t.Run("second offer to a different candidate is allowed", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)
		_, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		_, err = f.svc.OfferShift(ctx, "shift-1", workerV, f.expiry(), "dispatcher-1")
		assert.NoError(t, err)
	})
}

func TestRespondToOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("accept staffs the shift and supersedes siblings", func(t *testing.T) {
		// GIVEN two pending offers on one shift
		f := newFixture(t)
		f.seedShift(t, nil)
		first, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)
		second, err := f.svc.OfferShift(ctx, "shift-1", workerV, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		// WHEN the first candidate accepts
		accepted, err := f.svc.RespondToOffer(ctx, first.ID, true, "")
		require.NoError(t, err)
		assert.Equal(t, shift.OfferAccepted, accepted.Status)
		require.NotNil(t, accepted.RespondedAt)

		// THEN the shift is staffed by them
		sh, err := f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		require.NotNil(t, sh.WorkerID)
		assert.Equal(t, workerW, *sh.WorkerID)

		// AND the sibling offer is expired
		sibling, err := f.store.Offers.Get(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, shift.OfferExpired, sibling.Status)
	})

	t.Run("reject leaves the shift open", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		rejected, err := f.svc.RespondToOffer(ctx, offer.ID, false, "schedule clash")
		require.NoError(t, err)
		assert.Equal(t, shift.OfferRejected, rejected.Status)
		require.NotNil(t, rejected.RespondedAt)
		assert.Equal(t, "schedule clash", rejected.Notes)

		sh, err := f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		assert.False(t, sh.IsStaffed())
	})

	t.Run("response past expiry expires the offer on touch", func(t *testing.T) {
		// GIVEN a pending offer whose deadline has passed
		f := newFixture(t)
		f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)
		f.clock.Advance(72 * time.Hour)

		// WHEN the candidate tries to accept
		_, err = f.svc.RespondToOffer(ctx, offer.ID, true, "")

		// THEN the response fails and the offer is persisted as expired
		var eerr *engine.OfferExpiredError
		require.ErrorAs(t, err, &eerr)
		assert.True(t, engine.IsPrecondition(err))

		stored, err := f.store.Offers.Get(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, shift.OfferExpired, stored.Status)
		assert.Nil(t, stored.RespondedAt)
	})

	t.Run("accept of a concurrently staffed shift conflicts", func(t *testing.T) {
		// GIVEN an offer whose shift got staffed through another path
		f := newFixture(t)
		f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		sh, err := f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		v := workerV
		sh.WorkerID = &v
		require.NoError(t, f.store.Shifts.Save(ctx, sh))

		// WHEN the candidate accepts
		_, err = f.svc.RespondToOffer(ctx, offer.ID, true, "")

		// THEN the accept loses with a conflict, the staffing stands
		assert.True(t, engine.IsConflict(err))
		sh, err = f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		assert.Equal(t, workerV, *sh.WorkerID)
	})

	t.Run("accept on a cancelled shift is refused", func(t *testing.T) {
		// GIVEN a pending offer whose shift was cancelled afterwards
		f := newFixture(t)
		sh := f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		require.NoError(t, sh.Transition(shift.StatusCancelled, f.clock.Now()))
		require.NoError(t, f.store.Shifts.Save(ctx, sh))

		// WHEN the candidate accepts
		_, err = f.svc.RespondToOffer(ctx, offer.ID, true, "")

		// THEN the accept is refused and the shift stays unstaffed
		assert.True(t, engine.IsPrecondition(err))
		sh, err = f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		assert.False(t, sh.IsStaffed())
		assert.Equal(t, shift.StatusCancelled, sh.Status)
	})

	t.Run("responded offers cannot be responded to again", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)
		_, err = f.svc.RespondToOffer(ctx, offer.ID, false, "")
		require.NoError(t, err)

		_, err = f.svc.RespondToOffer(ctx, offer.ID, true, "")
		assert.True(t, engine.IsPrecondition(err))
	})
}

func TestExpireOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("expires once, refuses a second expiry", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)
		offer, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		expired, err := f.svc.ExpireOffer(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, shift.OfferExpired, expired.Status)
		assert.Nil(t, expired.RespondedAt)

		_, err = f.svc.ExpireOffer(ctx, offer.ID)
		assert.True(t, engine.IsPrecondition(err))

		stored, err := f.store.Offers.Get(ctx, offer.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.RespondedAt)
	})
}

func TestSweepExpiredOffers(t *testing.T) {
	ctx := context.Background()

	t.Run("expires only offers past their deadline", func(t *testing.T) {
		// GIVEN one offer expiring in 1h and one in 48h
		f := newFixture(t)
		f.seedShift(t, nil)
		soon, err := f.svc.OfferShift(ctx, "shift-1", workerW, f.clock.Now().Add(time.Hour), "dispatcher-1")
		require.NoError(t, err)
		later, err := f.svc.OfferShift(ctx, "shift-1", workerV, f.expiry(), "dispatcher-1")
		require.NoError(t, err)

		// WHEN the sweep runs 2h later
		f.clock.Advance(2 * time.Hour)
		n, err := f.svc.SweepExpiredOffers(ctx)
		require.NoError(t, err)

		// THEN only the first offer expired
		assert.Equal(t, 1, n)
		o1, _ := f.store.Offers.Get(ctx, soon.ID)
		o2, _ := f.store.Offers.Get(ctx, later.ID)
		assert.Equal(t, shift.OfferExpired, o1.Status)
		assert.Equal(t, shift.OfferPending, o2.Status)
	})
}

func TestBulkOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("bulk offer isolates failures per pair", func(t *testing.T) {
		// GIVEN one open shift and one missing shift
		f := newFixture(t)
		f.seedShift(t, nil)

		results := f.svc.BulkOffer(ctx, []shift.OfferRequest{
			{ShiftID: "shift-1", WorkerID: workerW, ExpiresAt: f.expiry()},
			{ShiftID: "shift-missing", WorkerID: workerV, ExpiresAt: f.expiry()},
		}, "dispatcher-1")

		require.Len(t, results, 2)
		assert.NoError(t, results[0].Err)
		assert.NotNil(t, results[0].Offer)
		assert.True(t, engine.IsNotFound(results[1].Err))
	})

	t.Run("bulk assign staffs directly", func(t *testing.T) {
		f := newFixture(t)
		f.seedShift(t, nil)

		results := f.svc.BulkAssign(ctx, []shift.AssignRequest{
			{ShiftID: "shift-1", WorkerID: workerW},
		})
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)

		sh, err := f.store.Shifts.Get(ctx, "shift-1")
		require.NoError(t, err)
		assert.Equal(t, workerW, *sh.WorkerID)
	})

	t.Run("bulk assign refuses a staffed shift", func(t *testing.T) {
		f := newFixture(t)
		w := workerV
		f.seedShift(t, &w)

		results := f.svc.BulkAssign(ctx, []shift.AssignRequest{
			{ShiftID: "shift-1", WorkerID: workerW},
		})
		assert.True(t, engine.IsPrecondition(results[0].Err))
	})
}

func TestShiftTransitions(t *testing.T) {
	now := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)

	t.Run("scheduled through in_progress to completed", func(t *testing.T) {
		sh := &shift.Shift{ID: "s", Status: shift.StatusScheduled}
		require.NoError(t, sh.Transition(shift.StatusInProgress, now))
		require.NoError(t, sh.Transition(shift.StatusCompleted, now))
		assert.Equal(t, shift.StatusCompleted, sh.Status)
	})

	t.Run("scheduled cannot complete directly", func(t *testing.T) {
		sh := &shift.Shift{ID: "s", Status: shift.StatusScheduled}
		err := sh.Transition(shift.StatusCompleted, now)
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("no_show and cancelled do not block the calendar", func(t *testing.T) {
		assert.False(t, shift.StatusNoShow.Conflicting())
		assert.False(t, shift.StatusCancelled.Conflicting())
		assert.True(t, shift.StatusScheduled.Conflicting())
		assert.True(t, shift.StatusInProgress.Conflicting())
	})
}
