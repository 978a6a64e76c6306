package negotiation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
	"github.com/warp/staffing-engine/store/memory"
)

const (
	employerA = engine.EmployerID("employer-a")
	agencyX   = engine.AgencyID("agency-x")
	agencyY   = engine.AgencyID("agency-y")
	workerW   = engine.WorkerID("worker-w")
)

type fixture struct {
	store *memory.Store
	clock *engine.FixedClock
	svc   *negotiation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	clock := engine.NewFixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	st.Contracts.SetActive(employerA, agencyX, true)
	return &fixture{
		store: st,
		clock: clock,
		svc: &negotiation.Service{
			Contracts:          st.Contracts,
			Requests:           st.Requests,
			Responses:          st.Responses,
			Placements:         st.Placements,
			PlacementResponses: st.PlacementResponses,
			Availability:       st.Checker(),
			Events:             engine.NopPublisher{},
			Clock:              clock,
		},
	}
}

func (f *fixture) seedRequest(t *testing.T, status negotiation.RequestStatus, positions int) *negotiation.ShiftRequest {
	t.Helper()
	req := &negotiation.ShiftRequest{
		ID:               "req-1",
		EmployerID:       employerA,
		LocationID:       "loc-1",
		Role:             "nurse",
		Dates:            engine.DateRange{Start: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
		MaxHourlyRate:    engine.MustRate("20.00"),
		ResponseDeadline: f.clock.Now().Add(72 * time.Hour),
		PositionsNeeded:  positions,
		Status:           status,
	}
	require.NoError(t, f.store.Requests.Save(context.Background(), req))
	return req
}

func submitInput(rate string) negotiation.SubmitResponseInput {
	return negotiation.SubmitResponseInput{
		RequestID: "req-1",
		AgencyID:  agencyX,
		Terms: negotiation.ProposedTerms{
			Rate:  engine.MustRate(rate),
			Dates: engine.DateRange{Start: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestSubmitResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a pending response within the ceiling", func(t *testing.T) {
		// GIVEN a published request with a $20 ceiling
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)

		// WHEN the agency proposes $18.50
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.50"))

		// THEN the response is persisted as pending
		require.NoError(t, err)
		assert.Equal(t, negotiation.ResponsePending, resp.Status)
		assert.NotEmpty(t, resp.ID)

		stored, err := f.store.Responses.Get(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, negotiation.ResponsePending, stored.Status)
	})

	t.Run("rejects a rate above the ceiling", func(t *testing.T) {
		// GIVEN a published request with a $20 ceiling
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)

		// WHEN the agency proposes $22
		_, err := f.svc.SubmitResponse(ctx, submitInput("22.00"))

		// THEN submission fails validation, nothing silently clamped
		require.Error(t, err)
		assert.True(t, engine.IsValidation(err))
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rate_ceiling", verr.Rule)
	})

	t.Run("rejects an agency without an active contract", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)

		input := submitInput("18.00")
		input.AgencyID = agencyY

		_, err := f.svc.SubmitResponse(ctx, input)
		require.Error(t, err)
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "contract_active", verr.Rule)
	})

	t.Run("rejects an agency outside the target list", func(t *testing.T) {
		f := newFixture(t)
		req := f.seedRequest(t, negotiation.RequestPublished, 1)
		req.TargetAgencies = []engine.AgencyID{agencyY}
		require.NoError(t, f.store.Requests.Save(ctx, req))

		_, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "agency_targeting", verr.Rule)
	})

	t.Run("rejects submission after the deadline", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		f.clock.Advance(100 * time.Hour)

		_, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.Error(t, err)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("rejects submission to a draft request", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestDraft, 1)

		_, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		assert.True(t, engine.IsPrecondition(err))
	})
}

func TestResponseDecisions(t *testing.T) {
	ctx := context.Background()

	t.Run("accepting the last needed response fills the request", func(t *testing.T) {
		// GIVEN a published request needing one position with a pending response
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		// WHEN the employer accepts it
		accepted, err := f.svc.Accept(ctx, resp.ID, "manager-1")
		require.NoError(t, err)

		// THEN the response carries the decision stamp and the request fills
		assert.Equal(t, negotiation.ResponseAccepted, accepted.Status)
		require.NotNil(t, accepted.DecidedBy)
		assert.Equal(t, "manager-1", *accepted.DecidedBy)

		req, err := f.store.Requests.Get(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, negotiation.RequestFilled, req.Status)
	})

	t.Run("partial fill moves the request to in_progress", func(t *testing.T) {
		// GIVEN a request needing two positions
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 2)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		// WHEN one response is accepted
		_, err = f.svc.Accept(ctx, resp.ID, "manager-1")
		require.NoError(t, err)

		// THEN the request is in progress, not filled
		req, err := f.store.Requests.Get(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, negotiation.RequestInProgress, req.Status)
	})

	t.Run("a rejected response cannot be accepted afterwards", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, resp.ID, "manager-1", "rate too high for budget")
		require.NoError(t, err)

		_, err = f.svc.Accept(ctx, resp.ID, "manager-1")
		require.Error(t, err)
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("reject stores the reason", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		rejected, err := f.svc.Reject(ctx, resp.ID, "manager-1", "position filled internally")
		require.NoError(t, err)
		require.NotNil(t, rejected.RejectionReason)
		assert.Equal(t, "position filled internally", *rejected.RejectionReason)
	})

	t.Run("agency can withdraw a pending response", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		withdrawn, err := f.svc.Withdraw(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, negotiation.ResponseWithdrawn, withdrawn.Status)
	})
}

func TestCounterOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites terms and stays actionable", func(t *testing.T) {
		// GIVEN a pending response at $18
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		// WHEN the agency counters at $19.50
		countered, err := f.svc.CounterOffer(ctx, resp.ID, negotiation.ProposedTerms{
			Rate:  engine.MustRate("19.50"),
			Dates: resp.Terms.Dates,
		})
		require.NoError(t, err)
		assert.Equal(t, negotiation.ResponseCounterOffered, countered.Status)
		assert.True(t, countered.Terms.Rate.Equal(engine.MustRate("19.50")))

		// THEN the countered response can still be accepted
		accepted, err := f.svc.Accept(ctx, resp.ID, "manager-1")
		require.NoError(t, err)
		assert.Equal(t, negotiation.ResponseAccepted, accepted.Status)
	})

	t.Run("counter above the ceiling is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		_, err = f.svc.CounterOffer(ctx, resp.ID, negotiation.ProposedTerms{
			Rate: engine.MustRate("25.00"),
		})
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rate_ceiling", verr.Rule)
	})

	t.Run("cannot counter twice", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		_, err = f.svc.CounterOffer(ctx, resp.ID, negotiation.ProposedTerms{Rate: engine.MustRate("19.00")})
		require.NoError(t, err)
		_, err = f.svc.CounterOffer(ctx, resp.ID, negotiation.ProposedTerms{Rate: engine.MustRate("19.50")})
		assert.True(t, engine.IsPrecondition(err))
	})
}

func TestIsValidForAssignment(t *testing.T) {
	ctx := context.Background()

	seedAccepted := func(t *testing.T, f *fixture, worker *engine.WorkerID) *negotiation.AgencyResponse {
		t.Helper()
		f.seedRequest(t, negotiation.RequestPublished, 1)
		input := submitInput("18.00")
		input.Terms.Worker = worker
		resp, err := f.svc.SubmitResponse(ctx, input)
		require.NoError(t, err)
		accepted, err := f.svc.Accept(ctx, resp.ID, "manager-1")
		require.NoError(t, err)
		return accepted
	}

	t.Run("accepted response with available worker is valid", func(t *testing.T) {
		f := newFixture(t)
		f.store.Availability.AddWindow(availability.Window{
			ID:       "win-1",
			WorkerID: workerW,
			Valid:    engine.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			Days:     engine.AllWeekdays,
			DayStart: engine.NewTimeOfDay(0, 0),
			DayEnd:   engine.NewTimeOfDay(23, 59),
		})
		w := workerW
		resp := seedAccepted(t, f, &w)

		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("multi-day engagement with an available worker is valid", func(t *testing.T) {
		// GIVEN a worker declared available all week
		f := newFixture(t)
		f.store.Availability.AddWindow(availability.Window{
			ID:       "win-1",
			WorkerID: workerW,
			Valid:    engine.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			Days:     engine.AllWeekdays,
			DayStart: engine.NewTimeOfDay(0, 0),
			DayEnd:   engine.NewTimeOfDay(23, 59),
		})

		// WHEN the accepted terms span several weeks
		f.seedRequest(t, negotiation.RequestPublished, 1)
		input := submitInput("18.00")
		w := workerW
		input.Terms.Worker = &w
		input.Terms.Dates = engine.ClosedDateRange(
			time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC))
		resp, err := f.svc.SubmitResponse(ctx, input)
		require.NoError(t, err)
		resp, err = f.svc.Accept(ctx, resp.ID, "manager-1")
		require.NoError(t, err)

		// THEN the declared window satisfies the gate
		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("pending response is not valid", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(t, negotiation.RequestPublished, 1)
		resp, err := f.svc.SubmitResponse(ctx, submitInput("18.00"))
		require.NoError(t, err)

		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("already converted response is not valid", func(t *testing.T) {
		f := newFixture(t)
		resp := seedAccepted(t, f, nil)
		aid := engine.AssignmentID("asg-1")
		resp.AssignmentID = &aid
		require.NoError(t, f.store.Responses.Save(ctx, resp))

		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lapsed contract invalidates conversion", func(t *testing.T) {
		f := newFixture(t)
		resp := seedAccepted(t, f, nil)
		f.store.Contracts.SetActive(employerA, agencyX, false)

		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("worker on time off invalidates conversion", func(t *testing.T) {
		f := newFixture(t)
		f.store.Availability.AddWindow(availability.Window{
			ID:       "win-1",
			WorkerID: workerW,
			Valid:    engine.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			Days:     engine.AllWeekdays,
			DayStart: engine.NewTimeOfDay(0, 0),
			DayEnd:   engine.NewTimeOfDay(23, 59),
		})
		f.store.Availability.AddTimeOff(workerW, engine.DateRange{
			Start: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
			End:   timePtr(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)),
		})
		w := workerW
		resp := seedAccepted(t, f, &w)

		ok, err := f.svc.IsValidForAssignment(ctx, resp.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPlacementResponses(t *testing.T) {
	ctx := context.Background()

	seedPlacement := func(t *testing.T, f *fixture, status negotiation.PlacementStatus) *negotiation.Placement {
		t.Helper()
		p := &negotiation.Placement{
			ID:            "pl-1",
			EmployerID:    employerA,
			LocationID:    "loc-1",
			Role:          "chef",
			Dates:         engine.DateRange{Start: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
			Recurrence:    negotiation.RecurWeekly,
			Weekday:       time.Monday,
			DayStart:      engine.NewTimeOfDay(9, 0),
			DayEnd:        engine.NewTimeOfDay(17, 0),
			BudgetType:    negotiation.BudgetHourly,
			BudgetAmount:  engine.MustRate("25.00"),
			MaxHourlyRate: engine.MustRate("25.00"),
			Status:        status,
		}
		require.NoError(t, f.store.Placements.Save(ctx, p))
		return p
	}

	t.Run("accepting a placement response fills the placement", func(t *testing.T) {
		// GIVEN an active placement and a pending response naming a worker
		f := newFixture(t)
		seedPlacement(t, f, negotiation.PlacementActive)
		w := workerW
		resp, err := f.svc.SubmitPlacementResponse(ctx, negotiation.SubmitPlacementResponseInput{
			PlacementID: "pl-1",
			AgencyID:    agencyX,
			Terms: negotiation.ProposedTerms{
				Rate:   engine.MustRate("24.00"),
				Worker: &w,
			},
		})
		require.NoError(t, err)

		// WHEN the employer accepts
		_, err = f.svc.AcceptPlacementResponse(ctx, resp.ID, "manager-1")
		require.NoError(t, err)

		// THEN the placement records the selected agency and worker
		p, err := f.store.Placements.Get(ctx, "pl-1")
		require.NoError(t, err)
		assert.Equal(t, negotiation.PlacementFilled, p.Status)
		require.NotNil(t, p.SelectedAgency)
		assert.Equal(t, agencyX, *p.SelectedAgency)
		require.NotNil(t, p.SelectedEmployee)
		assert.Equal(t, workerW, *p.SelectedEmployee)
	})

	t.Run("draft placement does not accept responses", func(t *testing.T) {
		f := newFixture(t)
		seedPlacement(t, f, negotiation.PlacementDraft)

		_, err := f.svc.SubmitPlacementResponse(ctx, negotiation.SubmitPlacementResponseInput{
			PlacementID: "pl-1",
			AgencyID:    agencyX,
			Terms:       negotiation.ProposedTerms{Rate: engine.MustRate("24.00")},
		})
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("placement ceiling applies like the request ceiling", func(t *testing.T) {
		f := newFixture(t)
		seedPlacement(t, f, negotiation.PlacementActive)

		_, err := f.svc.SubmitPlacementResponse(ctx, negotiation.SubmitPlacementResponseInput{
			PlacementID: "pl-1",
			AgencyID:    agencyX,
			Terms:       negotiation.ProposedTerms{Rate: engine.MustRate("30.00")},
		})
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rate_ceiling", verr.Rule)
	})
}

func TestAssignmentResponsePipeline(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("submitted must be reviewed before a decision", func(t *testing.T) {
		r := &negotiation.AgencyAssignmentResponse{
			ID:       "ar-1",
			AgencyID: agencyX,
			Status:   negotiation.AssignmentResponseSubmitted,
			Terms:    negotiation.ProposedTerms{Rate: engine.MustRate("18.00")},
		}

		err := r.Decide(true, "manager-1", now)
		assert.True(t, engine.IsPrecondition(err))

		require.NoError(t, r.MarkReviewed(now))
		require.NoError(t, r.Decide(true, "manager-1", now))
		assert.Equal(t, negotiation.AssignmentResponseAccepted, r.Status)
		require.NotNil(t, r.DecidedBy)
		assert.Equal(t, "manager-1", *r.DecidedBy)
	})

	t.Run("a decided response is terminal", func(t *testing.T) {
		r := &negotiation.AgencyAssignmentResponse{
			ID:     "ar-2",
			Status: negotiation.AssignmentResponseReviewed,
		}
		require.NoError(t, r.Decide(false, "manager-1", now))
		assert.Equal(t, negotiation.AssignmentResponseRejected, r.Status)

		err := r.Decide(true, "manager-1", now)
		assert.True(t, engine.IsPrecondition(err))
	})
}

func timePtr(t time.Time) *time.Time { return &t }
