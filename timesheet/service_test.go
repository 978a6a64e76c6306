package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/store/memory"
	"github.com/warp/staffing-engine/timesheet"
)

const (
	shiftOne = engine.ShiftID("shift-1")
	workerW  = engine.WorkerID("worker-w")
)

var (
	agencyAgent = engine.AgencyAgent{
		ID: "agent-1", AgencyID: "agency-x", TimesheetApproval: true,
	}
	employerContact = engine.EmployerContact{
		ID: "contact-1", EmployerID: "employer-a", TimesheetApproval: true,
	}
	powerlessAgent = engine.AgencyAgent{
		ID: "agent-2", AgencyID: "agency-x", TimesheetApproval: false,
	}
)

type fixture struct {
	store *memory.Store
	clock *engine.FixedClock
	svc   *timesheet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	clock := engine.NewFixedClock(time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC))
	return &fixture{
		store: st,
		clock: clock,
		svc: &timesheet.Service{
			Timesheets: st.Timesheets,
			Events:     engine.NopPublisher{},
			Clock:      clock,
		},
	}
}

// seedClockedOut runs a full 9:00-17:30 day with a 30 minute break.
func (f *fixture) seedClockedOut(t *testing.T) *timesheet.Timesheet {
	t.Helper()
	ts, err := f.svc.ClockIn(context.Background(), shiftOne, workerW)
	require.NoError(t, err)
	f.clock.Advance(8*time.Hour + 30*time.Minute)
	ts, err = f.svc.ClockOut(context.Background(), ts.ID, 30)
	require.NoError(t, err)
	return ts
}

func TestClocking(t *testing.T) {
	ctx := context.Background()

	t.Run("clock in then out computes hours net of break", func(t *testing.T) {
		// GIVEN a worker clocked in at 09:00
		f := newFixture(t)
		ts, err := f.svc.ClockIn(ctx, shiftOne, workerW)
		require.NoError(t, err)
		assert.Equal(t, timesheet.StatusPending, ts.Status)
		require.NotNil(t, ts.ClockIn)

		// WHEN they clock out at 17:30 with a 30 minute break
		f.clock.Advance(8*time.Hour + 30*time.Minute)
		ts, err = f.svc.ClockOut(ctx, ts.ID, 30)
		require.NoError(t, err)

		// THEN hours worked is 8
		assert.Equal(t, "8", ts.HoursWorked.String())
		require.NotNil(t, ts.ClockOut)
	})

	t.Run("one timesheet per shift", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ClockIn(ctx, shiftOne, workerW)
		require.NoError(t, err)

		_, err = f.svc.ClockIn(ctx, shiftOne, workerW)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("double clock out is refused", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)

		_, err := f.svc.ClockOut(ctx, ts.ID, 0)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("negative hours are a validation error, never clamped", func(t *testing.T) {
		// GIVEN a 1 hour shift
		f := newFixture(t)
		ts, err := f.svc.ClockIn(ctx, shiftOne, workerW)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		// WHEN the claimed break exceeds the worked time
		_, err = f.svc.ClockOut(ctx, ts.ID, 90)

		// THEN the clock data is rejected
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "clock_data", verr.Rule)
	})

	t.Run("manual correction only while pending", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)

		in := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
		out := time.Date(2025, 6, 9, 16, 0, 0, 0, time.UTC)
		ts, err := f.svc.RecordClocks(ctx, ts.ID, in, out, 0)
		require.NoError(t, err)
		assert.Equal(t, "8", ts.HoursWorked.String())

		_, err = f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		require.NoError(t, err)
		_, err = f.svc.RecordClocks(ctx, ts.ID, in, out, 30)
		assert.True(t, engine.IsPrecondition(err))
	})
}

func TestApprovalChain(t *testing.T) {
	ctx := context.Background()

	t.Run("agency then employer approval reaches billing eligibility", func(t *testing.T) {
		// GIVEN a clocked-out pending timesheet
		f := newFixture(t)
		ts := f.seedClockedOut(t)
		assert.False(t, ts.BillingEligible())

		// WHEN both stages sign off in order
		ts, err := f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		require.NoError(t, err)
		assert.Equal(t, timesheet.StatusAgencyApproved, ts.Status)
		require.NotNil(t, ts.AgencyApproverID)
		assert.Equal(t, "agent-1", *ts.AgencyApproverID)
		require.NotNil(t, ts.AgencyApprovedAt)

		ts, err = f.svc.ApproveEmployer(ctx, ts.ID, employerContact)
		require.NoError(t, err)

		// THEN both stamps are independent and billing is unlocked
		assert.Equal(t, timesheet.StatusEmployerApproved, ts.Status)
		require.NotNil(t, ts.EmployerApproverID)
		assert.Equal(t, "contact-1", *ts.EmployerApproverID)
		assert.Equal(t, "agent-1", *ts.AgencyApproverID)
		assert.True(t, ts.BillingEligible())
	})

	t.Run("employer cannot approve before the agency", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)

		_, err := f.svc.ApproveEmployer(ctx, ts.ID, employerContact)
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("approval requires a clock-out", func(t *testing.T) {
		f := newFixture(t)
		ts, err := f.svc.ClockIn(ctx, shiftOne, workerW)
		require.NoError(t, err)

		_, err = f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		assert.True(t, engine.IsPrecondition(err))
	})

	t.Run("actor without the capability cannot approve", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)

		_, err := f.svc.ApproveAgency(ctx, ts.ID, powerlessAgent)
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "approver_capability", verr.Rule)
	})

	t.Run("double agency approval is refused", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)
		_, err := f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		require.NoError(t, err)

		_, err = f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
	})
}

func TestRejectAndDispute(t *testing.T) {
	ctx := context.Background()

	t.Run("pending timesheet can be rejected with a reason", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)

		ts, err := f.svc.Reject(ctx, ts.ID, agencyAgent, "hours do not match the roster")
		require.NoError(t, err)
		assert.Equal(t, timesheet.StatusRejected, ts.Status)
		require.NotNil(t, ts.RejectionReason)
		assert.Equal(t, "hours do not match the roster", *ts.RejectionReason)
	})

	t.Run("agency approved timesheet can still be disputed", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)
		_, err := f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		require.NoError(t, err)

		ts, err = f.svc.Dispute(ctx, ts.ID, "contact-1", "break not recorded")
		require.NoError(t, err)
		assert.Equal(t, timesheet.StatusDisputed, ts.Status)
	})

	t.Run("fully approved timesheet is immutable", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)
		_, err := f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		require.NoError(t, err)
		_, err = f.svc.ApproveEmployer(ctx, ts.ID, employerContact)
		require.NoError(t, err)

		_, err = f.svc.Dispute(ctx, ts.ID, "contact-1", "late")
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("rejected timesheet cannot be approved", func(t *testing.T) {
		f := newFixture(t)
		ts := f.seedClockedOut(t)
		_, err := f.svc.Reject(ctx, ts.ID, agencyAgent, "duplicate entry")
		require.NoError(t, err)

		_, err = f.svc.ApproveAgency(ctx, ts.ID, agencyAgent)
		var terr *engine.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
	})
}

func TestComputeHours(t *testing.T) {
	in := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)

	t.Run("subtracts break minutes", func(t *testing.T) {
		hours, err := timesheet.ComputeHours(in, in.Add(8*time.Hour), 60)
		require.NoError(t, err)
		assert.Equal(t, "7", hours.String())
	})

	t.Run("zero-length shift with no break is zero hours", func(t *testing.T) {
		hours, err := timesheet.ComputeHours(in, in, 0)
		require.NoError(t, err)
		assert.True(t, hours.IsZero())
	})

	t.Run("negative break is refused", func(t *testing.T) {
		_, err := timesheet.ComputeHours(in, in.Add(8*time.Hour), -15)
		var verr *engine.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "clock_data", verr.Rule)
	})
}
