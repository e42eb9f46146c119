package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

var (
	shiftStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	shiftEnd   = time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)

	siteLat = -6.2000
	siteLon = 106.8000
)

func testSite() *schedule.JobSite {
	return &schedule.JobSite{
		ID:           "site-1",
		CompanyID:    "company-1",
		Name:         "HQ",
		Latitude:     siteLat,
		Longitude:    siteLon,
		RadiusMeters: 100,
	}
}

func testInputs() Inputs {
	return Inputs{
		Policy: policy.DefaultSettings("company-1"),
		Site:   testSite(),
	}
}

func testSession(status session.SessionStatus) session.ScheduleSession {
	return session.ScheduleSession{
		ID:             "sess-1",
		ScheduleID:     "sched-1",
		EmployeeID:     "emp-1",
		CompanyID:      "company-1",
		JobSiteID:      "site-1",
		ScheduledStart: shiftStart,
		ScheduledEnd:   shiftEnd,
		Status:         status,
		PriorStatus:    status,
	}
}

func insideSample(id string, ts time.Time) session.LocationSample {
	return session.LocationSample{
		ID: id, Latitude: siteLat, Longitude: siteLon, AccuracyMeters: 10, Timestamp: ts,
	}
}

// Roughly 2km east of the site.
func outsideSample(id string, ts time.Time) session.LocationSample {
	return session.LocationSample{
		ID: id, Latitude: siteLat, Longitude: siteLon + 0.018, AccuracyMeters: 10, Timestamp: ts,
	}
}

func clockedInSession(t *testing.T, at time.Time) session.ScheduleSession {
	t.Helper()
	s := testSession(session.StatusMonitoringActive)
	lat, lon := siteLat, siteLon
	next, events, err := Apply(s, session.ManualAction{
		ID: "clock-in", Kind: session.ActionClockIn, ActorID: "emp-1",
		Latitude: &lat, Longitude: &lon, Timestamp: at,
	}, testInputs())
	require.NoError(t, err)
	require.Len(t, events, 1)
	return next
}

func TestAutoClockInInsideGeofence(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	ts := shiftStart.Add(-2 * time.Minute)

	next, events, err := Apply(s, insideSample("loc-1", ts), testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusClockedIn, next.Status)
	assert.True(t, next.ClockedIn)
	assert.True(t, next.AutoClockIn)
	require.NotNil(t, next.ClockInAt)
	assert.True(t, next.ClockInAt.Equal(ts))
	require.Len(t, events, 1)
	assert.Equal(t, session.EventClockIn, events[0].Type)
	assert.Equal(t, "system", events[0].Actor)
}

func TestArrivalBeforeEarlyWindowDoesNotClockIn(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	ts := shiftStart.Add(-30 * time.Minute) // before the 15-minute early window

	next, events, err := Apply(s, insideSample("loc-1", ts), testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusMonitoringActive, next.Status)
	assert.False(t, next.ClockedIn)
	assert.True(t, next.EmployeePresent)
	require.NotNil(t, next.ArrivalAt)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventArrival, events[0].Type)
}

func TestGeofenceExitOpensBreakAndReturnClosesIt(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	exitAt := shiftStart.Add(3 * time.Hour)
	next, events, err := Apply(s, outsideSample("loc-exit", exitAt), testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusOnBreak, next.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventBreakStart, events[0].Type)
	ob := next.OpenBreak()
	require.NotNil(t, ob)
	assert.Equal(t, session.BreakGeofenceExit, ob.Type)

	returnAt := exitAt.Add(5 * time.Minute)
	next, events, err = Apply(next, insideSample("loc-return", returnAt), testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusClockedIn, next.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventBreakEnd, events[0].Type)
	require.Len(t, next.Breaks, 1)
	assert.Equal(t, 5, next.Breaks[0].DurationMinutes)
	assert.Nil(t, next.OpenBreak())
}

func TestGeofenceExitGraceExpiryForcesClockOut(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	exitAt := shiftStart.Add(3 * time.Hour)
	onBreak, _, err := Apply(s, outsideSample("loc-exit", exitAt), testInputs())
	require.NoError(t, err)

	// Still outside 15 minutes later; grace is 10.
	next, events, err := Apply(onBreak, session.TimeTick{ID: "tick-1", Now: exitAt.Add(15 * time.Minute)}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, next.Status)
	assert.True(t, next.AutoClockOut)
	assert.False(t, next.ClockedIn)
	assert.Nil(t, next.OpenBreak())
	require.Len(t, events, 1)
	assert.Equal(t, session.EventClockOut, events[0].Type)
}

func TestManualClockInOutsideGeofenceRejected(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	lat, lon := siteLat, siteLon+0.018

	next, events, err := Apply(s, session.ManualAction{
		ID: "act-1", Kind: session.ActionClockIn, ActorID: "emp-1",
		Latitude: &lat, Longitude: &lon, Timestamp: shiftStart,
	}, testInputs())

	require.Error(t, err)
	assert.True(t, session.IsPrecondition(err))
	assert.ErrorIs(t, err, session.ErrOutsideGeofence)
	assert.Empty(t, events)
	// Rejections leave the snapshot untouched.
	assert.Equal(t, s, next)
}

func TestManualClockInTooEarlyRejected(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	lat, lon := siteLat, siteLon

	_, _, err := Apply(s, session.ManualAction{
		ID: "act-1", Kind: session.ActionClockIn, ActorID: "emp-1",
		Latitude: &lat, Longitude: &lon, Timestamp: shiftStart.Add(-30 * time.Minute),
	}, testInputs())

	assert.ErrorIs(t, err, session.ErrTooEarlyToClockIn)
}

func TestManualClockInWithoutLocationRejected(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)

	_, _, err := Apply(s, session.ManualAction{
		ID: "act-1", Kind: session.ActionClockIn, ActorID: "emp-1", Timestamp: shiftStart,
	}, testInputs())

	assert.ErrorIs(t, err, session.ErrLocationRequired)
}

func TestManualActionWinsOverSampleAtSameInstant(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	// An outside sample stamped at the exact instant of the manual clock-in
	// must not open a geofence-exit break.
	next, events, err := Apply(s, outsideSample("loc-1", shiftStart), testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusClockedIn, next.Status)
	assert.Empty(t, events)
}

func TestReplayedEventIsIgnored(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	lat, lon := siteLat, siteLon
	action := session.ManualAction{
		ID: "act-1", Kind: session.ActionClockIn, ActorID: "emp-1",
		Latitude: &lat, Longitude: &lon, Timestamp: shiftStart,
	}

	first, events, err := Apply(s, action, testInputs())
	require.NoError(t, err)
	require.Len(t, events, 1)

	second, events, err := Apply(first, action, testInputs())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, first, second)
}

func TestOutOfOrderEventRejected(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	_, _, err := Apply(s, session.ManualAction{
		ID: "act-late", Kind: session.ActionStartBreak, ActorID: "emp-1",
		Timestamp: shiftStart.Add(-10 * time.Minute),
	}, testInputs())

	assert.ErrorIs(t, err, session.ErrEventConflict)
}

func TestInconclusiveSampleIsNoOp(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	// Accuracy worse than the 50m policy bound.
	next, events, err := Apply(s, session.LocationSample{
		ID: "loc-1", Latitude: siteLat, Longitude: siteLon + 0.018,
		AccuracyMeters: 200, Timestamp: shiftStart.Add(time.Hour),
	}, testInputs())

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, session.StatusClockedIn, next.Status)
	assert.Nil(t, next.LastLocationAt)
}

func TestImplausibleJumpRecordsAnomaly(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	first := shiftStart.Add(time.Hour)
	withLocation, _, err := Apply(s, insideSample("loc-1", first), testInputs())
	require.NoError(t, err)

	// 2km away ten seconds later is 200 m/s.
	next, events, err := Apply(withLocation, outsideSample("loc-2", first.Add(10*time.Second)), testInputs())
	require.NoError(t, err)

	assert.Empty(t, events)
	assert.Equal(t, session.StatusClockedIn, next.Status)
	require.Len(t, next.Errors, 1)
	assert.Equal(t, session.ErrorImplausibleMovement, next.Errors[0].Type)
	assert.False(t, next.Errors[0].Resolved)
}

func TestMonitoringWindowOpensOnTick(t *testing.T) {
	s := testSession(session.StatusScheduled)

	next, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(-45 * time.Minute)}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusMonitoringActive, next.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventMonitoringStarted, events[0].Type)
}

func TestNoShowDeclaredAfterGraceWindow(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)

	next, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(20 * time.Minute)}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusNoShow, next.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventNoShow, events[0].Type)

	// No-show is terminal for work transitions.
	lat, lon := siteLat, siteLon
	_, _, err = Apply(next, session.ManualAction{
		ID: "act-1", Kind: session.ActionClockIn, ActorID: "emp-1",
		Latitude: &lat, Longitude: &lon, Timestamp: shiftStart.Add(30 * time.Minute),
	}, testInputs())
	assert.ErrorIs(t, err, session.ErrSessionClosed)
}

func TestNoShowNotDeclaredWhenEmployeeArrived(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)

	arrived, _, err := Apply(s, insideSample("loc-1", shiftStart.Add(-30*time.Minute)), testInputs())
	require.NoError(t, err)

	next, events, err := Apply(arrived, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(20 * time.Minute)}, testInputs())
	require.NoError(t, err)
	assert.NotEqual(t, session.StatusNoShow, next.Status)
	assert.Empty(t, events)
}

func TestOvertimeStartsAtThreshold(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	// 8 hours in with no breaks.
	next, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(8 * time.Hour)}, testInputs())
	require.NoError(t, err)

	assert.True(t, next.IsInOvertime)
	require.Len(t, next.Overtime, 1)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventOvertimeStart, events[0].Type)

	// A later tick must not open a second period.
	after, events, err := Apply(next, session.TimeTick{ID: "tick-2", Now: shiftStart.Add(9 * time.Hour)}, testInputs())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, after.Overtime, 1)
}

func TestAutoClockOutAfterDelay(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	// Scheduled end 17:00 plus the 120-minute delay.
	next, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftEnd.Add(2 * time.Hour)}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, next.Status)
	assert.True(t, next.AutoClockOut)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventClockOut, events[0].Type)
	// Overtime closed together with the clock-out.
	assert.False(t, next.IsInOvertime)
}

func TestManualBreakLifecycle(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	breakStart := shiftStart.Add(3 * time.Hour)
	onBreak, _, err := Apply(s, session.ManualAction{
		ID: "break-1", Kind: session.ActionStartBreak, ActorID: "emp-1", Timestamp: breakStart,
	}, testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusOnBreak, onBreak.Status)

	// Starting a second break while on break is rejected.
	_, _, err = Apply(onBreak, session.ManualAction{
		ID: "break-2", Kind: session.ActionStartBreak, ActorID: "emp-1", Timestamp: breakStart.Add(time.Minute),
	}, testInputs())
	assert.ErrorIs(t, err, session.ErrAlreadyOnBreak)

	ended, _, err := Apply(onBreak, session.ManualAction{
		ID: "break-end", Kind: session.ActionEndBreak, ActorID: "emp-1", Timestamp: breakStart.Add(30 * time.Minute),
	}, testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusClockedIn, ended.Status)
	require.Len(t, ended.Breaks, 1)
	assert.Equal(t, 30, ended.Breaks[0].DurationMinutes)
}

func TestClockOutClosesOpenBreak(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	breakStart := shiftEnd.Add(-time.Hour)
	onBreak, _, err := Apply(s, session.ManualAction{
		ID: "break-1", Kind: session.ActionStartBreak, ActorID: "emp-1", Timestamp: breakStart,
	}, testInputs())
	require.NoError(t, err)

	out, events, err := Apply(onBreak, session.ManualAction{
		ID: "out-1", Kind: session.ActionClockOut, ActorID: "emp-1", Timestamp: shiftEnd,
	}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, out.Status)
	assert.Nil(t, out.OpenBreak())
	require.Len(t, out.Breaks, 1)
	assert.Equal(t, 60, out.Breaks[0].DurationMinutes)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventClockOut, events[0].Type)
}

func TestManualClockOutTooEarlyRejected(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	next, events, err := Apply(s, session.ManualAction{
		ID: "out-1", Kind: session.ActionClockOut, ActorID: "emp-1",
		Timestamp: shiftStart.Add(2 * time.Hour),
	}, testInputs())

	require.Error(t, err)
	assert.True(t, session.IsPrecondition(err))
	assert.ErrorIs(t, err, session.ErrTooEarlyToClockOut)
	assert.Empty(t, events)
	assert.Equal(t, s, next)
}

func TestManualClockOutWithinAllowanceAccepted(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	// Default policy allows leaving up to ten minutes before the end.
	out, _, err := Apply(s, session.ManualAction{
		ID: "out-1", Kind: session.ActionClockOut, ActorID: "emp-1",
		Timestamp: shiftEnd.Add(-10 * time.Minute),
	}, testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, out.Status)
}

func TestForceClockOutIgnoresEarlyAllowance(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	out, _, err := Apply(s, session.AdminOverride{
		ID: "ovr-1", Action: session.OverrideForceClockOut, ActorID: "admin-1",
		Reason: "sent home sick", Timestamp: shiftStart.Add(2 * time.Hour),
	}, testInputs())
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, out.Status)
	assert.NotNil(t, out.ClockOutAt)
}

func TestDurationConservation(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	breakStart := shiftStart.Add(3 * time.Hour)
	onBreak, _, err := Apply(s, session.ManualAction{
		ID: "break-1", Kind: session.ActionStartBreak, ActorID: "emp-1", Timestamp: breakStart,
	}, testInputs())
	require.NoError(t, err)

	back, _, err := Apply(onBreak, session.ManualAction{
		ID: "break-end", Kind: session.ActionEndBreak, ActorID: "emp-1", Timestamp: breakStart.Add(45 * time.Minute),
	}, testInputs())
	require.NoError(t, err)

	out, _, err := Apply(back, session.ManualAction{
		ID: "out-1", Kind: session.ActionClockOut, ActorID: "emp-1", Timestamp: shiftEnd,
	}, testInputs())
	require.NoError(t, err)

	span := int(out.ClockOutAt.Sub(*out.ClockInAt).Minutes())
	assert.Equal(t, span, out.Metrics.WorkedMinutes+out.Metrics.BreakMinutes)
	assert.Equal(t, 45, out.Metrics.BreakMinutes)
}

func TestOverrideForceClockOutAudited(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	next, events, err := Apply(s, session.AdminOverride{
		ID: "ovr-1", Action: session.OverrideForceClockOut, ActorID: "admin-1",
		Reason: "employee forgot to clock out", Timestamp: shiftEnd,
	}, testInputs())
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, next.Status)
	assert.False(t, next.AutoClockOut)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventClockOut, events[0].Type)
	assert.Equal(t, "admin-1", events[0].Actor)
	require.Len(t, next.Overrides, 1)
	assert.Equal(t, session.StatusClockedIn, next.Overrides[0].BeforeStatus)
	assert.Equal(t, session.StatusCompleted, next.Overrides[0].AfterStatus)
}

func TestOverrideCannotClockOutIdleSession(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)

	_, _, err := Apply(s, session.AdminOverride{
		ID: "ovr-1", Action: session.OverrideForceClockOut, ActorID: "admin-1",
		Reason: "mistake", Timestamp: shiftStart,
	}, testInputs())

	assert.ErrorIs(t, err, session.ErrNotClockedIn)
	assert.True(t, session.IsPrecondition(err))
}

func TestResolveErrorOverride(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	first := shiftStart.Add(time.Hour)
	withLocation, _, err := Apply(s, insideSample("loc-1", first), testInputs())
	require.NoError(t, err)
	flagged, _, err := Apply(withLocation, outsideSample("loc-2", first.Add(10*time.Second)), testInputs())
	require.NoError(t, err)
	require.Len(t, flagged.Errors, 1)

	next, events, err := Apply(flagged, session.AdminOverride{
		ID: "ovr-1", Action: session.OverrideResolveError, ActorID: "admin-1",
		Reason: "verified with employee", ErrorID: flagged.Errors[0].ID,
		Timestamp: first.Add(time.Hour),
	}, testInputs())
	require.NoError(t, err)

	assert.True(t, next.Errors[0].Resolved)
	assert.Equal(t, "admin-1", next.Errors[0].ResolvedBy)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventErrorResolved, events[0].Type)
	assert.Empty(t, next.UnresolvedErrors())
}

func TestResolveUnknownErrorRejected(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	_, _, err := Apply(s, session.AdminOverride{
		ID: "ovr-1", Action: session.OverrideResolveError, ActorID: "admin-1",
		Reason: "typo", ErrorID: "nope", Timestamp: shiftStart.Add(time.Hour),
	}, testInputs())

	assert.ErrorIs(t, err, session.ErrErrorNotFound)
}

func TestMissingJobSiteRecordsAnomaly(t *testing.T) {
	s := testSession(session.StatusMonitoringActive)
	in := Inputs{Policy: policy.DefaultSettings("company-1"), Site: nil}

	next, events, err := Apply(s, insideSample("loc-1", shiftStart), in)
	require.NoError(t, err)

	assert.Empty(t, events)
	require.Len(t, next.Errors, 1)
	assert.Equal(t, session.ErrorMissingJobSite, next.Errors[0].Type)

	// A second sample does not duplicate the anomaly.
	again, _, err := Apply(next, insideSample("loc-2", shiftStart.Add(time.Minute)), in)
	require.NoError(t, err)
	assert.Len(t, again.Errors, 1)
}

func TestRequiredBreakStartsAndEnds(t *testing.T) {
	in := testInputs()
	in.Policy.AutoStartBreakEnabled = true
	in.Policy.MinimumWorkBeforeBreakMinutes = 300
	in.Policy.RequiredBreakDurationMinutes = 30

	s := clockedInSession(t, shiftStart)

	onBreak, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(5 * time.Hour)}, in)
	require.NoError(t, err)
	assert.Equal(t, session.StatusOnBreak, onBreak.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventBreakStart, events[0].Type)
	require.NotNil(t, onBreak.OpenBreak())
	assert.Equal(t, session.BreakRequired, onBreak.OpenBreak().Type)

	back, events, err := Apply(onBreak, session.TimeTick{ID: "tick-2", Now: shiftStart.Add(5*time.Hour + 30*time.Minute)}, in)
	require.NoError(t, err)
	assert.Equal(t, session.StatusClockedIn, back.Status)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventBreakEnd, events[0].Type)
}

func TestTickWithoutTransitionAppendsNothing(t *testing.T) {
	s := clockedInSession(t, shiftStart)

	next, events, err := Apply(s, session.TimeTick{ID: "tick-1", Now: shiftStart.Add(time.Hour)}, testInputs())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, session.StatusClockedIn, next.Status)
}
