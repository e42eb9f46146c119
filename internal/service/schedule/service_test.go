package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/eventbus"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/validator"
	"github.com/shiftsense/tracking-engine-go/internal/repository/memory"
)

type scheduleFixture struct {
	svc      *ScheduleServiceImpl
	jobSites *memory.JobSiteRepository
	hub      *eventbus.Hub
	siteID   string
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	f := &scheduleFixture{
		jobSites: memory.NewJobSiteRepository(),
		hub:      eventbus.NewHub(),
	}
	f.svc = NewScheduleService(memory.NewScheduleRepository(), f.jobSites,
		memory.NewPolicyRepository(), f.hub)

	site, err := f.jobSites.Create(context.Background(), schedule.JobSite{
		ID:           "site-1",
		CompanyID:    "company-1",
		Name:         "HQ",
		Latitude:     -6.2,
		Longitude:    106.8,
		RadiusMeters: 100,
	})
	require.NoError(t, err)
	f.siteID = site.ID
	return f
}

func createReq(start, end time.Time) schedule.CreateScheduleRequest {
	return schedule.CreateScheduleRequest{
		EmployeeID: "emp-1",
		JobSiteID:  "site-1",
		Start:      start,
		End:        end,
	}
}

func TestCreateSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	req := createReq(start, start.Add(8*time.Hour))
	req.BreakAllowanceMinutes = 60

	resp, conflicts, err := f.svc.CreateSchedule(ctx, req, "company-1", "admin-1")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	assert.Equal(t, "emp-1", resp.EmployeeID)
	assert.Equal(t, string(schedule.ShiftRegular), resp.ShiftType)
	// Expected minutes default to the span minus the break allowance.
	assert.Equal(t, 420, resp.ExpectedMinutes)

	got, err := f.svc.GetSchedule(ctx, resp.ID, "company-1")
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
}

func TestCreateScheduleValidation(t *testing.T) {
	f := newScheduleFixture(t)

	_, _, err := f.svc.CreateSchedule(context.Background(),
		schedule.CreateScheduleRequest{EmployeeID: "emp-1"}, "company-1", "admin-1")

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCreateScheduleUnknownJobSite(t *testing.T) {
	f := newScheduleFixture(t)

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	req := createReq(start, start.Add(8*time.Hour))
	req.JobSiteID = "missing"

	_, _, err := f.svc.CreateSchedule(context.Background(), req, "company-1", "admin-1")
	assert.ErrorIs(t, err, schedule.ErrJobSiteNotFound)
}

func TestCreateScheduleReportsConflicts(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	ch, cancel := f.hub.Subscribe("company-1")
	defer cancel()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, conflicts, err := f.svc.CreateSchedule(ctx, createReq(start, start.Add(8*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	// Second shift overlapping the first.
	second, conflicts, err := f.svc.CreateSchedule(ctx,
		createReq(start.Add(6*time.Hour), start.Add(14*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	require.Len(t, conflicts, 1)
	assert.Equal(t, string(schedule.ConflictOverlap), conflicts[0].Type)
	assert.True(t, conflicts[0].ScheduleAID == second.ID || conflicts[0].ScheduleBID == second.ID)

	var published []eventbus.Event
	for {
		select {
		case ev := <-ch:
			published = append(published, ev)
			continue
		default:
		}
		break
	}
	require.Len(t, published, 1)
	assert.Equal(t, eventbus.ConflictDetected, published[0].Type)
}

func TestUpdateScheduleRecordsChanges(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	created, _, err := f.svc.CreateSchedule(ctx, createReq(start, start.Add(8*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	newStart := start.Add(time.Hour)
	newEnd := start.Add(9 * time.Hour)
	updated, conflicts, err := f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:    created.ID,
		Start: &newStart,
		End:   &newEnd,
	}, "company-1", "admin-2")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, newStart.Format(time.RFC3339), updated.Start)
	assert.Equal(t, newEnd.Format(time.RFC3339), updated.End)
}

func TestUpdateScheduleReportsNewConflicts(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, conflicts, err := f.svc.CreateSchedule(ctx, createReq(start, start.Add(8*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	// A second shift the next day clears both shifts on creation.
	second, conflicts, err := f.svc.CreateSchedule(ctx,
		createReq(start.Add(24*time.Hour), start.Add(32*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)
	require.Empty(t, conflicts)

	ch, cancel := f.hub.Subscribe("company-1")
	defer cancel()

	// Moving the second shift back onto the first introduces an overlap.
	newStart := start.Add(6 * time.Hour)
	newEnd := start.Add(14 * time.Hour)
	_, conflicts, err = f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:    second.ID,
		Start: &newStart,
		End:   &newEnd,
	}, "company-1", "admin-1")
	require.NoError(t, err)

	require.NotEmpty(t, conflicts)
	assert.Equal(t, string(schedule.ConflictOverlap), conflicts[0].Type)
	assert.True(t, conflicts[0].ScheduleAID == second.ID || conflicts[0].ScheduleBID == second.ID)

	select {
	case ev := <-ch:
		assert.Equal(t, eventbus.ConflictDetected, ev.Type)
	default:
		t.Fatal("expected a conflict event after the update")
	}
}

func TestUpdateScheduleRejectsInvertedInterval(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	created, _, err := f.svc.CreateSchedule(ctx, createReq(start, start.Add(8*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	badEnd := start.Add(-time.Hour)
	_, _, err = f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:  created.ID,
		End: &badEnd,
	}, "company-1", "admin-1")
	assert.ErrorIs(t, err, schedule.ErrInvalidInterval)
}

func TestUpdateInProgressScheduleNeedsReason(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	now := time.Now()
	created, _, err := f.svc.CreateSchedule(ctx,
		createReq(now.Add(-time.Hour), now.Add(7*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	newEnd := now.Add(8 * time.Hour)
	_, _, err = f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:  created.ID,
		End: &newEnd,
	}, "company-1", "admin-1")
	assert.ErrorIs(t, err, schedule.ErrScheduleInProgress)

	// With a reason the change goes through.
	updated, _, err := f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:     created.ID,
		End:    &newEnd,
		Reason: "shift extended to cover absence",
	}, "company-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, newEnd.Format(time.RFC3339), updated.End)
}

func TestCancelSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	created, _, err := f.svc.CreateSchedule(ctx, createReq(start, start.Add(8*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelSchedule(ctx, created.ID, "company-1"))

	got, err := f.svc.GetSchedule(ctx, created.ID, "company-1")
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.NotNil(t, got.CancelledAt)

	// Cancelled schedules reject further edits.
	newEnd := start.Add(9 * time.Hour)
	_, _, err = f.svc.UpdateSchedule(ctx, schedule.UpdateScheduleRequest{
		ID:  created.ID,
		End: &newEnd,
	}, "company-1", "admin-1")
	assert.ErrorIs(t, err, schedule.ErrScheduleCancelled)
}

func TestDetectConflictsWindow(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, _, err := f.svc.CreateSchedule(ctx,
		createReq(day.Add(14*time.Hour), day.Add(22*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)
	_, _, err = f.svc.CreateSchedule(ctx,
		createReq(day.Add(28*time.Hour), day.Add(36*time.Hour)), "company-1", "admin-1")
	require.NoError(t, err)

	conflicts, err := f.svc.DetectConflicts(ctx, "emp-1", day, day.Add(48*time.Hour), "company-1")
	require.NoError(t, err)

	// 22:00 to 04:00 next day leaves 360 minutes of rest; 480 required.
	require.Len(t, conflicts, 1)
	assert.Equal(t, string(schedule.ConflictInsufficientRest), conflicts[0].Type)
}

func TestJobSiteLifecycle(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateJobSite(ctx, schedule.CreateJobSiteRequest{
		Name:         "Warehouse",
		Latitude:     -6.3,
		Longitude:    106.9,
		RadiusMeters: 150,
	}, "company-1")
	require.NoError(t, err)

	got, err := f.svc.GetJobSite(ctx, created.ID, "company-1")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse", got.Name)

	sites, err := f.svc.ListJobSites(ctx, "company-1")
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	// Scoped to the owning company.
	_, err = f.svc.GetJobSite(ctx, created.ID, "company-2")
	assert.ErrorIs(t, err, schedule.ErrJobSiteNotFound)
}
