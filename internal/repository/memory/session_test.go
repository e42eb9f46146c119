package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

func seedSession(t *testing.T, r *SessionRepository, id, scheduleID string, status session.SessionStatus) session.ScheduleSession {
	t.Helper()
	s, err := r.Create(context.Background(), session.ScheduleSession{
		ID:             id,
		ScheduleID:     scheduleID,
		EmployeeID:     "emp-1",
		CompanyID:      "company-1",
		ScheduledStart: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
		Status:         status,
	})
	require.NoError(t, err)
	return s
}

func TestSessionRepositoryCreate(t *testing.T) {
	r := NewSessionRepository()
	s := seedSession(t, r, "sess-1", "sched-1", session.StatusScheduled)
	assert.Equal(t, int64(1), s.Version)

	// One session per schedule per company.
	_, err := r.Create(context.Background(), session.ScheduleSession{
		ID: "sess-2", ScheduleID: "sched-1", CompanyID: "company-1",
	})
	assert.ErrorIs(t, err, session.ErrSessionExists)
}

func TestSessionRepositoryVersionConflict(t *testing.T) {
	r := NewSessionRepository()
	ctx := context.Background()
	seedSession(t, r, "sess-1", "sched-1", session.StatusScheduled)

	a, err := r.GetByID(ctx, "sess-1", "company-1")
	require.NoError(t, err)
	b, err := r.GetByID(ctx, "sess-1", "company-1")
	require.NoError(t, err)

	a.Status = session.StatusMonitoringActive
	saved, err := r.Save(ctx, a, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	// The stale copy loses.
	b.Status = session.StatusNoShow
	_, err = r.Save(ctx, b, nil)
	assert.ErrorIs(t, err, session.ErrVersionConflict)

	stored, err := r.GetByID(ctx, "sess-1", "company-1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusMonitoringActive, stored.Status)
}

func TestSessionRepositoryScoping(t *testing.T) {
	r := NewSessionRepository()
	seedSession(t, r, "sess-1", "sched-1", session.StatusScheduled)

	_, err := r.GetByID(context.Background(), "sess-1", "other-company")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = r.GetByScheduleID(context.Background(), "sched-1", "other-company")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionRepositoryListActive(t *testing.T) {
	r := NewSessionRepository()
	seedSession(t, r, "sess-1", "sched-1", session.StatusClockedIn)
	seedSession(t, r, "sess-2", "sched-2", session.StatusCompleted)
	seedSession(t, r, "sess-3", "sched-3", session.StatusNoShow)

	active, err := r.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "sess-1", active[0].ID)
}

func TestSessionRepositoryIsolation(t *testing.T) {
	r := NewSessionRepository()
	ctx := context.Background()
	seedSession(t, r, "sess-1", "sched-1", session.StatusScheduled)

	got, err := r.GetByID(ctx, "sess-1", "company-1")
	require.NoError(t, err)

	// Mutating a returned copy must not leak into the store.
	got.Status = session.StatusError
	got.Errors = append(got.Errors, session.SessionError{ID: "e1"})

	stored, err := r.GetByID(ctx, "sess-1", "company-1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusScheduled, stored.Status)
	assert.Empty(t, stored.Errors)
}
