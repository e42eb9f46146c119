package session

import (
	"context"
	"errors"
)

// ErrVersionConflict means the session changed between load and save. The
// caller reloads and reapplies.
var ErrVersionConflict = errors.New("session version conflict")

// SessionRepository persists tracking sessions. Save is optimistic: it
// succeeds only if the stored version matches the snapshot's version, and
// appends the given audit events atomically with the state.
type SessionRepository interface {
	Create(ctx context.Context, s ScheduleSession) (ScheduleSession, error)

	GetByID(ctx context.Context, id string, companyID string) (ScheduleSession, error)

	GetByScheduleID(ctx context.Context, scheduleID string, companyID string) (ScheduleSession, error)

	Save(ctx context.Context, s ScheduleSession, appended []SessionEvent) (ScheduleSession, error)

	List(ctx context.Context, filter SessionFilter, companyID string) ([]ScheduleSession, int64, error)

	// ListActive returns every non-terminal session across companies. Feeds
	// the time sweep.
	ListActive(ctx context.Context) ([]ScheduleSession, error)
}
