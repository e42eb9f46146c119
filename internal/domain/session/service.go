package session

import "context"

// SessionService defines business logic for tracking sessions.
type SessionService interface {
	// CreateFromSchedule bootstraps a session for a planned shift.
	CreateFromSchedule(ctx context.Context, scheduleID string, companyID string) (SessionResponse, error)

	// ApplyEvent runs one input through the state machine and persists the
	// result. Version conflicts are retried against a fresh snapshot.
	ApplyEvent(ctx context.Context, sessionID string, companyID string, ev Event) (SessionResponse, error)

	// ApplySystemEvent is ApplyEvent for inputs with no caller to report to.
	// A precondition rejection is recorded on the session as an
	// auto_transition_failed anomaly instead of being returned.
	ApplySystemEvent(ctx context.Context, sessionID string, companyID string, ev Event) error

	ManualAction(ctx context.Context, sessionID string, companyID, actorID string, req ManualActionRequest) (SessionResponse, error)

	IngestLocation(ctx context.Context, sessionID string, companyID string, req LocationSampleRequest) (SessionResponse, error)

	Override(ctx context.Context, sessionID string, companyID, actorID string, req OverrideRequest) (SessionResponse, error)

	GetSession(ctx context.Context, sessionID string, companyID string) (SessionResponse, error)

	ListSessions(ctx context.Context, filter SessionFilter, companyID string) (ListSessionsResponse, error)

	// Sweep ticks every active session. Run from the scheduler.
	Sweep(ctx context.Context) error
}
