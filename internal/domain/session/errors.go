package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists for schedule")
	ErrSessionClosed   = errors.New("session is closed")
	ErrEventConflict   = errors.New("event is older than the session's last recorded event")

	ErrAlreadyClockedIn   = errors.New("already clocked in")
	ErrNotClockedIn       = errors.New("not clocked in")
	ErrAlreadyOnBreak     = errors.New("already on break")
	ErrNotOnBreak         = errors.New("not on break")
	ErrOutsideGeofence    = errors.New("outside the job site geofence")
	ErrLocationRequired   = errors.New("location is required for this action")
	ErrTooEarlyToClockIn  = errors.New("too early to clock in")
	ErrTooEarlyToClockOut = errors.New("too early to clock out")
	ErrUnknownAction      = errors.New("unknown action")
	ErrErrorNotFound      = errors.New("session error not found")
)

// PreconditionError rejects an input without mutating the session. The
// wrapped sentinel identifies the failed check.
type PreconditionError struct {
	Op     string
	Status SessionStatus
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s rejected in status %s: %s", e.Op, e.Status, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is a precondition rejection.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
