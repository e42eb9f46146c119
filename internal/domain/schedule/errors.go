package schedule

import "errors"

// Schedule domain errors
var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrJobSiteNotFound    = errors.New("job site not found")
	ErrScheduleCancelled  = errors.New("schedule has been cancelled")
	ErrScheduleInProgress = errors.New("schedule is in progress; a change reason is required")
	ErrInvalidInterval    = errors.New("schedule end must be after start")
)
