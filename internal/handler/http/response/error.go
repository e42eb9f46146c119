package response

import (
	"errors"
	"net/http"

	"github.com/shiftsense/tracking-engine-go/internal/domain/consent"
	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Rejected transitions carry the session status and failed check; the
	// client gets both.
	var precondition *session.PreconditionError
	if errors.As(err, &precondition) {
		PreconditionFailed(w, precondition.Error(), map[string]string{
			"operation": precondition.Op,
			"status":    string(precondition.Status),
		})
		return
	}

	switch {
	// Session domain errors
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, session.ErrSessionExists):
		Conflict(w, "A session already exists for this schedule")
	case errors.Is(err, session.ErrEventConflict):
		Conflict(w, "Event is older than the session's latest recorded event")
	case errors.Is(err, session.ErrVersionConflict):
		Conflict(w, "Session was modified concurrently; retry")
	case errors.Is(err, session.ErrErrorNotFound):
		NotFound(w, "Session error not found")

	// Schedule domain errors
	case errors.Is(err, schedule.ErrScheduleNotFound):
		NotFound(w, "Schedule not found")
	case errors.Is(err, schedule.ErrJobSiteNotFound):
		NotFound(w, "Job site not found")
	case errors.Is(err, schedule.ErrScheduleCancelled):
		Conflict(w, "Schedule has been cancelled")
	case errors.Is(err, schedule.ErrScheduleInProgress):
		BadRequest(w, "Schedule is in progress; a change reason is required", nil)
	case errors.Is(err, schedule.ErrInvalidInterval):
		BadRequest(w, "Schedule end must be after start", nil)

	// Consent and policy
	case errors.Is(err, consent.ErrConsentRevoked), errors.Is(err, consent.ErrConsentNotFound):
		Forbidden(w, "Employee has not consented to background tracking")
	case errors.Is(err, policy.ErrPolicyNotFound):
		NotFound(w, "Company policy settings not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
