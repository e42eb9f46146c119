package consent

import (
	"context"
	"errors"
)

var (
	ErrConsentNotFound = errors.New("tracking consent not found")
	ErrConsentRevoked  = errors.New("employee has not consented to background tracking")
)

type ConsentRepository interface {
	// Get returns the employee's consent record, or ErrConsentNotFound when
	// the employee never answered the consent prompt.
	Get(ctx context.Context, employeeID string, companyID string) (TrackingConsent, error)

	Set(ctx context.Context, c TrackingConsent) error
}
