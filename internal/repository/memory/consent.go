package memory

import (
	"context"
	"sync"

	"github.com/shiftsense/tracking-engine-go/internal/domain/consent"
)

type ConsentRepository struct {
	mu       sync.RWMutex
	consents map[string]consent.TrackingConsent
}

var _ consent.ConsentRepository = (*ConsentRepository)(nil)

func NewConsentRepository() *ConsentRepository {
	return &ConsentRepository{consents: make(map[string]consent.TrackingConsent)}
}

func consentKey(employeeID, companyID string) string {
	return companyID + "/" + employeeID
}

func (r *ConsentRepository) Get(ctx context.Context, employeeID string, companyID string) (consent.TrackingConsent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.consents[consentKey(employeeID, companyID)]
	if !ok {
		return consent.TrackingConsent{}, consent.ErrConsentNotFound
	}
	return c, nil
}

func (r *ConsentRepository) Set(ctx context.Context, c consent.TrackingConsent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consents[consentKey(c.EmployeeID, c.CompanyID)] = c
	return nil
}
