package policy

import (
	"context"
	"errors"
)

var ErrPolicyNotFound = errors.New("company policy settings not found")

// PolicyRepository reads company policy settings. The engine never writes
// them; Upsert exists for admin tooling and fixtures.
type PolicyRepository interface {
	// GetByCompany returns the company's settings, or ErrPolicyNotFound.
	// Callers fall back to DefaultSettings.
	GetByCompany(ctx context.Context, companyID string) (CompanyPolicySettings, error)

	Upsert(ctx context.Context, settings CompanyPolicySettings) error
}
