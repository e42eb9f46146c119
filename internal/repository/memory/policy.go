package memory

import (
	"context"
	"sync"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
)

type PolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]policy.CompanyPolicySettings
}

var _ policy.PolicyRepository = (*PolicyRepository)(nil)

func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{policies: make(map[string]policy.CompanyPolicySettings)}
}

func (r *PolicyRepository) GetByCompany(ctx context.Context, companyID string) (policy.CompanyPolicySettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[companyID]
	if !ok {
		return policy.CompanyPolicySettings{}, policy.ErrPolicyNotFound
	}
	return p, nil
}

func (r *PolicyRepository) Upsert(ctx context.Context, settings policy.CompanyPolicySettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[settings.CompanyID] = settings
	return nil
}
