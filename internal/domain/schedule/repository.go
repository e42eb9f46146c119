package schedule

import (
	"context"
	"time"
)

// ScheduleRepository defines data access for planned shifts. All methods carry
// companyID to prevent cross-company data access.
type ScheduleRepository interface {
	Create(ctx context.Context, s Schedule) (Schedule, error)

	GetByID(ctx context.Context, id string, companyID string) (Schedule, error)

	// ActiveForEmployee returns the employee's not-cancelled schedules whose
	// interval intersects [from, to). Feeds the conflict detector.
	ActiveForEmployee(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]Schedule, error)

	// Update persists field changes together with the ScheduleChange records
	// documenting them.
	Update(ctx context.Context, s Schedule, changes []ScheduleChange) (Schedule, error)

	// Cancel soft-cancels a schedule.
	Cancel(ctx context.Context, id string, companyID string) error

	List(ctx context.Context, filter ScheduleFilter, companyID string) ([]Schedule, int64, error)
}

// JobSiteRepository defines data access for geofenced job sites.
type JobSiteRepository interface {
	Create(ctx context.Context, site JobSite) (JobSite, error)
	GetByID(ctx context.Context, id string, companyID string) (JobSite, error)
	ListByCompany(ctx context.Context, companyID string) ([]JobSite, error)
}
