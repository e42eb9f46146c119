package schedule

import (
	"context"
	"time"
)

// ScheduleService defines business logic for planned shifts and conflict
// detection.
type ScheduleService interface {
	// CreateSchedule creates a shift and reports any conflicts it introduces.
	// Conflicts never block creation.
	CreateSchedule(ctx context.Context, req CreateScheduleRequest, companyID, actorID string) (ScheduleResponse, []ConflictResponse, error)

	// UpdateSchedule mutates a shift and reports any conflicts the new times
	// introduce. Once the shift is in progress a change reason is mandatory
	// and every field change is recorded.
	UpdateSchedule(ctx context.Context, req UpdateScheduleRequest, companyID, actorID string) (ScheduleResponse, []ConflictResponse, error)

	// CancelSchedule soft-cancels a shift.
	CancelSchedule(ctx context.Context, id string, companyID string) error

	GetSchedule(ctx context.Context, id string, companyID string) (ScheduleResponse, error)

	ListSchedules(ctx context.Context, filter ScheduleFilter, companyID string) (ListSchedulesResponse, error)

	// DetectConflicts runs the detector over an employee's active schedules
	// within [from, to).
	DetectConflicts(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]ConflictResponse, error)

	// Job sites
	CreateJobSite(ctx context.Context, req CreateJobSiteRequest, companyID string) (JobSiteResponse, error)
	GetJobSite(ctx context.Context, id string, companyID string) (JobSiteResponse, error)
	ListJobSites(ctx context.Context, companyID string) ([]JobSiteResponse, error)
}
