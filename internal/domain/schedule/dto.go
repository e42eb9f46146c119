package schedule

import (
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/pkg/validator"
)

type CreateScheduleRequest struct {
	EmployeeID            string     `json:"employee_id"`
	JobSiteID             string     `json:"job_site_id"`
	Start                 time.Time  `json:"start"`
	End                   time.Time  `json:"end"`
	ShiftType             string     `json:"shift_type"`
	BreakAllowanceMinutes int        `json:"break_allowance_minutes"`
	ExpectedMinutes       int        `json:"expected_minutes"`
	RequiresApproval      bool       `json:"requires_approval"`
	RecurrenceFrequency   *string    `json:"recurrence_frequency,omitempty"`
	RecurrenceInterval    *int       `json:"recurrence_interval,omitempty"`
	RecurrenceDays        []int      `json:"recurrence_days,omitempty"`
	RecurrenceUntil       *time.Time `json:"recurrence_until,omitempty"`
}

func (r CreateScheduleRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.JobSiteID) {
		errs = append(errs, validator.ValidationError{Field: "job_site_id", Message: "job_site_id is required"})
	}
	if r.Start.IsZero() || r.End.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start", Message: "start and end are required"})
	} else if !r.End.After(r.Start) {
		errs = append(errs, validator.ValidationError{Field: "end", Message: "end must be after start"})
	}
	if r.ShiftType != "" && !validator.IsOneOf(r.ShiftType, ShiftTypeValues) {
		errs = append(errs, validator.ValidationError{Field: "shift_type", Message: "unknown shift type"})
	}
	if r.BreakAllowanceMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "break_allowance_minutes", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateScheduleRequest struct {
	ID        string     `json:"-"`
	Reason    string     `json:"reason"`
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	JobSiteID *string    `json:"job_site_id,omitempty"`
}

func (r UpdateScheduleRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if r.Start == nil && r.End == nil && r.JobSiteID == nil {
		errs = append(errs, validator.ValidationError{Field: "body", Message: "nothing to update"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ScheduleFilter struct {
	EmployeeID string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

type ScheduleResponse struct {
	ID                    string  `json:"id"`
	EmployeeID            string  `json:"employee_id"`
	JobSiteID             string  `json:"job_site_id"`
	Start                 string  `json:"start"`
	End                   string  `json:"end"`
	ShiftType             string  `json:"shift_type"`
	BreakAllowanceMinutes int     `json:"break_allowance_minutes"`
	ExpectedMinutes       int     `json:"expected_minutes"`
	RequiresApproval      bool    `json:"requires_approval"`
	Cancelled             bool    `json:"cancelled"`
	CancelledAt           *string `json:"cancelled_at,omitempty"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
}

type ConflictResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	ScheduleAID string `json:"schedule_a_id"`
	ScheduleBID string `json:"schedule_b_id"`
	Detail      string `json:"detail"`
}

type CreateJobSiteRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (r CreateJobSiteRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	if r.RadiusMeters <= 0 {
		errs = append(errs, validator.ValidationError{Field: "radius_meters", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type JobSiteResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	CreatedAt    string  `json:"created_at"`
}

type ListSchedulesResponse struct {
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
	Schedules  []ScheduleResponse `json:"schedules"`
}
