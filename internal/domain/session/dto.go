package session

import (
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/pkg/validator"
)

type CreateSessionRequest struct {
	ScheduleID string `json:"schedule_id"`
}

func (r CreateSessionRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ScheduleID) {
		errs = append(errs, validator.ValidationError{Field: "schedule_id", Message: "schedule_id is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ManualActionRequest struct {
	Action    string   `json:"action"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (r ManualActionRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsOneOf(r.Action, ActionKindValues) {
		errs = append(errs, validator.ValidationError{Field: "action", Message: "unknown action"})
	}
	if r.Latitude != nil && !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if r.Longitude != nil && !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LocationSampleRequest struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

func (r LocationSampleRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}
	if r.AccuracyMeters < 0 {
		errs = append(errs, validator.ValidationError{Field: "accuracy_meters", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type OverrideRequest struct {
	Action  string `json:"action"`
	Reason  string `json:"reason"`
	ErrorID string `json:"error_id,omitempty"`
}

func (r OverrideRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsOneOf(r.Action, OverrideActionValues) {
		errs = append(errs, validator.ValidationError{Field: "action", Message: "unknown override action"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "reason is required"})
	}
	if r.Action == string(OverrideResolveError) && validator.IsEmpty(r.ErrorID) {
		errs = append(errs, validator.ValidationError{Field: "error_id", Message: "error_id is required to resolve an error"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SessionFilter struct {
	EmployeeID string
	Status     string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

type BreakPeriodResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time,omitempty"`
	TriggeredBy     string  `json:"triggered_by"`
	DurationMinutes int     `json:"duration_minutes"`
}

type SessionEventResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp string            `json:"timestamp"`
	Actor     string            `json:"actor"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type SessionErrorResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	OccurredAt string  `json:"occurred_at"`
	Resolved   bool    `json:"resolved"`
	ResolvedBy string  `json:"resolved_by,omitempty"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

type MetricsResponse struct {
	ScheduledMinutes int     `json:"scheduled_minutes"`
	WorkedMinutes    int     `json:"worked_minutes"`
	BreakMinutes     int     `json:"break_minutes"`
	OvertimeMinutes  int     `json:"overtime_minutes"`
	PunctualityScore float64 `json:"punctuality_score"`
	AttendanceRate   float64 `json:"attendance_rate"`
	ComplianceScore  float64 `json:"compliance_score"`
	Health           string  `json:"health"`
}

type SessionResponse struct {
	ID             string                 `json:"id"`
	ScheduleID     string                 `json:"schedule_id"`
	EmployeeID     string                 `json:"employee_id"`
	JobSiteID      string                 `json:"job_site_id"`
	ScheduledStart string                 `json:"scheduled_start"`
	ScheduledEnd   string                 `json:"scheduled_end"`
	Status         string                 `json:"status"`
	ClockedIn      bool                   `json:"clocked_in"`
	ClockInAt      *string                `json:"clock_in_at,omitempty"`
	ClockOutAt     *string                `json:"clock_out_at,omitempty"`
	AutoClockIn    bool                   `json:"auto_clock_in"`
	AutoClockOut   bool                   `json:"auto_clock_out"`
	OnBreak        bool                   `json:"on_break"`
	InOvertime     bool                   `json:"in_overtime"`
	Breaks         []BreakPeriodResponse  `json:"breaks"`
	Events         []SessionEventResponse `json:"events"`
	Errors         []SessionErrorResponse `json:"errors"`
	Metrics        MetricsResponse        `json:"metrics"`
	Version        int64                  `json:"version"`
}

type ListSessionsResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Sessions   []SessionResponse `json:"sessions"`
}
