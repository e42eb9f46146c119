package policy

import "time"

// CompanyPolicySettings is owned and mutated by admin tooling; the engine only
// reads it. Settings may be cached for the lifetime of a session; a change
// mid-session applies to subsequent transitions only, never retroactively.
type CompanyPolicySettings struct {
	CompanyID string

	// Geofence evaluation
	GeofenceAccuracyMeters        float64 // samples with worse accuracy are inconclusive
	GeofenceRadiusToleranceMeters float64

	// Clock-in / clock-out
	EarlyClockInMinutes      int
	EarlyClockOutMinutes     int
	MinimumTimeAtSiteMinutes int
	AutoClockInEnabled       bool
	AutoClockOutEnabled      bool
	AutoClockOutDelayMinutes int // past scheduled end before auto clock-out

	// Breaks
	RequiredBreakDurationMinutes  int
	MinimumWorkBeforeBreakMinutes int
	AutoStartBreakEnabled         bool

	// Overtime
	OvertimeThresholdMinutes int

	// Grace windows
	GeofenceExitGraceMinutes int
	NoShowGraceMinutes       int
	MonitoringLeadMinutes    int

	// Scheduling
	MinimumRestMinutes int // between shifts; feeds the conflict detector

	UpdatedAt time.Time
}

// DefaultSettings returns the policy applied to companies that never
// configured one.
func DefaultSettings(companyID string) CompanyPolicySettings {
	return CompanyPolicySettings{
		CompanyID:                     companyID,
		GeofenceAccuracyMeters:        50,
		GeofenceRadiusToleranceMeters: 10,
		EarlyClockInMinutes:           15,
		EarlyClockOutMinutes:          10,
		MinimumTimeAtSiteMinutes:      0,
		AutoClockInEnabled:            true,
		AutoClockOutEnabled:           true,
		AutoClockOutDelayMinutes:      120,
		RequiredBreakDurationMinutes:  30,
		MinimumWorkBeforeBreakMinutes: 300,
		AutoStartBreakEnabled:         false,
		OvertimeThresholdMinutes:      480,
		GeofenceExitGraceMinutes:      10,
		NoShowGraceMinutes:            15,
		MonitoringLeadMinutes:         60,
		MinimumRestMinutes:            480,
	}
}
