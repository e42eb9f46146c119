package consent

import "time"

// TrackingConsent gates background location tracking for one employee.
// Tracking runs only while both flags are true.
type TrackingConsent struct {
	EmployeeID          string
	CompanyID           string
	ConsentGiven        bool
	AutoTrackingEnabled bool
	UpdatedAt           time.Time
}

// Allows reports whether background tracking may run.
func (c TrackingConsent) Allows() bool {
	return c.ConsentGiven && c.AutoTrackingEnabled
}
