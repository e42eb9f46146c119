package schedule

import "time"

type ShiftType string

const (
	ShiftRegular  ShiftType = "regular"
	ShiftOvertime ShiftType = "overtime"
	ShiftOnCall   ShiftType = "on_call"
)

var ShiftTypeValues = []string{
	string(ShiftRegular),
	string(ShiftOvertime),
	string(ShiftOnCall),
}

type RecurrenceFrequency string

const (
	RecurrenceDaily  RecurrenceFrequency = "daily"
	RecurrenceWeekly RecurrenceFrequency = "weekly"
)

type RecurrenceRule struct {
	Frequency  RecurrenceFrequency
	Interval   int
	DaysOfWeek []int // 1=Monday, ..., 7=Sunday
	Until      *time.Time
}

// Schedule is a planned shift. Immutable once in progress except via explicit
// ScheduleChange records; cancellation is soft.
type Schedule struct {
	ID         string
	CompanyID  string
	EmployeeID string
	JobSiteID  string

	Start time.Time
	End   time.Time

	ShiftType             ShiftType
	BreakAllowanceMinutes int
	ExpectedMinutes       int
	Recurrence            *RecurrenceRule
	RequiresApproval      bool

	Cancelled   bool
	CancelledAt *time.Time

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	Changes []ScheduleChange
}

// InProgress reports whether the shift has started relative to now.
func (s Schedule) InProgress(now time.Time) bool {
	return !now.Before(s.Start) && now.Before(s.End)
}

// Overlaps reports whether two schedules' [start, end) intervals intersect.
func (s Schedule) Overlaps(other Schedule) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// ScheduleChange captures one mutation of an in-progress schedule.
type ScheduleChange struct {
	ID         string
	ScheduleID string
	ChangedBy  string
	Reason     string
	Field      string
	OldValue   string
	NewValue   string
	ChangedAt  time.Time
}

// JobSite is the geofenced location a shift is worked at.
type JobSite struct {
	ID           string
	CompanyID    string
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ConflictType string

const (
	ConflictOverlap          ConflictType = "overlap"
	ConflictInsufficientRest ConflictType = "insufficient_rest"
)

type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
)

// ScheduleConflict annotates a pair of schedules; it never gates session
// transitions.
type ScheduleConflict struct {
	ID          string
	Type        ConflictType
	Severity    ConflictSeverity
	EmployeeID  string
	ScheduleAID string
	ScheduleBID string
	Detail      string
	DetectedAt  time.Time
}
