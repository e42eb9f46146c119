package session

import "time"

type SessionStatus string

const (
	StatusScheduled        SessionStatus = "scheduled"
	StatusMonitoringActive SessionStatus = "monitoring_active"
	StatusClockedIn        SessionStatus = "clocked_in"
	StatusOnBreak          SessionStatus = "on_break"
	StatusCompleted        SessionStatus = "completed"
	StatusNoShow           SessionStatus = "no_show"
	StatusError            SessionStatus = "error"
)

// IsTerminal reports whether no further work transitions are possible.
// Terminal sessions still accept admin overrides for corrections.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusNoShow
}

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthAttention HealthStatus = "attention"
	HealthCritical  HealthStatus = "critical"
)

type BreakType string

const (
	BreakManual       BreakType = "manual"
	BreakAuto         BreakType = "auto"
	BreakRequired     BreakType = "required"
	BreakGeofenceExit BreakType = "geofence_exit"
)

// BreakPeriod is one break inside a session. EndTime nil means the break
// is still open; an open break always sits last in the session's slice.
type BreakPeriod struct {
	ID              string     `json:"id"`
	Type            BreakType  `json:"type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	TriggeredBy     string     `json:"triggered_by"`
	DurationMinutes int        `json:"duration_minutes"`
}

func (b BreakPeriod) Open() bool {
	return b.EndTime == nil
}

// OvertimePeriod is a span worked beyond the policy overtime threshold.
type OvertimePeriod struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

type SessionEventType string

const (
	EventSessionCreated    SessionEventType = "session_created"
	EventMonitoringStarted SessionEventType = "monitoring_started"
	EventArrival           SessionEventType = "arrival"
	EventClockIn           SessionEventType = "clock_in"
	EventClockOut          SessionEventType = "clock_out"
	EventBreakStart        SessionEventType = "break_start"
	EventBreakEnd          SessionEventType = "break_end"
	EventOvertimeStart     SessionEventType = "overtime_start"
	EventOvertimeEnd       SessionEventType = "overtime_end"
	EventNoShow            SessionEventType = "no_show"
	EventAdminOverride     SessionEventType = "admin_override"
	EventErrorResolved     SessionEventType = "error_resolved"
)

// SessionEvent is one entry of the append-only audit trail. Metadata carries
// the originating input id under "input_id" so replays can be detected.
type SessionEvent struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Type      SessionEventType  `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AdminOverrideRecord documents one forced correction.
type AdminOverrideRecord struct {
	ID           string        `json:"id"`
	Action       string        `json:"action"`
	ActorID      string        `json:"actor_id"`
	Reason       string        `json:"reason"`
	BeforeStatus SessionStatus `json:"before_status"`
	AfterStatus  SessionStatus `json:"after_status"`
	Timestamp    time.Time     `json:"timestamp"`
}

type ErrorSeverity string

const (
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

type SessionErrorType string

const (
	ErrorImplausibleMovement  SessionErrorType = "implausible_movement"
	ErrorMissingJobSite       SessionErrorType = "missing_job_site"
	ErrorAutoTransitionFailed SessionErrorType = "auto_transition_failed"
)

// SessionError is an anomaly recorded against the session rather than
// surfaced to the caller. Unresolved errors degrade the compliance score.
type SessionError struct {
	ID         string           `json:"id"`
	Type       SessionErrorType `json:"type"`
	Severity   ErrorSeverity    `json:"severity"`
	Message    string           `json:"message"`
	OccurredAt time.Time        `json:"occurred_at"`
	Resolved   bool             `json:"resolved"`
	ResolvedBy string           `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}

// SessionMetrics is fully derived from the session's recorded periods and
// errors; it is recomputed after every accepted transition.
type SessionMetrics struct {
	ScheduledMinutes int          `json:"scheduled_minutes"`
	WorkedMinutes    int          `json:"worked_minutes"`
	BreakMinutes     int          `json:"break_minutes"`
	OvertimeMinutes  int          `json:"overtime_minutes"`
	PunctualityScore float64      `json:"punctuality_score"`
	AttendanceRate   float64      `json:"attendance_rate"`
	ComplianceScore  float64      `json:"compliance_score"`
	Health           HealthStatus `json:"health"`
}

// ScheduleSession is the live tracking state for one employee's shift.
type ScheduleSession struct {
	ID         string
	ScheduleID string
	EmployeeID string
	CompanyID  string
	JobSiteID  string

	ScheduledStart time.Time
	ScheduledEnd   time.Time

	// Presence
	EmployeePresent bool
	ArrivalAt       *time.Time
	DepartureAt     *time.Time
	LastLocationAt  *time.Time
	LastLatitude    *float64
	LastLongitude   *float64

	// Clock state
	ClockedIn    bool
	ClockInAt    *time.Time
	ClockOutAt   *time.Time
	AutoClockIn  bool
	AutoClockOut bool

	// Breaks and overtime
	CurrentlyOnBreak bool
	Breaks           []BreakPeriod
	IsInOvertime     bool
	Overtime         []OvertimePeriod

	Status      SessionStatus
	PriorStatus SessionStatus

	Events    []SessionEvent
	Overrides []AdminOverrideRecord
	Errors    []SessionError

	Metrics SessionMetrics

	LastManualActionAt *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OpenBreak returns the currently open break, or nil.
func (s *ScheduleSession) OpenBreak() *BreakPeriod {
	if len(s.Breaks) == 0 {
		return nil
	}
	last := &s.Breaks[len(s.Breaks)-1]
	if last.Open() {
		return last
	}
	return nil
}

// HasEvent reports whether an audit event originating from the given input
// id was already appended.
func (s *ScheduleSession) HasEvent(inputID string) bool {
	for _, e := range s.Events {
		if e.Metadata["input_id"] == inputID {
			return true
		}
	}
	return false
}

// LastEventTime returns the timestamp of the newest audit event, or the
// zero time for a fresh session.
func (s *ScheduleSession) LastEventTime() time.Time {
	if len(s.Events) == 0 {
		return time.Time{}
	}
	return s.Events[len(s.Events)-1].Timestamp
}

// UnresolvedErrors returns the anomalies still needing attention.
func (s *ScheduleSession) UnresolvedErrors() []SessionError {
	var out []SessionError
	for _, e := range s.Errors {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	return out
}

func (s *ScheduleSession) HasUnresolvedError(t SessionErrorType) bool {
	for _, e := range s.Errors {
		if e.Type == t && !e.Resolved {
			return true
		}
	}
	return false
}

// Active reports whether the session is still progressing through its shift.
func (s *ScheduleSession) Active() bool {
	return !s.Status.IsTerminal()
}

// Clone deep-copies the session so transition logic can mutate freely
// without aliasing the caller's snapshot.
func (s ScheduleSession) Clone() ScheduleSession {
	c := s

	c.ArrivalAt = copyTime(s.ArrivalAt)
	c.DepartureAt = copyTime(s.DepartureAt)
	c.LastLocationAt = copyTime(s.LastLocationAt)
	c.ClockInAt = copyTime(s.ClockInAt)
	c.ClockOutAt = copyTime(s.ClockOutAt)
	c.LastManualActionAt = copyTime(s.LastManualActionAt)
	c.LastLatitude = copyFloat(s.LastLatitude)
	c.LastLongitude = copyFloat(s.LastLongitude)

	c.Breaks = make([]BreakPeriod, len(s.Breaks))
	for i, b := range s.Breaks {
		b.EndTime = copyTime(b.EndTime)
		c.Breaks[i] = b
	}
	c.Overtime = make([]OvertimePeriod, len(s.Overtime))
	for i, o := range s.Overtime {
		o.EndTime = copyTime(o.EndTime)
		c.Overtime[i] = o
	}
	c.Events = make([]SessionEvent, len(s.Events))
	for i, e := range s.Events {
		e.Latitude = copyFloat(e.Latitude)
		e.Longitude = copyFloat(e.Longitude)
		if e.Metadata != nil {
			md := make(map[string]string, len(e.Metadata))
			for k, v := range e.Metadata {
				md[k] = v
			}
			e.Metadata = md
		}
		c.Events[i] = e
	}
	c.Overrides = make([]AdminOverrideRecord, len(s.Overrides))
	copy(c.Overrides, s.Overrides)
	c.Errors = make([]SessionError, len(s.Errors))
	for i, e := range s.Errors {
		e.ResolvedAt = copyTime(e.ResolvedAt)
		c.Errors[i] = e
	}

	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
