package session

import "time"

// Event is one of the four inputs the state machine accepts. The union is
// closed; every input carries a unique id used for replay detection and a
// timestamp used for ordering.
type Event interface {
	EventID() string
	OccurredAt() time.Time
	isEvent()
}

// LocationSample is a background GPS reading for the session's employee.
type LocationSample struct {
	ID             string
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Timestamp      time.Time
}

func (e LocationSample) EventID() string       { return e.ID }
func (e LocationSample) OccurredAt() time.Time { return e.Timestamp }
func (e LocationSample) isEvent()              {}

type ActionKind string

const (
	ActionClockIn    ActionKind = "clock_in"
	ActionClockOut   ActionKind = "clock_out"
	ActionStartBreak ActionKind = "start_break"
	ActionEndBreak   ActionKind = "end_break"
)

var ActionKindValues = []string{
	string(ActionClockIn),
	string(ActionClockOut),
	string(ActionStartBreak),
	string(ActionEndBreak),
}

// ManualAction is an explicit employee action from a client device. Position
// is optional; actions that require a geofence check reject without it.
type ManualAction struct {
	ID        string
	Kind      ActionKind
	ActorID   string
	Latitude  *float64
	Longitude *float64
	Timestamp time.Time
}

func (e ManualAction) EventID() string       { return e.ID }
func (e ManualAction) OccurredAt() time.Time { return e.Timestamp }
func (e ManualAction) isEvent()              {}

// TimeTick drives time-based transitions. Ticks arrive from the sweep job
// at a fixed cadence; missing ticks delay transitions but never lose them.
type TimeTick struct {
	ID  string
	Now time.Time
}

func (e TimeTick) EventID() string       { return e.ID }
func (e TimeTick) OccurredAt() time.Time { return e.Now }
func (e TimeTick) isEvent()              {}

type OverrideAction string

const (
	OverrideForceClockIn    OverrideAction = "force_clock_in"
	OverrideForceClockOut   OverrideAction = "force_clock_out"
	OverrideForceStartBreak OverrideAction = "force_start_break"
	OverrideForceEndBreak   OverrideAction = "force_end_break"
	OverrideMarkNoShow      OverrideAction = "mark_no_show"
	OverrideResolveError    OverrideAction = "resolve_error"
)

var OverrideActionValues = []string{
	string(OverrideForceClockIn),
	string(OverrideForceClockOut),
	string(OverrideForceStartBreak),
	string(OverrideForceEndBreak),
	string(OverrideMarkNoShow),
	string(OverrideResolveError),
}

// AdminOverride is a privileged correction. It bypasses geofence and timing
// checks but not structural ones, and is always audited.
type AdminOverride struct {
	ID        string
	Action    OverrideAction
	ActorID   string
	Reason    string
	ErrorID   string // for resolve_error
	Timestamp time.Time
}

func (e AdminOverride) EventID() string       { return e.ID }
func (e AdminOverride) OccurredAt() time.Time { return e.Timestamp }
func (e AdminOverride) isEvent()              {}
