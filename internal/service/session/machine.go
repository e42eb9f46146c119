package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/geo"
)

// maxPlausibleSpeedMPS is the movement speed above which consecutive
// samples are treated as GPS glitches rather than travel. 70 m/s is
// roughly 250 km/h.
const maxPlausibleSpeedMPS = 70.0

const systemActor = "system"

// Inputs carries the per-company context a transition needs. Policy and
// site are resolved once per session by the service and reused across
// transitions.
type Inputs struct {
	Policy policy.CompanyPolicySettings
	Site   *schedule.JobSite
}

// Apply runs one input event against a session snapshot and returns the
// resulting snapshot plus the audit events the transition appended. The
// input snapshot is never mutated. A replayed event id returns the snapshot
// unchanged; an event older than the last recorded one fails with
// ErrEventConflict; a failed precondition fails with PreconditionError and
// leaves the snapshot untouched.
func Apply(cur session.ScheduleSession, ev session.Event, in Inputs) (session.ScheduleSession, []session.SessionEvent, error) {
	if cur.HasEvent(ev.EventID()) {
		return cur, nil, nil
	}
	if last := cur.LastEventTime(); !last.IsZero() && ev.OccurredAt().Before(last) {
		return cur, nil, fmt.Errorf("event %s at %s before last event at %s: %w",
			ev.EventID(), ev.OccurredAt().Format(time.RFC3339), last.Format(time.RFC3339), session.ErrEventConflict)
	}

	a := &applier{s: cur.Clone(), inputID: ev.EventID(), in: in}

	var err error
	switch e := ev.(type) {
	case session.LocationSample:
		err = a.applyLocation(e)
	case session.ManualAction:
		err = a.applyManual(e)
	case session.TimeTick:
		err = a.applyTick(e)
	case session.AdminOverride:
		err = a.applyOverride(e)
	default:
		err = a.reject("apply", session.ErrUnknownAction)
	}
	if err != nil {
		return cur, nil, err
	}

	RecomputeMetrics(&a.s, in.Policy, ev.OccurredAt())
	return a.s, a.appended, nil
}

type applier struct {
	s        session.ScheduleSession
	inputID  string
	in       Inputs
	appended []session.SessionEvent
}

func (a *applier) reject(op string, err error) error {
	return &session.PreconditionError{Op: op, Status: a.s.Status, Err: err}
}

func (a *applier) record(t session.SessionEventType, ts time.Time, actor, detail string, lat, lon *float64) {
	ev := session.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: a.s.ID,
		Type:      t,
		Timestamp: ts,
		Actor:     actor,
		Latitude:  lat,
		Longitude: lon,
		Detail:    detail,
		Metadata:  map[string]string{"input_id": a.inputID},
	}
	a.s.Events = append(a.s.Events, ev)
	a.appended = append(a.appended, ev)
}

func (a *applier) addAnomaly(t session.SessionErrorType, sev session.ErrorSeverity, msg string, ts time.Time) {
	if a.s.HasUnresolvedError(t) {
		return
	}
	a.s.Errors = append(a.s.Errors, session.SessionError{
		ID:         uuid.NewString(),
		Type:       t,
		Severity:   sev,
		Message:    msg,
		OccurredAt: ts,
	})
	if sev == session.SeverityCritical && a.s.Status != session.StatusError {
		a.s.PriorStatus = a.s.Status
		a.s.Status = session.StatusError
	}
}

// --- shared transitions ---

func (a *applier) clockIn(ts time.Time, actor string, auto bool, detail string, lat, lon *float64) {
	t := ts
	a.s.ClockedIn = true
	a.s.ClockInAt = &t
	a.s.AutoClockIn = auto
	a.s.EmployeePresent = true
	if a.s.ArrivalAt == nil {
		arr := ts
		a.s.ArrivalAt = &arr
	}
	a.s.Status = session.StatusClockedIn
	a.record(session.EventClockIn, ts, actor, detail, lat, lon)
}

func (a *applier) clockOut(ts time.Time, actor string, auto bool, detail string, lat, lon *float64) {
	a.closeOpenBreak(ts)
	a.closeOpenOvertime(ts)
	t := ts
	a.s.ClockedIn = false
	a.s.ClockOutAt = &t
	a.s.AutoClockOut = auto
	a.s.Status = session.StatusCompleted
	a.record(session.EventClockOut, ts, actor, detail, lat, lon)
}

func (a *applier) startBreak(ts time.Time, bt session.BreakType, triggeredBy, actor, detail string) {
	a.s.Breaks = append(a.s.Breaks, session.BreakPeriod{
		ID:          uuid.NewString(),
		Type:        bt,
		StartTime:   ts,
		TriggeredBy: triggeredBy,
	})
	a.s.CurrentlyOnBreak = true
	a.s.Status = session.StatusOnBreak
	a.record(session.EventBreakStart, ts, actor, detail, nil, nil)
}

func (a *applier) endBreak(ts time.Time, actor, detail string) {
	a.closeOpenBreak(ts)
	a.s.Status = session.StatusClockedIn
	a.record(session.EventBreakEnd, ts, actor, detail, nil, nil)
}

// closeOpenBreak closes the open break without recording an event; callers
// record the event appropriate to their transition.
func (a *applier) closeOpenBreak(ts time.Time) {
	if ob := a.s.OpenBreak(); ob != nil {
		end := ts
		ob.EndTime = &end
		ob.DurationMinutes = minutesBetween(ob.StartTime, end)
	}
	a.s.CurrentlyOnBreak = false
}

func (a *applier) closeOpenOvertime(ts time.Time) {
	if n := len(a.s.Overtime); n > 0 && a.s.Overtime[n-1].EndTime == nil {
		end := ts
		a.s.Overtime[n-1].EndTime = &end
		a.s.Overtime[n-1].DurationMinutes = minutesBetween(a.s.Overtime[n-1].StartTime, end)
	}
	a.s.IsInOvertime = false
}

func (a *applier) markManual(ts time.Time) {
	t := ts
	a.s.LastManualActionAt = &t
}

// --- location samples ---

func (a *applier) applyLocation(e session.LocationSample) error {
	// Samples only observe; they never fail the caller.
	if a.s.Status.IsTerminal() || a.s.Status == session.StatusScheduled || a.s.Status == session.StatusError {
		return nil
	}
	if a.in.Site == nil {
		a.addAnomaly(session.ErrorMissingJobSite, session.SeverityError,
			"job site missing; geofence evaluation skipped", e.Timestamp)
		return nil
	}

	if a.s.LastLatitude != nil && a.s.LastLongitude != nil && a.s.LastLocationAt != nil {
		if dt := e.Timestamp.Sub(*a.s.LastLocationAt).Seconds(); dt > 0 {
			dist := geo.DistanceMeters(*a.s.LastLatitude, *a.s.LastLongitude, e.Latitude, e.Longitude)
			if dist/dt > maxPlausibleSpeedMPS {
				a.addAnomaly(session.ErrorImplausibleMovement, session.SeverityWarning,
					fmt.Sprintf("moved %.0fm in %.0fs between samples", dist, dt), e.Timestamp)
				return nil
			}
		}
	}

	presence := geo.Evaluate(e.Latitude, e.Longitude, e.AccuracyMeters,
		a.in.Site.Latitude, a.in.Site.Longitude, a.in.Site.RadiusMeters,
		a.in.Policy.GeofenceRadiusToleranceMeters, a.in.Policy.GeofenceAccuracyMeters)
	if presence == geo.Inconclusive {
		return nil
	}

	ts := e.Timestamp
	lat, lon := e.Latitude, e.Longitude
	a.s.LastLocationAt = &ts
	a.s.LastLatitude = &lat
	a.s.LastLongitude = &lon

	// A sample landing on the exact instant of a manual action is only a
	// position heartbeat; the manual action wins.
	manualAtSameInstant := a.s.LastManualActionAt != nil && a.s.LastManualActionAt.Equal(e.Timestamp)

	switch a.s.Status {
	case session.StatusMonitoringActive:
		if presence == geo.Outside {
			if a.s.EmployeePresent {
				a.s.EmployeePresent = false
				dep := ts
				a.s.DepartureAt = &dep
			}
			return nil
		}
		newlyArrived := !a.s.EmployeePresent
		if newlyArrived {
			a.s.EmployeePresent = true
			arr := ts
			a.s.ArrivalAt = &arr
		}
		if !manualAtSameInstant && a.canAutoClockIn(ts) {
			a.clockIn(ts, systemActor, true, "auto clock-in inside geofence", &lat, &lon)
		} else if newlyArrived {
			a.record(session.EventArrival, ts, systemActor, "entered job site geofence", &lat, &lon)
		}

	case session.StatusClockedIn:
		if presence == geo.Inside {
			a.s.EmployeePresent = true
			return nil
		}
		if manualAtSameInstant {
			return nil
		}
		a.s.EmployeePresent = false
		dep := ts
		a.s.DepartureAt = &dep
		a.startBreak(ts, session.BreakGeofenceExit, systemActor, systemActor, "left job site geofence while clocked in")

	case session.StatusOnBreak:
		ob := a.s.OpenBreak()
		if ob == nil || ob.Type != session.BreakGeofenceExit {
			a.s.EmployeePresent = presence == geo.Inside
			return nil
		}
		if presence == geo.Inside {
			if !manualAtSameInstant {
				a.s.EmployeePresent = true
				a.endBreak(ts, systemActor, "returned to job site geofence")
			}
			return nil
		}
		if minutesBetween(ob.StartTime, ts) >= a.in.Policy.GeofenceExitGraceMinutes {
			a.closeOpenBreak(ts)
			a.clockOut(ts, systemActor, true, "geofence exit grace expired", &lat, &lon)
		}
	}
	return nil
}

func (a *applier) canAutoClockIn(ts time.Time) bool {
	pol := a.in.Policy
	if !pol.AutoClockInEnabled || a.s.ClockedIn {
		return false
	}
	earliest := a.s.ScheduledStart.Add(-time.Duration(pol.EarlyClockInMinutes) * time.Minute)
	if ts.Before(earliest) {
		return false
	}
	if pol.MinimumTimeAtSiteMinutes > 0 {
		if a.s.ArrivalAt == nil || minutesBetween(*a.s.ArrivalAt, ts) < pol.MinimumTimeAtSiteMinutes {
			return false
		}
	}
	return true
}

// --- manual actions ---

func (a *applier) applyManual(e session.ManualAction) error {
	if a.s.Status.IsTerminal() || a.s.Status == session.StatusError {
		return a.reject(string(e.Kind), session.ErrSessionClosed)
	}

	switch e.Kind {
	case session.ActionClockIn:
		if a.s.ClockedIn {
			return a.reject("clock_in", session.ErrAlreadyClockedIn)
		}
		earliest := a.s.ScheduledStart.Add(-time.Duration(a.in.Policy.EarlyClockInMinutes) * time.Minute)
		if e.Timestamp.Before(earliest) {
			return a.reject("clock_in", session.ErrTooEarlyToClockIn)
		}
		if a.in.Site != nil {
			if e.Latitude == nil || e.Longitude == nil {
				return a.reject("clock_in", session.ErrLocationRequired)
			}
			if !geo.WithinRadius(*e.Latitude, *e.Longitude,
				a.in.Site.Latitude, a.in.Site.Longitude,
				a.in.Site.RadiusMeters, a.in.Policy.GeofenceRadiusToleranceMeters) {
				return a.reject("clock_in", session.ErrOutsideGeofence)
			}
		} else {
			a.addAnomaly(session.ErrorMissingJobSite, session.SeverityError,
				"job site missing; manual clock-in accepted without geofence check", e.Timestamp)
		}
		a.markManual(e.Timestamp)
		a.clockIn(e.Timestamp, e.ActorID, false, "manual clock-in", e.Latitude, e.Longitude)

	case session.ActionClockOut:
		if !a.s.ClockedIn {
			return a.reject("clock_out", session.ErrNotClockedIn)
		}
		earliest := a.s.ScheduledEnd.Add(-time.Duration(a.in.Policy.EarlyClockOutMinutes) * time.Minute)
		if e.Timestamp.Before(earliest) {
			return a.reject("clock_out", session.ErrTooEarlyToClockOut)
		}
		a.markManual(e.Timestamp)
		a.clockOut(e.Timestamp, e.ActorID, false, "manual clock-out", e.Latitude, e.Longitude)

	case session.ActionStartBreak:
		if a.s.CurrentlyOnBreak {
			return a.reject("start_break", session.ErrAlreadyOnBreak)
		}
		if a.s.Status != session.StatusClockedIn {
			return a.reject("start_break", session.ErrNotClockedIn)
		}
		a.markManual(e.Timestamp)
		a.startBreak(e.Timestamp, session.BreakManual, e.ActorID, e.ActorID, "manual break")

	case session.ActionEndBreak:
		if !a.s.CurrentlyOnBreak {
			return a.reject("end_break", session.ErrNotOnBreak)
		}
		a.markManual(e.Timestamp)
		a.endBreak(e.Timestamp, e.ActorID, "manual break end")

	default:
		return a.reject(string(e.Kind), session.ErrUnknownAction)
	}
	return nil
}

// --- time ticks ---

func (a *applier) applyTick(e session.TimeTick) error {
	now := e.Now
	pol := a.in.Policy

	switch a.s.Status {
	case session.StatusScheduled:
		lead := a.s.ScheduledStart.Add(-time.Duration(pol.MonitoringLeadMinutes) * time.Minute)
		if !now.Before(lead) {
			a.s.Status = session.StatusMonitoringActive
			a.record(session.EventMonitoringStarted, now, systemActor, "monitoring window opened", nil, nil)
		}

	case session.StatusMonitoringActive:
		deadline := a.s.ScheduledStart.Add(time.Duration(pol.NoShowGraceMinutes) * time.Minute)
		if now.After(deadline) && a.s.ArrivalAt == nil && !a.s.ClockedIn {
			a.s.Status = session.StatusNoShow
			a.record(session.EventNoShow, now, systemActor, "no presence detected past grace window", nil, nil)
		}

	case session.StatusClockedIn:
		// At most one transition per tick; checks run in priority order.
		switch {
		case a.autoClockOutDue(now):
			a.clockOut(now, systemActor, true,
				"no clock-out recorded past scheduled end; session auto-closed", nil, nil)
		case a.requiredBreakDue(now):
			a.startBreak(now, session.BreakRequired, systemActor, systemActor, "required break started")
		case a.overtimeDue(now):
			a.s.IsInOvertime = true
			a.s.Overtime = append(a.s.Overtime, session.OvertimePeriod{
				ID:        uuid.NewString(),
				StartTime: now,
			})
			a.record(session.EventOvertimeStart, now, systemActor, "overtime threshold crossed", nil, nil)
		}

	case session.StatusOnBreak:
		ob := a.s.OpenBreak()
		if ob == nil {
			return nil
		}
		switch {
		case ob.Type == session.BreakGeofenceExit &&
			minutesBetween(ob.StartTime, now) >= pol.GeofenceExitGraceMinutes:
			a.closeOpenBreak(now)
			a.clockOut(now, systemActor, true, "geofence exit grace expired", nil, nil)
		case ob.Type == session.BreakRequired && pol.RequiredBreakDurationMinutes > 0 &&
			minutesBetween(ob.StartTime, now) >= pol.RequiredBreakDurationMinutes:
			a.endBreak(now, systemActor, "required break completed")
		}
	}
	return nil
}

func (a *applier) autoClockOutDue(now time.Time) bool {
	pol := a.in.Policy
	if !pol.AutoClockOutEnabled {
		return false
	}
	return !now.Before(a.s.ScheduledEnd.Add(time.Duration(pol.AutoClockOutDelayMinutes) * time.Minute))
}

func (a *applier) requiredBreakDue(now time.Time) bool {
	pol := a.in.Policy
	if !pol.AutoStartBreakEnabled || pol.MinimumWorkBeforeBreakMinutes <= 0 {
		return false
	}
	if len(a.s.Breaks) > 0 || a.s.ClockInAt == nil {
		return false
	}
	return minutesBetween(*a.s.ClockInAt, now) >= pol.MinimumWorkBeforeBreakMinutes
}

func (a *applier) overtimeDue(now time.Time) bool {
	pol := a.in.Policy
	if pol.OvertimeThresholdMinutes <= 0 || a.s.IsInOvertime {
		return false
	}
	return WorkedMinutes(a.s, now) >= pol.OvertimeThresholdMinutes
}

// --- admin overrides ---

func (a *applier) applyOverride(e session.AdminOverride) error {
	before := a.s.Status

	switch e.Action {
	case session.OverrideForceClockIn:
		if a.s.ClockedIn {
			return a.reject("force_clock_in", session.ErrAlreadyClockedIn)
		}
		a.clockIn(e.Timestamp, e.ActorID, false, "forced clock-in: "+e.Reason, nil, nil)

	case session.OverrideForceClockOut:
		if !a.s.ClockedIn {
			return a.reject("force_clock_out", session.ErrNotClockedIn)
		}
		a.clockOut(e.Timestamp, e.ActorID, false, "forced clock-out: "+e.Reason, nil, nil)

	case session.OverrideForceStartBreak:
		if a.s.CurrentlyOnBreak {
			return a.reject("force_start_break", session.ErrAlreadyOnBreak)
		}
		if !a.s.ClockedIn {
			return a.reject("force_start_break", session.ErrNotClockedIn)
		}
		a.startBreak(e.Timestamp, session.BreakManual, e.ActorID, e.ActorID, "forced break: "+e.Reason)

	case session.OverrideForceEndBreak:
		if !a.s.CurrentlyOnBreak {
			return a.reject("force_end_break", session.ErrNotOnBreak)
		}
		a.endBreak(e.Timestamp, e.ActorID, "forced break end: "+e.Reason)

	case session.OverrideMarkNoShow:
		if a.s.Status.IsTerminal() {
			return a.reject("mark_no_show", session.ErrSessionClosed)
		}
		if a.s.ClockedIn {
			return a.reject("mark_no_show", session.ErrAlreadyClockedIn)
		}
		a.s.Status = session.StatusNoShow
		a.record(session.EventNoShow, e.Timestamp, e.ActorID, "marked no-show: "+e.Reason, nil, nil)

	case session.OverrideResolveError:
		resolved := false
		for i := range a.s.Errors {
			if a.s.Errors[i].ID == e.ErrorID && !a.s.Errors[i].Resolved {
				a.s.Errors[i].Resolved = true
				a.s.Errors[i].ResolvedBy = e.ActorID
				ts := e.Timestamp
				a.s.Errors[i].ResolvedAt = &ts
				resolved = true
				break
			}
		}
		if !resolved {
			return a.reject("resolve_error", session.ErrErrorNotFound)
		}
		if a.s.Status == session.StatusError && len(a.s.UnresolvedErrors()) == 0 {
			a.s.Status = a.s.PriorStatus
		}
		a.record(session.EventErrorResolved, e.Timestamp, e.ActorID, "error resolved: "+e.Reason, nil, nil)

	default:
		return a.reject(string(e.Action), session.ErrUnknownAction)
	}

	a.s.Overrides = append(a.s.Overrides, session.AdminOverrideRecord{
		ID:           uuid.NewString(),
		Action:       string(e.Action),
		ActorID:      e.ActorID,
		Reason:       e.Reason,
		BeforeStatus: before,
		AfterStatus:  a.s.Status,
		Timestamp:    e.Timestamp,
	})
	return nil
}
