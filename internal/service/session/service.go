package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/eventbus"
)

// saveAttempts bounds optimistic-concurrency retries per input.
const saveAttempts = 3

type SessionServiceImpl struct {
	sessions  session.SessionRepository
	schedules schedule.ScheduleRepository
	jobSites  schedule.JobSiteRepository
	policies  policy.PolicyRepository
	hub       *eventbus.Hub
	logger    *slog.Logger

	// Policy and job site are resolved once per session and reused for its
	// remaining transitions.
	mu     sync.RWMutex
	inputs map[string]Inputs
}

var _ session.SessionService = (*SessionServiceImpl)(nil)

func NewSessionService(
	sessions session.SessionRepository,
	schedules schedule.ScheduleRepository,
	jobSites schedule.JobSiteRepository,
	policies policy.PolicyRepository,
	hub *eventbus.Hub,
	logger *slog.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessions:  sessions,
		schedules: schedules,
		jobSites:  jobSites,
		policies:  policies,
		hub:       hub,
		logger:    logger,
		inputs:    make(map[string]Inputs),
	}
}

func (s *SessionServiceImpl) CreateFromSchedule(ctx context.Context, scheduleID string, companyID string) (session.SessionResponse, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID, companyID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("load schedule: %w", err)
	}
	if sched.Cancelled {
		return session.SessionResponse{}, schedule.ErrScheduleCancelled
	}

	if _, err := s.sessions.GetByScheduleID(ctx, scheduleID, companyID); err == nil {
		return session.SessionResponse{}, session.ErrSessionExists
	} else if !errors.Is(err, session.ErrSessionNotFound) {
		return session.SessionResponse{}, fmt.Errorf("check existing session: %w", err)
	}

	now := time.Now()
	sess := session.ScheduleSession{
		ID:             uuid.NewString(),
		ScheduleID:     sched.ID,
		EmployeeID:     sched.EmployeeID,
		CompanyID:      sched.CompanyID,
		JobSiteID:      sched.JobSiteID,
		ScheduledStart: sched.Start,
		ScheduledEnd:   sched.End,
		Status:         session.StatusScheduled,
		PriorStatus:    session.StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	sess.Events = append(sess.Events, session.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Type:      session.EventSessionCreated,
		Timestamp: now,
		Actor:     systemActor,
		Detail:    "session created for schedule " + sched.ID,
	})

	in := s.resolveInputs(ctx, sess)
	RecomputeMetrics(&sess, in.Policy, now)

	created, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("create session: %w", err)
	}

	s.hub.Publish(eventbus.Event{
		CompanyID:  created.CompanyID,
		Type:       eventbus.SessionCreated,
		SessionID:  created.ID,
		EmployeeID: created.EmployeeID,
		Timestamp:  now,
	})
	return toSessionResponse(created), nil
}

func (s *SessionServiceImpl) ApplyEvent(ctx context.Context, sessionID string, companyID string, ev session.Event) (session.SessionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		cur, err := s.sessions.GetByID(ctx, sessionID, companyID)
		if err != nil {
			return session.SessionResponse{}, err
		}

		in := s.inputsFor(ctx, cur)
		next, appended, err := Apply(cur, ev, in)
		if err != nil {
			return session.SessionResponse{}, err
		}

		saved, err := s.sessions.Save(ctx, next, appended)
		if err != nil {
			if errors.Is(err, session.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return session.SessionResponse{}, fmt.Errorf("save session: %w", err)
		}

		s.publish(saved, appended)
		return toSessionResponse(saved), nil
	}
	return session.SessionResponse{}, fmt.Errorf("apply event %s: %w", ev.EventID(), lastErr)
}

func (s *SessionServiceImpl) ApplySystemEvent(ctx context.Context, sessionID string, companyID string, ev session.Event) error {
	_, err := s.ApplyEvent(ctx, sessionID, companyID, ev)
	if err == nil {
		return nil
	}
	if !session.IsPrecondition(err) {
		return err
	}
	// Automatic inputs have no caller to report to; the rejection is
	// recorded on the session instead.
	return s.recordTransitionFailure(ctx, sessionID, companyID, ev, err)
}

func (s *SessionServiceImpl) recordTransitionFailure(ctx context.Context, sessionID, companyID string, ev session.Event, cause error) error {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		cur, err := s.sessions.GetByID(ctx, sessionID, companyID)
		if err != nil {
			return err
		}
		if cur.HasUnresolvedError(session.ErrorAutoTransitionFailed) {
			return nil
		}
		next := cur.Clone()
		next.Errors = append(next.Errors, session.SessionError{
			ID:         uuid.NewString(),
			Type:       session.ErrorAutoTransitionFailed,
			Severity:   session.SeverityWarning,
			Message:    cause.Error(),
			OccurredAt: ev.OccurredAt(),
		})
		in := s.inputsFor(ctx, next)
		RecomputeMetrics(&next, in.Policy, ev.OccurredAt())

		saved, err := s.sessions.Save(ctx, next, nil)
		if err != nil {
			if errors.Is(err, session.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("record transition failure: %w", err)
		}
		s.hub.Publish(eventbus.Event{
			CompanyID:  saved.CompanyID,
			Type:       eventbus.ErrorRecorded,
			SessionID:  saved.ID,
			EmployeeID: saved.EmployeeID,
			Timestamp:  ev.OccurredAt(),
		})
		return nil
	}
	return session.ErrVersionConflict
}

func (s *SessionServiceImpl) ManualAction(ctx context.Context, sessionID string, companyID, actorID string, req session.ManualActionRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}
	return s.ApplyEvent(ctx, sessionID, companyID, session.ManualAction{
		ID:        uuid.NewString(),
		Kind:      session.ActionKind(req.Action),
		ActorID:   actorID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: time.Now(),
	})
}

func (s *SessionServiceImpl) IngestLocation(ctx context.Context, sessionID string, companyID string, req session.LocationSampleRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return s.ApplyEvent(ctx, sessionID, companyID, session.LocationSample{
		ID:             uuid.NewString(),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyMeters: req.AccuracyMeters,
		Timestamp:      ts,
	})
}

func (s *SessionServiceImpl) Override(ctx context.Context, sessionID string, companyID, actorID string, req session.OverrideRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}
	return s.ApplyEvent(ctx, sessionID, companyID, session.AdminOverride{
		ID:        uuid.NewString(),
		Action:    session.OverrideAction(req.Action),
		ActorID:   actorID,
		Reason:    req.Reason,
		ErrorID:   req.ErrorID,
		Timestamp: time.Now(),
	})
}

func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string, companyID string) (session.SessionResponse, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID, companyID)
	if err != nil {
		return session.SessionResponse{}, err
	}
	return toSessionResponse(sess), nil
}

func (s *SessionServiceImpl) ListSessions(ctx context.Context, filter session.SessionFilter, companyID string) (session.ListSessionsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	sessions, total, err := s.sessions.List(ctx, filter, companyID)
	if err != nil {
		return session.ListSessionsResponse{}, fmt.Errorf("list sessions: %w", err)
	}

	resp := session.ListSessionsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		Sessions:   make([]session.SessionResponse, 0, len(sessions)),
	}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess))
	}
	return resp, nil
}

func (s *SessionServiceImpl) Sweep(ctx context.Context) error {
	active, err := s.sessions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}

	now := time.Now()
	for _, sess := range active {
		tick := session.TimeTick{ID: uuid.NewString(), Now: now}
		if err := s.ApplySystemEvent(ctx, sess.ID, sess.CompanyID, tick); err != nil {
			s.logger.Error("time sweep failed for session",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// inputsFor returns the cached transition inputs for the session, resolving
// them on first use.
func (s *SessionServiceImpl) inputsFor(ctx context.Context, sess session.ScheduleSession) Inputs {
	s.mu.RLock()
	in, ok := s.inputs[sess.ID]
	s.mu.RUnlock()
	if ok {
		return in
	}
	return s.resolveInputs(ctx, sess)
}

func (s *SessionServiceImpl) resolveInputs(ctx context.Context, sess session.ScheduleSession) Inputs {
	pol, err := s.policies.GetByCompany(ctx, sess.CompanyID)
	if err != nil {
		pol = policy.DefaultSettings(sess.CompanyID)
	}

	var site *schedule.JobSite
	if sess.JobSiteID != "" {
		if js, err := s.jobSites.GetByID(ctx, sess.JobSiteID, sess.CompanyID); err == nil {
			site = &js
		}
	}

	in := Inputs{Policy: pol, Site: site}
	s.mu.Lock()
	s.inputs[sess.ID] = in
	s.mu.Unlock()
	return in
}

func (s *SessionServiceImpl) publish(sess session.ScheduleSession, appended []session.SessionEvent) {
	for _, ev := range appended {
		var t eventbus.EventType
		switch ev.Type {
		case session.EventMonitoringStarted:
			t = eventbus.MonitoringActive
		case session.EventClockIn:
			if ev.Actor == systemActor {
				t = eventbus.AutoClockIn
			} else {
				t = eventbus.ClockIn
			}
		case session.EventClockOut:
			t = eventbus.ClockOut
		case session.EventBreakStart:
			t = eventbus.BreakStarted
		case session.EventBreakEnd:
			t = eventbus.BreakEnded
		case session.EventOvertimeStart:
			t = eventbus.OvertimeStarted
		case session.EventNoShow:
			t = eventbus.NoShowDeclared
		case session.EventAdminOverride, session.EventErrorResolved:
			t = eventbus.AdminOverride
		default:
			continue
		}
		s.hub.Publish(eventbus.Event{
			CompanyID:  sess.CompanyID,
			Type:       t,
			SessionID:  sess.ID,
			EmployeeID: sess.EmployeeID,
			Timestamp:  ev.Timestamp,
			Data:       map[string]string{"detail": ev.Detail},
		})
	}
}

func toSessionResponse(s session.ScheduleSession) session.SessionResponse {
	resp := session.SessionResponse{
		ID:             s.ID,
		ScheduleID:     s.ScheduleID,
		EmployeeID:     s.EmployeeID,
		JobSiteID:      s.JobSiteID,
		ScheduledStart: s.ScheduledStart.Format(time.RFC3339),
		ScheduledEnd:   s.ScheduledEnd.Format(time.RFC3339),
		Status:         string(s.Status),
		ClockedIn:      s.ClockedIn,
		ClockInAt:      formatTimePtr(s.ClockInAt),
		ClockOutAt:     formatTimePtr(s.ClockOutAt),
		AutoClockIn:    s.AutoClockIn,
		AutoClockOut:   s.AutoClockOut,
		OnBreak:        s.CurrentlyOnBreak,
		InOvertime:     s.IsInOvertime,
		Breaks:         make([]session.BreakPeriodResponse, 0, len(s.Breaks)),
		Events:         make([]session.SessionEventResponse, 0, len(s.Events)),
		Errors:         make([]session.SessionErrorResponse, 0, len(s.Errors)),
		Metrics: session.MetricsResponse{
			ScheduledMinutes: s.Metrics.ScheduledMinutes,
			WorkedMinutes:    s.Metrics.WorkedMinutes,
			BreakMinutes:     s.Metrics.BreakMinutes,
			OvertimeMinutes:  s.Metrics.OvertimeMinutes,
			PunctualityScore: s.Metrics.PunctualityScore,
			AttendanceRate:   s.Metrics.AttendanceRate,
			ComplianceScore:  s.Metrics.ComplianceScore,
			Health:           string(s.Metrics.Health),
		},
		Version: s.Version,
	}
	for _, b := range s.Breaks {
		resp.Breaks = append(resp.Breaks, session.BreakPeriodResponse{
			ID:              b.ID,
			Type:            string(b.Type),
			StartTime:       b.StartTime.Format(time.RFC3339),
			EndTime:         formatTimePtr(b.EndTime),
			TriggeredBy:     b.TriggeredBy,
			DurationMinutes: b.DurationMinutes,
		})
	}
	for _, e := range s.Events {
		resp.Events = append(resp.Events, session.SessionEventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Actor:     e.Actor,
			Detail:    e.Detail,
			Metadata:  e.Metadata,
		})
	}
	for _, e := range s.Errors {
		resp.Errors = append(resp.Errors, session.SessionErrorResponse{
			ID:         e.ID,
			Type:       string(e.Type),
			Severity:   string(e.Severity),
			Message:    e.Message,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
			Resolved:   e.Resolved,
			ResolvedBy: e.ResolvedBy,
			ResolvedAt: formatTimePtr(e.ResolvedAt),
		})
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
