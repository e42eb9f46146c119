package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/eventbus"
)

type ScheduleServiceImpl struct {
	schedules schedule.ScheduleRepository
	jobSites  schedule.JobSiteRepository
	policies  policy.PolicyRepository
	hub       *eventbus.Hub
}

var _ schedule.ScheduleService = (*ScheduleServiceImpl)(nil)

func NewScheduleService(
	schedules schedule.ScheduleRepository,
	jobSites schedule.JobSiteRepository,
	policies policy.PolicyRepository,
	hub *eventbus.Hub,
) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{
		schedules: schedules,
		jobSites:  jobSites,
		policies:  policies,
		hub:       hub,
	}
}

func (s *ScheduleServiceImpl) CreateSchedule(ctx context.Context, req schedule.CreateScheduleRequest, companyID, actorID string) (schedule.ScheduleResponse, []schedule.ConflictResponse, error) {
	if err := req.Validate(); err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}
	if _, err := s.jobSites.GetByID(ctx, req.JobSiteID, companyID); err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}

	now := time.Now()
	sched := schedule.Schedule{
		ID:                    uuid.NewString(),
		CompanyID:             companyID,
		EmployeeID:            req.EmployeeID,
		JobSiteID:             req.JobSiteID,
		Start:                 req.Start,
		End:                   req.End,
		ShiftType:             schedule.ShiftType(req.ShiftType),
		BreakAllowanceMinutes: req.BreakAllowanceMinutes,
		ExpectedMinutes:       req.ExpectedMinutes,
		RequiresApproval:      req.RequiresApproval,
		CreatedBy:             actorID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if sched.ShiftType == "" {
		sched.ShiftType = schedule.ShiftRegular
	}
	if sched.ExpectedMinutes == 0 {
		sched.ExpectedMinutes = int(req.End.Sub(req.Start).Minutes()) - req.BreakAllowanceMinutes
	}
	if req.RecurrenceFrequency != nil {
		rule := &schedule.RecurrenceRule{
			Frequency:  schedule.RecurrenceFrequency(*req.RecurrenceFrequency),
			Interval:   1,
			DaysOfWeek: req.RecurrenceDays,
			Until:      req.RecurrenceUntil,
		}
		if req.RecurrenceInterval != nil && *req.RecurrenceInterval > 0 {
			rule.Interval = *req.RecurrenceInterval
		}
		sched.Recurrence = rule
	}

	created, err := s.schedules.Create(ctx, sched)
	if err != nil {
		return schedule.ScheduleResponse{}, nil, fmt.Errorf("create schedule: %w", err)
	}

	conflicts, err := s.conflictsAround(ctx, created, companyID, now)
	if err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}
	return toScheduleResponse(created), conflicts, nil
}

// conflictsAround detects conflicts the schedule participates in and
// publishes them.
func (s *ScheduleServiceImpl) conflictsAround(ctx context.Context, sched schedule.Schedule, companyID string, now time.Time) ([]schedule.ConflictResponse, error) {
	pol, err := s.policies.GetByCompany(ctx, companyID)
	if err != nil {
		pol = policy.DefaultSettings(companyID)
	}

	rest := time.Duration(pol.MinimumRestMinutes) * time.Minute
	window, err := s.schedules.ActiveForEmployee(ctx, sched.EmployeeID,
		sched.Start.Add(-rest), sched.End.Add(rest), companyID)
	if err != nil {
		return nil, fmt.Errorf("load schedules for conflict detection: %w", err)
	}

	all := DetectConflicts(window, pol.MinimumRestMinutes, now)

	var out []schedule.ConflictResponse
	for _, c := range all {
		if c.ScheduleAID != sched.ID && c.ScheduleBID != sched.ID {
			continue
		}
		out = append(out, toConflictResponse(c))
		s.hub.Publish(eventbus.Event{
			CompanyID:  companyID,
			Type:       eventbus.ConflictDetected,
			EmployeeID: c.EmployeeID,
			Timestamp:  now,
			Data:       toConflictResponse(c),
		})
	}
	return out, nil
}

func (s *ScheduleServiceImpl) UpdateSchedule(ctx context.Context, req schedule.UpdateScheduleRequest, companyID, actorID string) (schedule.ScheduleResponse, []schedule.ConflictResponse, error) {
	if err := req.Validate(); err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}

	sched, err := s.schedules.GetByID(ctx, req.ID, companyID)
	if err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}
	if sched.Cancelled {
		return schedule.ScheduleResponse{}, nil, schedule.ErrScheduleCancelled
	}

	now := time.Now()
	if sched.InProgress(now) && req.Reason == "" {
		return schedule.ScheduleResponse{}, nil, schedule.ErrScheduleInProgress
	}

	var changes []schedule.ScheduleChange
	change := func(field, oldValue, newValue string) {
		changes = append(changes, schedule.ScheduleChange{
			ID:         uuid.NewString(),
			ScheduleID: sched.ID,
			ChangedBy:  actorID,
			Reason:     req.Reason,
			Field:      field,
			OldValue:   oldValue,
			NewValue:   newValue,
			ChangedAt:  now,
		})
	}

	if req.Start != nil && !req.Start.Equal(sched.Start) {
		change("start", sched.Start.Format(time.RFC3339), req.Start.Format(time.RFC3339))
		sched.Start = *req.Start
	}
	if req.End != nil && !req.End.Equal(sched.End) {
		change("end", sched.End.Format(time.RFC3339), req.End.Format(time.RFC3339))
		sched.End = *req.End
	}
	if req.JobSiteID != nil && *req.JobSiteID != sched.JobSiteID {
		if _, err := s.jobSites.GetByID(ctx, *req.JobSiteID, companyID); err != nil {
			return schedule.ScheduleResponse{}, nil, err
		}
		change("job_site_id", sched.JobSiteID, *req.JobSiteID)
		sched.JobSiteID = *req.JobSiteID
	}
	if !sched.End.After(sched.Start) {
		return schedule.ScheduleResponse{}, nil, schedule.ErrInvalidInterval
	}
	if len(changes) == 0 {
		return toScheduleResponse(sched), nil, nil
	}

	sched.UpdatedAt = now
	updated, err := s.schedules.Update(ctx, sched, changes)
	if err != nil {
		return schedule.ScheduleResponse{}, nil, fmt.Errorf("update schedule: %w", err)
	}

	// Moved times can collide with shifts the old times cleared.
	conflicts, err := s.conflictsAround(ctx, updated, companyID, now)
	if err != nil {
		return schedule.ScheduleResponse{}, nil, err
	}
	return toScheduleResponse(updated), conflicts, nil
}

func (s *ScheduleServiceImpl) CancelSchedule(ctx context.Context, id string, companyID string) error {
	if _, err := s.schedules.GetByID(ctx, id, companyID); err != nil {
		return err
	}
	return s.schedules.Cancel(ctx, id, companyID)
}

func (s *ScheduleServiceImpl) GetSchedule(ctx context.Context, id string, companyID string) (schedule.ScheduleResponse, error) {
	sched, err := s.schedules.GetByID(ctx, id, companyID)
	if err != nil {
		return schedule.ScheduleResponse{}, err
	}
	return toScheduleResponse(sched), nil
}

func (s *ScheduleServiceImpl) ListSchedules(ctx context.Context, filter schedule.ScheduleFilter, companyID string) (schedule.ListSchedulesResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	schedules, total, err := s.schedules.List(ctx, filter, companyID)
	if err != nil {
		return schedule.ListSchedulesResponse{}, fmt.Errorf("list schedules: %w", err)
	}

	resp := schedule.ListSchedulesResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		Schedules:  make([]schedule.ScheduleResponse, 0, len(schedules)),
	}
	for _, sched := range schedules {
		resp.Schedules = append(resp.Schedules, toScheduleResponse(sched))
	}
	return resp, nil
}

func (s *ScheduleServiceImpl) DetectConflicts(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]schedule.ConflictResponse, error) {
	pol, err := s.policies.GetByCompany(ctx, companyID)
	if err != nil {
		pol = policy.DefaultSettings(companyID)
	}

	window, err := s.schedules.ActiveForEmployee(ctx, employeeID, from, to, companyID)
	if err != nil {
		return nil, fmt.Errorf("load schedules for conflict detection: %w", err)
	}

	all := DetectConflicts(window, pol.MinimumRestMinutes, time.Now())
	out := make([]schedule.ConflictResponse, 0, len(all))
	for _, c := range all {
		out = append(out, toConflictResponse(c))
	}
	return out, nil
}

func (s *ScheduleServiceImpl) CreateJobSite(ctx context.Context, req schedule.CreateJobSiteRequest, companyID string) (schedule.JobSiteResponse, error) {
	if err := req.Validate(); err != nil {
		return schedule.JobSiteResponse{}, err
	}

	now := time.Now()
	site, err := s.jobSites.Create(ctx, schedule.JobSite{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return schedule.JobSiteResponse{}, fmt.Errorf("create job site: %w", err)
	}
	return toJobSiteResponse(site), nil
}

func (s *ScheduleServiceImpl) GetJobSite(ctx context.Context, id string, companyID string) (schedule.JobSiteResponse, error) {
	site, err := s.jobSites.GetByID(ctx, id, companyID)
	if err != nil {
		return schedule.JobSiteResponse{}, err
	}
	return toJobSiteResponse(site), nil
}

func (s *ScheduleServiceImpl) ListJobSites(ctx context.Context, companyID string) ([]schedule.JobSiteResponse, error) {
	sites, err := s.jobSites.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list job sites: %w", err)
	}
	out := make([]schedule.JobSiteResponse, 0, len(sites))
	for _, site := range sites {
		out = append(out, toJobSiteResponse(site))
	}
	return out, nil
}

func toScheduleResponse(s schedule.Schedule) schedule.ScheduleResponse {
	resp := schedule.ScheduleResponse{
		ID:                    s.ID,
		EmployeeID:            s.EmployeeID,
		JobSiteID:             s.JobSiteID,
		Start:                 s.Start.Format(time.RFC3339),
		End:                   s.End.Format(time.RFC3339),
		ShiftType:             string(s.ShiftType),
		BreakAllowanceMinutes: s.BreakAllowanceMinutes,
		ExpectedMinutes:       s.ExpectedMinutes,
		RequiresApproval:      s.RequiresApproval,
		Cancelled:             s.Cancelled,
		CreatedAt:             s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             s.UpdatedAt.Format(time.RFC3339),
	}
	if s.CancelledAt != nil {
		v := s.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &v
	}
	return resp
}

func toConflictResponse(c schedule.ScheduleConflict) schedule.ConflictResponse {
	return schedule.ConflictResponse{
		ID:          c.ID,
		Type:        string(c.Type),
		Severity:    string(c.Severity),
		ScheduleAID: c.ScheduleAID,
		ScheduleBID: c.ScheduleBID,
		Detail:      c.Detail,
	}
}

func toJobSiteResponse(s schedule.JobSite) schedule.JobSiteResponse {
	return schedule.JobSiteResponse{
		ID:           s.ID,
		Name:         s.Name,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		RadiusMeters: s.RadiusMeters,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}
