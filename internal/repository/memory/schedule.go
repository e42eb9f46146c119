package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
)

type ScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]schedule.Schedule
}

var _ schedule.ScheduleRepository = (*ScheduleRepository)(nil)

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{schedules: make(map[string]schedule.Schedule)}
}

func (r *ScheduleRepository) Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = cloneSchedule(s)
	return s, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string, companyID string) (schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schedules[id]
	if !ok || s.CompanyID != companyID {
		return schedule.Schedule{}, schedule.ErrScheduleNotFound
	}
	return cloneSchedule(s), nil
}

func (r *ScheduleRepository) ActiveForEmployee(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []schedule.Schedule
	for _, s := range r.schedules {
		if s.CompanyID != companyID || s.EmployeeID != employeeID || s.Cancelled {
			continue
		}
		if s.Start.Before(to) && from.Before(s.End) {
			out = append(out, cloneSchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s schedule.Schedule, changes []schedule.ScheduleChange) (schedule.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.schedules[s.ID]
	if !ok {
		return schedule.Schedule{}, schedule.ErrScheduleNotFound
	}
	s.Changes = append(stored.Changes, changes...)
	r.schedules[s.ID] = cloneSchedule(s)
	return s, nil
}

func (r *ScheduleRepository) Cancel(ctx context.Context, id string, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[id]
	if !ok || s.CompanyID != companyID {
		return schedule.ErrScheduleNotFound
	}
	now := time.Now()
	s.Cancelled = true
	s.CancelledAt = &now
	s.UpdatedAt = now
	r.schedules[id] = s
	return nil
}

func (r *ScheduleRepository) List(ctx context.Context, filter schedule.ScheduleFilter, companyID string) ([]schedule.Schedule, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []schedule.Schedule
	for _, s := range r.schedules {
		if s.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != "" && s.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.From != nil && s.End.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.Start.Before(*filter.To) {
			continue
		}
		matched = append(matched, cloneSchedule(s))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Start.Before(matched[j].Start) })

	total := int64(len(matched))
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func cloneSchedule(s schedule.Schedule) schedule.Schedule {
	c := s
	if s.CancelledAt != nil {
		v := *s.CancelledAt
		c.CancelledAt = &v
	}
	if s.Recurrence != nil {
		rule := *s.Recurrence
		if s.Recurrence.Until != nil {
			u := *s.Recurrence.Until
			rule.Until = &u
		}
		rule.DaysOfWeek = append([]int(nil), s.Recurrence.DaysOfWeek...)
		c.Recurrence = &rule
	}
	c.Changes = append([]schedule.ScheduleChange(nil), s.Changes...)
	return c
}

type JobSiteRepository struct {
	mu    sync.RWMutex
	sites map[string]schedule.JobSite
}

var _ schedule.JobSiteRepository = (*JobSiteRepository)(nil)

func NewJobSiteRepository() *JobSiteRepository {
	return &JobSiteRepository{sites: make(map[string]schedule.JobSite)}
}

func (r *JobSiteRepository) Create(ctx context.Context, site schedule.JobSite) (schedule.JobSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.ID] = site
	return site, nil
}

func (r *JobSiteRepository) GetByID(ctx context.Context, id string, companyID string) (schedule.JobSite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, ok := r.sites[id]
	if !ok || site.CompanyID != companyID {
		return schedule.JobSite{}, schedule.ErrJobSiteNotFound
	}
	return site, nil
}

func (r *JobSiteRepository) ListByCompany(ctx context.Context, companyID string) ([]schedule.JobSite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []schedule.JobSite
	for _, site := range r.sites {
		if site.CompanyID == companyID {
			out = append(out, site)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
