package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

// SessionRepository is an in-memory SessionRepository. It backs tests and
// local development; the version check mirrors the PostgreSQL repository so
// concurrency behavior matches.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]session.ScheduleSession
}

var _ session.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]session.ScheduleSession)}
}

func (r *SessionRepository) Create(ctx context.Context, s session.ScheduleSession) (session.ScheduleSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.ScheduleID == s.ScheduleID && existing.CompanyID == s.CompanyID {
			return session.ScheduleSession{}, session.ErrSessionExists
		}
	}
	s.Version = 1
	r.sessions[s.ID] = s.Clone()
	return s, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string, companyID string) (session.ScheduleSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || s.CompanyID != companyID {
		return session.ScheduleSession{}, session.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) GetByScheduleID(ctx context.Context, scheduleID string, companyID string) (session.ScheduleSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.ScheduleID == scheduleID && s.CompanyID == companyID {
			return s.Clone(), nil
		}
	}
	return session.ScheduleSession{}, session.ErrSessionNotFound
}

func (r *SessionRepository) Save(ctx context.Context, s session.ScheduleSession, appended []session.SessionEvent) (session.ScheduleSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return session.ScheduleSession{}, session.ErrSessionNotFound
	}
	if stored.Version != s.Version {
		return session.ScheduleSession{}, session.ErrVersionConflict
	}
	s.Version++
	r.sessions[s.ID] = s.Clone()
	return s, nil
}

func (r *SessionRepository) List(ctx context.Context, filter session.SessionFilter, companyID string) ([]session.ScheduleSession, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []session.ScheduleSession
	for _, s := range r.sessions {
		if s.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != "" && s.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && string(s.Status) != filter.Status {
			continue
		}
		if filter.From != nil && s.ScheduledStart.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.ScheduledStart.Before(*filter.To) {
			continue
		}
		matched = append(matched, s.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScheduledStart.Before(matched[j].ScheduledStart)
	})

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

func (r *SessionRepository) ListActive(ctx context.Context) ([]session.ScheduleSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []session.ScheduleSession
	for _, s := range r.sessions {
		if s.Active() {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledStart.Before(out[j].ScheduledStart)
	})
	return out, nil
}
