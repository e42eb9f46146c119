package cron

import (
	"context"
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

// SessionJobs wires the session engine's periodic work into the scheduler.
// The sweep sends a TimeTick to every active session, which drives the
// time-based transitions: monitoring window entry, no-show declaration,
// overtime entry, required breaks, and auto clock-out when the device went
// silent.
type SessionJobs struct {
	sessionSvc session.SessionService
}

func NewSessionJobs(sessionSvc session.SessionService) *SessionJobs {
	return &SessionJobs{sessionSvc: sessionSvc}
}

func (j *SessionJobs) RegisterJobs(scheduler *Scheduler, sweepInterval time.Duration) {
	scheduler.AddJob(Job{
		Name:      "session_time_sweep",
		Interval:  sweepInterval,
		Immediate: true,
		Fn:        j.TimeSweep,
	})
}

func (j *SessionJobs) TimeSweep(ctx context.Context) error {
	return j.sessionSvc.Sweep(ctx)
}
