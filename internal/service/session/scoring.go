package session

import (
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

const (
	punctualityPenaltyPerMinute = 2.0

	weightPunctuality = 0.35
	weightAttendance  = 0.35
	weightBreaks      = 0.20
	weightErrors      = 0.10

	errorPenaltyPerUnresolved = 25.0
	attentionThreshold        = 60.0
)

// PunctualityScore compares the first presence at work against the
// scheduled start. Arrival at the site counts even when the clock-in
// came later; before any arrival the score stays at 100 unless the
// session already ended as a no-show.
func PunctualityScore(s session.ScheduleSession, now time.Time) float64 {
	arrival := s.ArrivalAt
	if arrival == nil {
		arrival = s.ClockInAt
	}
	if arrival == nil {
		if s.Status == session.StatusNoShow {
			return 0
		}
		return 100
	}
	late := minutesBetween(s.ScheduledStart, *arrival)
	score := 100 - punctualityPenaltyPerMinute*float64(late)
	if score < 0 {
		return 0
	}
	return score
}

// AttendanceRate is worked time over scheduled time, capped at 100.
func AttendanceRate(s session.ScheduleSession, now time.Time) float64 {
	scheduled := ScheduledMinutes(s)
	if scheduled <= 0 {
		return 100
	}
	rate := float64(WorkedMinutes(s, now)) / float64(scheduled) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// breakAdherence scores whether the required break was taken once the
// continuous-work threshold has passed. Policies without a required break
// always score 100.
func breakAdherence(s session.ScheduleSession, pol policy.CompanyPolicySettings, now time.Time) float64 {
	if pol.RequiredBreakDurationMinutes <= 0 || pol.MinimumWorkBeforeBreakMinutes <= 0 {
		return 100
	}
	if WorkedMinutes(s, now) < pol.MinimumWorkBeforeBreakMinutes {
		return 100
	}
	for _, b := range s.Breaks {
		dur := b.DurationMinutes
		if b.EndTime == nil {
			dur = minutesBetween(b.StartTime, now)
		}
		if dur >= pol.RequiredBreakDurationMinutes {
			return 100
		}
	}
	return 0
}

func errorScore(s session.ScheduleSession) float64 {
	score := 100 - errorPenaltyPerUnresolved*float64(len(s.UnresolvedErrors()))
	if score < 0 {
		return 0
	}
	return score
}

// ComplianceScore is the weighted blend of the component scores.
func ComplianceScore(s session.ScheduleSession, pol policy.CompanyPolicySettings, now time.Time) float64 {
	return weightPunctuality*PunctualityScore(s, now) +
		weightAttendance*AttendanceRate(s, now) +
		weightBreaks*breakAdherence(s, pol, now) +
		weightErrors*errorScore(s)
}

// HealthFor classifies the session for dashboards. Critical beats
// attention beats healthy.
func HealthFor(s session.ScheduleSession, compliance float64) session.HealthStatus {
	if s.Status == session.StatusError {
		return session.HealthCritical
	}
	unresolved := s.UnresolvedErrors()
	for _, e := range unresolved {
		if e.Severity == session.SeverityCritical {
			return session.HealthCritical
		}
	}
	if len(unresolved) > 0 || compliance < attentionThreshold {
		return session.HealthAttention
	}
	return session.HealthHealthy
}

// RecomputeMetrics rebuilds every derived metric on the session from its
// recorded periods and errors as of now.
func RecomputeMetrics(s *session.ScheduleSession, pol policy.CompanyPolicySettings, now time.Time) {
	s.Metrics.ScheduledMinutes = ScheduledMinutes(*s)
	s.Metrics.WorkedMinutes = WorkedMinutes(*s, now)
	s.Metrics.BreakMinutes = BreakMinutes(*s, now)
	s.Metrics.OvertimeMinutes = OvertimeMinutes(*s, pol.OvertimeThresholdMinutes, now)
	s.Metrics.PunctualityScore = PunctualityScore(*s, now)
	s.Metrics.AttendanceRate = AttendanceRate(*s, now)
	s.Metrics.ComplianceScore = ComplianceScore(*s, pol, now)
	s.Metrics.Health = HealthFor(*s, s.Metrics.ComplianceScore)
}
