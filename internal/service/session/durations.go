package session

import (
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

// Duration arithmetic is always re-derived from the session's recorded
// periods against a reference now. There is no running counter anywhere:
// replaying the same session produces identical numbers.

// minutesBetween returns whole minutes from from to to, floored at zero.
func minutesBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from).Minutes())
}

// BreakMinutes sums closed break durations plus the open break, if any,
// up to now.
func BreakMinutes(s session.ScheduleSession, now time.Time) int {
	total := 0
	for _, b := range s.Breaks {
		if b.EndTime != nil {
			total += minutesBetween(b.StartTime, *b.EndTime)
		} else {
			total += minutesBetween(b.StartTime, now)
		}
	}
	return total
}

// WorkedMinutes is the effective clocked-in span minus break time.
func WorkedMinutes(s session.ScheduleSession, now time.Time) int {
	if s.ClockInAt == nil {
		return 0
	}
	end := now
	if s.ClockOutAt != nil {
		end = *s.ClockOutAt
	}
	gross := minutesBetween(*s.ClockInAt, end)
	worked := gross - BreakMinutes(s, now)
	if worked < 0 {
		return 0
	}
	return worked
}

// OvertimeMinutes is worked time beyond the policy threshold, floored at zero.
// A zero threshold disables overtime.
func OvertimeMinutes(s session.ScheduleSession, thresholdMinutes int, now time.Time) int {
	if thresholdMinutes <= 0 {
		return 0
	}
	over := WorkedMinutes(s, now) - thresholdMinutes
	if over < 0 {
		return 0
	}
	return over
}

// ScheduledMinutes is the planned shift length.
func ScheduledMinutes(s session.ScheduleSession) int {
	return minutesBetween(s.ScheduledStart, s.ScheduledEnd)
}
