package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
)

// DetectConflicts compares every pair of schedules once and reports
// overlaps and insufficient rest gaps. Cancelled schedules never conflict.
// The result only annotates; nothing in the engine consumes it as a gate.
func DetectConflicts(schedules []schedule.Schedule, minimumRestMinutes int, now time.Time) []schedule.ScheduleConflict {
	var conflicts []schedule.ScheduleConflict

	for i := 0; i < len(schedules); i++ {
		if schedules[i].Cancelled {
			continue
		}
		for j := i + 1; j < len(schedules); j++ {
			if schedules[j].Cancelled {
				continue
			}
			a, b := schedules[i], schedules[j]
			// Order the pair by start so rest gaps read forward.
			if b.Start.Before(a.Start) {
				a, b = b, a
			}

			if a.Overlaps(b) {
				conflicts = append(conflicts, schedule.ScheduleConflict{
					ID:          uuid.NewString(),
					Type:        schedule.ConflictOverlap,
					Severity:    schedule.SeverityError,
					EmployeeID:  a.EmployeeID,
					ScheduleAID: a.ID,
					ScheduleBID: b.ID,
					Detail: fmt.Sprintf("shifts overlap between %s and %s",
						b.Start.Format(time.RFC3339), minTime(a.End, b.End).Format(time.RFC3339)),
					DetectedAt: now,
				})
				continue
			}

			if minimumRestMinutes > 0 {
				gap := int(b.Start.Sub(a.End).Minutes())
				if gap >= 0 && gap < minimumRestMinutes {
					conflicts = append(conflicts, schedule.ScheduleConflict{
						ID:          uuid.NewString(),
						Type:        schedule.ConflictInsufficientRest,
						Severity:    schedule.SeverityWarning,
						EmployeeID:  a.EmployeeID,
						ScheduleAID: a.ID,
						ScheduleBID: b.ID,
						Detail: fmt.Sprintf("only %d minutes rest between shifts; %d required",
							gap, minimumRestMinutes),
						DetectedAt: now,
					})
				}
			}
		}
	}
	return conflicts
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
