package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/database"
)

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) session.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `
	id, schedule_id, employee_id, company_id, job_site_id,
	scheduled_start, scheduled_end,
	employee_present, arrival_at, departure_at,
	last_location_at, last_latitude, last_longitude,
	clocked_in, clock_in_at, clock_out_at, auto_clock_in, auto_clock_out,
	currently_on_break, breaks, is_in_overtime, overtime,
	status, prior_status, overrides, errors, metrics,
	last_manual_action_at, version, created_at, updated_at`

func (r *sessionRepository) Create(ctx context.Context, s session.ScheduleSession) (session.ScheduleSession, error) {
	err := WithTransaction(ctx, r.db, func(txCtx context.Context, tx pgx.Tx) error {
		breaks, overtime, overrides, errs, metrics, err := marshalSessionJSON(s)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO schedule_sessions (` + strings.TrimSpace(sessionColumns) + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, 1, $29, $30)
		`
		_, err = tx.Exec(txCtx, query,
			s.ID, s.ScheduleID, s.EmployeeID, s.CompanyID, s.JobSiteID,
			s.ScheduledStart, s.ScheduledEnd,
			s.EmployeePresent, s.ArrivalAt, s.DepartureAt,
			s.LastLocationAt, s.LastLatitude, s.LastLongitude,
			s.ClockedIn, s.ClockInAt, s.ClockOutAt, s.AutoClockIn, s.AutoClockOut,
			s.CurrentlyOnBreak, breaks, s.IsInOvertime, overtime,
			s.Status, s.PriorStatus, overrides, errs, metrics,
			s.LastManualActionAt, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			if strings.Contains(err.Error(), "schedule_sessions_schedule_id_key") {
				return session.ErrSessionExists
			}
			return fmt.Errorf("insert session: %w", err)
		}

		return insertEvents(txCtx, tx, s.Events)
	})
	if err != nil {
		return session.ScheduleSession{}, err
	}
	s.Version = 1
	return s, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string, companyID string) (session.ScheduleSession, error) {
	return r.getOne(ctx, `WHERE id = $1 AND company_id = $2`, id, companyID)
}

func (r *sessionRepository) GetByScheduleID(ctx context.Context, scheduleID string, companyID string) (session.ScheduleSession, error) {
	return r.getOne(ctx, `WHERE schedule_id = $1 AND company_id = $2`, scheduleID, companyID)
}

func (r *sessionRepository) getOne(ctx context.Context, where string, args ...interface{}) (session.ScheduleSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + ` FROM schedule_sessions ` + where + ` LIMIT 1`
	s, err := scanSession(q.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return session.ScheduleSession{}, session.ErrSessionNotFound
		}
		return session.ScheduleSession{}, fmt.Errorf("get session: %w", err)
	}

	events, err := r.loadEvents(ctx, s.ID)
	if err != nil {
		return session.ScheduleSession{}, err
	}
	s.Events = events
	return s, nil
}

// Save persists a snapshot only if the stored version still matches, and
// appends the audit events in the same transaction.
func (r *sessionRepository) Save(ctx context.Context, s session.ScheduleSession, appended []session.SessionEvent) (session.ScheduleSession, error) {
	err := WithTransaction(ctx, r.db, func(txCtx context.Context, tx pgx.Tx) error {
		breaks, overtime, overrides, errs, metrics, err := marshalSessionJSON(s)
		if err != nil {
			return err
		}

		query := `
			UPDATE schedule_sessions SET
				employee_present = $3, arrival_at = $4, departure_at = $5,
				last_location_at = $6, last_latitude = $7, last_longitude = $8,
				clocked_in = $9, clock_in_at = $10, clock_out_at = $11,
				auto_clock_in = $12, auto_clock_out = $13,
				currently_on_break = $14, breaks = $15,
				is_in_overtime = $16, overtime = $17,
				status = $18, prior_status = $19,
				overrides = $20, errors = $21, metrics = $22,
				last_manual_action_at = $23,
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
		`
		tag, err := tx.Exec(txCtx, query,
			s.ID, s.Version,
			s.EmployeePresent, s.ArrivalAt, s.DepartureAt,
			s.LastLocationAt, s.LastLatitude, s.LastLongitude,
			s.ClockedIn, s.ClockInAt, s.ClockOutAt,
			s.AutoClockIn, s.AutoClockOut,
			s.CurrentlyOnBreak, breaks,
			s.IsInOvertime, overtime,
			s.Status, s.PriorStatus,
			overrides, errs, metrics,
			s.LastManualActionAt,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return session.ErrVersionConflict
		}

		return insertEvents(txCtx, tx, appended)
	})
	if err != nil {
		return session.ScheduleSession{}, err
	}
	s.Version++
	return s, nil
}

func (r *sessionRepository) List(ctx context.Context, filter session.SessionFilter, companyID string) ([]session.ScheduleSession, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"company_id = $1"}
	args := []interface{}{companyID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("scheduled_start >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("scheduled_start < $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM schedule_sessions WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM schedule_sessions WHERE %s ORDER BY scheduled_start LIMIT $%d OFFSET $%d`,
		sessionColumns, whereClause, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.ScheduleSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

func (r *sessionRepository) ListActive(ctx context.Context) ([]session.ScheduleSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + ` FROM schedule_sessions
		WHERE status NOT IN ('completed', 'no_show')
		ORDER BY scheduled_start`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.ScheduleSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) loadEvents(ctx context.Context, sessionID string) ([]session.SessionEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, session_id, type, timestamp, actor, latitude, longitude, detail, metadata
		FROM session_events
		WHERE session_id = $1
		ORDER BY timestamp, created_at
	`
	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session events: %w", err)
	}
	defer rows.Close()

	var events []session.SessionEvent
	for rows.Next() {
		var ev session.SessionEvent
		var metadata []byte
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Type, &ev.Timestamp,
			&ev.Actor, &ev.Latitude, &ev.Longitude, &ev.Detail, &metadata); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load session events: %w", err)
	}
	return events, nil
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []session.SessionEvent) error {
	for _, ev := range events {
		metadata, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO session_events (id, session_id, type, timestamp, actor, latitude, longitude, detail, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ev.ID, ev.SessionID, ev.Type, ev.Timestamp, ev.Actor, ev.Latitude, ev.Longitude, ev.Detail, metadata)
		if err != nil {
			return fmt.Errorf("insert session event: %w", err)
		}
	}
	return nil
}

func marshalSessionJSON(s session.ScheduleSession) (breaks, overtime, overrides, errs, metrics []byte, err error) {
	if breaks, err = json.Marshal(s.Breaks); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal breaks: %w", err)
	}
	if overtime, err = json.Marshal(s.Overtime); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal overtime: %w", err)
	}
	if overrides, err = json.Marshal(s.Overrides); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal overrides: %w", err)
	}
	if errs, err = json.Marshal(s.Errors); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal errors: %w", err)
	}
	if metrics, err = json.Marshal(s.Metrics); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal metrics: %w", err)
	}
	return breaks, overtime, overrides, errs, metrics, nil
}

func scanSession(row pgx.Row) (session.ScheduleSession, error) {
	var s session.ScheduleSession
	var breaks, overtime, overrides, errs, metrics []byte

	err := row.Scan(
		&s.ID, &s.ScheduleID, &s.EmployeeID, &s.CompanyID, &s.JobSiteID,
		&s.ScheduledStart, &s.ScheduledEnd,
		&s.EmployeePresent, &s.ArrivalAt, &s.DepartureAt,
		&s.LastLocationAt, &s.LastLatitude, &s.LastLongitude,
		&s.ClockedIn, &s.ClockInAt, &s.ClockOutAt, &s.AutoClockIn, &s.AutoClockOut,
		&s.CurrentlyOnBreak, &breaks, &s.IsInOvertime, &overtime,
		&s.Status, &s.PriorStatus, &overrides, &errs, &metrics,
		&s.LastManualActionAt, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return session.ScheduleSession{}, err
	}

	if err := json.Unmarshal(breaks, &s.Breaks); err != nil {
		return session.ScheduleSession{}, fmt.Errorf("unmarshal breaks: %w", err)
	}
	if err := json.Unmarshal(overtime, &s.Overtime); err != nil {
		return session.ScheduleSession{}, fmt.Errorf("unmarshal overtime: %w", err)
	}
	if err := json.Unmarshal(overrides, &s.Overrides); err != nil {
		return session.ScheduleSession{}, fmt.Errorf("unmarshal overrides: %w", err)
	}
	if err := json.Unmarshal(errs, &s.Errors); err != nil {
		return session.ScheduleSession{}, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := json.Unmarshal(metrics, &s.Metrics); err != nil {
		return session.ScheduleSession{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return s, nil
}
