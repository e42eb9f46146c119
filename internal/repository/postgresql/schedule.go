package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/schedule"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/database"
)

type scheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `
	id, company_id, employee_id, job_site_id, start_at, end_at,
	shift_type, break_allowance_minutes, expected_minutes, recurrence,
	requires_approval, cancelled, cancelled_at, created_by, created_at, updated_at`

func (r *scheduleRepository) Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	recurrence, err := marshalRecurrence(s.Recurrence)
	if err != nil {
		return schedule.Schedule{}, err
	}

	query := `
		INSERT INTO schedules (` + strings.TrimSpace(scheduleColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, NULL, $12, $13, $14)
	`
	_, err = q.Exec(ctx, query,
		s.ID, s.CompanyID, s.EmployeeID, s.JobSiteID, s.Start, s.End,
		s.ShiftType, s.BreakAllowanceMinutes, s.ExpectedMinutes, recurrence,
		s.RequiresApproval, s.CreatedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	return s, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string, companyID string) (schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 AND company_id = $2`
	s, err := scanSchedule(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return schedule.Schedule{}, schedule.ErrScheduleNotFound
		}
		return schedule.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}

	s.Changes, err = r.loadChanges(ctx, s.ID)
	if err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

func (r *scheduleRepository) ActiveForEmployee(ctx context.Context, employeeID string, from, to time.Time, companyID string) ([]schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE employee_id = $1 AND company_id = $2 AND NOT cancelled
		  AND start_at < $3 AND end_at > $4
		ORDER BY start_at`

	rows, err := q.Query(ctx, query, employeeID, companyID, to, from)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) Update(ctx context.Context, s schedule.Schedule, changes []schedule.ScheduleChange) (schedule.Schedule, error) {
	err := WithTransaction(ctx, r.db, func(txCtx context.Context, tx pgx.Tx) error {
		recurrence, err := marshalRecurrence(s.Recurrence)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(txCtx, `
			UPDATE schedules SET
				job_site_id = $2, start_at = $3, end_at = $4,
				shift_type = $5, break_allowance_minutes = $6, expected_minutes = $7,
				recurrence = $8, requires_approval = $9, updated_at = $10
			WHERE id = $1 AND NOT cancelled
		`, s.ID, s.JobSiteID, s.Start, s.End,
			s.ShiftType, s.BreakAllowanceMinutes, s.ExpectedMinutes,
			recurrence, s.RequiresApproval, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return schedule.ErrScheduleNotFound
		}

		for _, c := range changes {
			_, err := tx.Exec(txCtx, `
				INSERT INTO schedule_changes (id, schedule_id, changed_by, reason, field, old_value, new_value, changed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, c.ID, c.ScheduleID, c.ChangedBy, c.Reason, c.Field, c.OldValue, c.NewValue, c.ChangedAt)
			if err != nil {
				return fmt.Errorf("insert schedule change: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

func (r *scheduleRepository) Cancel(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE schedules SET cancelled = true, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND NOT cancelled
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrScheduleNotFound
	}
	return nil
}

func (r *scheduleRepository) List(ctx context.Context, filter schedule.ScheduleFilter, companyID string) ([]schedule.Schedule, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"company_id = $1"}
	args := []interface{}{companyID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("end_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("start_at < $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM schedules WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE %s ORDER BY start_at LIMIT $%d OFFSET $%d`,
		scheduleColumns, whereClause, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, total, nil
}

func (r *scheduleRepository) loadChanges(ctx context.Context, scheduleID string) ([]schedule.ScheduleChange, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, schedule_id, changed_by, reason, field, old_value, new_value, changed_at
		FROM schedule_changes
		WHERE schedule_id = $1
		ORDER BY changed_at
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule changes: %w", err)
	}
	defer rows.Close()

	var changes []schedule.ScheduleChange
	for rows.Next() {
		var c schedule.ScheduleChange
		if err := rows.Scan(&c.ID, &c.ScheduleID, &c.ChangedBy, &c.Reason,
			&c.Field, &c.OldValue, &c.NewValue, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan schedule change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load schedule changes: %w", err)
	}
	return changes, nil
}

func marshalRecurrence(rule *schedule.RecurrenceRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	out, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence: %w", err)
	}
	return out, nil
}

func scanSchedule(row pgx.Row) (schedule.Schedule, error) {
	var s schedule.Schedule
	var recurrence []byte

	err := row.Scan(
		&s.ID, &s.CompanyID, &s.EmployeeID, &s.JobSiteID, &s.Start, &s.End,
		&s.ShiftType, &s.BreakAllowanceMinutes, &s.ExpectedMinutes, &recurrence,
		&s.RequiresApproval, &s.Cancelled, &s.CancelledAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return schedule.Schedule{}, err
	}

	if len(recurrence) > 0 {
		s.Recurrence = &schedule.RecurrenceRule{}
		if err := json.Unmarshal(recurrence, s.Recurrence); err != nil {
			return schedule.Schedule{}, fmt.Errorf("unmarshal recurrence: %w", err)
		}
	}
	return s, nil
}

type jobSiteRepository struct {
	db *database.DB
}

func NewJobSiteRepository(db *database.DB) schedule.JobSiteRepository {
	return &jobSiteRepository{db: db}
}

func (r *jobSiteRepository) Create(ctx context.Context, site schedule.JobSite) (schedule.JobSite, error) {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO job_sites (id, company_id, name, latitude, longitude, radius_meters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, site.ID, site.CompanyID, site.Name, site.Latitude, site.Longitude, site.RadiusMeters, site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return schedule.JobSite{}, fmt.Errorf("insert job site: %w", err)
	}
	return site, nil
}

func (r *jobSiteRepository) GetByID(ctx context.Context, id string, companyID string) (schedule.JobSite, error) {
	q := GetQuerier(ctx, r.db)

	var site schedule.JobSite
	err := q.QueryRow(ctx, `
		SELECT id, company_id, name, latitude, longitude, radius_meters, created_at, updated_at
		FROM job_sites WHERE id = $1 AND company_id = $2
	`, id, companyID).Scan(
		&site.ID, &site.CompanyID, &site.Name, &site.Latitude, &site.Longitude,
		&site.RadiusMeters, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return schedule.JobSite{}, schedule.ErrJobSiteNotFound
		}
		return schedule.JobSite{}, fmt.Errorf("get job site: %w", err)
	}
	return site, nil
}

func (r *jobSiteRepository) ListByCompany(ctx context.Context, companyID string) ([]schedule.JobSite, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, company_id, name, latitude, longitude, radius_meters, created_at, updated_at
		FROM job_sites WHERE company_id = $1 ORDER BY name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list job sites: %w", err)
	}
	defer rows.Close()

	var sites []schedule.JobSite
	for rows.Next() {
		var site schedule.JobSite
		if err := rows.Scan(&site.ID, &site.CompanyID, &site.Name, &site.Latitude,
			&site.Longitude, &site.RadiusMeters, &site.CreatedAt, &site.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list job sites: %w", err)
	}
	return sites, nil
}
