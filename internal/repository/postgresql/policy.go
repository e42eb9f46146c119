package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/policy"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/database"
)

type policyRepository struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) policy.PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) GetByCompany(ctx context.Context, companyID string) (policy.CompanyPolicySettings, error) {
	q := GetQuerier(ctx, r.db)

	var p policy.CompanyPolicySettings
	err := q.QueryRow(ctx, `
		SELECT company_id,
			   geofence_accuracy_meters, geofence_radius_tolerance_meters,
			   early_clock_in_minutes, early_clock_out_minutes, minimum_time_at_site_minutes,
			   auto_clock_in_enabled, auto_clock_out_enabled, auto_clock_out_delay_minutes,
			   required_break_duration_minutes, minimum_work_before_break_minutes, auto_start_break_enabled,
			   overtime_threshold_minutes,
			   geofence_exit_grace_minutes, no_show_grace_minutes, monitoring_lead_minutes,
			   minimum_rest_minutes, updated_at
		FROM company_policy_settings
		WHERE company_id = $1
	`, companyID).Scan(
		&p.CompanyID,
		&p.GeofenceAccuracyMeters, &p.GeofenceRadiusToleranceMeters,
		&p.EarlyClockInMinutes, &p.EarlyClockOutMinutes, &p.MinimumTimeAtSiteMinutes,
		&p.AutoClockInEnabled, &p.AutoClockOutEnabled, &p.AutoClockOutDelayMinutes,
		&p.RequiredBreakDurationMinutes, &p.MinimumWorkBeforeBreakMinutes, &p.AutoStartBreakEnabled,
		&p.OvertimeThresholdMinutes,
		&p.GeofenceExitGraceMinutes, &p.NoShowGraceMinutes, &p.MonitoringLeadMinutes,
		&p.MinimumRestMinutes, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return policy.CompanyPolicySettings{}, policy.ErrPolicyNotFound
		}
		return policy.CompanyPolicySettings{}, fmt.Errorf("get policy settings: %w", err)
	}
	return p, nil
}

func (r *policyRepository) Upsert(ctx context.Context, p policy.CompanyPolicySettings) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO company_policy_settings (
			company_id,
			geofence_accuracy_meters, geofence_radius_tolerance_meters,
			early_clock_in_minutes, early_clock_out_minutes, minimum_time_at_site_minutes,
			auto_clock_in_enabled, auto_clock_out_enabled, auto_clock_out_delay_minutes,
			required_break_duration_minutes, minimum_work_before_break_minutes, auto_start_break_enabled,
			overtime_threshold_minutes,
			geofence_exit_grace_minutes, no_show_grace_minutes, monitoring_lead_minutes,
			minimum_rest_minutes, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			geofence_accuracy_meters = EXCLUDED.geofence_accuracy_meters,
			geofence_radius_tolerance_meters = EXCLUDED.geofence_radius_tolerance_meters,
			early_clock_in_minutes = EXCLUDED.early_clock_in_minutes,
			early_clock_out_minutes = EXCLUDED.early_clock_out_minutes,
			minimum_time_at_site_minutes = EXCLUDED.minimum_time_at_site_minutes,
			auto_clock_in_enabled = EXCLUDED.auto_clock_in_enabled,
			auto_clock_out_enabled = EXCLUDED.auto_clock_out_enabled,
			auto_clock_out_delay_minutes = EXCLUDED.auto_clock_out_delay_minutes,
			required_break_duration_minutes = EXCLUDED.required_break_duration_minutes,
			minimum_work_before_break_minutes = EXCLUDED.minimum_work_before_break_minutes,
			auto_start_break_enabled = EXCLUDED.auto_start_break_enabled,
			overtime_threshold_minutes = EXCLUDED.overtime_threshold_minutes,
			geofence_exit_grace_minutes = EXCLUDED.geofence_exit_grace_minutes,
			no_show_grace_minutes = EXCLUDED.no_show_grace_minutes,
			monitoring_lead_minutes = EXCLUDED.monitoring_lead_minutes,
			minimum_rest_minutes = EXCLUDED.minimum_rest_minutes,
			updated_at = NOW()
	`,
		p.CompanyID,
		p.GeofenceAccuracyMeters, p.GeofenceRadiusToleranceMeters,
		p.EarlyClockInMinutes, p.EarlyClockOutMinutes, p.MinimumTimeAtSiteMinutes,
		p.AutoClockInEnabled, p.AutoClockOutEnabled, p.AutoClockOutDelayMinutes,
		p.RequiredBreakDurationMinutes, p.MinimumWorkBeforeBreakMinutes, p.AutoStartBreakEnabled,
		p.OvertimeThresholdMinutes,
		p.GeofenceExitGraceMinutes, p.NoShowGraceMinutes, p.MonitoringLeadMinutes,
		p.MinimumRestMinutes,
	)
	if err != nil {
		return fmt.Errorf("upsert policy settings: %w", err)
	}
	return nil
}
