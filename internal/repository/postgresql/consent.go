package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shiftsense/tracking-engine-go/internal/domain/consent"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/database"
)

type consentRepository struct {
	db *database.DB
}

func NewConsentRepository(db *database.DB) consent.ConsentRepository {
	return &consentRepository{db: db}
}

func (r *consentRepository) Get(ctx context.Context, employeeID string, companyID string) (consent.TrackingConsent, error) {
	q := GetQuerier(ctx, r.db)

	var c consent.TrackingConsent
	err := q.QueryRow(ctx, `
		SELECT employee_id, company_id, consent_given, auto_tracking_enabled, updated_at
		FROM tracking_consents
		WHERE employee_id = $1 AND company_id = $2
	`, employeeID, companyID).Scan(
		&c.EmployeeID, &c.CompanyID, &c.ConsentGiven, &c.AutoTrackingEnabled, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return consent.TrackingConsent{}, consent.ErrConsentNotFound
		}
		return consent.TrackingConsent{}, fmt.Errorf("get tracking consent: %w", err)
	}
	return c, nil
}

func (r *consentRepository) Set(ctx context.Context, c consent.TrackingConsent) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO tracking_consents (employee_id, company_id, consent_given, auto_tracking_enabled, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (employee_id, company_id) DO UPDATE SET
			consent_given = EXCLUDED.consent_given,
			auto_tracking_enabled = EXCLUDED.auto_tracking_enabled,
			updated_at = NOW()
	`, c.EmployeeID, c.CompanyID, c.ConsentGiven, c.AutoTrackingEnabled)
	if err != nil {
		return fmt.Errorf("set tracking consent: %w", err)
	}
	return nil
}
