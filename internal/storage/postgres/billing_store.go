package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type BillingStore struct {
	pool *pgxpool.Pool
}

func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	return &BillingStore{pool: pool}
}

func (s *BillingStore) GetBilling(ctx context.Context, organizationID string) (domain.Billing, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT organization_id, payment_customer_id, plan, seats, metered_quota, renews_at, created_at, updated_at
		FROM billing WHERE organization_id = $1
	`, organizationID)

	var billing domain.Billing
	var customerID *string
	var plan string

	err := row.Scan(
		&billing.OrganizationID,
		&customerID,
		&plan,
		&billing.Seats,
		&billing.MeteredQuota,
		&billing.RenewsAt,
		&billing.CreatedAt,
		&billing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Billing{}, domain.ErrBillingNotFound
		}
		return domain.Billing{}, fmt.Errorf("failed to get billing: %w", err)
	}

	if customerID != nil {
		billing.PaymentCustomerID = *customerID
	}
	billing.Plan = domain.PlanType(plan)

	return billing, nil
}

// ApplyPlanChange upserts the billing row and mirrors the plan onto the
// organization row. Both writes commit or roll back together.
func (s *BillingStore) ApplyPlanChange(ctx context.Context, billing domain.Billing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin plan change: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerID *string
	if billing.PaymentCustomerID != "" {
		customerID = &billing.PaymentCustomerID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO billing (organization_id, payment_customer_id, plan, seats, metered_quota, renews_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id) DO UPDATE SET
			payment_customer_id = COALESCE(EXCLUDED.payment_customer_id, billing.payment_customer_id),
			plan = EXCLUDED.plan,
			seats = EXCLUDED.seats,
			metered_quota = EXCLUDED.metered_quota,
			renews_at = EXCLUDED.renews_at,
			updated_at = EXCLUDED.updated_at
	`, billing.OrganizationID, customerID, string(billing.Plan), billing.Seats,
		billing.MeteredQuota, billing.RenewsAt, billing.CreatedAt, billing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert billing: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE organizations SET plan = $2, updated_at = $3 WHERE id = $1
	`, billing.OrganizationID, string(billing.Plan), billing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to mirror plan onto organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrganizationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit plan change: %w", err)
	}

	return nil
}
