package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBillingNotFound = errors.New("billing record not found")
	ErrInvalidPlan     = errors.New("invalid plan")
)

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

type PlanLimits struct {
	Seats        int
	MeteredQuota int64
}

// Limits are applied as a snapshot at plan-change time. Existing billing
// rows are never recalculated when this table changes.
var planLimits = map[PlanType]PlanLimits{
	PlanFree:       {Seats: 1, MeteredQuota: 1000},
	PlanPro:        {Seats: 5, MeteredQuota: 10000},
	PlanEnterprise: {Seats: 20, MeteredQuota: 100000},
}

func LimitsForPlan(plan PlanType) (PlanLimits, bool) {
	limits, ok := planLimits[plan]
	return limits, ok
}

type Billing struct {
	OrganizationID    string
	PaymentCustomerID string
	Plan              PlanType
	Seats             int
	MeteredQuota      int64
	RenewsAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Usage struct {
	Used       int64
	Quota      int64
	Percentage int64
	Exceeded   bool
}

type BillingStore interface {
	GetBilling(ctx context.Context, organizationID string) (Billing, error)

	// ApplyPlanChange upserts the billing row and mirrors the plan onto the
	// organization row inside a single transaction.
	ApplyPlanChange(ctx context.Context, billing Billing) error
}

type CreateCheckoutParams struct {
	OrganizationID string
	ActorID        string
	Plan           PlanType
	SuccessURL     string
	CancelURL      string
}

type BillingManager interface {
	// GetBilling returns the billing row, or free-tier defaults when the
	// organization never had one.
	GetBilling(ctx context.Context, organizationID string) (Billing, error)

	// CheckUsageQuota aggregates the organization's input tokens for the
	// current calendar month against its metered quota.
	CheckUsageQuota(ctx context.Context, organizationID string) (Usage, error)

	// UpdateOrganizationPlan snapshots the plan's limits into the billing
	// row and mirrors the plan onto the organization atomically.
	UpdateOrganizationPlan(ctx context.Context, organizationID string, plan PlanType, customerID string) (Billing, error)

	CreateCheckoutSession(ctx context.Context, params CreateCheckoutParams) (CheckoutSession, error)

	// VerifyCheckoutSession checks the session with the payment provider
	// and applies the purchased plan when it is paid.
	VerifyCheckoutSession(ctx context.Context, organizationID, sessionID string) (SessionVerification, error)

	CreatePortalSession(ctx context.Context, organizationID, returnURL string) (PortalSession, error)

	// HandlePaymentWebhook verifies the payload signature and applies any
	// plan change the event carries.
	HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error
}
