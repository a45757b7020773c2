package managers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	planRenewalPeriod = 30 * 24 * time.Hour
	usageCacheTTL     = 30 * time.Second
	usageCachePrefix  = "promptdeck:usage:"
)

type billingManager struct {
	billing    domain.BillingStore
	runs       domain.RunStore
	users      domain.UserStore
	payments   domain.PaymentProvider
	redis      *redis.Client
	ids        domain.IDGenerator
	dispatcher domain.EventDispatcher
	audit      domain.AuditRecorder
}

type BillingManagerDependencies struct {
	BillingStore    domain.BillingStore
	RunStore        domain.RunStore
	UserStore       domain.UserStore
	PaymentProvider domain.PaymentProvider

	// RedisClient is optional. When set, usage lookups are cached for a
	// short window and invalidated on plan changes.
	RedisClient *redis.Client

	IDGenerator     domain.IDGenerator
	EventDispatcher domain.EventDispatcher
	AuditRecorder   domain.AuditRecorder
}

func NewBillingManager(deps BillingManagerDependencies) domain.BillingManager {
	return &billingManager{
		billing:    deps.BillingStore,
		runs:       deps.RunStore,
		users:      deps.UserStore,
		payments:   deps.PaymentProvider,
		redis:      deps.RedisClient,
		ids:        deps.IDGenerator,
		dispatcher: eventDispatcherOrNoop(deps.EventDispatcher),
		audit:      auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *billingManager) GetBilling(ctx context.Context, organizationID string) (domain.Billing, error) {
	billing, err := m.billing.GetBilling(ctx, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrBillingNotFound) {
			return freeTierBilling(organizationID), nil
		}
		return domain.Billing{}, fmt.Errorf("failed to get billing: %w", err)
	}

	return billing, nil
}

func (m *billingManager) CheckUsageQuota(ctx context.Context, organizationID string) (domain.Usage, error) {
	billing, err := m.billing.GetBilling(ctx, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrBillingNotFound) {
			// No billing row means default free limits and no recorded
			// usage; the aggregation query is skipped entirely.
			return domain.Usage{Quota: freeTierBilling(organizationID).MeteredQuota}, nil
		}
		return domain.Usage{}, fmt.Errorf("failed to get billing: %w", err)
	}

	if usage, ok := m.cachedUsage(ctx, organizationID); ok {
		return usage, nil
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	used, err := m.runs.SumTokensInForOrganization(ctx, organizationID, monthStart, now)
	if err != nil {
		return domain.Usage{}, fmt.Errorf("failed to sum token usage: %w", err)
	}

	usage := domain.Usage{
		Used:     used,
		Quota:    billing.MeteredQuota,
		Exceeded: used > billing.MeteredQuota,
	}
	if billing.MeteredQuota > 0 {
		usage.Percentage = int64(math.Round(float64(used) / float64(billing.MeteredQuota) * 100))
	}

	m.cacheUsage(ctx, organizationID, usage)

	return usage, nil
}

func (m *billingManager) UpdateOrganizationPlan(ctx context.Context, organizationID string, plan domain.PlanType, customerID string) (domain.Billing, error) {
	limits, ok := domain.LimitsForPlan(plan)
	if !ok {
		return domain.Billing{}, domain.ErrInvalidPlan
	}

	now := time.Now()
	renewsAt := now.Add(planRenewalPeriod)

	change := domain.Billing{
		OrganizationID:    organizationID,
		PaymentCustomerID: customerID,
		Plan:              plan,
		Seats:             limits.Seats,
		MeteredQuota:      limits.MeteredQuota,
		RenewsAt:          &renewsAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.billing.ApplyPlanChange(ctx, change); err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			return domain.Billing{}, domain.ErrOrganizationNotFound
		}
		return domain.Billing{}, fmt.Errorf("failed to apply plan change: %w", err)
	}

	m.invalidateUsageCache(ctx, organizationID)

	billing, err := m.billing.GetBilling(ctx, organizationID)
	if err != nil {
		return domain.Billing{}, fmt.Errorf("failed to get billing: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		Action:         "billing.plan_changed",
		ResourceType:   "billing",
		ResourceID:     organizationID,
		Metadata:       map[string]any{"plan": string(plan)},
	})

	m.dispatcher.Dispatch(domain.WebhookEvent{
		ID:             m.ids.NewID(),
		Type:           domain.EventPlanChanged,
		OrganizationID: organizationID,
		Data: map[string]any{
			"plan":          string(plan),
			"seats":         billing.Seats,
			"metered_quota": billing.MeteredQuota,
		},
		CreatedAt: now,
	})

	return billing, nil
}

func (m *billingManager) CreateCheckoutSession(ctx context.Context, params domain.CreateCheckoutParams) (domain.CheckoutSession, error) {
	// Checkout only makes sense for paid plans; free is applied directly.
	if params.Plan == domain.PlanFree {
		return domain.CheckoutSession{}, domain.ErrInvalidPlan
	}
	if _, ok := domain.LimitsForPlan(params.Plan); !ok {
		return domain.CheckoutSession{}, domain.ErrInvalidPlan
	}

	actor, err := m.users.GetUser(ctx, params.ActorID)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("failed to get user: %w", err)
	}

	session, err := m.payments.CreateCheckoutSession(ctx, domain.CheckoutParams{
		OrganizationID: params.OrganizationID,
		Plan:           params.Plan,
		CustomerEmail:  actor.Email,
		SuccessURL:     params.SuccessURL,
		CancelURL:      params.CancelURL,
	})
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return session, nil
}

// VerifyCheckoutSession is a soft flow: an unknown or unpaid session
// reports Paid=false instead of failing.
func (m *billingManager) VerifyCheckoutSession(ctx context.Context, organizationID, sessionID string) (domain.SessionVerification, error) {
	verification, err := m.payments.VerifySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentSessionNotFound) {
			return domain.SessionVerification{SessionID: sessionID}, nil
		}
		return domain.SessionVerification{}, fmt.Errorf("failed to verify session: %w", err)
	}

	if !verification.Paid {
		return verification, nil
	}

	if _, err := m.UpdateOrganizationPlan(ctx, organizationID, verification.Plan, verification.CustomerID); err != nil {
		return domain.SessionVerification{}, fmt.Errorf("failed to apply purchased plan: %w", err)
	}

	return verification, nil
}

func (m *billingManager) CreatePortalSession(ctx context.Context, organizationID, returnURL string) (domain.PortalSession, error) {
	billing, err := m.billing.GetBilling(ctx, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrBillingNotFound) {
			return domain.PortalSession{}, domain.ErrNoBillingCustomer
		}
		return domain.PortalSession{}, fmt.Errorf("failed to get billing: %w", err)
	}
	if billing.PaymentCustomerID == "" {
		return domain.PortalSession{}, domain.ErrNoBillingCustomer
	}

	session, err := m.payments.CreatePortalSession(ctx, billing.PaymentCustomerID, returnURL)
	if err != nil {
		return domain.PortalSession{}, fmt.Errorf("failed to create portal session: %w", err)
	}

	return session, nil
}

func (m *billingManager) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := m.payments.ParseWebhookEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("failed to parse payment event: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed", "customer.subscription.updated":
		if event.OrganizationID == "" || event.Plan == "" {
			log.Warn().Str("event_id", event.ID).Str("event_type", event.Type).Msg("payment event missing organization or plan")
			return nil
		}
		if _, err := m.UpdateOrganizationPlan(ctx, event.OrganizationID, event.Plan, event.CustomerID); err != nil {
			return fmt.Errorf("failed to apply plan from payment event: %w", err)
		}
	default:
		log.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("ignoring payment event")
	}

	return nil
}

func (m *billingManager) cachedUsage(ctx context.Context, organizationID string) (domain.Usage, bool) {
	if m.redis == nil {
		return domain.Usage{}, false
	}

	payload, err := m.redis.Get(ctx, usageCachePrefix+organizationID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("failed to read usage cache")
		}
		return domain.Usage{}, false
	}

	var usage domain.Usage
	if err := json.Unmarshal([]byte(payload), &usage); err != nil {
		return domain.Usage{}, false
	}

	return usage, true
}

func (m *billingManager) cacheUsage(ctx context.Context, organizationID string, usage domain.Usage) {
	if m.redis == nil {
		return
	}

	payload, err := json.Marshal(usage)
	if err != nil {
		return
	}

	if err := m.redis.Set(ctx, usageCachePrefix+organizationID, payload, usageCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to write usage cache")
	}
}

func (m *billingManager) invalidateUsageCache(ctx context.Context, organizationID string) {
	if m.redis == nil {
		return
	}

	if err := m.redis.Del(ctx, usageCachePrefix+organizationID).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate usage cache")
	}
}

func freeTierBilling(organizationID string) domain.Billing {
	limits, _ := domain.LimitsForPlan(domain.PlanFree)

	return domain.Billing{
		OrganizationID: organizationID,
		Plan:           domain.PlanFree,
		Seats:          limits.Seats,
		MeteredQuota:   limits.MeteredQuota,
	}
}
