package managers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/payments"
)

// trackedRunStore counts usage aggregation calls so tests can prove when
// the query was skipped.
type trackedRunStore struct {
	domain.RunStore
	sumCalls int
}

func (s *trackedRunStore) SumTokensInForOrganization(ctx context.Context, organizationID string, from, to time.Time) (int64, error) {
	s.sumCalls++
	return s.RunStore.SumTokensInForOrganization(ctx, organizationID, from, to)
}

type billingTestEnv struct {
	f          *fixture
	runs       *trackedRunStore
	manager    domain.BillingManager
	events     *eventSink
	audit      *auditSink
	redis      *redis.Client
	miniServer *miniredis.Miniredis
}

func newBillingTestEnv(t *testing.T, withCache bool) *billingTestEnv {
	t.Helper()

	f := newFixture(t)
	env := &billingTestEnv{
		f:      f,
		runs:   &trackedRunStore{RunStore: f.store},
		events: &eventSink{},
		audit:  &auditSink{},
	}

	if withCache {
		env.miniServer = miniredis.RunT(t)
		env.redis = redis.NewClient(&redis.Options{Addr: env.miniServer.Addr()})
		t.Cleanup(func() { _ = env.redis.Close() })
	}

	env.manager = NewBillingManager(BillingManagerDependencies{
		BillingStore:    f.store,
		RunStore:        env.runs,
		UserStore:       f.store,
		PaymentProvider: payments.NewStubProvider(f.ids),
		RedisClient:     env.redis,
		IDGenerator:     f.ids,
		EventDispatcher: env.events,
		AuditRecorder:   env.audit,
	})

	return env
}

// seedRun stores a run in the current month carrying tokensIn.
func (env *billingTestEnv) seedRun(t *testing.T, tokensIn int64) {
	t.Helper()

	require.NoError(t, env.f.store.CreateRun(context.Background(), domain.Run{
		ID:        env.f.ids.NewID(),
		ProjectID: env.f.project.ID,
		Model:     "gpt-4o",
		TokensIn:  tokensIn,
		Success:   true,
		CreatedAt: time.Now(),
	}))
}

func TestBillingManager_GetBillingDefaultsToFreeTier(t *testing.T) {
	env := newBillingTestEnv(t, false)

	billing, err := env.manager.GetBilling(context.Background(), env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, billing.Plan)
	assert.Equal(t, 1, billing.Seats)
	assert.Equal(t, int64(1000), billing.MeteredQuota)
	assert.Nil(t, billing.RenewsAt)
}

func TestBillingManager_CheckUsageQuotaSkipsQueryWithoutBillingRow(t *testing.T) {
	env := newBillingTestEnv(t, false)
	env.seedRun(t, 400)

	usage, err := env.manager.CheckUsageQuota(context.Background(), env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Used: 0, Quota: 1000, Percentage: 0, Exceeded: false}, usage)
	assert.Zero(t, env.runs.sumCalls)
}

func TestBillingManager_CheckUsageQuotaAggregatesCurrentMonth(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	_, err := env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanFree, "")
	require.NoError(t, err)

	env.seedRun(t, 600)
	env.seedRun(t, 150)

	// A run from a past month never counts.
	require.NoError(t, env.f.store.CreateRun(ctx, domain.Run{
		ID:        env.f.ids.NewID(),
		ProjectID: env.f.project.ID,
		Model:     "gpt-4o",
		TokensIn:  9999,
		CreatedAt: time.Now().AddDate(0, -2, 0),
	}))

	usage, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), usage.Used)
	assert.Equal(t, int64(1000), usage.Quota)
	assert.Equal(t, int64(75), usage.Percentage)
	assert.False(t, usage.Exceeded)
	assert.Equal(t, 1, env.runs.sumCalls)
}

func TestBillingManager_CheckUsageQuotaOverQuota(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	// Seed a shrunken quota directly to model a legacy row.
	require.NoError(t, env.f.store.ApplyPlanChange(ctx, domain.Billing{
		OrganizationID: env.f.org.ID,
		Plan:           domain.PlanFree,
		Seats:          1,
		MeteredQuota:   100,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}))

	env.seedRun(t, 150)

	usage, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), usage.Used)
	assert.Equal(t, int64(100), usage.Quota)
	assert.Equal(t, int64(150), usage.Percentage)
	assert.True(t, usage.Exceeded)
}

func TestBillingManager_CheckUsageQuotaExactQuotaNotExceeded(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	_, err := env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanFree, "")
	require.NoError(t, err)

	env.seedRun(t, 1000)

	usage, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.Percentage)
	assert.False(t, usage.Exceeded)
}

func TestBillingManager_UpdateOrganizationPlan(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	billing, err := env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanPro, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, billing.Plan)
	assert.Equal(t, 5, billing.Seats)
	assert.Equal(t, int64(10000), billing.MeteredQuota)
	assert.Equal(t, "cus_123", billing.PaymentCustomerID)
	require.NotNil(t, billing.RenewsAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *billing.RenewsAt, time.Minute)

	// The plan is mirrored onto the organization row.
	org, err := env.f.store.GetOrganization(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, org.Plan)

	assert.Contains(t, env.audit.Actions(), "billing.plan_changed")

	dispatched := env.events.Events()
	require.Len(t, dispatched, 1)
	assert.Equal(t, domain.EventPlanChanged, dispatched[0].Type)
	assert.Equal(t, "pro", dispatched[0].Data["plan"])
}

func TestBillingManager_UpdateOrganizationPlanRejectsUnknownPlan(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	_, err := env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanType("platinum"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	_, err = env.f.store.GetBilling(ctx, env.f.org.ID)
	assert.ErrorIs(t, err, domain.ErrBillingNotFound)
}

func TestBillingManager_UsageCache(t *testing.T) {
	env := newBillingTestEnv(t, true)
	ctx := context.Background()

	_, err := env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanFree, "")
	require.NoError(t, err)

	env.seedRun(t, 200)

	first, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), first.Used)
	assert.Equal(t, 1, env.runs.sumCalls)

	// The second read is served from the cache even though a new run
	// landed.
	env.seedRun(t, 300)

	second, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), second.Used)
	assert.Equal(t, 1, env.runs.sumCalls)

	// A plan change drops the cached entry.
	_, err = env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanPro, "")
	require.NoError(t, err)

	third, err := env.manager.CheckUsageQuota(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), third.Used)
	assert.Equal(t, int64(10000), third.Quota)
	assert.Equal(t, 2, env.runs.sumCalls)
}

func TestBillingManager_CheckoutSession(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	_, err := env.manager.CreateCheckoutSession(ctx, domain.CreateCheckoutParams{
		OrganizationID: env.f.org.ID,
		ActorID:        env.f.user.ID,
		Plan:           domain.PlanFree,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	session, err := env.manager.CreateCheckoutSession(ctx, domain.CreateCheckoutParams{
		OrganizationID: env.f.org.ID,
		ActorID:        env.f.user.ID,
		Plan:           domain.PlanPro,
		SuccessURL:     "https://app.example.com/billing/success",
		CancelURL:      "https://app.example.com/billing",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.URL)
}

func TestBillingManager_VerifyCheckoutSessionAppliesPlan(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	session, err := env.manager.CreateCheckoutSession(ctx, domain.CreateCheckoutParams{
		OrganizationID: env.f.org.ID,
		ActorID:        env.f.user.ID,
		Plan:           domain.PlanPro,
	})
	require.NoError(t, err)

	verification, err := env.manager.VerifyCheckoutSession(ctx, env.f.org.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, verification.Paid)
	assert.Equal(t, domain.PlanPro, verification.Plan)

	billing, err := env.f.store.GetBilling(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, billing.Plan)
	assert.NotEmpty(t, billing.PaymentCustomerID)
}

func TestBillingManager_VerifyCheckoutSessionUnknownSession(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	verification, err := env.manager.VerifyCheckoutSession(ctx, env.f.org.ID, "cs_live_bogus")
	require.NoError(t, err)
	assert.False(t, verification.Paid)
	assert.Equal(t, "cs_live_bogus", verification.SessionID)

	_, err = env.f.store.GetBilling(ctx, env.f.org.ID)
	assert.ErrorIs(t, err, domain.ErrBillingNotFound)
}

func TestBillingManager_PortalSessionRequiresCustomer(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	_, err := env.manager.CreatePortalSession(ctx, env.f.org.ID, "https://app.example.com/billing")
	assert.ErrorIs(t, err, domain.ErrNoBillingCustomer)

	_, err = env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanPro, "")
	require.NoError(t, err)

	_, err = env.manager.CreatePortalSession(ctx, env.f.org.ID, "https://app.example.com/billing")
	assert.ErrorIs(t, err, domain.ErrNoBillingCustomer)

	_, err = env.manager.UpdateOrganizationPlan(ctx, env.f.org.ID, domain.PlanPro, "cus_123")
	require.NoError(t, err)

	portal, err := env.manager.CreatePortalSession(ctx, env.f.org.ID, "https://app.example.com/billing")
	require.NoError(t, err)
	assert.NotEmpty(t, portal.URL)
}

func TestBillingManager_HandlePaymentWebhook(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	payload, err := json.Marshal(map[string]string{
		"id":              "evt_1",
		"type":            "checkout.session.completed",
		"organization_id": env.f.org.ID,
		"customer_id":     "cus_evt",
		"plan":            "enterprise",
	})
	require.NoError(t, err)

	require.NoError(t, env.manager.HandlePaymentWebhook(ctx, payload, "sig"))

	billing, err := env.f.store.GetBilling(ctx, env.f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanEnterprise, billing.Plan)
	assert.Equal(t, int64(100000), billing.MeteredQuota)
}

func TestBillingManager_HandlePaymentWebhookIgnoresOtherEvents(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	payload, err := json.Marshal(map[string]string{
		"id":   "evt_2",
		"type": "invoice.paid",
		"plan": "pro",
	})
	require.NoError(t, err)

	require.NoError(t, env.manager.HandlePaymentWebhook(ctx, payload, "sig"))

	_, err = env.f.store.GetBilling(ctx, env.f.org.ID)
	assert.ErrorIs(t, err, domain.ErrBillingNotFound)
}

func TestBillingManager_HandlePaymentWebhookMissingOrganization(t *testing.T) {
	env := newBillingTestEnv(t, false)
	ctx := context.Background()

	payload, err := json.Marshal(map[string]string{
		"id":   "evt_3",
		"type": "customer.subscription.updated",
		"plan": "pro",
	})
	require.NoError(t, err)

	require.NoError(t, env.manager.HandlePaymentWebhook(ctx, payload, "sig"))

	_, err = env.f.store.GetBilling(ctx, env.f.org.ID)
	assert.ErrorIs(t, err, domain.ErrBillingNotFound)
}
