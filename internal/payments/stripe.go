package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string

	// PriceIDs maps a plan to its Stripe price.
	PriceIDs map[domain.PlanType]string
}

type StripeProvider struct {
	webhookSecret string
	priceIDs      map[domain.PlanType]string
}

func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = cfg.SecretKey

	return &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		priceIDs:      cfg.PriceIDs,
	}, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (domain.CheckoutSession, error) {
	priceID, ok := p.priceIDs[params.Plan]
	if !ok {
		return domain.CheckoutSession{}, domain.ErrInvalidPlan
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"organization_id": params.OrganizationID,
			"plan":            string(params.Plan),
		},
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	checkoutSession, err := session.New(sessionParams)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return domain.CheckoutSession{
		ID:  checkoutSession.ID,
		URL: checkoutSession.URL,
	}, nil
}

func (p *StripeProvider) VerifySession(ctx context.Context, sessionID string) (domain.SessionVerification, error) {
	checkoutSession, err := session.Get(sessionID, nil)
	if err != nil {
		return domain.SessionVerification{}, fmt.Errorf("failed to get checkout session: %w", err)
	}

	verification := domain.SessionVerification{
		SessionID: checkoutSession.ID,
		Paid:      checkoutSession.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Plan:      domain.PlanType(checkoutSession.Metadata["plan"]),
	}
	if checkoutSession.Customer != nil {
		verification.CustomerID = checkoutSession.Customer.ID
	}

	return verification, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (domain.PortalSession, error) {
	portal, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return domain.PortalSession{}, fmt.Errorf("failed to create portal session: %w", err)
	}

	return domain.PortalSession{URL: portal.URL}, nil
}

func (p *StripeProvider) ParseWebhookEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %w", domain.ErrInvalidWebhookPayload, err)
	}

	paymentEvent := domain.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	var object struct {
		Customer string            `json:"customer"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err == nil {
		paymentEvent.CustomerID = object.Customer
		paymentEvent.OrganizationID = object.Metadata["organization_id"]
		paymentEvent.Plan = domain.PlanType(object.Metadata["plan"])
	}

	return paymentEvent, nil
}
