// Package payments implements the payment provider boundary. The stub
// provider answers with deterministic placeholder values; the Stripe
// provider is used when a secret key is configured.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type StubProvider struct {
	idGenerator domain.IDGenerator
}

func NewStubProvider(idGenerator domain.IDGenerator) *StubProvider {
	return &StubProvider{idGenerator: idGenerator}
}

// CreateCheckoutSession encodes the plan into the session id so
// VerifySession can answer without any stored state.
func (p *StubProvider) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (domain.CheckoutSession, error) {
	id := fmt.Sprintf("cs_stub_%s_%s", params.Plan, p.idGenerator.NewID())

	return domain.CheckoutSession{
		ID:  id,
		URL: "https://billing.example.com/checkout/" + id,
	}, nil
}

func (p *StubProvider) VerifySession(ctx context.Context, sessionID string) (domain.SessionVerification, error) {
	parts := strings.Split(sessionID, "_")
	if len(parts) != 4 || parts[0] != "cs" || parts[1] != "stub" {
		return domain.SessionVerification{}, domain.ErrPaymentSessionNotFound
	}

	return domain.SessionVerification{
		SessionID:  sessionID,
		Paid:       true,
		Plan:       domain.PlanType(parts[2]),
		CustomerID: "cus_stub_" + parts[3],
	}, nil
}

func (p *StubProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (domain.PortalSession, error) {
	return domain.PortalSession{
		URL: "https://billing.example.com/portal/" + customerID,
	}, nil
}

type stubWebhookPayload struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	OrganizationID string `json:"organization_id"`
	CustomerID     string `json:"customer_id"`
	Plan           string `json:"plan"`
}

func (p *StubProvider) ParseWebhookEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	var body stubWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %w", domain.ErrInvalidWebhookPayload, err)
	}

	return domain.PaymentEvent{
		ID:             body.ID,
		Type:           body.Type,
		OrganizationID: body.OrganizationID,
		CustomerID:     body.CustomerID,
		Plan:           domain.PlanType(body.Plan),
	}, nil
}
