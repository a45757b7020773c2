package domain

import (
	"context"
	"errors"
)

var (
	ErrPaymentSessionNotFound = errors.New("payment session not found")
	ErrNoBillingCustomer      = errors.New("organization has no payment customer")
	ErrInvalidWebhookPayload  = errors.New("invalid payment webhook payload")
)

type CheckoutParams struct {
	OrganizationID string
	Plan           PlanType
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type SessionVerification struct {
	SessionID  string
	Paid       bool
	Plan       PlanType
	CustomerID string
}

type PortalSession struct {
	URL string
}

type PaymentEvent struct {
	ID             string
	Type           string
	OrganizationID string
	CustomerID     string
	Plan           PlanType
}

// PaymentProvider is the boundary to the external payment processor.
// The default wiring is a deterministic stub; a real processor backs it
// when configured.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (SessionVerification, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (PortalSession, error)
	ParseWebhookEvent(payload []byte, signature string) (PaymentEvent, error)
}
