package domain

import (
	"context"
	"errors"
	"time"
)

var ErrWebhookNotFound = errors.New("webhook not found")

const (
	EventPipelinePublished = "pipeline.published"
	EventRunRecorded       = "run.recorded"
	EventPlanChanged       = "plan.changed"
	EventWebhookTest       = "webhook.test"
)

type Webhook struct {
	ID             string
	OrganizationID string
	URL            string
	Secret         string
	Events         []string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (w Webhook) SubscribesTo(eventType string) bool {
	for _, event := range w.Events {
		if event == eventType {
			return true
		}
	}
	return false
}

type WebhookEvent struct {
	ID             string
	Type           string
	OrganizationID string
	Data           map[string]any
	CreatedAt      time.Time
}

type WebhookStore interface {
	CreateWebhook(ctx context.Context, webhook Webhook) error
	GetWebhook(ctx context.Context, id string) (Webhook, error)
	ListWebhooksByOrganization(ctx context.Context, organizationID string) ([]Webhook, error)
	UpdateWebhook(ctx context.Context, webhook Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
}

// EventDispatcher fans organization events out to subscribed webhooks.
// Dispatch must not block the caller.
type EventDispatcher interface {
	Dispatch(event WebhookEvent)
}

// WebhookDeliverer posts one event to one webhook synchronously.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, webhook Webhook, event WebhookEvent) error
}

type CreateWebhookParams struct {
	OrganizationID string
	ActorID        string
	URL            string
	Secret         string
	Events         []string
}

// UpdateWebhookParams leaves a field unchanged when it is empty (nil for
// Events and Active).
type UpdateWebhookParams struct {
	WebhookID      string
	OrganizationID string
	ActorID        string
	URL            string
	Events         []string
	Active         *bool
}

type WebhookManager interface {
	CreateWebhook(ctx context.Context, params CreateWebhookParams) (Webhook, error)
	GetWebhook(ctx context.Context, organizationID, webhookID string) (Webhook, error)
	ListWebhooks(ctx context.Context, organizationID string) ([]Webhook, error)
	UpdateWebhook(ctx context.Context, params UpdateWebhookParams) (Webhook, error)
	DeleteWebhook(ctx context.Context, organizationID, actorID, webhookID string) error

	// TestDelivery posts a synthetic event to the webhook synchronously
	// and reports the delivery outcome.
	TestDelivery(ctx context.Context, organizationID, webhookID string) error
}
