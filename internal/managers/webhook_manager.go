package managers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	webhookSecretPrefix = "whsec_"
	webhookSecretBytes  = 24
)

type webhookManager struct {
	webhooks  domain.WebhookStore
	deliverer domain.WebhookDeliverer
	ids       domain.IDGenerator
	audit     domain.AuditRecorder
}

type WebhookManagerDependencies struct {
	WebhookStore     domain.WebhookStore
	WebhookDeliverer domain.WebhookDeliverer
	IDGenerator      domain.IDGenerator
	AuditRecorder    domain.AuditRecorder
}

func NewWebhookManager(deps WebhookManagerDependencies) domain.WebhookManager {
	return &webhookManager{
		webhooks:  deps.WebhookStore,
		deliverer: deps.WebhookDeliverer,
		ids:       deps.IDGenerator,
		audit:     auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *webhookManager) CreateWebhook(ctx context.Context, params domain.CreateWebhookParams) (domain.Webhook, error) {
	secret := params.Secret
	if secret == "" {
		generated, err := generateWebhookSecret()
		if err != nil {
			return domain.Webhook{}, fmt.Errorf("failed to generate webhook secret: %w", err)
		}
		secret = generated
	}

	now := time.Now()

	webhook := domain.Webhook{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		URL:            params.URL,
		Secret:         secret,
		Events:         params.Events,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.webhooks.CreateWebhook(ctx, webhook); err != nil {
		return domain.Webhook{}, fmt.Errorf("failed to create webhook: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "webhook.created",
		ResourceType:   "webhook",
		ResourceID:     webhook.ID,
	})

	return webhook, nil
}

func (m *webhookManager) GetWebhook(ctx context.Context, organizationID, webhookID string) (domain.Webhook, error) {
	return m.requireWebhook(ctx, organizationID, webhookID)
}

func (m *webhookManager) ListWebhooks(ctx context.Context, organizationID string) ([]domain.Webhook, error) {
	webhooks, err := m.webhooks.ListWebhooksByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	return webhooks, nil
}

func (m *webhookManager) UpdateWebhook(ctx context.Context, params domain.UpdateWebhookParams) (domain.Webhook, error) {
	webhook, err := m.requireWebhook(ctx, params.OrganizationID, params.WebhookID)
	if err != nil {
		return domain.Webhook{}, err
	}

	if params.URL != "" {
		webhook.URL = params.URL
	}
	if params.Events != nil {
		webhook.Events = params.Events
	}
	if params.Active != nil {
		webhook.Active = *params.Active
	}
	webhook.UpdatedAt = time.Now()

	if err := m.webhooks.UpdateWebhook(ctx, webhook); err != nil {
		return domain.Webhook{}, fmt.Errorf("failed to update webhook: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "webhook.updated",
		ResourceType:   "webhook",
		ResourceID:     webhook.ID,
	})

	return webhook, nil
}

func (m *webhookManager) DeleteWebhook(ctx context.Context, organizationID, actorID, webhookID string) error {
	webhook, err := m.requireWebhook(ctx, organizationID, webhookID)
	if err != nil {
		return err
	}

	if err := m.webhooks.DeleteWebhook(ctx, webhook.ID); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "webhook.deleted",
		ResourceType:   "webhook",
		ResourceID:     webhook.ID,
	})

	return nil
}

// TestDelivery posts a synthetic event straight to the endpoint, without
// the retrying background pool, so the caller sees the real outcome.
func (m *webhookManager) TestDelivery(ctx context.Context, organizationID, webhookID string) error {
	webhook, err := m.requireWebhook(ctx, organizationID, webhookID)
	if err != nil {
		return err
	}

	event := domain.WebhookEvent{
		ID:             m.ids.NewID(),
		Type:           domain.EventWebhookTest,
		OrganizationID: organizationID,
		Data:           map[string]any{"webhook_id": webhook.ID},
		CreatedAt:      time.Now(),
	}

	if err := m.deliverer.Deliver(ctx, webhook, event); err != nil {
		return fmt.Errorf("test delivery failed: %w", err)
	}

	return nil
}

func (m *webhookManager) requireWebhook(ctx context.Context, organizationID, webhookID string) (domain.Webhook, error) {
	webhook, err := m.webhooks.GetWebhook(ctx, webhookID)
	if err != nil {
		if errors.Is(err, domain.ErrWebhookNotFound) {
			return domain.Webhook{}, domain.ErrWebhookNotFound
		}
		return domain.Webhook{}, fmt.Errorf("failed to get webhook: %w", err)
	}

	if webhook.OrganizationID != organizationID {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}

	return webhook, nil
}

func generateWebhookSecret() (string, error) {
	buf := make([]byte, webhookSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return webhookSecretPrefix + hex.EncodeToString(buf), nil
}
