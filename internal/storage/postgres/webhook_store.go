package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type WebhookStore struct {
	pool *pgxpool.Pool
}

func NewWebhookStore(pool *pgxpool.Pool) *WebhookStore {
	return &WebhookStore{pool: pool}
}

func (s *WebhookStore) CreateWebhook(ctx context.Context, webhook domain.Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO webhooks (id, organization_id, url, secret, events, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, webhook.ID, webhook.OrganizationID, webhook.URL, webhook.Secret, eventsJSON,
		webhook.Active, webhook.CreatedAt, webhook.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

func (s *WebhookStore) GetWebhook(ctx context.Context, id string) (domain.Webhook, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, url, secret, events, active, created_at, updated_at
		FROM webhooks WHERE id = $1
	`, id)

	return scanWebhook(row)
}

func (s *WebhookStore) ListWebhooksByOrganization(ctx context.Context, organizationID string) ([]domain.Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, url, secret, events, active, created_at, updated_at
		FROM webhooks WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, webhook)
	}

	return webhooks, rows.Err()
}

func (s *WebhookStore) UpdateWebhook(ctx context.Context, webhook domain.Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE webhooks SET url = $2, secret = $3, events = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, webhook.ID, webhook.URL, webhook.Secret, eventsJSON, webhook.Active, webhook.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookNotFound
	}

	return nil
}

func (s *WebhookStore) DeleteWebhook(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookNotFound
	}

	return nil
}

func scanWebhook(row pgx.Row) (domain.Webhook, error) {
	var webhook domain.Webhook
	var eventsJSON []byte

	err := row.Scan(&webhook.ID, &webhook.OrganizationID, &webhook.URL, &webhook.Secret,
		&eventsJSON, &webhook.Active, &webhook.CreatedAt, &webhook.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Webhook{}, domain.ErrWebhookNotFound
		}
		return domain.Webhook{}, fmt.Errorf("failed to get webhook: %w", err)
	}

	if eventsJSON != nil {
		if err := json.Unmarshal(eventsJSON, &webhook.Events); err != nil {
			return domain.Webhook{}, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}

	return webhook, nil
}
