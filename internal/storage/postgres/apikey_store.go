package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type APIKeyStore struct {
	pool *pgxpool.Pool
}

func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

func (s *APIKeyStore) CreateAPIKey(ctx context.Context, key domain.APIKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, organization_id, name, token_hash, token_prefix, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, key.ID, key.OrganizationID, key.Name, key.TokenHash, key.TokenPrefix, key.CreatedAt, key.LastUsedAt)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

func (s *APIKeyStore) GetAPIKeyByHash(ctx context.Context, tokenHash string) (domain.APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, token_hash, token_prefix, created_at, last_used_at
		FROM api_keys WHERE token_hash = $1
	`, tokenHash)

	return scanAPIKey(row)
}

func (s *APIKeyStore) ListAPIKeysByOrganization(ctx context.Context, organizationID string) ([]domain.APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, name, token_hash, token_prefix, created_at, last_used_at
		FROM api_keys WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *APIKeyStore) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2 WHERE id = $1
	`, id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}

	return nil
}

func (s *APIKeyStore) DeleteAPIKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}

	return nil
}

func scanAPIKey(row pgx.Row) (domain.APIKey, error) {
	var key domain.APIKey

	err := row.Scan(&key.ID, &key.OrganizationID, &key.Name, &key.TokenHash, &key.TokenPrefix,
		&key.CreatedAt, &key.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIKey{}, domain.ErrAPIKeyNotFound
		}
		return domain.APIKey{}, fmt.Errorf("failed to get api key: %w", err)
	}

	return key, nil
}
