package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ProviderKeyStore struct {
	pool *pgxpool.Pool
}

func NewProviderKeyStore(pool *pgxpool.Pool) *ProviderKeyStore {
	return &ProviderKeyStore{pool: pool}
}

func (s *ProviderKeyStore) CreateProviderKey(ctx context.Context, key domain.ProviderKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_keys (id, organization_id, provider, label, sealed_key, key_suffix, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, key.ID, key.OrganizationID, string(key.Provider), key.Label, key.SealedKey,
		key.KeySuffix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider key: %w", err)
	}

	return nil
}

func (s *ProviderKeyStore) GetProviderKey(ctx context.Context, id string) (domain.ProviderKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, provider, label, sealed_key, key_suffix, created_at, updated_at
		FROM provider_keys WHERE id = $1
	`, id)

	return scanProviderKey(row)
}

func (s *ProviderKeyStore) GetProviderKeyByProvider(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, provider, label, sealed_key, key_suffix, created_at, updated_at
		FROM provider_keys WHERE organization_id = $1 AND provider = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, organizationID, string(provider))

	return scanProviderKey(row)
}

func (s *ProviderKeyStore) ListProviderKeysByOrganization(ctx context.Context, organizationID string) ([]domain.ProviderKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, provider, label, sealed_key, key_suffix, created_at, updated_at
		FROM provider_keys WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.ProviderKey
	for rows.Next() {
		key, err := scanProviderKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *ProviderKeyStore) DeleteProviderKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM provider_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProviderKeyNotFound
	}

	return nil
}

func scanProviderKey(row pgx.Row) (domain.ProviderKey, error) {
	var key domain.ProviderKey
	var provider string

	err := row.Scan(&key.ID, &key.OrganizationID, &provider, &key.Label, &key.SealedKey,
		&key.KeySuffix, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProviderKey{}, domain.ErrProviderKeyNotFound
		}
		return domain.ProviderKey{}, fmt.Errorf("failed to get provider key: %w", err)
	}
	key.Provider = domain.ModelProviderType(provider)

	return key, nil
}
