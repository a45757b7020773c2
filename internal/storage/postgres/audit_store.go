package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const defaultAuditListLimit = 50

type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// CreateAuditEntries batches entries into one round trip so the async
// recorder can flush cheaply.
func (s *AuditStore) CreateAuditEntries(ctx context.Context, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		batch.Queue(`
			INSERT INTO audit_logs (id, organization_id, actor_id, action, resource_type, resource_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, entry.OrganizationID, nullableString(entry.ActorID), entry.Action,
			entry.ResourceType, nullableString(entry.ResourceID), metadataJSON, entry.CreatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write audit entries: %w", err)
		}
	}

	return nil
}

func (s *AuditStore) ListAuditEntries(ctx context.Context, organizationID string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, actor_id, action, resource_type, resource_id, metadata, created_at
		FROM audit_logs WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var actorID, resourceID *string
		var metadataJSON []byte

		if err := rows.Scan(&entry.ID, &entry.OrganizationID, &actorID, &entry.Action,
			&entry.ResourceType, &resourceID, &metadataJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if actorID != nil {
			entry.ActorID = *actorID
		}
		if resourceID != nil {
			entry.ResourceID = *resourceID
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
