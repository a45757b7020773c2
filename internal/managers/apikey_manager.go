package managers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	apiKeyTokenPrefix  = "pd_"
	apiKeyRandomBytes  = 32
	apiKeyPrefixLength = 12
)

type apiKeyManager struct {
	keys  domain.APIKeyStore
	ids   domain.IDGenerator
	audit domain.AuditRecorder
}

type APIKeyManagerDependencies struct {
	APIKeyStore   domain.APIKeyStore
	IDGenerator   domain.IDGenerator
	AuditRecorder domain.AuditRecorder
}

func NewAPIKeyManager(deps APIKeyManagerDependencies) domain.APIKeyManager {
	return &apiKeyManager{
		keys:  deps.APIKeyStore,
		ids:   deps.IDGenerator,
		audit: auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *apiKeyManager) CreateAPIKey(ctx context.Context, params domain.CreateAPIKeyParams) (domain.CreatedAPIKey, error) {
	token, err := generateAPIKeyToken()
	if err != nil {
		return domain.CreatedAPIKey{}, fmt.Errorf("failed to generate token: %w", err)
	}

	key := domain.APIKey{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		TokenHash:      hashAPIKeyToken(token),
		TokenPrefix:    token[:apiKeyPrefixLength],
		CreatedAt:      time.Now(),
	}

	if err := m.keys.CreateAPIKey(ctx, key); err != nil {
		return domain.CreatedAPIKey{}, fmt.Errorf("failed to create api key: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "api_key.created",
		ResourceType:   "api_key",
		ResourceID:     key.ID,
	})

	return domain.CreatedAPIKey{APIKey: key, Token: token}, nil
}

func (m *apiKeyManager) ListAPIKeys(ctx context.Context, organizationID string) ([]domain.APIKey, error) {
	keys, err := m.keys.ListAPIKeysByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	return keys, nil
}

func (m *apiKeyManager) DeleteAPIKey(ctx context.Context, organizationID, actorID, keyID string) error {
	keys, err := m.keys.ListAPIKeysByOrganization(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}

	for _, key := range keys {
		if key.ID != keyID {
			continue
		}

		if err := m.keys.DeleteAPIKey(ctx, key.ID); err != nil {
			return fmt.Errorf("failed to delete api key: %w", err)
		}

		m.audit.Record(domain.AuditEntry{
			ID:             m.ids.NewID(),
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "api_key.deleted",
			ResourceType:   "api_key",
			ResourceID:     key.ID,
		})

		return nil
	}

	return domain.ErrAPIKeyNotFound
}

func (m *apiKeyManager) ResolveToken(ctx context.Context, token string) (domain.APIKey, error) {
	if token == "" {
		return domain.APIKey{}, domain.ErrAPIKeyNotFound
	}

	key, err := m.keys.GetAPIKeyByHash(ctx, hashAPIKeyToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return domain.APIKey{}, domain.ErrAPIKeyNotFound
		}
		return domain.APIKey{}, fmt.Errorf("failed to get api key: %w", err)
	}

	if err := m.keys.TouchAPIKey(ctx, key.ID, time.Now()); err != nil {
		log.Warn().Err(err).Str("api_key_id", key.ID).Msg("failed to stamp api key use")
	}

	return key, nil
}

func generateAPIKeyToken() (string, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return apiKeyTokenPrefix + hex.EncodeToString(buf), nil
}

func hashAPIKeyToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
