package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/secrets"
)

const providerKeySuffixLength = 4

type providerKeyManager struct {
	keys   domain.ProviderKeyStore
	sealer *secrets.Sealer
	ids    domain.IDGenerator
	audit  domain.AuditRecorder
}

type ProviderKeyManagerDependencies struct {
	ProviderKeyStore domain.ProviderKeyStore
	Sealer           *secrets.Sealer
	IDGenerator      domain.IDGenerator
	AuditRecorder    domain.AuditRecorder
}

func NewProviderKeyManager(deps ProviderKeyManagerDependencies) domain.ProviderKeyManager {
	return &providerKeyManager{
		keys:   deps.ProviderKeyStore,
		sealer: deps.Sealer,
		ids:    deps.IDGenerator,
		audit:  auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *providerKeyManager) CreateProviderKey(ctx context.Context, params domain.CreateProviderKeyParams) (domain.ProviderKey, error) {
	switch params.Provider {
	case domain.ProviderOpenAI, domain.ProviderAnthropic, domain.ProviderGoogle:
	default:
		return domain.ProviderKey{}, domain.ErrUnsupportedProvider
	}

	// The ciphertext is bound to the organization, so a leaked row from
	// another tenant can never decrypt here.
	sealed, err := m.sealer.Seal([]byte(params.APIKey), params.OrganizationID)
	if err != nil {
		return domain.ProviderKey{}, fmt.Errorf("failed to seal provider key: %w", err)
	}

	now := time.Now()

	key := domain.ProviderKey{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		Provider:       params.Provider,
		Label:          params.Label,
		SealedKey:      sealed,
		KeySuffix:      keySuffix(params.APIKey),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.keys.CreateProviderKey(ctx, key); err != nil {
		return domain.ProviderKey{}, fmt.Errorf("failed to create provider key: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "provider_key.created",
		ResourceType:   "provider_key",
		ResourceID:     key.ID,
		Metadata:       map[string]any{"provider": string(params.Provider)},
	})

	return key, nil
}

func (m *providerKeyManager) ListProviderKeys(ctx context.Context, organizationID string) ([]domain.ProviderKey, error) {
	keys, err := m.keys.ListProviderKeysByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider keys: %w", err)
	}

	return keys, nil
}

func (m *providerKeyManager) DeleteProviderKey(ctx context.Context, organizationID, actorID, keyID string) error {
	key, err := m.keys.GetProviderKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, domain.ErrProviderKeyNotFound) {
			return domain.ErrProviderKeyNotFound
		}
		return fmt.Errorf("failed to get provider key: %w", err)
	}
	if key.OrganizationID != organizationID {
		return domain.ErrProviderKeyNotFound
	}

	if err := m.keys.DeleteProviderKey(ctx, key.ID); err != nil {
		return fmt.Errorf("failed to delete provider key: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "provider_key.deleted",
		ResourceType:   "provider_key",
		ResourceID:     key.ID,
	})

	return nil
}

func keySuffix(apiKey string) string {
	if len(apiKey) <= providerKeySuffixLength {
		return apiKey
	}
	return apiKey[len(apiKey)-providerKeySuffixLength:]
}
