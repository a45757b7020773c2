package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/secrets"
)

type fakeProviderKeyStore struct {
	getByProvider func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error)
}

func (s *fakeProviderKeyStore) CreateProviderKey(ctx context.Context, key domain.ProviderKey) error {
	return errors.New("unexpected call")
}

func (s *fakeProviderKeyStore) GetProviderKey(ctx context.Context, id string) (domain.ProviderKey, error) {
	return domain.ProviderKey{}, errors.New("unexpected call")
}

func (s *fakeProviderKeyStore) GetProviderKeyByProvider(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
	if s.getByProvider == nil {
		return domain.ProviderKey{}, domain.ErrProviderKeyNotFound
	}

	return s.getByProvider(ctx, organizationID, provider)
}

func (s *fakeProviderKeyStore) ListProviderKeysByOrganization(ctx context.Context, organizationID string) ([]domain.ProviderKey, error) {
	return nil, errors.New("unexpected call")
}

func (s *fakeProviderKeyStore) DeleteProviderKey(ctx context.Context, id string) error {
	return errors.New("unexpected call")
}

func newTestSealer(t *testing.T) *secrets.Sealer {
	t.Helper()

	sealer, err := secrets.NewSealer("test-master-secret")
	require.NoError(t, err)

	return sealer
}

func TestProviderTypeForModel(t *testing.T) {
	tests := []struct {
		model    string
		expected domain.ModelProviderType
		known    bool
	}{
		{model: "gpt-4o", expected: domain.ProviderOpenAI, known: true},
		{model: "GPT-4o-mini", expected: domain.ProviderOpenAI, known: true},
		{model: "o1-preview", expected: domain.ProviderOpenAI, known: true},
		{model: "o3-mini", expected: domain.ProviderOpenAI, known: true},
		{model: "chatgpt-4o-latest", expected: domain.ProviderOpenAI, known: true},
		{model: "claude-sonnet-4-5", expected: domain.ProviderAnthropic, known: true},
		{model: "gemini-2.0-flash", expected: domain.ProviderGoogle, known: true},
		{model: " gemini-1.5-pro ", expected: domain.ProviderGoogle, known: true},
		{model: "llama-3-70b", known: false},
		{model: "", known: false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			providerType, known := ProviderTypeForModel(tt.model)
			assert.Equal(t, tt.known, known)
			if tt.known {
				assert.Equal(t, tt.expected, providerType)
			}
		})
	}
}

func TestRegistry_UnknownModelUsesFallback(t *testing.T) {
	fallback := NewSimulatedProvider()

	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{
			getByProvider: func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
				t.Fatal("store must not be queried for unknown models")
				return domain.ProviderKey{}, nil
			},
		},
		Sealer:   newTestSealer(t),
		Fallback: fallback,
	})

	provider, err := registry.ProviderForModel(context.Background(), "org_1", "llama-3-70b")
	require.NoError(t, err)
	assert.Same(t, fallback, provider)
}

func TestRegistry_MissingKeyFallsBack(t *testing.T) {
	fallback := NewSimulatedProvider()

	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{},
		Sealer:           newTestSealer(t),
		Fallback:         fallback,
	})

	provider, err := registry.ProviderForModel(context.Background(), "org_1", "gpt-4o")
	require.NoError(t, err)
	assert.Same(t, fallback, provider)
}

func TestRegistry_UsesStoredKey(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal([]byte("sk-live-abc123"), "org_1")
	require.NoError(t, err)

	var queriedProvider domain.ModelProviderType

	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{
			getByProvider: func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
				assert.Equal(t, "org_1", organizationID)
				queriedProvider = provider

				return domain.ProviderKey{
					OrganizationID: organizationID,
					Provider:       provider,
					SealedKey:      sealed,
				}, nil
			},
		},
		Sealer: sealer,
	})

	provider, err := registry.ProviderForModel(context.Background(), "org_1", "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderOpenAI, queriedProvider)
	assert.IsType(t, &OpenAIProvider{}, provider)
}

func TestRegistry_AnthropicKeySelectsAnthropic(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal([]byte("sk-ant-abc123"), "org_1")
	require.NoError(t, err)

	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{
			getByProvider: func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
				return domain.ProviderKey{
					OrganizationID: organizationID,
					Provider:       provider,
					SealedKey:      sealed,
				}, nil
			},
		},
		Sealer: sealer,
	})

	provider, err := registry.ProviderForModel(context.Background(), "org_1", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicProvider{}, provider)
}

func TestRegistry_CorruptedKeyFails(t *testing.T) {
	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{
			getByProvider: func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
				return domain.ProviderKey{
					OrganizationID: organizationID,
					Provider:       provider,
					SealedKey:      []byte("not a sealed key"),
				}, nil
			},
		},
		Sealer: newTestSealer(t),
	})

	_, err := registry.ProviderForModel(context.Background(), "org_1", "gpt-4o")
	assert.ErrorIs(t, err, domain.ErrProviderKeyCorrupted)
}

func TestRegistry_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")

	registry := NewRegistry(RegistryDependencies{
		ProviderKeyStore: &fakeProviderKeyStore{
			getByProvider: func(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
				return domain.ProviderKey{}, storeErr
			},
		},
		Sealer: newTestSealer(t),
	})

	_, err := registry.ProviderForModel(context.Background(), "org_1", "gpt-4o")
	assert.ErrorIs(t, err, storeErr)
}
