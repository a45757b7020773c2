package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/secrets"
)

type RegistryDependencies struct {
	ProviderKeyStore domain.ProviderKeyStore
	Sealer           *secrets.Sealer

	// Fallback answers when no provider key matches the model. Defaults to
	// the simulated provider.
	Fallback domain.ModelProvider
}

type registry struct {
	providerKeyStore domain.ProviderKeyStore
	sealer           *secrets.Sealer
	fallback         domain.ModelProvider
}

// NewRegistry builds the model router. A model maps to a provider by name
// prefix; the organization's stored key for that provider selects the real
// backend and everything else falls through to the simulated one.
func NewRegistry(deps RegistryDependencies) domain.ModelProviderRegistry {
	fallback := deps.Fallback
	if fallback == nil {
		fallback = NewSimulatedProvider()
	}

	return &registry{
		providerKeyStore: deps.ProviderKeyStore,
		sealer:           deps.Sealer,
		fallback:         fallback,
	}
}

func (r *registry) ProviderForModel(ctx context.Context, organizationID, model string) (domain.ModelProvider, error) {
	providerType, ok := ProviderTypeForModel(model)
	if !ok {
		return r.fallback, nil
	}

	key, err := r.providerKeyStore.GetProviderKeyByProvider(ctx, organizationID, providerType)
	if err != nil {
		if errors.Is(err, domain.ErrProviderKeyNotFound) {
			log.Debug().
				Str("organization_id", organizationID).
				Str("model", model).
				Msg("No provider key configured, using simulated provider")

			return r.fallback, nil
		}

		return nil, fmt.Errorf("failed to get provider key: %w", err)
	}

	apiKey, err := r.sealer.Open(key.SealedKey, key.OrganizationID)
	if err != nil {
		return nil, domain.ErrProviderKeyCorrupted
	}

	switch providerType {
	case domain.ProviderOpenAI:
		return NewOpenAIProvider(string(apiKey)), nil
	case domain.ProviderAnthropic:
		return NewAnthropicProvider(string(apiKey)), nil
	case domain.ProviderGoogle:
		return NewGeminiProvider(ctx, string(apiKey))
	default:
		return r.fallback, nil
	}
}

// ProviderTypeForModel maps a model name to its provider by prefix.
func ProviderTypeForModel(model string) (domain.ModelProviderType, bool) {
	name := strings.ToLower(strings.TrimSpace(model))

	switch {
	case strings.HasPrefix(name, "gpt-"),
		strings.HasPrefix(name, "o1"),
		strings.HasPrefix(name, "o3"),
		strings.HasPrefix(name, "chatgpt"):
		return domain.ProviderOpenAI, true
	case strings.HasPrefix(name, "claude"):
		return domain.ProviderAnthropic, true
	case strings.HasPrefix(name, "gemini"):
		return domain.ProviderGoogle, true
	default:
		return "", false
	}
}
