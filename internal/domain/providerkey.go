package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProviderKeyNotFound  = errors.New("provider key not found")
	ErrUnsupportedProvider  = errors.New("unsupported model provider")
	ErrProviderKeyCorrupted = errors.New("provider key cannot be decrypted")
)

type ModelProviderType string

const (
	ProviderOpenAI    ModelProviderType = "openai"
	ProviderAnthropic ModelProviderType = "anthropic"
	ProviderGoogle    ModelProviderType = "google"
)

// ProviderKey stores a model provider API key sealed at rest. Listings
// expose only the label and the trailing characters.
type ProviderKey struct {
	ID             string
	OrganizationID string
	Provider       ModelProviderType
	Label          string
	SealedKey      []byte
	KeySuffix      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProviderKeyStore interface {
	CreateProviderKey(ctx context.Context, key ProviderKey) error
	GetProviderKey(ctx context.Context, id string) (ProviderKey, error)
	GetProviderKeyByProvider(ctx context.Context, organizationID string, provider ModelProviderType) (ProviderKey, error)
	ListProviderKeysByOrganization(ctx context.Context, organizationID string) ([]ProviderKey, error)
	DeleteProviderKey(ctx context.Context, id string) error
}

type CreateProviderKeyParams struct {
	OrganizationID string
	ActorID        string
	Provider       ModelProviderType
	Label          string
	APIKey         string
}

type ProviderKeyManager interface {
	// CreateProviderKey seals the raw key before it is stored. The raw
	// key is never returned again.
	CreateProviderKey(ctx context.Context, params CreateProviderKeyParams) (ProviderKey, error)
	ListProviderKeys(ctx context.Context, organizationID string) ([]ProviderKey, error)
	DeleteProviderKey(ctx context.Context, organizationID, actorID, keyID string) error
}
