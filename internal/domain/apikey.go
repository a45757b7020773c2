package domain

import (
	"context"
	"errors"
	"time"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKey grants access to an organization's public pipeline endpoints.
// Only the SHA-256 hash of the token is stored; the raw token is shown
// once at creation.
type APIKey struct {
	ID             string
	OrganizationID string
	Name           string
	TokenHash      string
	TokenPrefix    string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key APIKey) error
	GetAPIKeyByHash(ctx context.Context, tokenHash string) (APIKey, error)
	ListAPIKeysByOrganization(ctx context.Context, organizationID string) ([]APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
	DeleteAPIKey(ctx context.Context, id string) error
}

type CreateAPIKeyParams struct {
	OrganizationID string
	ActorID        string
	Name           string
}

// CreatedAPIKey carries the raw token alongside the stored record. The
// token exists only in this value.
type CreatedAPIKey struct {
	APIKey
	Token string
}

type APIKeyManager interface {
	CreateAPIKey(ctx context.Context, params CreateAPIKeyParams) (CreatedAPIKey, error)
	ListAPIKeys(ctx context.Context, organizationID string) ([]APIKey, error)
	DeleteAPIKey(ctx context.Context, organizationID, actorID, keyID string) error

	// ResolveToken maps a raw token to its key record and stamps last
	// use. Unknown tokens fail with ErrAPIKeyNotFound.
	ResolveToken(ctx context.Context, token string) (APIKey, error)
}
