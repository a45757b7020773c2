package managers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestAPIKeyManager(f *fixture, audit domain.AuditRecorder) domain.APIKeyManager {
	return NewAPIKeyManager(APIKeyManagerDependencies{
		APIKeyStore:   f.store,
		IDGenerator:   f.ids,
		AuditRecorder: audit,
	})
}

func TestAPIKeyManager_CreateAPIKey(t *testing.T) {
	f := newFixture(t)
	audit := &auditSink{}
	manager := newTestAPIKeyManager(f, audit)
	ctx := context.Background()

	created, err := manager.CreateAPIKey(ctx, domain.CreateAPIKeyParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "prod",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.Token, "pd_"))
	assert.Len(t, created.Token, len("pd_")+64)
	assert.Equal(t, created.Token[:12], created.TokenPrefix)
	assert.NotEmpty(t, created.TokenHash)
	assert.NotContains(t, created.TokenHash, created.Token)

	// The stored record never carries the raw token.
	keys, err := manager.ListAPIKeys(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, created.TokenHash, keys[0].TokenHash)
	assert.Nil(t, keys[0].LastUsedAt)

	assert.Contains(t, audit.Actions(), "api_key.created")
}

func TestAPIKeyManager_TokensAreUnique(t *testing.T) {
	f := newFixture(t)
	manager := newTestAPIKeyManager(f, nil)
	ctx := context.Background()

	first, err := manager.CreateAPIKey(ctx, domain.CreateAPIKeyParams{OrganizationID: f.org.ID, ActorID: f.user.ID, Name: "a"})
	require.NoError(t, err)
	second, err := manager.CreateAPIKey(ctx, domain.CreateAPIKeyParams{OrganizationID: f.org.ID, ActorID: f.user.ID, Name: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.NotEqual(t, first.TokenHash, second.TokenHash)
}

func TestAPIKeyManager_ResolveTokenStampsUse(t *testing.T) {
	f := newFixture(t)
	manager := newTestAPIKeyManager(f, nil)
	ctx := context.Background()

	created, err := manager.CreateAPIKey(ctx, domain.CreateAPIKeyParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "prod",
	})
	require.NoError(t, err)

	resolved, err := manager.ResolveToken(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, f.org.ID, resolved.OrganizationID)

	keys, err := manager.ListAPIKeys(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKeyManager_ResolveTokenRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	manager := newTestAPIKeyManager(f, nil)
	ctx := context.Background()

	_, err := manager.ResolveToken(ctx, "pd_0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)

	_, err = manager.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyManager_DeleteScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	manager := newTestAPIKeyManager(f, nil)
	ctx := context.Background()

	created, err := manager.CreateAPIKey(ctx, domain.CreateAPIKeyParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "prod",
	})
	require.NoError(t, err)

	other := f.addOrganization(t, "Other", f.user.ID)

	err = manager.DeleteAPIKey(ctx, other.ID, f.user.ID, created.ID)
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)

	require.NoError(t, manager.DeleteAPIKey(ctx, f.org.ID, f.user.ID, created.ID))

	_, err = manager.ResolveToken(ctx, created.Token)
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}
