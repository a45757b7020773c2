package managers

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestAuthManager(f *fixture, ttl time.Duration) domain.AuthManager {
	return NewAuthManager(AuthManagerDependencies{
		UserStore:   f.store,
		IDGenerator: f.ids,
		TokenSecret: "test-secret",
		TokenTTL:    ttl,
	})
}

func TestAuthManager_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	manager := newTestAuthManager(f, time.Hour)
	ctx := context.Background()

	session, err := manager.Register(ctx, domain.RegisterParams{
		Email:    "Ada@Example.com",
		Name:     "Ada",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.NotEqual(t, "hunter22", session.User.PasswordHash)

	login, err := manager.Login(ctx, domain.LoginParams{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)
}

func TestAuthManager_RegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	manager := newTestAuthManager(f, time.Hour)
	ctx := context.Background()

	_, err := manager.Register(ctx, domain.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "hunter22"})
	require.NoError(t, err)

	_, err = manager.Register(ctx, domain.RegisterParams{Email: "ADA@example.com", Name: "Other", Password: "different"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAuthManager_LoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	manager := newTestAuthManager(f, time.Hour)
	ctx := context.Background()

	_, err := manager.Register(ctx, domain.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "hunter22"})
	require.NoError(t, err)

	_, err = manager.Login(ctx, domain.LoginParams{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = manager.Login(ctx, domain.LoginParams{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthManager_VerifyToken(t *testing.T) {
	f := newFixture(t)
	manager := newTestAuthManager(f, time.Hour)
	ctx := context.Background()

	session, err := manager.Register(ctx, domain.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "hunter22"})
	require.NoError(t, err)

	user, err := manager.VerifyToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	_, err = manager.VerifyToken(ctx, session.Token+"tampered")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = manager.VerifyToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthManager_VerifyTokenRejectsForeignSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issuer := NewAuthManager(AuthManagerDependencies{
		UserStore:   f.store,
		IDGenerator: f.ids,
		TokenSecret: "other-secret",
	})
	session, err := issuer.Register(ctx, domain.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "hunter22"})
	require.NoError(t, err)

	verifier := newTestAuthManager(f, time.Hour)
	_, err = verifier.VerifyToken(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthManager_VerifyTokenRejectsExpired(t *testing.T) {
	f := newFixture(t)
	manager := newTestAuthManager(f, time.Hour)
	ctx := context.Background()

	session, err := manager.Register(ctx, domain.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "hunter22"})
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": session.User.ID,
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = manager.VerifyToken(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
