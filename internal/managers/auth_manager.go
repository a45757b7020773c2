package managers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const defaultTokenTTL = 24 * time.Hour

type authManager struct {
	users    domain.UserStore
	ids      domain.IDGenerator
	secret   []byte
	tokenTTL time.Duration
}

type AuthManagerDependencies struct {
	UserStore   domain.UserStore
	IDGenerator domain.IDGenerator
	TokenSecret string
	TokenTTL    time.Duration
}

func NewAuthManager(deps AuthManagerDependencies) domain.AuthManager {
	tokenTTL := deps.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}

	return &authManager{
		users:    deps.UserStore,
		ids:      deps.IDGenerator,
		secret:   []byte(deps.TokenSecret),
		tokenTTL: tokenTTL,
	}
}

func (m *authManager) Register(ctx context.Context, params domain.RegisterParams) (domain.AuthSession, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()

	user := domain.User{
		ID:           m.ids.NewID(),
		Email:        normalizeEmail(params.Email),
		Name:         params.Name,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.AuthSession{}, domain.ErrEmailTaken
		}
		return domain.AuthSession{}, fmt.Errorf("failed to create user: %w", err)
	}

	return m.issueSession(user)
}

func (m *authManager) Login(ctx context.Context, params domain.LoginParams) (domain.AuthSession, error) {
	user, err := m.users.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AuthSession{}, domain.ErrInvalidCredentials
		}
		return domain.AuthSession{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return domain.AuthSession{}, domain.ErrInvalidCredentials
	}

	return m.issueSession(user)
}

func (m *authManager) VerifyToken(ctx context.Context, token string) (domain.User, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.User{}, domain.ErrInvalidToken
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return domain.User{}, domain.ErrInvalidToken
	}

	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, domain.ErrInvalidToken
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (m *authManager) issueSession(user domain.User) (domain.AuthSession, error) {
	now := time.Now()
	expiresAt := now.Add(m.tokenTTL)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return domain.AuthSession{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
