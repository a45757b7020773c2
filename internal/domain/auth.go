package domain

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

type AuthManager interface {
	Register(ctx context.Context, params RegisterParams) (AuthSession, error)
	Login(ctx context.Context, params LoginParams) (AuthSession, error)
	VerifyToken(ctx context.Context, token string) (User, error)
}
