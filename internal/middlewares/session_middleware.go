// Package middlewares holds the fiber middlewares that resolve request
// identity before controllers run: JWT sessions, organization
// membership and API keys for the public pipeline surface.
package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/domain"
)

type SessionMiddlewareDependencies struct {
	AuthManager domain.AuthManager
}

// SessionMiddleware verifies the bearer token and stores the
// authenticated user on the request.
func SessionMiddleware(deps SessionMiddlewareDependencies) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := auth.BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		user, err := deps.AuthManager.VerifyToken(c.RequestCtx(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidToken) {
				log.Error().Err(err).Str("path", c.Path()).Msg("Failed to verify session token")
			}

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		auth.SetUser(c, user)

		return c.Next()
	}
}
