package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/domain"
)

type APIKeyMiddlewareDependencies struct {
	APIKeyManager domain.APIKeyManager
}

// APIKeyMiddleware authenticates public routes with an organization API
// key from the X-API-Key header and stores the resolved key on the
// request. Public pipeline execution does not use this middleware; its
// key check is part of the execution contract and reports failures in
// the response body instead.
func APIKeyMiddleware(deps APIKeyMiddlewareDependencies) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := auth.RequestAPIKey(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key required",
			})
		}

		key, err := deps.APIKeyManager.ResolveToken(c.RequestCtx(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrAPIKeyNotFound) {
				log.Error().Err(err).Str("path", c.Path()).Msg("Failed to resolve API key")

				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				})
			}

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		auth.SetAPIKey(c, key)

		return c.Next()
	}
}
