package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/domain"
)

type OrganizationMiddlewareDependencies struct {
	OrganizationManager domain.OrganizationManager
}

// OrganizationMiddleware resolves the caller's membership in the
// organization named by the route and stores it on the request.
// Non-members get a 403 without learning whether the organization
// exists.
func OrganizationMiddleware(deps OrganizationMiddlewareDependencies) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := auth.UserFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		organizationID := c.Params("organizationID")
		if organizationID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Organization ID required",
			})
		}

		membership, err := deps.OrganizationManager.RequireMembership(c.RequestCtx(), organizationID, user.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotMember) || errors.Is(err, domain.ErrOrganizationNotFound) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "Not a member of this organization",
				})
			}

			log.Error().
				Err(err).
				Str("organization_id", organizationID).
				Str("user_id", user.ID).
				Msg("Failed to resolve organization membership")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		auth.SetMembership(c, membership)

		return c.Next()
	}
}
