// Package controllers binds and validates request DTOs, delegates to
// the managers and maps their results onto response DTOs. Domain
// sentinel errors pick the HTTP status here; raw store or wrap text
// never reaches a client.
package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/domain"
)

var errorStatuses = []struct {
	target error
	status int
}{
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{domain.ErrInvalidToken, fiber.StatusUnauthorized},
	{domain.ErrNotMember, fiber.StatusForbidden},
	{domain.ErrPermissionDenied, fiber.StatusForbidden},
	{domain.ErrEmailTaken, fiber.StatusConflict},
	{domain.ErrSlugTaken, fiber.StatusConflict},

	{domain.ErrUserNotFound, fiber.StatusNotFound},
	{domain.ErrOrganizationNotFound, fiber.StatusNotFound},
	{domain.ErrMembershipNotFound, fiber.StatusNotFound},
	{domain.ErrProjectNotFound, fiber.StatusNotFound},
	{domain.ErrPromptNotFound, fiber.StatusNotFound},
	{domain.ErrPromptVersionNotFound, fiber.StatusNotFound},
	{domain.ErrExperimentNotFound, fiber.StatusNotFound},
	{domain.ErrRunNotFound, fiber.StatusNotFound},
	{domain.ErrPipelineNotFound, fiber.StatusNotFound},
	{domain.ErrChatSessionNotFound, fiber.StatusNotFound},
	{domain.ErrTemplateNotFound, fiber.StatusNotFound},
	{domain.ErrAPIKeyNotFound, fiber.StatusNotFound},
	{domain.ErrWebhookNotFound, fiber.StatusNotFound},
	{domain.ErrProviderKeyNotFound, fiber.StatusNotFound},
	{domain.ErrBillingNotFound, fiber.StatusNotFound},
	{domain.ErrPaymentSessionNotFound, fiber.StatusNotFound},

	{domain.ErrInsufficientVariants, fiber.StatusUnprocessableEntity},
	{domain.ErrExperimentNotRunning, fiber.StatusUnprocessableEntity},
	{domain.ErrExperimentCompleted, fiber.StatusUnprocessableEntity},
	{domain.ErrExperimentLocked, fiber.StatusUnprocessableEntity},
	{domain.ErrPipelineInvalid, fiber.StatusUnprocessableEntity},
	{domain.ErrNoBillingCustomer, fiber.StatusUnprocessableEntity},

	{domain.ErrInvalidPlan, fiber.StatusBadRequest},
	{domain.ErrInvalidCronExpression, fiber.StatusBadRequest},
	{domain.ErrUnsupportedProvider, fiber.StatusBadRequest},
	{domain.ErrInvalidWebhookPayload, fiber.StatusBadRequest},
}

// serviceError translates a manager failure into the HTTP error the
// client sees. Recognized sentinels surface with their own message;
// everything else logs and becomes a plain 500.
func serviceError(err error) error {
	for _, mapping := range errorStatuses {
		if errors.Is(err, mapping.target) {
			return fiber.NewError(mapping.status, mapping.target.Error())
		}
	}

	log.Error().Err(err).Msg("Unexpected service error")

	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}

// currentUser returns the user the session middleware stored, or a 401
// when the route was wired without it.
func currentUser(ctx fiber.Ctx) (domain.User, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return domain.User{}, fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}

	return user, nil
}

// queryInt parses an optional integer query parameter, falling back on
// empty or malformed values.
func queryInt(ctx fiber.Ctx, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}
