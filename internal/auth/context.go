// Package auth carries the request identity resolved by the session and
// membership middlewares through fiber's request locals, so controllers
// never re-verify tokens themselves.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type localsKey string

const (
	userLocalsKey       localsKey = "promptdeck.user"
	membershipLocalsKey localsKey = "promptdeck.membership"
	apiKeyLocalsKey     localsKey = "promptdeck.api_key"
)

// SetUser stores the authenticated user on the request.
func SetUser(c fiber.Ctx, user domain.User) {
	c.Locals(userLocalsKey, user)
}

// UserFromContext returns the user stored by the session middleware.
func UserFromContext(c fiber.Ctx) (domain.User, bool) {
	user, ok := c.Locals(userLocalsKey).(domain.User)
	return user, ok
}

// SetMembership stores the caller's verified organization membership.
func SetMembership(c fiber.Ctx, membership domain.Membership) {
	c.Locals(membershipLocalsKey, membership)
}

// MembershipFromContext returns the membership stored by the
// organization middleware.
func MembershipFromContext(c fiber.Ctx) (domain.Membership, bool) {
	membership, ok := c.Locals(membershipLocalsKey).(domain.Membership)
	return membership, ok
}

// SetAPIKey stores the resolved API key for key-guarded routes.
func SetAPIKey(c fiber.Ctx, key domain.APIKey) {
	c.Locals(apiKeyLocalsKey, key)
}

// APIKeyFromContext returns the API key stored by the API key middleware.
func APIKeyFromContext(c fiber.Ctx) (domain.APIKey, bool) {
	key, ok := c.Locals(apiKeyLocalsKey).(domain.APIKey)
	return key, ok
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

// RequestAPIKey extracts the API key for public endpoints. The X-API-Key
// header wins; a bearer token is accepted as a fallback.
func RequestAPIKey(c fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}

	token, _ := BearerToken(c)

	return token
}
