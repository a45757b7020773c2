package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type APIKeyController struct {
	apiKeyService domain.APIKeyManager
}

type APIKeyControllerDependencies struct {
	APIKeyManager domain.APIKeyManager
}

func NewAPIKeyController(deps APIKeyControllerDependencies) *APIKeyController {
	return &APIKeyController{
		apiKeyService: deps.APIKeyManager,
	}
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

type apiKeyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TokenPrefix string     `json:"token_prefix"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// createdAPIKeyResponse carries the raw token. It is returned exactly
// once, at creation.
type createdAPIKeyResponse struct {
	apiKeyResponse
	Token string `json:"token"`
}

func toAPIKeyResponse(key domain.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:          key.ID,
		Name:        key.Name,
		TokenPrefix: key.TokenPrefix,
		CreatedAt:   key.CreatedAt,
		LastUsedAt:  key.LastUsedAt,
	}
}

func (c *APIKeyController) CreateAPIKey(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createAPIKeyRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Key name is required")
	}

	created, err := c.apiKeyService.CreateAPIKey(ctx.RequestCtx(), domain.CreateAPIKeyParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(createdAPIKeyResponse{
		apiKeyResponse: toAPIKeyResponse(created.APIKey),
		Token:          created.Token,
	})
}

func (c *APIKeyController) ListAPIKeys(ctx fiber.Ctx) error {
	keys, err := c.apiKeyService.ListAPIKeys(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, toAPIKeyResponse(key))
	}

	return ctx.JSON(fiber.Map{"api_keys": responses})
}

func (c *APIKeyController) DeleteAPIKey(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.apiKeyService.DeleteAPIKey(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("keyID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}
