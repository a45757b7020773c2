package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ProviderKeyController struct {
	providerKeyService domain.ProviderKeyManager
}

type ProviderKeyControllerDependencies struct {
	ProviderKeyManager domain.ProviderKeyManager
}

func NewProviderKeyController(deps ProviderKeyControllerDependencies) *ProviderKeyController {
	return &ProviderKeyController{
		providerKeyService: deps.ProviderKeyManager,
	}
}

type createProviderKeyRequest struct {
	Provider string `json:"provider"`
	Label    string `json:"label"`
	APIKey   string `json:"api_key"`
}

// providerKeyResponse exposes only the label and the trailing
// characters; the key itself never leaves the sealed store.
type providerKeyResponse struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	KeySuffix string    `json:"key_suffix"`
	CreatedAt time.Time `json:"created_at"`
}

func toProviderKeyResponse(key domain.ProviderKey) providerKeyResponse {
	return providerKeyResponse{
		ID:        key.ID,
		Provider:  string(key.Provider),
		Label:     key.Label,
		KeySuffix: key.KeySuffix,
		CreatedAt: key.CreatedAt,
	}
}

func (c *ProviderKeyController) CreateProviderKey(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createProviderKeyRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Provider == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Provider is required")
	}

	if strings.TrimSpace(req.APIKey) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "API key is required")
	}

	key, err := c.providerKeyService.CreateProviderKey(ctx.RequestCtx(), domain.CreateProviderKeyParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Provider:       domain.ModelProviderType(req.Provider),
		Label:          req.Label,
		APIKey:         req.APIKey,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toProviderKeyResponse(key))
}

func (c *ProviderKeyController) ListProviderKeys(ctx fiber.Ctx) error {
	keys, err := c.providerKeyService.ListProviderKeys(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]providerKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, toProviderKeyResponse(key))
	}

	return ctx.JSON(fiber.Map{"provider_keys": responses})
}

func (c *ProviderKeyController) DeleteProviderKey(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.providerKeyService.DeleteProviderKey(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("keyID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}
