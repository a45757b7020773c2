package controllers

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type WebhookController struct {
	webhookService domain.WebhookManager
}

type WebhookControllerDependencies struct {
	WebhookManager domain.WebhookManager
}

func NewWebhookController(deps WebhookControllerDependencies) *WebhookController {
	return &WebhookController{
		webhookService: deps.WebhookManager,
	}
}

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

type updateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}

type webhookResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// createdWebhookResponse includes the signing secret. Later reads
// return only the metadata.
type createdWebhookResponse struct {
	webhookResponse
	Secret string `json:"secret"`
}

func toWebhookResponse(webhook domain.Webhook) webhookResponse {
	return webhookResponse{
		ID:        webhook.ID,
		URL:       webhook.URL,
		Events:    webhook.Events,
		Active:    webhook.Active,
		CreatedAt: webhook.CreatedAt,
		UpdatedAt: webhook.UpdatedAt,
	}
}

func validWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func (c *WebhookController) CreateWebhook(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createWebhookRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if !validWebhookURL(req.URL) {
		return fiber.NewError(fiber.StatusBadRequest, "A valid http(s) URL is required")
	}

	if len(req.Events) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one event is required")
	}

	webhook, err := c.webhookService.CreateWebhook(ctx.RequestCtx(), domain.CreateWebhookParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		URL:            req.URL,
		Secret:         req.Secret,
		Events:         req.Events,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(createdWebhookResponse{
		webhookResponse: toWebhookResponse(webhook),
		Secret:          webhook.Secret,
	})
}

func (c *WebhookController) GetWebhook(ctx fiber.Ctx) error {
	webhook, err := c.webhookService.GetWebhook(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("webhookID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toWebhookResponse(webhook))
}

func (c *WebhookController) ListWebhooks(ctx fiber.Ctx) error {
	webhooks, err := c.webhookService.ListWebhooks(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]webhookResponse, 0, len(webhooks))
	for _, webhook := range webhooks {
		responses = append(responses, toWebhookResponse(webhook))
	}

	return ctx.JSON(fiber.Map{"webhooks": responses})
}

func (c *WebhookController) UpdateWebhook(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updateWebhookRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL != "" && !validWebhookURL(req.URL) {
		return fiber.NewError(fiber.StatusBadRequest, "A valid http(s) URL is required")
	}

	webhook, err := c.webhookService.UpdateWebhook(ctx.RequestCtx(), domain.UpdateWebhookParams{
		WebhookID:      ctx.Params("webhookID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		URL:            req.URL,
		Events:         req.Events,
		Active:         req.Active,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toWebhookResponse(webhook))
}

func (c *WebhookController) DeleteWebhook(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.webhookService.DeleteWebhook(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("webhookID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// TestDelivery posts a synthetic event to the webhook synchronously and
// reports the outcome, so subscribers can check their endpoint without
// waiting for a real event.
func (c *WebhookController) TestDelivery(ctx fiber.Ctx) error {
	webhookID := ctx.Params("webhookID")

	err := c.webhookService.TestDelivery(ctx.RequestCtx(), ctx.Params("organizationID"), webhookID)
	if err != nil {
		if errors.Is(err, domain.ErrWebhookNotFound) {
			return serviceError(err)
		}

		log.Warn().Err(err).Str("webhook_id", webhookID).Msg("Webhook test delivery failed")

		return ctx.JSON(fiber.Map{
			"delivered": false,
			"error":     "Delivery failed",
		})
	}

	return ctx.JSON(fiber.Map{"delivered": true})
}
