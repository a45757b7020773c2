package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type PromptController struct {
	promptService domain.PromptManager
}

type PromptControllerDependencies struct {
	PromptManager domain.PromptManager
}

func NewPromptController(deps PromptControllerDependencies) *PromptController {
	return &PromptController{
		promptService: deps.PromptManager,
	}
}

type createPromptRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Content     string         `json:"content"`
	Variables   map[string]any `json:"variables"`
	ModelConfig map[string]any `json:"model_config"`
}

type updatePromptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createPromptVersionRequest struct {
	Content     string         `json:"content"`
	Variables   map[string]any `json:"variables"`
	ModelConfig map[string]any `json:"model_config"`
}

type promptResponse struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CurrentVersionID string    `json:"current_version_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type promptVersionResponse struct {
	ID          string         `json:"id"`
	PromptID    string         `json:"prompt_id"`
	Version     int            `json:"version"`
	Content     string         `json:"content"`
	Variables   map[string]any `json:"variables"`
	ModelConfig map[string]any `json:"model_config"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toPromptResponse(prompt domain.Prompt) promptResponse {
	return promptResponse{
		ID:               prompt.ID,
		ProjectID:        prompt.ProjectID,
		Name:             prompt.Name,
		Description:      prompt.Description,
		CurrentVersionID: prompt.CurrentVersionID,
		CreatedAt:        prompt.CreatedAt,
		UpdatedAt:        prompt.UpdatedAt,
	}
}

func toPromptVersionResponse(version domain.PromptVersion) promptVersionResponse {
	return promptVersionResponse{
		ID:          version.ID,
		PromptID:    version.PromptID,
		Version:     version.Version,
		Content:     version.Content,
		Variables:   version.Variables,
		ModelConfig: version.ModelConfig,
		CreatedAt:   version.CreatedAt,
	}
}

func (c *PromptController) CreatePrompt(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createPromptRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Prompt name is required")
	}

	if req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Prompt content is required")
	}

	prompt, err := c.promptService.CreatePrompt(ctx.RequestCtx(), domain.CreatePromptParams{
		ProjectID:      ctx.Params("projectID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Description:    req.Description,
		Content:        req.Content,
		Variables:      req.Variables,
		ModelConfig:    req.ModelConfig,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toPromptResponse(prompt))
}

func (c *PromptController) GetPrompt(ctx fiber.Ctx) error {
	prompt, err := c.promptService.GetPrompt(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("promptID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPromptResponse(prompt))
}

func (c *PromptController) ListPrompts(ctx fiber.Ctx) error {
	prompts, err := c.promptService.ListPrompts(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]promptResponse, 0, len(prompts))
	for _, prompt := range prompts {
		responses = append(responses, toPromptResponse(prompt))
	}

	return ctx.JSON(fiber.Map{"prompts": responses})
}

func (c *PromptController) UpdatePrompt(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updatePromptRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	prompt, err := c.promptService.UpdatePrompt(ctx.RequestCtx(), domain.UpdatePromptParams{
		PromptID:       ctx.Params("promptID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPromptResponse(prompt))
}

func (c *PromptController) DeletePrompt(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.promptService.DeletePrompt(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("promptID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *PromptController) CreateVersion(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createPromptVersionRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Version content is required")
	}

	version, err := c.promptService.CreateVersion(ctx.RequestCtx(), domain.CreatePromptVersionParams{
		PromptID:       ctx.Params("promptID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Content:        req.Content,
		Variables:      req.Variables,
		ModelConfig:    req.ModelConfig,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toPromptVersionResponse(version))
}

func (c *PromptController) ListVersions(ctx fiber.Ctx) error {
	versions, err := c.promptService.ListVersions(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("promptID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]promptVersionResponse, 0, len(versions))
	for _, version := range versions {
		responses = append(responses, toPromptVersionResponse(version))
	}

	return ctx.JSON(fiber.Map{"versions": responses})
}

func (c *PromptController) GetVersion(ctx fiber.Ctx) error {
	version, err := c.promptService.GetVersion(
		ctx.RequestCtx(),
		ctx.Params("organizationID"),
		ctx.Params("promptID"),
		ctx.Params("versionID"),
	)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPromptVersionResponse(version))
}

func (c *PromptController) RestoreVersion(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	version, err := c.promptService.RestoreVersion(ctx.RequestCtx(), domain.RestorePromptVersionParams{
		PromptID:       ctx.Params("promptID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		VersionID:      ctx.Params("versionID"),
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toPromptVersionResponse(version))
}
