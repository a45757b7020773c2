package controllers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type TemplateController struct {
	templateService domain.TemplateManager
}

type TemplateControllerDependencies struct {
	TemplateManager domain.TemplateManager
}

func NewTemplateController(deps TemplateControllerDependencies) *TemplateController {
	return &TemplateController{
		templateService: deps.TemplateManager,
	}
}

type installTemplateRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

type templateResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Content     string         `json:"content"`
	Variables   map[string]any `json:"variables"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toTemplateResponse(template domain.Template) templateResponse {
	return templateResponse{
		ID:          template.ID,
		Name:        template.Name,
		Description: template.Description,
		Category:    template.Category,
		Content:     template.Content,
		Variables:   template.Variables,
		CreatedAt:   template.CreatedAt,
	}
}

func (c *TemplateController) ListTemplates(ctx fiber.Ctx) error {
	templates, err := c.templateService.ListTemplates(ctx.RequestCtx(), ctx.Query("category"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]templateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, toTemplateResponse(template))
	}

	return ctx.JSON(fiber.Map{"templates": responses})
}

func (c *TemplateController) GetTemplate(ctx fiber.Ctx) error {
	template, err := c.templateService.GetTemplate(ctx.RequestCtx(), ctx.Params("templateID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toTemplateResponse(template))
}

// InstallTemplate copies the template into a project as a new prompt
// with its first version.
func (c *TemplateController) InstallTemplate(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req installTemplateRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.ProjectID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Project ID is required")
	}

	prompt, err := c.templateService.InstallTemplate(ctx.RequestCtx(), domain.InstallTemplateParams{
		TemplateID:     ctx.Params("templateID"),
		ProjectID:      req.ProjectID,
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toPromptResponse(prompt))
}
