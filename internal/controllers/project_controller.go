package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ProjectController struct {
	projectService domain.ProjectManager
}

type ProjectControllerDependencies struct {
	ProjectManager domain.ProjectManager
}

func NewProjectController(deps ProjectControllerDependencies) *ProjectController {
	return &ProjectController{
		projectService: deps.ProjectManager,
	}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProjectResponse(project domain.Project) projectResponse {
	return projectResponse{
		ID:             project.ID,
		OrganizationID: project.OrganizationID,
		Name:           project.Name,
		Description:    project.Description,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
}

func (c *ProjectController) CreateProject(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createProjectRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Project name is required")
	}

	project, err := c.projectService.CreateProject(ctx.RequestCtx(), domain.CreateProjectParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toProjectResponse(project))
}

func (c *ProjectController) GetProject(ctx fiber.Ctx) error {
	project, err := c.projectService.GetProject(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toProjectResponse(project))
}

func (c *ProjectController) ListProjects(ctx fiber.Ctx) error {
	projects, err := c.projectService.ListProjects(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]projectResponse, 0, len(projects))
	for _, project := range projects {
		responses = append(responses, toProjectResponse(project))
	}

	return ctx.JSON(fiber.Map{"projects": responses})
}

func (c *ProjectController) UpdateProject(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updateProjectRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	project, err := c.projectService.UpdateProject(ctx.RequestCtx(), domain.UpdateProjectParams{
		ProjectID:      ctx.Params("projectID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toProjectResponse(project))
}

func (c *ProjectController) DeleteProject(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.projectService.DeleteProject(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}
