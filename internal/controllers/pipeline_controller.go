package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/pkg/graph"

	promptdeckclient "github.com/promptdeck/promptdeck/pkg/clients/promptdeck"
)

type PipelineController struct {
	pipelineService domain.PipelineManager
}

type PipelineControllerDependencies struct {
	PipelineManager domain.PipelineManager
}

func NewPipelineController(deps PipelineControllerDependencies) *PipelineController {
	return &PipelineController{
		pipelineService: deps.PipelineManager,
	}
}

type createPipelineRequest struct {
	Name  string         `json:"name"`
	Graph map[string]any `json:"graph"`
}

type updatePipelineRequest struct {
	Name  string         `json:"name"`
	Graph map[string]any `json:"graph"`
}

type executePipelineRequest struct {
	Input map[string]any `json:"input"`
}

type pipelineResponse struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Name         string         `json:"name"`
	Graph        map[string]any `json:"graph"`
	Status       string         `json:"status"`
	EndpointSlug string         `json:"endpoint_slug,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toPipelineResponse(pipeline domain.Pipeline) pipelineResponse {
	return pipelineResponse{
		ID:           pipeline.ID,
		ProjectID:    pipeline.ProjectID,
		Name:         pipeline.Name,
		Graph:        pipeline.Graph,
		Status:       string(pipeline.Status),
		EndpointSlug: pipeline.EndpointSlug,
		CreatedAt:    pipeline.CreatedAt,
		UpdatedAt:    pipeline.UpdatedAt,
	}
}

func toExecutionResponse(result domain.ExecutionResult) promptdeckclient.ExecutePipelineResponse {
	nodeResults := make([]promptdeckclient.NodeResult, 0, len(result.NodeResults))
	for _, nodeResult := range result.NodeResults {
		nodeResults = append(nodeResults, promptdeckclient.NodeResult{
			NodeID:     nodeResult.NodeID,
			Type:       nodeResult.Type,
			Output:     nodeResult.Output,
			DurationMS: nodeResult.DurationMS,
		})
	}

	return promptdeckclient.ExecutePipelineResponse{
		Success:         result.Success,
		Output:          result.Output,
		ExecutionTimeMS: result.ExecutionTimeMS,
		NodeResults:     nodeResults,
	}
}

func (c *PipelineController) CreatePipeline(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createPipelineRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Pipeline name is required")
	}

	pipeline, err := c.pipelineService.CreatePipeline(ctx.RequestCtx(), domain.CreatePipelineParams{
		ProjectID:      ctx.Params("projectID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Graph:          req.Graph,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toPipelineResponse(pipeline))
}

func (c *PipelineController) GetPipeline(ctx fiber.Ctx) error {
	pipeline, err := c.pipelineService.GetPipeline(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("pipelineID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPipelineResponse(pipeline))
}

func (c *PipelineController) ListPipelines(ctx fiber.Ctx) error {
	pipelines, err := c.pipelineService.ListPipelines(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]pipelineResponse, 0, len(pipelines))
	for _, pipeline := range pipelines {
		responses = append(responses, toPipelineResponse(pipeline))
	}

	return ctx.JSON(fiber.Map{"pipelines": responses})
}

func (c *PipelineController) UpdatePipeline(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updatePipelineRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	pipeline, err := c.pipelineService.UpdatePipeline(ctx.RequestCtx(), domain.UpdatePipelineParams{
		PipelineID:     ctx.Params("pipelineID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
		Graph:          req.Graph,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPipelineResponse(pipeline))
}

func (c *PipelineController) DeletePipeline(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.pipelineService.DeletePipeline(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("pipelineID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *PipelineController) ValidatePipeline(ctx fiber.Ctx) error {
	validation, err := c.pipelineService.ValidatePipeline(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("pipelineID"))
	if err != nil {
		return serviceError(err)
	}

	validationErrors := validation.Errors
	if validationErrors == nil {
		validationErrors = []string{}
	}

	return ctx.JSON(promptdeckclient.ValidateGraphResponse{
		Valid:  validation.Valid,
		Errors: validationErrors,
	})
}

func (c *PipelineController) PublishPipeline(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	pipeline, err := c.pipelineService.PublishPipeline(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("pipelineID"))
	if err != nil {
		return serviceError(err)
	}

	log.Info().
		Str("pipeline_id", pipeline.ID).
		Str("endpoint_slug", pipeline.EndpointSlug).
		Msg("Published pipeline")

	return ctx.JSON(toPipelineResponse(pipeline))
}

func (c *PipelineController) UnpublishPipeline(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	pipeline, err := c.pipelineService.UnpublishPipeline(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("pipelineID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toPipelineResponse(pipeline))
}

// ExecutePipeline runs a pipeline for its owner. Drafts are executable
// here; the published-only rule applies to the public endpoint.
func (c *PipelineController) ExecutePipeline(ctx fiber.Ctx) error {
	var req executePipelineRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := c.pipelineService.ExecutePipeline(ctx.RequestCtx(), domain.ExecutePipelineParams{
		PipelineID:     ctx.Params("pipelineID"),
		OrganizationID: ctx.Params("organizationID"),
		Input:          req.Input,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExecutionResponse(result))
}

// ExecutePublishedPipeline is the public API-key entrypoint. Contract
// failures (unknown key, unresolvable slug) come back as HTTP 200 with
// Success false; only infrastructure faults surface as errors.
func (c *PipelineController) ExecutePublishedPipeline(ctx fiber.Ctx) error {
	var req promptdeckclient.ExecutePipelineRequest

	if len(ctx.Body()) > 0 {
		if err := ctx.Bind().Body(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	result, err := c.pipelineService.ExecutePublishedPipeline(
		ctx.RequestCtx(),
		ctx.Params("slug"),
		req.Input,
		auth.RequestAPIKey(ctx),
	)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExecutionResponse(result))
}

// ValidateGraph validates a graph document without a stored pipeline,
// for callers building graphs client-side.
func (c *PipelineController) ValidateGraph(ctx fiber.Ctx) error {
	var req promptdeckclient.ValidateGraphRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result := graph.Validate(req.Graph)

	validationErrors := result.Errors
	if validationErrors == nil {
		validationErrors = []string{}
	}

	return ctx.JSON(promptdeckclient.ValidateGraphResponse{
		Valid:  result.Valid,
		Errors: validationErrors,
	})
}
