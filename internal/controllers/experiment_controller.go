package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ExperimentController struct {
	experimentService domain.ExperimentManager
}

type ExperimentControllerDependencies struct {
	ExperimentManager domain.ExperimentManager
}

func NewExperimentController(deps ExperimentControllerDependencies) *ExperimentController {
	return &ExperimentController{
		experimentService: deps.ExperimentManager,
	}
}

type experimentVariantPayload struct {
	PromptVersionID string `json:"prompt_version_id"`
	Weight          int    `json:"weight"`
}

type createExperimentRequest struct {
	PromptID string                     `json:"prompt_id"`
	Name     string                     `json:"name"`
	Variants []experimentVariantPayload `json:"variants"`
}

type updateExperimentRequest struct {
	Name     string                      `json:"name"`
	Variants *[]experimentVariantPayload `json:"variants"`
}

type experimentResponse struct {
	ID        string                     `json:"id"`
	ProjectID string                     `json:"project_id"`
	PromptID  string                     `json:"prompt_id"`
	Name      string                     `json:"name"`
	Status    string                     `json:"status"`
	Variants  []experimentVariantPayload `json:"variants"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

type variantStatsResponse struct {
	PromptVersionID string  `json:"prompt_version_id"`
	Count           int64   `json:"count"`
	SuccessCount    int64   `json:"success_count"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	TokensIn        int64   `json:"tokens_in"`
	TokensOut       int64   `json:"tokens_out"`
}

func toVariants(payloads []experimentVariantPayload) []domain.ExperimentVariant {
	variants := make([]domain.ExperimentVariant, 0, len(payloads))
	for _, payload := range payloads {
		variants = append(variants, domain.ExperimentVariant{
			PromptVersionID: payload.PromptVersionID,
			Weight:          payload.Weight,
		})
	}

	return variants
}

func toExperimentResponse(experiment domain.Experiment) experimentResponse {
	variants := make([]experimentVariantPayload, 0, len(experiment.Variants))
	for _, variant := range experiment.Variants {
		variants = append(variants, experimentVariantPayload{
			PromptVersionID: variant.PromptVersionID,
			Weight:          variant.Weight,
		})
	}

	return experimentResponse{
		ID:        experiment.ID,
		ProjectID: experiment.ProjectID,
		PromptID:  experiment.PromptID,
		Name:      experiment.Name,
		Status:    string(experiment.Status),
		Variants:  variants,
		CreatedAt: experiment.CreatedAt,
		UpdatedAt: experiment.UpdatedAt,
	}
}

func (c *ExperimentController) CreateExperiment(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createExperimentRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Experiment name is required")
	}

	if req.PromptID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Prompt ID is required")
	}

	experiment, err := c.experimentService.CreateExperiment(ctx.RequestCtx(), domain.CreateExperimentParams{
		ProjectID:      ctx.Params("projectID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		PromptID:       req.PromptID,
		Name:           req.Name,
		Variants:       toVariants(req.Variants),
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toExperimentResponse(experiment))
}

func (c *ExperimentController) GetExperiment(ctx fiber.Ctx) error {
	experiment, err := c.experimentService.GetExperiment(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("experimentID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExperimentResponse(experiment))
}

func (c *ExperimentController) ListExperiments(ctx fiber.Ctx) error {
	experiments, err := c.experimentService.ListExperiments(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]experimentResponse, 0, len(experiments))
	for _, experiment := range experiments {
		responses = append(responses, toExperimentResponse(experiment))
	}

	return ctx.JSON(fiber.Map{"experiments": responses})
}

func (c *ExperimentController) UpdateExperiment(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updateExperimentRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	params := domain.UpdateExperimentParams{
		ExperimentID:   ctx.Params("experimentID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
	}

	if req.Variants != nil {
		params.Variants = toVariants(*req.Variants)
	}

	experiment, err := c.experimentService.UpdateExperiment(ctx.RequestCtx(), params)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExperimentResponse(experiment))
}

func (c *ExperimentController) DeleteExperiment(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.experimentService.DeleteExperiment(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("experimentID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *ExperimentController) StartExperiment(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	experiment, err := c.experimentService.StartExperiment(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("experimentID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExperimentResponse(experiment))
}

func (c *ExperimentController) CompleteExperiment(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	experiment, err := c.experimentService.CompleteExperiment(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("experimentID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toExperimentResponse(experiment))
}

func (c *ExperimentController) GetResults(ctx fiber.Ctx) error {
	results, err := c.experimentService.GetResults(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("experimentID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]variantStatsResponse, 0, len(results))
	for _, stats := range results {
		responses = append(responses, variantStatsResponse{
			PromptVersionID: stats.PromptVersionID,
			Count:           stats.Count,
			SuccessCount:    stats.SuccessCount,
			AvgLatencyMS:    stats.AvgLatencyMS,
			TokensIn:        stats.TokensIn,
			TokensOut:       stats.TokensOut,
		})
	}

	return ctx.JSON(fiber.Map{"results": responses})
}
