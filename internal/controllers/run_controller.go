package controllers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type RunController struct {
	runService domain.RunManager
}

type RunControllerDependencies struct {
	RunManager domain.RunManager
}

func NewRunController(deps RunControllerDependencies) *RunController {
	return &RunController{
		runService: deps.RunManager,
	}
}

type recordRunRequest struct {
	ProjectID       string         `json:"project_id"`
	PromptID        string         `json:"prompt_id"`
	PromptVersionID string         `json:"prompt_version_id"`
	ExperimentID    string         `json:"experiment_id"`
	Model           string         `json:"model"`
	Input           map[string]any `json:"input"`
	Output          map[string]any `json:"output"`
	TokensIn        int64          `json:"tokens_in"`
	TokensOut       int64          `json:"tokens_out"`
	Cost            float64        `json:"cost"`
	LatencyMS       int64          `json:"latency_ms"`
	Success         bool           `json:"success"`
	Flags           map[string]any `json:"flags"`
}

type runResponse struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"project_id"`
	PromptID        string         `json:"prompt_id"`
	PromptVersionID string         `json:"prompt_version_id"`
	ExperimentID    string         `json:"experiment_id,omitempty"`
	Model           string         `json:"model"`
	Input           map[string]any `json:"input"`
	Output          map[string]any `json:"output"`
	TokensIn        int64          `json:"tokens_in"`
	TokensOut       int64          `json:"tokens_out"`
	Cost            float64        `json:"cost"`
	LatencyMS       int64          `json:"latency_ms"`
	Success         bool           `json:"success"`
	Flags           map[string]any `json:"flags,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type runStatsResponse struct {
	Count        int64   `json:"count"`
	SuccessCount int64   `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	TokensIn     int64   `json:"tokens_in"`
	TokensOut    int64   `json:"tokens_out"`
}

func toRunResponse(run domain.Run) runResponse {
	return runResponse{
		ID:              run.ID,
		ProjectID:       run.ProjectID,
		PromptID:        run.PromptID,
		PromptVersionID: run.PromptVersionID,
		ExperimentID:    run.ExperimentID,
		Model:           run.Model,
		Input:           run.Input,
		Output:          run.Output,
		TokensIn:        run.TokensIn,
		TokensOut:       run.TokensOut,
		Cost:            run.Cost,
		LatencyMS:       run.LatencyMS,
		Success:         run.Success,
		Flags:           run.Flags,
		CreatedAt:       run.CreatedAt,
	}
}

// runFilterFromQuery builds the list/stats filter from query
// parameters. Malformed timestamps are rejected, not ignored.
func runFilterFromQuery(ctx fiber.Ctx) (domain.RunFilter, error) {
	filter := domain.RunFilter{
		ProjectID:    ctx.Query("project_id"),
		PromptID:     ctx.Query("prompt_id"),
		ExperimentID: ctx.Query("experiment_id"),
		Limit:        queryInt(ctx, "limit", 0),
		Offset:       queryInt(ctx, "offset", 0),
	}

	if raw := ctx.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.RunFilter{}, fiber.NewError(fiber.StatusBadRequest, "Invalid 'from' timestamp, expected RFC 3339")
		}
		filter.From = from
	}

	if raw := ctx.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.RunFilter{}, fiber.NewError(fiber.StatusBadRequest, "Invalid 'to' timestamp, expected RFC 3339")
		}
		filter.To = to
	}

	if filter.ProjectID == "" {
		return domain.RunFilter{}, fiber.NewError(fiber.StatusBadRequest, "project_id query parameter is required")
	}

	return filter, nil
}

func (c *RunController) RecordRun(ctx fiber.Ctx) error {
	var req recordRunRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.ProjectID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Project ID is required")
	}

	if req.PromptID == "" || req.PromptVersionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Prompt ID and prompt version ID are required")
	}

	if req.Model == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Model is required")
	}

	run, err := c.runService.RecordRun(ctx.RequestCtx(), domain.RecordRunParams{
		ProjectID:       req.ProjectID,
		OrganizationID:  ctx.Params("organizationID"),
		PromptID:        req.PromptID,
		PromptVersionID: req.PromptVersionID,
		ExperimentID:    req.ExperimentID,
		Model:           req.Model,
		Input:           req.Input,
		Output:          req.Output,
		TokensIn:        req.TokensIn,
		TokensOut:       req.TokensOut,
		Cost:            req.Cost,
		LatencyMS:       req.LatencyMS,
		Success:         req.Success,
		Flags:           req.Flags,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toRunResponse(run))
}

func (c *RunController) GetRun(ctx fiber.Ctx) error {
	run, err := c.runService.GetRun(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("runID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toRunResponse(run))
}

func (c *RunController) ListRuns(ctx fiber.Ctx) error {
	filter, err := runFilterFromQuery(ctx)
	if err != nil {
		return err
	}

	runs, err := c.runService.ListRuns(ctx.RequestCtx(), ctx.Params("organizationID"), filter)
	if err != nil {
		return serviceError(err)
	}

	responses := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toRunResponse(run))
	}

	return ctx.JSON(fiber.Map{"runs": responses})
}

func (c *RunController) GetStats(ctx fiber.Ctx) error {
	filter, err := runFilterFromQuery(ctx)
	if err != nil {
		return err
	}

	stats, err := c.runService.GetStats(ctx.RequestCtx(), ctx.Params("organizationID"), filter)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(runStatsResponse{
		Count:        stats.Count,
		SuccessCount: stats.SuccessCount,
		SuccessRate:  stats.SuccessRate(),
		AvgLatencyMS: stats.AvgLatencyMS,
		TokensIn:     stats.TokensIn,
		TokensOut:    stats.TokensOut,
	})
}
