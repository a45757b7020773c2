package controllers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ScheduleController struct {
	scheduleService domain.ScheduleManager
}

type ScheduleControllerDependencies struct {
	ScheduleManager domain.ScheduleManager
}

func NewScheduleController(deps ScheduleControllerDependencies) *ScheduleController {
	return &ScheduleController{
		scheduleService: deps.ScheduleManager,
	}
}

type schedulePreviewRequest struct {
	Expression string `json:"expression"`
	Count      int    `json:"count"`
	From       string `json:"from"`
}

// PreviewSchedule returns the next fire times for a cron expression.
// There is no background scheduler behind this; it exists so users can
// check an expression before wiring it elsewhere.
func (c *ScheduleController) PreviewSchedule(ctx fiber.Ctx) error {
	var req schedulePreviewRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Expression == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Cron expression is required")
	}

	params := domain.SchedulePreviewParams{
		Expression: req.Expression,
		Count:      req.Count,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid 'from' timestamp, expected RFC 3339")
		}
		params.From = from
	}

	times, err := c.scheduleService.PreviewSchedule(ctx.RequestCtx(), params)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(fiber.Map{
		"expression": req.Expression,
		"times":      times,
	})
}
