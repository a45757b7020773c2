package controllers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type AuditController struct {
	auditService domain.AuditManager
}

type AuditControllerDependencies struct {
	AuditManager domain.AuditManager
}

func NewAuditController(deps AuditControllerDependencies) *AuditController {
	return &AuditController{
		auditService: deps.AuditManager,
	}
}

type auditEntryResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ListEntries returns the organization's audit trail, newest first.
func (c *AuditController) ListEntries(ctx fiber.Ctx) error {
	limit := queryInt(ctx, "limit", 0)
	offset := queryInt(ctx, "offset", 0)

	entries, err := c.auditService.ListEntries(ctx.RequestCtx(), ctx.Params("organizationID"), limit, offset)
	if err != nil {
		return serviceError(err)
	}

	responses := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, auditEntryResponse{
			ID:           entry.ID,
			ActorID:      entry.ActorID,
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Metadata:     entry.Metadata,
			CreatedAt:    entry.CreatedAt,
		})
	}

	return ctx.JSON(fiber.Map{
		"entries": responses,
		"offset":  offset,
	})
}
