package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type OrganizationController struct {
	organizationService domain.OrganizationManager
}

type OrganizationControllerDependencies struct {
	OrganizationManager domain.OrganizationManager
}

func NewOrganizationController(deps OrganizationControllerDependencies) *OrganizationController {
	return &OrganizationController{
		organizationService: deps.OrganizationManager,
	}
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type updateOrganizationRequest struct {
	Name string `json:"name"`
}

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type organizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type memberResponse struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type membershipResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

func toOrganizationResponse(org domain.Organization) organizationResponse {
	return organizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		Plan:      string(org.Plan),
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

func (c *OrganizationController) CreateOrganization(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createOrganizationRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Organization name is required")
	}

	org, err := c.organizationService.CreateOrganization(ctx.RequestCtx(), domain.CreateOrganizationParams{
		Name:    req.Name,
		ActorID: user.ID,
	})
	if err != nil {
		return serviceError(err)
	}

	log.Info().Str("organization_id", org.ID).Str("slug", org.Slug).Msg("Created organization")

	return ctx.Status(fiber.StatusCreated).JSON(toOrganizationResponse(org))
}

func (c *OrganizationController) GetOrganization(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	org, err := c.organizationService.GetOrganization(ctx.RequestCtx(), user.ID, ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toOrganizationResponse(org))
}

func (c *OrganizationController) ListOrganizations(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	orgs, err := c.organizationService.ListOrganizations(ctx.RequestCtx(), user.ID)
	if err != nil {
		return serviceError(err)
	}

	responses := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		responses = append(responses, toOrganizationResponse(org))
	}

	return ctx.JSON(fiber.Map{"organizations": responses})
}

func (c *OrganizationController) UpdateOrganization(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req updateOrganizationRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	org, err := c.organizationService.UpdateOrganization(ctx.RequestCtx(), domain.UpdateOrganizationParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Name:           req.Name,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toOrganizationResponse(org))
}

func (c *OrganizationController) DeleteOrganization(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	organizationID := ctx.Params("organizationID")

	if err := c.organizationService.DeleteOrganization(ctx.RequestCtx(), user.ID, organizationID); err != nil {
		return serviceError(err)
	}

	log.Info().Str("organization_id", organizationID).Msg("Deleted organization")

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *OrganizationController) ListMembers(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	members, err := c.organizationService.ListMembers(ctx.RequestCtx(), user.ID, ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]memberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, memberResponse{
			UserID:   member.UserID,
			Email:    member.Email,
			Name:     member.Name,
			Role:     string(member.Role),
			JoinedAt: member.CreatedAt,
		})
	}

	return ctx.JSON(fiber.Map{"members": responses})
}

func (c *OrganizationController) InviteMember(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req inviteMemberRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email is required")
	}

	role := domain.MembershipRole(req.Role)
	if req.Role == "" {
		role = domain.RoleMember
	}

	if role != domain.RoleAdmin && role != domain.RoleMember {
		return fiber.NewError(fiber.StatusBadRequest, "Role must be admin or member")
	}

	membership, err := c.organizationService.InviteMember(ctx.RequestCtx(), domain.InviteMemberParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Email:          req.Email,
		Role:           role,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(membershipResponse{
		ID:             membership.ID,
		UserID:         membership.UserID,
		OrganizationID: membership.OrganizationID,
		Role:           string(membership.Role),
		CreatedAt:      membership.CreatedAt,
	})
}
