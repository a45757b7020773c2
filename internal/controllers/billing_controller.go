package controllers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type BillingController struct {
	billingService domain.BillingManager
}

type BillingControllerDependencies struct {
	BillingManager domain.BillingManager
}

func NewBillingController(deps BillingControllerDependencies) *BillingController {
	return &BillingController{
		billingService: deps.BillingManager,
	}
}

type updatePlanRequest struct {
	Plan string `json:"plan"`
}

type createCheckoutRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type verifyCheckoutRequest struct {
	SessionID string `json:"session_id"`
}

type createPortalRequest struct {
	ReturnURL string `json:"return_url"`
}

type billingResponse struct {
	OrganizationID string     `json:"organization_id"`
	Plan           string     `json:"plan"`
	Seats          int        `json:"seats"`
	MeteredQuota   int64      `json:"metered_quota"`
	RenewsAt       *time.Time `json:"renews_at,omitempty"`
}

type usageResponse struct {
	Used       int64 `json:"used"`
	Quota      int64 `json:"quota"`
	Percentage int64 `json:"percentage"`
	Exceeded   bool  `json:"exceeded"`
}

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type checkoutVerificationResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Plan      string `json:"plan,omitempty"`
}

func toBillingResponse(billing domain.Billing) billingResponse {
	return billingResponse{
		OrganizationID: billing.OrganizationID,
		Plan:           string(billing.Plan),
		Seats:          billing.Seats,
		MeteredQuota:   billing.MeteredQuota,
		RenewsAt:       billing.RenewsAt,
	}
}

func (c *BillingController) GetBilling(ctx fiber.Ctx) error {
	billing, err := c.billingService.GetBilling(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toBillingResponse(billing))
}

func (c *BillingController) GetUsage(ctx fiber.Ctx) error {
	usage, err := c.billingService.CheckUsageQuota(ctx.RequestCtx(), ctx.Params("organizationID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(usageResponse{
		Used:       usage.Used,
		Quota:      usage.Quota,
		Percentage: usage.Percentage,
		Exceeded:   usage.Exceeded,
	})
}

func (c *BillingController) UpdatePlan(ctx fiber.Ctx) error {
	var req updatePlanRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Plan == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Plan is required")
	}

	organizationID := ctx.Params("organizationID")

	billing, err := c.billingService.UpdateOrganizationPlan(ctx.RequestCtx(), organizationID, domain.PlanType(req.Plan), "")
	if err != nil {
		return serviceError(err)
	}

	log.Info().Str("organization_id", organizationID).Str("plan", req.Plan).Msg("Updated organization plan")

	return ctx.JSON(toBillingResponse(billing))
}

func (c *BillingController) CreateCheckoutSession(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createCheckoutRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Plan == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Plan is required")
	}

	session, err := c.billingService.CreateCheckoutSession(ctx.RequestCtx(), domain.CreateCheckoutParams{
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Plan:           domain.PlanType(req.Plan),
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(checkoutSessionResponse{
		ID:  session.ID,
		URL: session.URL,
	})
}

// VerifyCheckoutSession reports an unknown or unpaid session as
// Success false with HTTP 200; the checkout result page polls this.
func (c *BillingController) VerifyCheckoutSession(ctx fiber.Ctx) error {
	var req verifyCheckoutRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.SessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Session ID is required")
	}

	verification, err := c.billingService.VerifyCheckoutSession(ctx.RequestCtx(), ctx.Params("organizationID"), req.SessionID)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(checkoutVerificationResponse{
		Success:   verification.Paid,
		SessionID: verification.SessionID,
		Plan:      string(verification.Plan),
	})
}

func (c *BillingController) CreatePortalSession(ctx fiber.Ctx) error {
	var req createPortalRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.billingService.CreatePortalSession(ctx.RequestCtx(), ctx.Params("organizationID"), req.ReturnURL)
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(fiber.Map{"url": session.URL})
}

// HandlePaymentWebhook receives events from the payment processor. The
// signature check happens in the payment provider; a bad payload is a
// 400 so the processor stops retrying it.
func (c *BillingController) HandlePaymentWebhook(ctx fiber.Ctx) error {
	err := c.billingService.HandlePaymentWebhook(ctx.RequestCtx(), ctx.Body(), ctx.Get("Stripe-Signature"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(fiber.Map{"received": true})
}
