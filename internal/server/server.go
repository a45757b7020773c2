// Package server assembles the fiber application: global middleware,
// the health and metrics endpoints, and every API route grouped by the
// auth it requires. Session routes sit behind SessionMiddleware,
// organization-scoped routes additionally behind OrganizationMiddleware,
// and the public surface carries its own key checks.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/promptdeck/promptdeck/internal/controllers"
	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/metrics"
	"github.com/promptdeck/promptdeck/internal/middlewares"
	"github.com/promptdeck/promptdeck/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog/log"
)

type HTTPServerDependencies struct {
	AuthController         *controllers.AuthController
	OrganizationController *controllers.OrganizationController
	ProjectController      *controllers.ProjectController
	PromptController       *controllers.PromptController
	ChatController         *controllers.ChatController
	ExperimentController   *controllers.ExperimentController
	RunController          *controllers.RunController
	PipelineController     *controllers.PipelineController
	BillingController      *controllers.BillingController
	ProviderKeyController  *controllers.ProviderKeyController
	APIKeyController       *controllers.APIKeyController
	TemplateController     *controllers.TemplateController
	WebhookController      *controllers.WebhookController
	AuditController        *controllers.AuditController
	ScheduleController     *controllers.ScheduleController

	AuthManager         domain.AuthManager
	OrganizationManager domain.OrganizationManager
	APIKeyManager       domain.APIKeyManager
}

func NewHTTPServer(ctx context.Context, deps HTTPServerDependencies) *fiber.App {
	verifyDependencies(deps)

	router := fiber.New(fiber.Config{
		AppName: "promptdeck-api",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{
				"error": message,
			})
		},
	})

	router.Use(cors.New())
	router.Use(logger.New())
	router.Use(recoverer.New())
	router.Use(middlewares.MetricsMiddleware())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "promptdeck-api",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Get("/metrics", metrics.Handler())

	session := middlewares.SessionMiddleware(middlewares.SessionMiddlewareDependencies{
		AuthManager: deps.AuthManager,
	})

	membership := middlewares.OrganizationMiddleware(middlewares.OrganizationMiddlewareDependencies{
		OrganizationManager: deps.OrganizationManager,
	})

	apiKeyAuth := middlewares.APIKeyMiddleware(middlewares.APIKeyMiddlewareDependencies{
		APIKeyManager: deps.APIKeyManager,
	})

	api := router.Group("/api/v1")

	api.Post("/auth/register", deps.AuthController.Register)
	api.Post("/auth/login", deps.AuthController.Login)
	api.Get("/auth/me", deps.AuthController.Me, session)

	// The payment provider calls this endpoint directly, authenticated by
	// the webhook signature rather than a session.
	api.Post("/billing/webhook", deps.BillingController.HandlePaymentWebhook)

	// Public pipeline surface. The execute endpoint verifies the caller's
	// API key as part of the execution contract and reports failures in
	// the response body, so it carries no middleware.
	public := api.Group("/public")
	public.Post("/pipelines/:slug/execute", deps.PipelineController.ExecutePublishedPipeline)
	public.Post("/graphs/validate", deps.PipelineController.ValidateGraph, apiKeyAuth)

	api.Post("/schedules/preview", deps.ScheduleController.PreviewSchedule, session)

	templates := api.Group("/templates")
	templates.Use(session)
	templates.Get("/", deps.TemplateController.ListTemplates)
	templates.Get("/:templateID", deps.TemplateController.GetTemplate)

	organizations := api.Group("/organizations")
	organizations.Use(session)
	organizations.Post("/", deps.OrganizationController.CreateOrganization)
	organizations.Get("/", deps.OrganizationController.ListOrganizations)

	organization := organizations.Group("/:organizationID")
	organization.Use(membership)
	organization.Get("/", deps.OrganizationController.GetOrganization)
	organization.Patch("/", deps.OrganizationController.UpdateOrganization)
	organization.Delete("/", deps.OrganizationController.DeleteOrganization)
	organization.Get("/members", deps.OrganizationController.ListMembers)
	organization.Post("/members", deps.OrganizationController.InviteMember)

	organization.Post("/projects", deps.ProjectController.CreateProject)
	organization.Get("/projects", deps.ProjectController.ListProjects)
	organization.Get("/projects/:projectID", deps.ProjectController.GetProject)
	organization.Patch("/projects/:projectID", deps.ProjectController.UpdateProject)
	organization.Delete("/projects/:projectID", deps.ProjectController.DeleteProject)

	organization.Post("/projects/:projectID/prompts", deps.PromptController.CreatePrompt)
	organization.Get("/projects/:projectID/prompts", deps.PromptController.ListPrompts)
	organization.Get("/prompts/:promptID", deps.PromptController.GetPrompt)
	organization.Patch("/prompts/:promptID", deps.PromptController.UpdatePrompt)
	organization.Delete("/prompts/:promptID", deps.PromptController.DeletePrompt)
	organization.Post("/prompts/:promptID/versions", deps.PromptController.CreateVersion)
	organization.Get("/prompts/:promptID/versions", deps.PromptController.ListVersions)
	organization.Get("/prompts/:promptID/versions/:versionID", deps.PromptController.GetVersion)
	organization.Post("/prompts/:promptID/versions/:versionID/restore", deps.PromptController.RestoreVersion)

	organization.Post("/projects/:projectID/chat/sessions", deps.ChatController.CreateSession)
	organization.Get("/projects/:projectID/chat/sessions", deps.ChatController.ListSessions)
	organization.Get("/chat/sessions/:sessionID", deps.ChatController.GetSession)
	organization.Delete("/chat/sessions/:sessionID", deps.ChatController.DeleteSession)
	organization.Post("/chat/sessions/:sessionID/messages", deps.ChatController.SendMessage)
	organization.Post("/chat/sessions/:sessionID/messages/stream", deps.ChatController.StreamMessage)

	organization.Post("/projects/:projectID/experiments", deps.ExperimentController.CreateExperiment)
	organization.Get("/projects/:projectID/experiments", deps.ExperimentController.ListExperiments)
	organization.Get("/experiments/:experimentID", deps.ExperimentController.GetExperiment)
	organization.Patch("/experiments/:experimentID", deps.ExperimentController.UpdateExperiment)
	organization.Delete("/experiments/:experimentID", deps.ExperimentController.DeleteExperiment)
	organization.Post("/experiments/:experimentID/start", deps.ExperimentController.StartExperiment)
	organization.Post("/experiments/:experimentID/complete", deps.ExperimentController.CompleteExperiment)
	organization.Get("/experiments/:experimentID/results", deps.ExperimentController.GetResults)

	organization.Post("/runs", deps.RunController.RecordRun)
	organization.Get("/runs", deps.RunController.ListRuns)
	organization.Get("/runs/stats", deps.RunController.GetStats)
	organization.Get("/runs/:runID", deps.RunController.GetRun)

	organization.Post("/projects/:projectID/pipelines", deps.PipelineController.CreatePipeline)
	organization.Get("/projects/:projectID/pipelines", deps.PipelineController.ListPipelines)
	organization.Get("/pipelines/:pipelineID", deps.PipelineController.GetPipeline)
	organization.Patch("/pipelines/:pipelineID", deps.PipelineController.UpdatePipeline)
	organization.Delete("/pipelines/:pipelineID", deps.PipelineController.DeletePipeline)
	organization.Post("/pipelines/:pipelineID/validate", deps.PipelineController.ValidatePipeline)
	organization.Post("/pipelines/:pipelineID/publish", deps.PipelineController.PublishPipeline)
	organization.Post("/pipelines/:pipelineID/unpublish", deps.PipelineController.UnpublishPipeline)
	organization.Post("/pipelines/:pipelineID/execute", deps.PipelineController.ExecutePipeline)

	organization.Get("/billing", deps.BillingController.GetBilling)
	organization.Get("/billing/usage", deps.BillingController.GetUsage)
	organization.Put("/billing/plan", deps.BillingController.UpdatePlan)
	organization.Post("/billing/checkout", deps.BillingController.CreateCheckoutSession)
	organization.Post("/billing/checkout/verify", deps.BillingController.VerifyCheckoutSession)
	organization.Post("/billing/portal", deps.BillingController.CreatePortalSession)

	organization.Post("/provider-keys", deps.ProviderKeyController.CreateProviderKey)
	organization.Get("/provider-keys", deps.ProviderKeyController.ListProviderKeys)
	organization.Delete("/provider-keys/:keyID", deps.ProviderKeyController.DeleteProviderKey)

	organization.Post("/api-keys", deps.APIKeyController.CreateAPIKey)
	organization.Get("/api-keys", deps.APIKeyController.ListAPIKeys)
	organization.Delete("/api-keys/:keyID", deps.APIKeyController.DeleteAPIKey)

	organization.Post("/webhooks", deps.WebhookController.CreateWebhook)
	organization.Get("/webhooks", deps.WebhookController.ListWebhooks)
	organization.Get("/webhooks/:webhookID", deps.WebhookController.GetWebhook)
	organization.Patch("/webhooks/:webhookID", deps.WebhookController.UpdateWebhook)
	organization.Delete("/webhooks/:webhookID", deps.WebhookController.DeleteWebhook)
	organization.Post("/webhooks/:webhookID/test", deps.WebhookController.TestDelivery)

	organization.Post("/templates/:templateID/install", deps.TemplateController.InstallTemplate)

	organization.Get("/audit", deps.AuditController.ListEntries)

	return router
}

func verifyDependencies(deps HTTPServerDependencies) {
	if deps.AuthManager == nil {
		log.Fatal().Msg("Auth manager is not provided, sessions cannot be verified")
	}

	if deps.OrganizationManager == nil {
		log.Fatal().Msg("Organization manager is not provided, memberships cannot be resolved")
	}

	if deps.APIKeyManager == nil {
		log.Fatal().Msg("API key manager is not provided, public key auth cannot run")
	}
}
