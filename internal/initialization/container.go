// Package initialization wires configuration into the full dependency
// graph: stores, ambient services, managers and controllers.
package initialization

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/ai"
	"github.com/promptdeck/promptdeck/internal/audit"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/controllers"
	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/mail"
	"github.com/promptdeck/promptdeck/internal/managers"
	"github.com/promptdeck/promptdeck/internal/payments"
	"github.com/promptdeck/promptdeck/internal/secrets"
	"github.com/promptdeck/promptdeck/internal/server"
	"github.com/promptdeck/promptdeck/internal/storage/memory"
	"github.com/promptdeck/promptdeck/internal/storage/postgres"
	"github.com/promptdeck/promptdeck/internal/webhooks"
)

type AppContainer struct {
	config config.Config
}

func NewAppContainer(cfg config.Config) *AppContainer {
	return &AppContainer{config: cfg}
}

// AppDependencies holds everything the serve command needs: the server
// wiring plus the components that must be drained or closed on shutdown.
type AppDependencies struct {
	ServerDependencies server.HTTPServerDependencies

	AuditRecorder     *audit.Recorder
	WebhookDispatcher *webhooks.Dispatcher

	Pool        *pgxpool.Pool
	RedisClient *redis.Client
}

// Close drains the async queues and releases connections. The dispatcher
// and recorder are closed first so their final flushes still have a store
// to write to.
func (d *AppDependencies) Close() {
	if d.WebhookDispatcher != nil {
		d.WebhookDispatcher.Close()
	}

	if d.AuditRecorder != nil {
		d.AuditRecorder.Close()
	}

	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}

	if d.Pool != nil {
		d.Pool.Close()
	}
}

type storeSet struct {
	users         domain.UserStore
	organizations domain.OrganizationStore
	billing       domain.BillingStore
	projects      domain.ProjectStore
	prompts       domain.PromptStore
	experiments   domain.ExperimentStore
	runs          domain.RunStore
	pipelines     domain.PipelineStore
	chatSessions  domain.ChatSessionStore
	templates     domain.TemplateStore
	apiKeys       domain.APIKeyStore
	webhooks      domain.WebhookStore
	providerKeys  domain.ProviderKeyStore
	audit         domain.AuditStore
}

func (c *AppContainer) BuildAppDependencies(ctx context.Context) (*AppDependencies, error) {
	log.Info().Msg("Building application dependencies")

	stores, pool, err := c.buildStores(ctx)
	if err != nil {
		return nil, err
	}

	idGenerator := domain.NewIDGenerator()

	sealer, err := secrets.NewSealer(c.config.MasterSecret)
	if err != nil {
		return nil, fmt.Errorf("creating provider key sealer: %w", err)
	}

	auditRecorder := audit.NewRecorder(audit.RecorderDependencies{
		AuditStore: stores.audit,
	})

	webhookDispatcher := webhooks.NewDispatcher(webhooks.DispatcherDependencies{
		WebhookStore: stores.webhooks,
	})

	var inviteMailer domain.InviteMailer
	if c.config.ResendAPIKey != "" {
		inviteMailer = mail.NewResendMailer(mail.ResendMailerConfig{
			APIKey: c.config.ResendAPIKey,
			From:   c.config.ResendFrom,
		})
		log.Info().Msg("Invite mail via Resend enabled")
	} else {
		inviteMailer = mail.NewNoopMailer()
	}

	var paymentProvider domain.PaymentProvider
	if c.config.StripeSecretKey != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeConfig{
			SecretKey:     c.config.StripeSecretKey,
			WebhookSecret: c.config.StripeWebhookSecret,
			PriceIDs: map[domain.PlanType]string{
				domain.PlanPro:        c.config.StripePricePro,
				domain.PlanEnterprise: c.config.StripePriceEnterprise,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("creating Stripe provider: %w", err)
		}
		paymentProvider = stripeProvider
		log.Info().Msg("Stripe payment provider enabled")
	} else {
		paymentProvider = payments.NewStubProvider(idGenerator)
		log.Info().Msg("No Stripe secret key configured, using the stub payment provider")
	}

	var redisClient *redis.Client
	if c.config.RedisAddress != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: c.config.RedisAddress})
		log.Info().Str("redis_address", c.config.RedisAddress).Msg("Usage cache via Redis enabled")
	}

	providerRegistry := ai.NewRegistry(ai.RegistryDependencies{
		ProviderKeyStore: stores.providerKeys,
		Sealer:           sealer,
	})

	authManager := managers.NewAuthManager(managers.AuthManagerDependencies{
		UserStore:   stores.users,
		IDGenerator: idGenerator,
		TokenSecret: c.config.TokenSecret,
		TokenTTL:    c.config.TokenTTL,
	})

	organizationManager := managers.NewOrganizationManager(managers.OrganizationManagerDependencies{
		OrganizationStore: stores.organizations,
		UserStore:         stores.users,
		IDGenerator:       idGenerator,
		InviteMailer:      inviteMailer,
		AuditRecorder:     auditRecorder,
	})

	projectManager := managers.NewProjectManager(managers.ProjectManagerDependencies{
		ProjectStore:  stores.projects,
		IDGenerator:   idGenerator,
		AuditRecorder: auditRecorder,
	})

	promptManager := managers.NewPromptManager(managers.PromptManagerDependencies{
		PromptStore:   stores.prompts,
		ProjectStore:  stores.projects,
		IDGenerator:   idGenerator,
		AuditRecorder: auditRecorder,
	})

	chatManager := managers.NewChatManager(managers.ChatManagerDependencies{
		ChatSessionStore: stores.chatSessions,
		ProjectStore:     stores.projects,
		PromptStore:      stores.prompts,
		ProviderRegistry: providerRegistry,
		IDGenerator:      idGenerator,
		AuditRecorder:    auditRecorder,
	})

	experimentManager := managers.NewExperimentManager(managers.ExperimentManagerDependencies{
		ExperimentStore: stores.experiments,
		PromptStore:     stores.prompts,
		ProjectStore:    stores.projects,
		RunStore:        stores.runs,
		IDGenerator:     idGenerator,
		AuditRecorder:   auditRecorder,
	})

	runManager := managers.NewRunManager(managers.RunManagerDependencies{
		RunStore:        stores.runs,
		ProjectStore:    stores.projects,
		PromptStore:     stores.prompts,
		ExperimentStore: stores.experiments,
		IDGenerator:     idGenerator,
		EventDispatcher: webhookDispatcher,
	})

	apiKeyManager := managers.NewAPIKeyManager(managers.APIKeyManagerDependencies{
		APIKeyStore:   stores.apiKeys,
		IDGenerator:   idGenerator,
		AuditRecorder: auditRecorder,
	})

	pipelineManager := managers.NewPipelineManager(managers.PipelineManagerDependencies{
		PipelineStore:   stores.pipelines,
		ProjectStore:    stores.projects,
		RunStore:        stores.runs,
		APIKeyManager:   apiKeyManager,
		IDGenerator:     idGenerator,
		EventDispatcher: webhookDispatcher,
		AuditRecorder:   auditRecorder,
	})

	billingManager := managers.NewBillingManager(managers.BillingManagerDependencies{
		BillingStore:    stores.billing,
		RunStore:        stores.runs,
		UserStore:       stores.users,
		PaymentProvider: paymentProvider,
		RedisClient:     redisClient,
		IDGenerator:     idGenerator,
		EventDispatcher: webhookDispatcher,
		AuditRecorder:   auditRecorder,
	})

	providerKeyManager := managers.NewProviderKeyManager(managers.ProviderKeyManagerDependencies{
		ProviderKeyStore: stores.providerKeys,
		Sealer:           sealer,
		IDGenerator:      idGenerator,
		AuditRecorder:    auditRecorder,
	})

	templateManager := managers.NewTemplateManager(managers.TemplateManagerDependencies{
		TemplateStore: stores.templates,
		PromptStore:   stores.prompts,
		ProjectStore:  stores.projects,
		IDGenerator:   idGenerator,
		AuditRecorder: auditRecorder,
	})

	webhookManager := managers.NewWebhookManager(managers.WebhookManagerDependencies{
		WebhookStore:     stores.webhooks,
		WebhookDeliverer: webhookDispatcher,
		IDGenerator:      idGenerator,
		AuditRecorder:    auditRecorder,
	})

	auditManager := managers.NewAuditManager(managers.AuditManagerDependencies{
		AuditStore: stores.audit,
	})

	scheduleManager := managers.NewScheduleManager()

	serverDeps := server.HTTPServerDependencies{
		AuthController: controllers.NewAuthController(controllers.AuthControllerDependencies{
			AuthManager: authManager,
		}),
		OrganizationController: controllers.NewOrganizationController(controllers.OrganizationControllerDependencies{
			OrganizationManager: organizationManager,
		}),
		ProjectController: controllers.NewProjectController(controllers.ProjectControllerDependencies{
			ProjectManager: projectManager,
		}),
		PromptController: controllers.NewPromptController(controllers.PromptControllerDependencies{
			PromptManager: promptManager,
		}),
		ChatController: controllers.NewChatController(controllers.ChatControllerDependencies{
			ChatManager: chatManager,
		}),
		ExperimentController: controllers.NewExperimentController(controllers.ExperimentControllerDependencies{
			ExperimentManager: experimentManager,
		}),
		RunController: controllers.NewRunController(controllers.RunControllerDependencies{
			RunManager: runManager,
		}),
		PipelineController: controllers.NewPipelineController(controllers.PipelineControllerDependencies{
			PipelineManager: pipelineManager,
		}),
		BillingController: controllers.NewBillingController(controllers.BillingControllerDependencies{
			BillingManager: billingManager,
		}),
		ProviderKeyController: controllers.NewProviderKeyController(controllers.ProviderKeyControllerDependencies{
			ProviderKeyManager: providerKeyManager,
		}),
		APIKeyController: controllers.NewAPIKeyController(controllers.APIKeyControllerDependencies{
			APIKeyManager: apiKeyManager,
		}),
		TemplateController: controllers.NewTemplateController(controllers.TemplateControllerDependencies{
			TemplateManager: templateManager,
		}),
		WebhookController: controllers.NewWebhookController(controllers.WebhookControllerDependencies{
			WebhookManager: webhookManager,
		}),
		AuditController: controllers.NewAuditController(controllers.AuditControllerDependencies{
			AuditManager: auditManager,
		}),
		ScheduleController: controllers.NewScheduleController(controllers.ScheduleControllerDependencies{
			ScheduleManager: scheduleManager,
		}),

		AuthManager:         authManager,
		OrganizationManager: organizationManager,
		APIKeyManager:       apiKeyManager,
	}

	log.Info().Msg("Application dependencies built successfully")

	return &AppDependencies{
		ServerDependencies: serverDeps,
		AuditRecorder:      auditRecorder,
		WebhookDispatcher:  webhookDispatcher,
		Pool:               pool,
		RedisClient:        redisClient,
	}, nil
}

func (c *AppContainer) buildStores(ctx context.Context) (storeSet, *pgxpool.Pool, error) {
	if c.config.DatabaseURI == "" {
		log.Warn().Msg("No database URI configured, using the in-memory store; data will not survive restarts")

		store := memory.NewStore()
		if _, err := SeedTemplates(ctx, store); err != nil {
			return storeSet{}, nil, fmt.Errorf("seeding templates: %w", err)
		}

		return storeSet{
			users:         store,
			organizations: store,
			billing:       store,
			projects:      store,
			prompts:       store,
			experiments:   store,
			runs:          store,
			pipelines:     store,
			chatSessions:  store,
			templates:     store,
			apiKeys:       store,
			webhooks:      store,
			providerKeys:  store,
			audit:         store,
		}, nil, nil
	}

	pool, err := postgres.Connect(ctx, c.config.DatabaseURI)
	if err != nil {
		return storeSet{}, nil, fmt.Errorf("connecting to Postgres: %w", err)
	}

	return storeSet{
		users:         postgres.NewUserStore(pool),
		organizations: postgres.NewOrganizationStore(pool),
		billing:       postgres.NewBillingStore(pool),
		projects:      postgres.NewProjectStore(pool),
		prompts:       postgres.NewPromptStore(pool),
		experiments:   postgres.NewExperimentStore(pool),
		runs:          postgres.NewRunStore(pool),
		pipelines:     postgres.NewPipelineStore(pool),
		chatSessions:  postgres.NewChatSessionStore(pool),
		templates:     postgres.NewTemplateStore(pool),
		apiKeys:       postgres.NewAPIKeyStore(pool),
		webhooks:      postgres.NewWebhookStore(pool),
		providerKeys:  postgres.NewProviderKeyStore(pool),
		audit:         postgres.NewAuditStore(pool),
	}, pool, nil
}
