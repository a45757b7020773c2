package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type templateManager struct {
	templates domain.TemplateStore
	prompts   domain.PromptStore
	projects  domain.ProjectStore
	ids       domain.IDGenerator
	audit     domain.AuditRecorder
}

type TemplateManagerDependencies struct {
	TemplateStore domain.TemplateStore
	PromptStore   domain.PromptStore
	ProjectStore  domain.ProjectStore
	IDGenerator   domain.IDGenerator
	AuditRecorder domain.AuditRecorder
}

func NewTemplateManager(deps TemplateManagerDependencies) domain.TemplateManager {
	return &templateManager{
		templates: deps.TemplateStore,
		prompts:   deps.PromptStore,
		projects:  deps.ProjectStore,
		ids:       deps.IDGenerator,
		audit:     auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *templateManager) ListTemplates(ctx context.Context, category string) ([]domain.Template, error) {
	templates, err := m.templates.ListTemplates(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

func (m *templateManager) GetTemplate(ctx context.Context, templateID string) (domain.Template, error) {
	template, err := m.templates.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return domain.Template{}, domain.ErrTemplateNotFound
		}
		return domain.Template{}, fmt.Errorf("failed to get template: %w", err)
	}

	return template, nil
}

func (m *templateManager) InstallTemplate(ctx context.Context, params domain.InstallTemplateParams) (domain.Prompt, error) {
	template, err := m.GetTemplate(ctx, params.TemplateID)
	if err != nil {
		return domain.Prompt{}, err
	}

	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.Prompt{}, err
	}

	name := params.Name
	if name == "" {
		name = template.Name
	}

	now := time.Now()

	version := domain.PromptVersion{
		ID:        m.ids.NewID(),
		Version:   1,
		Content:   template.Content,
		Variables: template.Variables,
		CreatedAt: now,
	}

	prompt := domain.Prompt{
		ID:               m.ids.NewID(),
		ProjectID:        params.ProjectID,
		Name:             name,
		Description:      template.Description,
		CurrentVersionID: version.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	version.PromptID = prompt.ID

	if err := m.prompts.CreatePromptWithVersion(ctx, prompt, version); err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to install template: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "template.installed",
		ResourceType:   "prompt",
		ResourceID:     prompt.ID,
		Metadata:       map[string]any{"template_id": template.ID},
	})

	return prompt, nil
}
