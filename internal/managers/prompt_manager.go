package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type promptManager struct {
	prompts  domain.PromptStore
	projects domain.ProjectStore
	ids      domain.IDGenerator
	audit    domain.AuditRecorder
}

type PromptManagerDependencies struct {
	PromptStore   domain.PromptStore
	ProjectStore  domain.ProjectStore
	IDGenerator   domain.IDGenerator
	AuditRecorder domain.AuditRecorder
}

func NewPromptManager(deps PromptManagerDependencies) domain.PromptManager {
	return &promptManager{
		prompts:  deps.PromptStore,
		projects: deps.ProjectStore,
		ids:      deps.IDGenerator,
		audit:    auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *promptManager) CreatePrompt(ctx context.Context, params domain.CreatePromptParams) (domain.Prompt, error) {
	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.Prompt{}, err
	}

	now := time.Now()

	version := domain.PromptVersion{
		ID:          m.ids.NewID(),
		Version:     1,
		Content:     params.Content,
		Variables:   params.Variables,
		ModelConfig: params.ModelConfig,
		CreatedAt:   now,
	}

	prompt := domain.Prompt{
		ID:               m.ids.NewID(),
		ProjectID:        params.ProjectID,
		Name:             params.Name,
		Description:      params.Description,
		CurrentVersionID: version.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	version.PromptID = prompt.ID

	if err := m.prompts.CreatePromptWithVersion(ctx, prompt, version); err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to create prompt: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "prompt.created",
		ResourceType:   "prompt",
		ResourceID:     prompt.ID,
	})

	return prompt, nil
}

func (m *promptManager) GetPrompt(ctx context.Context, organizationID, promptID string) (domain.Prompt, error) {
	return requirePrompt(ctx, m.prompts, m.projects, organizationID, promptID)
}

func (m *promptManager) ListPrompts(ctx context.Context, organizationID, projectID string) ([]domain.Prompt, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, projectID); err != nil {
		return nil, err
	}

	prompts, err := m.prompts.ListPromptsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	return prompts, nil
}

func (m *promptManager) UpdatePrompt(ctx context.Context, params domain.UpdatePromptParams) (domain.Prompt, error) {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
	if err != nil {
		return domain.Prompt{}, err
	}

	if params.Name != "" {
		prompt.Name = params.Name
	}
	if params.Description != "" {
		prompt.Description = params.Description
	}
	prompt.UpdatedAt = time.Now()

	if err := m.prompts.UpdatePrompt(ctx, prompt); err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to update prompt: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "prompt.updated",
		ResourceType:   "prompt",
		ResourceID:     prompt.ID,
	})

	return prompt, nil
}

func (m *promptManager) DeletePrompt(ctx context.Context, organizationID, actorID, promptID string) error {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, organizationID, promptID)
	if err != nil {
		return err
	}

	if err := m.prompts.DeletePrompt(ctx, prompt.ID); err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "prompt.deleted",
		ResourceType:   "prompt",
		ResourceID:     prompt.ID,
	})

	return nil
}

func (m *promptManager) CreateVersion(ctx context.Context, params domain.CreatePromptVersionParams) (domain.PromptVersion, error) {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
	if err != nil {
		return domain.PromptVersion{}, err
	}

	version := domain.PromptVersion{
		ID:          m.ids.NewID(),
		PromptID:    prompt.ID,
		Content:     params.Content,
		Variables:   params.Variables,
		ModelConfig: params.ModelConfig,
		CreatedAt:   time.Now(),
	}

	created, err := m.appendVersion(ctx, prompt, version)
	if err != nil {
		return domain.PromptVersion{}, err
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "prompt.version_created",
		ResourceType:   "prompt_version",
		ResourceID:     created.ID,
	})

	return created, nil
}

func (m *promptManager) GetVersion(ctx context.Context, organizationID, promptID, versionID string) (domain.PromptVersion, error) {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, organizationID, promptID)
	if err != nil {
		return domain.PromptVersion{}, err
	}

	version, err := m.prompts.GetPromptVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, domain.ErrPromptVersionNotFound) {
			return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
		}
		return domain.PromptVersion{}, fmt.Errorf("failed to get prompt version: %w", err)
	}

	if version.PromptID != prompt.ID {
		return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
	}

	return version, nil
}

func (m *promptManager) ListVersions(ctx context.Context, organizationID, promptID string) ([]domain.PromptVersion, error) {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, organizationID, promptID)
	if err != nil {
		return nil, err
	}

	versions, err := m.prompts.ListPromptVersions(ctx, prompt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt versions: %w", err)
	}

	return versions, nil
}

func (m *promptManager) RestoreVersion(ctx context.Context, params domain.RestorePromptVersionParams) (domain.PromptVersion, error) {
	prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
	if err != nil {
		return domain.PromptVersion{}, err
	}

	source, err := m.prompts.GetPromptVersion(ctx, params.VersionID)
	if err != nil {
		if errors.Is(err, domain.ErrPromptVersionNotFound) {
			return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
		}
		return domain.PromptVersion{}, fmt.Errorf("failed to get prompt version: %w", err)
	}
	if source.PromptID != prompt.ID {
		return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
	}

	restored := domain.PromptVersion{
		ID:          m.ids.NewID(),
		PromptID:    prompt.ID,
		Content:     source.Content,
		Variables:   source.Variables,
		ModelConfig: source.ModelConfig,
		CreatedAt:   time.Now(),
	}

	created, err := m.appendVersion(ctx, prompt, restored)
	if err != nil {
		return domain.PromptVersion{}, err
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "prompt.version_restored",
		ResourceType:   "prompt_version",
		ResourceID:     created.ID,
		Metadata:       map[string]any{"restored_from": source.ID},
	})

	return created, nil
}

// appendVersion writes a new head version with the next sequential
// number and moves the prompt's current version pointer to it.
func (m *promptManager) appendVersion(ctx context.Context, prompt domain.Prompt, version domain.PromptVersion) (domain.PromptVersion, error) {
	latest, err := m.prompts.LatestVersionNumber(ctx, prompt.ID)
	if err != nil {
		return domain.PromptVersion{}, fmt.Errorf("failed to get latest version number: %w", err)
	}
	version.Version = latest + 1

	if err := m.prompts.CreatePromptVersion(ctx, version); err != nil {
		return domain.PromptVersion{}, fmt.Errorf("failed to create prompt version: %w", err)
	}

	prompt.CurrentVersionID = version.ID
	prompt.UpdatedAt = time.Now()

	if err := m.prompts.UpdatePrompt(ctx, prompt); err != nil {
		return domain.PromptVersion{}, fmt.Errorf("failed to move current version pointer: %w", err)
	}

	return version, nil
}
