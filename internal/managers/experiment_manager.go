package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const minExperimentVariants = 2

type experimentManager struct {
	experiments domain.ExperimentStore
	prompts     domain.PromptStore
	projects    domain.ProjectStore
	runs        domain.RunStore
	ids         domain.IDGenerator
	audit       domain.AuditRecorder
}

type ExperimentManagerDependencies struct {
	ExperimentStore domain.ExperimentStore
	PromptStore     domain.PromptStore
	ProjectStore    domain.ProjectStore
	RunStore        domain.RunStore
	IDGenerator     domain.IDGenerator
	AuditRecorder   domain.AuditRecorder
}

func NewExperimentManager(deps ExperimentManagerDependencies) domain.ExperimentManager {
	return &experimentManager{
		experiments: deps.ExperimentStore,
		prompts:     deps.PromptStore,
		projects:    deps.ProjectStore,
		runs:        deps.RunStore,
		ids:         deps.IDGenerator,
		audit:       auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *experimentManager) CreateExperiment(ctx context.Context, params domain.CreateExperimentParams) (domain.Experiment, error) {
	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.Experiment{}, err
	}

	prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
	if err != nil {
		return domain.Experiment{}, err
	}
	if prompt.ProjectID != params.ProjectID {
		return domain.Experiment{}, domain.ErrPromptNotFound
	}

	if err := m.validateVariants(ctx, prompt.ID, params.Variants); err != nil {
		return domain.Experiment{}, err
	}

	now := time.Now()

	experiment := domain.Experiment{
		ID:        m.ids.NewID(),
		ProjectID: params.ProjectID,
		PromptID:  params.PromptID,
		Name:      params.Name,
		Status:    domain.ExperimentStatusDraft,
		Variants:  params.Variants,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.experiments.CreateExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to create experiment: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "experiment.created",
		ResourceType:   "experiment",
		ResourceID:     experiment.ID,
	})

	return experiment, nil
}

func (m *experimentManager) GetExperiment(ctx context.Context, organizationID, experimentID string) (domain.Experiment, error) {
	return m.requireExperiment(ctx, organizationID, experimentID)
}

func (m *experimentManager) ListExperiments(ctx context.Context, organizationID, projectID string) ([]domain.Experiment, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, projectID); err != nil {
		return nil, err
	}

	experiments, err := m.experiments.ListExperimentsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	return experiments, nil
}

func (m *experimentManager) UpdateExperiment(ctx context.Context, params domain.UpdateExperimentParams) (domain.Experiment, error) {
	experiment, err := m.requireExperiment(ctx, params.OrganizationID, params.ExperimentID)
	if err != nil {
		return domain.Experiment{}, err
	}

	if params.Name != "" {
		experiment.Name = params.Name
	}

	if params.Variants != nil {
		if experiment.Status != domain.ExperimentStatusDraft {
			return domain.Experiment{}, domain.ErrExperimentLocked
		}
		if err := m.validateVariants(ctx, experiment.PromptID, params.Variants); err != nil {
			return domain.Experiment{}, err
		}
		experiment.Variants = params.Variants
	}

	experiment.UpdatedAt = time.Now()

	if err := m.experiments.UpdateExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to update experiment: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "experiment.updated",
		ResourceType:   "experiment",
		ResourceID:     experiment.ID,
	})

	return experiment, nil
}

func (m *experimentManager) DeleteExperiment(ctx context.Context, organizationID, actorID, experimentID string) error {
	experiment, err := m.requireExperiment(ctx, organizationID, experimentID)
	if err != nil {
		return err
	}

	if err := m.experiments.DeleteExperiment(ctx, experiment.ID); err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "experiment.deleted",
		ResourceType:   "experiment",
		ResourceID:     experiment.ID,
	})

	return nil
}

func (m *experimentManager) StartExperiment(ctx context.Context, organizationID, actorID, experimentID string) (domain.Experiment, error) {
	experiment, err := m.requireExperiment(ctx, organizationID, experimentID)
	if err != nil {
		return domain.Experiment{}, err
	}

	switch experiment.Status {
	case domain.ExperimentStatusRunning:
		return experiment, nil
	case domain.ExperimentStatusCompleted:
		return domain.Experiment{}, domain.ErrExperimentCompleted
	}

	if len(experiment.Variants) < minExperimentVariants {
		return domain.Experiment{}, domain.ErrInsufficientVariants
	}

	experiment.Status = domain.ExperimentStatusRunning
	experiment.UpdatedAt = time.Now()

	if err := m.experiments.UpdateExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to start experiment: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "experiment.started",
		ResourceType:   "experiment",
		ResourceID:     experiment.ID,
	})

	return experiment, nil
}

func (m *experimentManager) CompleteExperiment(ctx context.Context, organizationID, actorID, experimentID string) (domain.Experiment, error) {
	experiment, err := m.requireExperiment(ctx, organizationID, experimentID)
	if err != nil {
		return domain.Experiment{}, err
	}

	if !experiment.IsRunning() {
		return domain.Experiment{}, domain.ErrExperimentNotRunning
	}

	experiment.Status = domain.ExperimentStatusCompleted
	experiment.UpdatedAt = time.Now()

	if err := m.experiments.UpdateExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("failed to complete experiment: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "experiment.completed",
		ResourceType:   "experiment",
		ResourceID:     experiment.ID,
	})

	return experiment, nil
}

func (m *experimentManager) GetResults(ctx context.Context, organizationID, experimentID string) ([]domain.VariantStats, error) {
	experiment, err := m.requireExperiment(ctx, organizationID, experimentID)
	if err != nil {
		return nil, err
	}

	stats, err := m.runs.GetVariantStats(ctx, experiment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}

	return stats, nil
}

func (m *experimentManager) requireExperiment(ctx context.Context, organizationID, experimentID string) (domain.Experiment, error) {
	experiment, err := m.experiments.GetExperiment(ctx, experimentID)
	if err != nil {
		if errors.Is(err, domain.ErrExperimentNotFound) {
			return domain.Experiment{}, domain.ErrExperimentNotFound
		}
		return domain.Experiment{}, fmt.Errorf("failed to get experiment: %w", err)
	}

	if _, err := requireProject(ctx, m.projects, organizationID, experiment.ProjectID); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Experiment{}, domain.ErrExperimentNotFound
		}
		return domain.Experiment{}, err
	}

	return experiment, nil
}

// validateVariants checks that every variant points at a version of the
// experiment's prompt.
func (m *experimentManager) validateVariants(ctx context.Context, promptID string, variants []domain.ExperimentVariant) error {
	for _, variant := range variants {
		version, err := m.prompts.GetPromptVersion(ctx, variant.PromptVersionID)
		if err != nil {
			if errors.Is(err, domain.ErrPromptVersionNotFound) {
				return domain.ErrPromptVersionNotFound
			}
			return fmt.Errorf("failed to get prompt version: %w", err)
		}
		if version.PromptID != promptID {
			return domain.ErrPromptVersionNotFound
		}
	}

	return nil
}
