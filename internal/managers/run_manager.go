package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/metrics"
)

type runManager struct {
	runs        domain.RunStore
	projects    domain.ProjectStore
	prompts     domain.PromptStore
	experiments domain.ExperimentStore
	ids         domain.IDGenerator
	dispatcher  domain.EventDispatcher
}

type RunManagerDependencies struct {
	RunStore        domain.RunStore
	ProjectStore    domain.ProjectStore
	PromptStore     domain.PromptStore
	ExperimentStore domain.ExperimentStore
	IDGenerator     domain.IDGenerator
	EventDispatcher domain.EventDispatcher
}

func NewRunManager(deps RunManagerDependencies) domain.RunManager {
	return &runManager{
		runs:        deps.RunStore,
		projects:    deps.ProjectStore,
		prompts:     deps.PromptStore,
		experiments: deps.ExperimentStore,
		ids:         deps.IDGenerator,
		dispatcher:  eventDispatcherOrNoop(deps.EventDispatcher),
	}
}

func (m *runManager) RecordRun(ctx context.Context, params domain.RecordRunParams) (domain.Run, error) {
	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.Run{}, err
	}

	if err := m.validateReferences(ctx, params); err != nil {
		return domain.Run{}, err
	}

	run := domain.Run{
		ID:              m.ids.NewID(),
		ProjectID:       params.ProjectID,
		PromptID:        params.PromptID,
		PromptVersionID: params.PromptVersionID,
		ExperimentID:    params.ExperimentID,
		Model:           params.Model,
		Input:           params.Input,
		Output:          params.Output,
		TokensIn:        params.TokensIn,
		TokensOut:       params.TokensOut,
		Cost:            params.Cost,
		LatencyMS:       params.LatencyMS,
		Success:         params.Success,
		Flags:           params.Flags,
		CreatedAt:       time.Now(),
	}

	if err := m.runs.CreateRun(ctx, run); err != nil {
		return domain.Run{}, fmt.Errorf("failed to create run: %w", err)
	}

	metrics.RunsRecorded.Inc()

	m.dispatcher.Dispatch(domain.WebhookEvent{
		ID:             m.ids.NewID(),
		Type:           domain.EventRunRecorded,
		OrganizationID: params.OrganizationID,
		Data: map[string]any{
			"run_id":     run.ID,
			"project_id": run.ProjectID,
			"model":      run.Model,
			"success":    run.Success,
		},
		CreatedAt: run.CreatedAt,
	})

	return run, nil
}

func (m *runManager) GetRun(ctx context.Context, organizationID, runID string) (domain.Run, error) {
	run, err := m.runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return domain.Run{}, domain.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("failed to get run: %w", err)
	}

	if _, err := requireProject(ctx, m.projects, organizationID, run.ProjectID); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Run{}, domain.ErrRunNotFound
		}
		return domain.Run{}, err
	}

	return run, nil
}

func (m *runManager) ListRuns(ctx context.Context, organizationID string, filter domain.RunFilter) ([]domain.Run, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, filter.ProjectID); err != nil {
		return nil, err
	}

	runs, err := m.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

func (m *runManager) GetStats(ctx context.Context, organizationID string, filter domain.RunFilter) (domain.RunStats, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, filter.ProjectID); err != nil {
		return domain.RunStats{}, err
	}

	stats, err := m.runs.GetRunStats(ctx, filter)
	if err != nil {
		return domain.RunStats{}, fmt.Errorf("failed to get run stats: %w", err)
	}

	return stats, nil
}

// validateReferences checks the optional prompt, version and experiment
// refs against the run's project. Experiments must be running to accept
// runs.
func (m *runManager) validateReferences(ctx context.Context, params domain.RecordRunParams) error {
	if params.PromptID != "" {
		prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
		if err != nil {
			return err
		}
		if prompt.ProjectID != params.ProjectID {
			return domain.ErrPromptNotFound
		}
	}

	if params.PromptVersionID != "" {
		if params.PromptID == "" {
			return domain.ErrPromptVersionNotFound
		}
		version, err := m.prompts.GetPromptVersion(ctx, params.PromptVersionID)
		if err != nil {
			if errors.Is(err, domain.ErrPromptVersionNotFound) {
				return domain.ErrPromptVersionNotFound
			}
			return fmt.Errorf("failed to get prompt version: %w", err)
		}
		if version.PromptID != params.PromptID {
			return domain.ErrPromptVersionNotFound
		}
	}

	if params.ExperimentID != "" {
		experiment, err := m.experiments.GetExperiment(ctx, params.ExperimentID)
		if err != nil {
			if errors.Is(err, domain.ErrExperimentNotFound) {
				return domain.ErrExperimentNotFound
			}
			return fmt.Errorf("failed to get experiment: %w", err)
		}
		if experiment.ProjectID != params.ProjectID {
			return domain.ErrExperimentNotFound
		}
		if !experiment.IsRunning() {
			return domain.ErrExperimentNotRunning
		}
	}

	return nil
}
