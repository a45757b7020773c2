package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestRunManager(f *fixture, dispatcher domain.EventDispatcher) domain.RunManager {
	return NewRunManager(RunManagerDependencies{
		RunStore:        f.store,
		ProjectStore:    f.store,
		PromptStore:     f.store,
		ExperimentStore: f.store,
		IDGenerator:     f.ids,
		EventDispatcher: dispatcher,
	})
}

func TestRunManager_RecordRun(t *testing.T) {
	f := newFixture(t)
	events := &eventSink{}
	manager := newTestRunManager(f, events)
	ctx := context.Background()

	prompt, version := f.addPrompt(t, f.project.ID)

	run, err := manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:       f.project.ID,
		OrganizationID:  f.org.ID,
		PromptID:        prompt.ID,
		PromptVersionID: version.ID,
		Model:           "gpt-4o",
		Input:           map[string]any{"text": "hello"},
		Output:          map[string]any{"summary": "hi"},
		TokensIn:        120,
		TokensOut:       30,
		Cost:            0.0021,
		LatencyMS:       480,
		Success:         true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	stored, err := manager.GetRun(ctx, f.org.ID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), stored.TokensIn)

	dispatched := events.Events()
	require.Len(t, dispatched, 1)
	assert.Equal(t, domain.EventRunRecorded, dispatched[0].Type)
	assert.Equal(t, f.org.ID, dispatched[0].OrganizationID)
	assert.Equal(t, run.ID, dispatched[0].Data["run_id"])
}

func TestRunManager_RecordRunValidatesReferences(t *testing.T) {
	f := newFixture(t)
	manager := newTestRunManager(f, nil)
	ctx := context.Background()

	_, version := f.addPrompt(t, f.project.ID)
	otherPrompt, _ := f.addPrompt(t, f.project.ID)

	_, err := manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		PromptID:       "missing",
		Model:          "gpt-4o",
	})
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)

	// A version ref without its prompt ref is rejected.
	_, err = manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:       f.project.ID,
		OrganizationID:  f.org.ID,
		PromptVersionID: version.ID,
		Model:           "gpt-4o",
	})
	assert.ErrorIs(t, err, domain.ErrPromptVersionNotFound)

	// A version belonging to another prompt is rejected.
	_, err = manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:       f.project.ID,
		OrganizationID:  f.org.ID,
		PromptID:        otherPrompt.ID,
		PromptVersionID: version.ID,
		Model:           "gpt-4o",
	})
	assert.ErrorIs(t, err, domain.ErrPromptVersionNotFound)
}

func TestRunManager_RecordRunRequiresRunningExperiment(t *testing.T) {
	f := newFixture(t)
	manager := newTestRunManager(f, nil)
	ctx := context.Background()

	prompt, version := f.addPrompt(t, f.project.ID)

	experiment := domain.Experiment{
		ID:        f.ids.NewID(),
		ProjectID: f.project.ID,
		PromptID:  prompt.ID,
		Status:    domain.ExperimentStatusDraft,
		Variants:  []domain.ExperimentVariant{{PromptVersionID: version.ID}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.store.CreateExperiment(ctx, experiment))

	_, err := manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:       f.project.ID,
		OrganizationID:  f.org.ID,
		PromptID:        prompt.ID,
		PromptVersionID: version.ID,
		ExperimentID:    experiment.ID,
		Model:           "gpt-4o",
	})
	assert.ErrorIs(t, err, domain.ErrExperimentNotRunning)

	experiment.Status = domain.ExperimentStatusRunning
	require.NoError(t, f.store.UpdateExperiment(ctx, experiment))

	_, err = manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:       f.project.ID,
		OrganizationID:  f.org.ID,
		PromptID:        prompt.ID,
		PromptVersionID: version.ID,
		ExperimentID:    experiment.ID,
		Model:           "gpt-4o",
		Success:         true,
	})
	require.NoError(t, err)
}

func TestRunManager_GetRunMasksCrossTenant(t *testing.T) {
	f := newFixture(t)
	manager := newTestRunManager(f, nil)
	ctx := context.Background()

	run, err := manager.RecordRun(ctx, domain.RecordRunParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		Model:          "gpt-4o",
		Success:        true,
	})
	require.NoError(t, err)

	other := f.addOrganization(t, "Other", f.user.ID)

	_, err = manager.GetRun(ctx, other.ID, run.ID)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunManager_ListAndStats(t *testing.T) {
	f := newFixture(t)
	manager := newTestRunManager(f, nil)
	ctx := context.Background()

	for _, success := range []bool{true, true, false} {
		_, err := manager.RecordRun(ctx, domain.RecordRunParams{
			ProjectID:      f.project.ID,
			OrganizationID: f.org.ID,
			Model:          "gpt-4o",
			TokensIn:       100,
			TokensOut:      20,
			LatencyMS:      200,
			Success:        success,
		})
		require.NoError(t, err)
	}

	runs, err := manager.ListRuns(ctx, f.org.ID, domain.RunFilter{ProjectID: f.project.ID})
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	stats, err := manager.GetStats(ctx, f.org.ID, domain.RunFilter{ProjectID: f.project.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(300), stats.TokensIn)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate(), 0.001)

	// Another tenant cannot query this project's runs.
	other := f.addOrganization(t, "Other", f.user.ID)
	_, err = manager.ListRuns(ctx, other.ID, domain.RunFilter{ProjectID: f.project.ID})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
