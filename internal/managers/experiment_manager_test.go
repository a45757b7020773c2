package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestExperimentManager(f *fixture) domain.ExperimentManager {
	return NewExperimentManager(ExperimentManagerDependencies{
		ExperimentStore: f.store,
		PromptStore:     f.store,
		ProjectStore:    f.store,
		RunStore:        f.store,
		IDGenerator:     f.ids,
	})
}

// addVersion appends another stored version to a prompt without touching
// its head.
func (f *fixture) addVersion(t *testing.T, promptID string, number int) domain.PromptVersion {
	t.Helper()

	version := domain.PromptVersion{
		ID:        f.ids.NewID(),
		PromptID:  promptID,
		Version:   number,
		Content:   "variant content",
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.CreatePromptVersion(context.Background(), version))

	return version
}

func TestExperimentManager_CreateExperiment(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	v2 := f.addVersion(t, prompt.ID, 2)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID, Weight: 50},
			{PromptVersionID: v2.ID, Weight: 50},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusDraft, experiment.Status)
	assert.Len(t, experiment.Variants, 2)
}

func TestExperimentManager_CreateRejectsForeignVariant(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	_, foreign := f.addPrompt(t, f.project.ID)

	_, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID},
			{PromptVersionID: foreign.ID},
		},
	})
	assert.ErrorIs(t, err, domain.ErrPromptVersionNotFound)
}

func TestExperimentManager_StartLifecycle(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	v2 := f.addVersion(t, prompt.ID, 2)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID},
			{PromptVersionID: v2.ID},
		},
	})
	require.NoError(t, err)

	started, err := manager.StartExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusRunning, started.Status)

	// Starting again is a no-op.
	again, err := manager.StartExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusRunning, again.Status)

	completed, err := manager.CompleteExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusCompleted, completed.Status)

	_, err = manager.StartExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	assert.ErrorIs(t, err, domain.ErrExperimentCompleted)

	_, err = manager.CompleteExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	assert.ErrorIs(t, err, domain.ErrExperimentNotRunning)
}

func TestExperimentManager_StartRequiresTwoVariants(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Solo",
		Variants:       []domain.ExperimentVariant{{PromptVersionID: v1.ID}},
	})
	require.NoError(t, err)

	_, err = manager.StartExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientVariants)
}

func TestExperimentManager_VariantsLockedAfterStart(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	v2 := f.addVersion(t, prompt.ID, 2)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID},
			{PromptVersionID: v2.ID},
		},
	})
	require.NoError(t, err)

	_, err = manager.StartExperiment(ctx, f.org.ID, f.user.ID, experiment.ID)
	require.NoError(t, err)

	_, err = manager.UpdateExperiment(ctx, domain.UpdateExperimentParams{
		ExperimentID:   experiment.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Variants:       []domain.ExperimentVariant{{PromptVersionID: v1.ID}, {PromptVersionID: v2.ID}},
	})
	assert.ErrorIs(t, err, domain.ErrExperimentLocked)

	// Renaming stays allowed while running.
	renamed, err := manager.UpdateExperiment(ctx, domain.UpdateExperimentParams{
		ExperimentID:   experiment.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "Tone test v2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tone test v2", renamed.Name)
}

func TestExperimentManager_GetResultsAggregatesPerVariant(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	v2 := f.addVersion(t, prompt.ID, 2)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID},
			{PromptVersionID: v2.ID},
		},
	})
	require.NoError(t, err)

	for i, seed := range []struct {
		versionID string
		success   bool
		latency   int64
	}{
		{v1.ID, true, 100},
		{v1.ID, false, 300},
		{v2.ID, true, 50},
	} {
		require.NoError(t, f.store.CreateRun(ctx, domain.Run{
			ID:              f.ids.NewID(),
			ProjectID:       f.project.ID,
			PromptID:        prompt.ID,
			PromptVersionID: seed.versionID,
			ExperimentID:    experiment.ID,
			Model:           "gpt-4o",
			TokensIn:        10,
			TokensOut:       5,
			LatencyMS:       seed.latency,
			Success:         seed.success,
			CreatedAt:       time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	results, err := manager.GetResults(ctx, f.org.ID, experiment.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byVersion := make(map[string]domain.VariantStats, len(results))
	for _, stats := range results {
		byVersion[stats.PromptVersionID] = stats
	}

	first := byVersion[v1.ID]
	assert.Equal(t, int64(2), first.Count)
	assert.Equal(t, int64(1), first.SuccessCount)
	assert.InDelta(t, 200.0, first.AvgLatencyMS, 0.001)

	second := byVersion[v2.ID]
	assert.Equal(t, int64(1), second.Count)
	assert.Equal(t, int64(1), second.SuccessCount)
}

func TestExperimentManager_CrossTenantMaskedAsNotFound(t *testing.T) {
	f := newFixture(t)
	manager := newTestExperimentManager(f)
	ctx := context.Background()

	prompt, v1 := f.addPrompt(t, f.project.ID)
	v2 := f.addVersion(t, prompt.ID, 2)

	experiment, err := manager.CreateExperiment(ctx, domain.CreateExperimentParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		PromptID:       prompt.ID,
		Name:           "Tone test",
		Variants: []domain.ExperimentVariant{
			{PromptVersionID: v1.ID},
			{PromptVersionID: v2.ID},
		},
	})
	require.NoError(t, err)

	other := f.addOrganization(t, "Other", f.user.ID)

	_, err = manager.GetExperiment(ctx, other.ID, experiment.ID)
	assert.ErrorIs(t, err, domain.ErrExperimentNotFound)
}
