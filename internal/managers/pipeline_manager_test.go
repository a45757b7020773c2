package managers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestPipelineManager(f *fixture, dispatcher domain.EventDispatcher) domain.PipelineManager {
	apiKeys := NewAPIKeyManager(APIKeyManagerDependencies{
		APIKeyStore: f.store,
		IDGenerator: f.ids,
	})
	return NewPipelineManager(PipelineManagerDependencies{
		PipelineStore:   f.store,
		ProjectStore:    f.store,
		RunStore:        f.store,
		APIKeyManager:   apiKeys,
		IDGenerator:     f.ids,
		EventDispatcher: dispatcher,
	})
}

func validGraph() map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{"id": "in", "type": "input"},
			map[string]any{"id": "llm", "type": "llm"},
			map[string]any{"id": "out", "type": "output"},
		},
		"edges": []any{
			map[string]any{"source": "in", "target": "llm"},
			map[string]any{"source": "llm", "target": "out"},
		},
	}
}

func cyclicGraph() map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{"id": "a", "type": "llm"},
			map[string]any{"id": "b", "type": "llm"},
		},
		"edges": []any{
			map[string]any{"source": "a", "target": "b"},
			map[string]any{"source": "b", "target": "a"},
		},
	}
}

func (f *fixture) addPipeline(t *testing.T, manager domain.PipelineManager, graph map[string]any) domain.Pipeline {
	t.Helper()

	pipeline, err := manager.CreatePipeline(context.Background(), domain.CreatePipelineParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "Support triage",
		Graph:          graph,
	})
	require.NoError(t, err)

	return pipeline
}

func (f *fixture) issueAPIKey(t *testing.T, organizationID string) domain.CreatedAPIKey {
	t.Helper()

	apiKeys := NewAPIKeyManager(APIKeyManagerDependencies{
		APIKeyStore: f.store,
		IDGenerator: f.ids,
	})
	created, err := apiKeys.CreateAPIKey(context.Background(), domain.CreateAPIKeyParams{
		OrganizationID: organizationID,
		ActorID:        f.user.ID,
		Name:           "prod",
	})
	require.NoError(t, err)

	return created
}

func TestPipelineManager_DraftsAcceptInvalidGraphs(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, cyclicGraph())
	assert.Equal(t, domain.PipelineStatusDraft, pipeline.Status)

	validation, err := manager.ValidatePipeline(ctx, f.org.ID, pipeline.ID)
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	assert.Contains(t, validation.Errors, "Pipeline graph contains cycles")
}

func TestPipelineManager_PublishGatesOnValidation(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, cyclicGraph())

	_, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	assert.ErrorIs(t, err, domain.ErrPipelineInvalid)

	stored, err := manager.GetPipeline(ctx, f.org.ID, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineStatusDraft, stored.Status)
	assert.Empty(t, stored.EndpointSlug)
}

func TestPipelineManager_PublishMintsSlugOnce(t *testing.T) {
	f := newFixture(t)
	events := &eventSink{}
	manager := newTestPipelineManager(f, events)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())

	published, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineStatusPublished, published.Status)
	assert.NotEmpty(t, published.EndpointSlug)

	// Publishing again is a no-op.
	again, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, published.EndpointSlug, again.EndpointSlug)

	unpublished, err := manager.UnpublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineStatusDraft, unpublished.Status)
	assert.Equal(t, published.EndpointSlug, unpublished.EndpointSlug)

	republished, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, published.EndpointSlug, republished.EndpointSlug)

	var publishes int
	for _, event := range events.Events() {
		if event.Type == domain.EventPipelinePublished {
			publishes++
		}
	}
	assert.Equal(t, 2, publishes)
}

func TestPipelineManager_ExecuteSimulatesNodes(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())

	result, err := manager.ExecutePipeline(ctx, domain.ExecutePipelineParams{
		PipelineID:     pipeline.ID,
		OrganizationID: f.org.ID,
		Input:          map[string]any{"ticket": "printer on fire"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.NodeResults, 3)
	assert.Equal(t, "in", result.NodeResults[0].NodeID)
	assert.Contains(t, result.NodeResults[0].Output, "Processed by input node with input:")
	assert.Contains(t, result.NodeResults[0].Output, `"ticket":"printer on fire"`)

	assert.Equal(t, "out", result.Output["node_id"])
	assert.Equal(t, "output", result.Output["type"])

	// Execution leaves an analytics run behind.
	runs, err := f.store.ListRuns(ctx, domain.RunFilter{ProjectID: f.project.ID})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "pipeline", runs[0].Model)
	assert.Equal(t, pipeline.ID, runs[0].Flags["pipeline_id"])
}

func TestPipelineManager_ExecuteEmptyPipeline(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, map[string]any{"nodes": []any{}, "edges": []any{}})

	result, err := manager.ExecutePipeline(ctx, domain.ExecutePipelineParams{
		PipelineID:     pipeline.ID,
		OrganizationID: f.org.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.NodeResults)
	assert.Equal(t, "Pipeline executed successfully", result.Output["message"])
}

func TestPipelineManager_ExecutePublishedPipeline(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())
	published, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)

	key := f.issueAPIKey(t, f.org.ID)

	result, err := manager.ExecutePublishedPipeline(ctx, published.EndpointSlug, map[string]any{"q": "hi"}, key.Token)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.NodeResults, 3)
}

func TestPipelineManager_ExecutePublishedRejectsInvalidKey(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())
	published, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)

	result, err := manager.ExecutePublishedPipeline(ctx, published.EndpointSlug, nil, "pd_forged")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, map[string]any{"error": "invalid API key"}, result.Output)
	assert.Empty(t, result.NodeResults)
}

func TestPipelineManager_ExecutePublishedHidesDrafts(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())
	published, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)
	_, err = manager.UnpublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)

	key := f.issueAPIKey(t, f.org.ID)

	result, err := manager.ExecutePublishedPipeline(ctx, published.EndpointSlug, nil, key.Token)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, map[string]any{"error": "pipeline not found"}, result.Output)
}

func TestPipelineManager_ExecutePublishedHidesForeignTenant(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())
	published, err := manager.PublishPipeline(ctx, f.org.ID, f.user.ID, pipeline.ID)
	require.NoError(t, err)

	// A key from another organization sees the same answer as a missing
	// pipeline.
	other := f.addOrganization(t, "Other", f.user.ID)
	foreignKey := f.issueAPIKey(t, other.ID)

	result, err := manager.ExecutePublishedPipeline(ctx, published.EndpointSlug, nil, foreignKey.Token)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, map[string]any{"error": "pipeline not found"}, result.Output)
}

func TestPipelineManager_UpdateKeepsGraphWhenNil(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())

	updated, err := manager.UpdatePipeline(ctx, domain.UpdatePipelineParams{
		PipelineID:     pipeline.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, pipeline.Graph, updated.Graph)
}

func TestPipelineManager_CrossTenantMaskedAsNotFound(t *testing.T) {
	f := newFixture(t)
	manager := newTestPipelineManager(f, nil)
	ctx := context.Background()

	pipeline := f.addPipeline(t, manager, validGraph())
	other := f.addOrganization(t, "Other", f.user.ID)

	_, err := manager.GetPipeline(ctx, other.ID, pipeline.ID)
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)

	_, err = manager.ExecutePipeline(ctx, domain.ExecutePipelineParams{
		PipelineID:     pipeline.ID,
		OrganizationID: other.ID,
	})
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
}
