package managers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/metrics"
	"github.com/promptdeck/promptdeck/pkg/graph"
)

const simulatedNodeDurationMS = 5

const (
	executionStatusSuccess    = "success"
	executionStatusInvalidKey = "invalid_key"
	executionStatusNotFound   = "not_found"
)

type pipelineManager struct {
	pipelines  domain.PipelineStore
	projects   domain.ProjectStore
	runs       domain.RunStore
	apiKeys    domain.APIKeyManager
	ids        domain.IDGenerator
	dispatcher domain.EventDispatcher
	audit      domain.AuditRecorder
}

type PipelineManagerDependencies struct {
	PipelineStore   domain.PipelineStore
	ProjectStore    domain.ProjectStore
	RunStore        domain.RunStore
	APIKeyManager   domain.APIKeyManager
	IDGenerator     domain.IDGenerator
	EventDispatcher domain.EventDispatcher
	AuditRecorder   domain.AuditRecorder
}

func NewPipelineManager(deps PipelineManagerDependencies) domain.PipelineManager {
	return &pipelineManager{
		pipelines:  deps.PipelineStore,
		projects:   deps.ProjectStore,
		runs:       deps.RunStore,
		apiKeys:    deps.APIKeyManager,
		ids:        deps.IDGenerator,
		dispatcher: eventDispatcherOrNoop(deps.EventDispatcher),
		audit:      auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *pipelineManager) CreatePipeline(ctx context.Context, params domain.CreatePipelineParams) (domain.Pipeline, error) {
	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.Pipeline{}, err
	}

	now := time.Now()

	pipeline := domain.Pipeline{
		ID:        m.ids.NewID(),
		ProjectID: params.ProjectID,
		Name:      params.Name,
		Graph:     params.Graph,
		Status:    domain.PipelineStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.pipelines.CreatePipeline(ctx, pipeline); err != nil {
		return domain.Pipeline{}, fmt.Errorf("failed to create pipeline: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "pipeline.created",
		ResourceType:   "pipeline",
		ResourceID:     pipeline.ID,
	})

	return pipeline, nil
}

func (m *pipelineManager) GetPipeline(ctx context.Context, organizationID, pipelineID string) (domain.Pipeline, error) {
	return m.requirePipeline(ctx, organizationID, pipelineID)
}

func (m *pipelineManager) ListPipelines(ctx context.Context, organizationID, projectID string) ([]domain.Pipeline, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, projectID); err != nil {
		return nil, err
	}

	pipelines, err := m.pipelines.ListPipelinesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	return pipelines, nil
}

func (m *pipelineManager) UpdatePipeline(ctx context.Context, params domain.UpdatePipelineParams) (domain.Pipeline, error) {
	pipeline, err := m.requirePipeline(ctx, params.OrganizationID, params.PipelineID)
	if err != nil {
		return domain.Pipeline{}, err
	}

	if params.Name != "" {
		pipeline.Name = params.Name
	}
	if params.Graph != nil {
		pipeline.Graph = params.Graph
	}
	pipeline.UpdatedAt = time.Now()

	if err := m.pipelines.UpdatePipeline(ctx, pipeline); err != nil {
		return domain.Pipeline{}, fmt.Errorf("failed to update pipeline: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "pipeline.updated",
		ResourceType:   "pipeline",
		ResourceID:     pipeline.ID,
	})

	return pipeline, nil
}

func (m *pipelineManager) DeletePipeline(ctx context.Context, organizationID, actorID, pipelineID string) error {
	pipeline, err := m.requirePipeline(ctx, organizationID, pipelineID)
	if err != nil {
		return err
	}

	if err := m.pipelines.DeletePipeline(ctx, pipeline.ID); err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "pipeline.deleted",
		ResourceType:   "pipeline",
		ResourceID:     pipeline.ID,
	})

	return nil
}

func (m *pipelineManager) ValidatePipeline(ctx context.Context, organizationID, pipelineID string) (domain.GraphValidation, error) {
	pipeline, err := m.requirePipeline(ctx, organizationID, pipelineID)
	if err != nil {
		return domain.GraphValidation{}, err
	}

	result := graph.Validate(pipeline.Graph)

	return domain.GraphValidation{Valid: result.Valid, Errors: result.Errors}, nil
}

func (m *pipelineManager) PublishPipeline(ctx context.Context, organizationID, actorID, pipelineID string) (domain.Pipeline, error) {
	pipeline, err := m.requirePipeline(ctx, organizationID, pipelineID)
	if err != nil {
		return domain.Pipeline{}, err
	}

	if pipeline.IsPublished() {
		return pipeline, nil
	}

	if result := graph.Validate(pipeline.Graph); !result.Valid {
		return domain.Pipeline{}, fmt.Errorf("%w: %s", domain.ErrPipelineInvalid, strings.Join(result.Errors, "; "))
	}

	// A slug survives unpublish, so republishing restores the same
	// endpoint.
	if pipeline.EndpointSlug == "" {
		pipeline.EndpointSlug = fmt.Sprintf("%s-%s", slug.Make(pipeline.Name), m.ids.NewID())
	}
	pipeline.Status = domain.PipelineStatusPublished
	pipeline.UpdatedAt = time.Now()

	if err := m.pipelines.UpdatePipeline(ctx, pipeline); err != nil {
		return domain.Pipeline{}, fmt.Errorf("failed to publish pipeline: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "pipeline.published",
		ResourceType:   "pipeline",
		ResourceID:     pipeline.ID,
		Metadata:       map[string]any{"endpoint_slug": pipeline.EndpointSlug},
	})

	m.dispatcher.Dispatch(domain.WebhookEvent{
		ID:             m.ids.NewID(),
		Type:           domain.EventPipelinePublished,
		OrganizationID: organizationID,
		Data: map[string]any{
			"pipeline_id":   pipeline.ID,
			"endpoint_slug": pipeline.EndpointSlug,
		},
		CreatedAt: time.Now(),
	})

	return pipeline, nil
}

func (m *pipelineManager) UnpublishPipeline(ctx context.Context, organizationID, actorID, pipelineID string) (domain.Pipeline, error) {
	pipeline, err := m.requirePipeline(ctx, organizationID, pipelineID)
	if err != nil {
		return domain.Pipeline{}, err
	}

	if !pipeline.IsPublished() {
		return pipeline, nil
	}

	pipeline.Status = domain.PipelineStatusDraft
	pipeline.UpdatedAt = time.Now()

	if err := m.pipelines.UpdatePipeline(ctx, pipeline); err != nil {
		return domain.Pipeline{}, fmt.Errorf("failed to unpublish pipeline: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "pipeline.unpublished",
		ResourceType:   "pipeline",
		ResourceID:     pipeline.ID,
	})

	return pipeline, nil
}

func (m *pipelineManager) ExecutePipeline(ctx context.Context, params domain.ExecutePipelineParams) (domain.ExecutionResult, error) {
	pipeline, err := m.requirePipeline(ctx, params.OrganizationID, params.PipelineID)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	result := simulateExecution(pipeline, params.Input)
	m.recordExecutionRun(ctx, params.OrganizationID, pipeline, params.Input, result)
	metrics.PipelineExecutions.WithLabelValues(executionStatusSuccess).Inc()

	return result, nil
}

func (m *pipelineManager) ExecutePublishedPipeline(ctx context.Context, slugName string, input map[string]any, apiKeyToken string) (domain.ExecutionResult, error) {
	key, err := m.apiKeys.ResolveToken(ctx, apiKeyToken)
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			metrics.PipelineExecutions.WithLabelValues(executionStatusInvalidKey).Inc()
			return failedExecution("invalid API key"), nil
		}
		return domain.ExecutionResult{}, fmt.Errorf("failed to resolve api key: %w", err)
	}

	pipeline, err := m.pipelines.GetPublishedPipelineBySlug(ctx, slugName, key.OrganizationID)
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			metrics.PipelineExecutions.WithLabelValues(executionStatusNotFound).Inc()
			return failedExecution("pipeline not found"), nil
		}
		return domain.ExecutionResult{}, fmt.Errorf("failed to resolve pipeline: %w", err)
	}

	result := simulateExecution(pipeline, input)
	m.recordExecutionRun(ctx, key.OrganizationID, pipeline, input, result)
	metrics.PipelineExecutions.WithLabelValues(executionStatusSuccess).Inc()

	return result, nil
}

func (m *pipelineManager) requirePipeline(ctx context.Context, organizationID, pipelineID string) (domain.Pipeline, error) {
	pipeline, err := m.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			return domain.Pipeline{}, domain.ErrPipelineNotFound
		}
		return domain.Pipeline{}, fmt.Errorf("failed to get pipeline: %w", err)
	}

	if _, err := requireProject(ctx, m.projects, organizationID, pipeline.ProjectID); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Pipeline{}, domain.ErrPipelineNotFound
		}
		return domain.Pipeline{}, err
	}

	return pipeline, nil
}

// recordExecutionRun keeps the analytics trail for executions. Losing a
// row is logged, never surfaced to the caller.
func (m *pipelineManager) recordExecutionRun(ctx context.Context, organizationID string, pipeline domain.Pipeline, input map[string]any, result domain.ExecutionResult) {
	run := domain.Run{
		ID:        m.ids.NewID(),
		ProjectID: pipeline.ProjectID,
		Model:     "pipeline",
		Input:     input,
		Output:    result.Output,
		LatencyMS: result.ExecutionTimeMS,
		Success:   result.Success,
		Flags: map[string]any{
			"pipeline_id":   pipeline.ID,
			"pipeline_slug": pipeline.EndpointSlug,
		},
		CreatedAt: time.Now(),
	}

	if err := m.runs.CreateRun(ctx, run); err != nil {
		log.Error().Err(err).Str("pipeline_id", pipeline.ID).Msg("failed to record pipeline execution run")
		return
	}

	metrics.RunsRecorded.Inc()

	m.dispatcher.Dispatch(domain.WebhookEvent{
		ID:             m.ids.NewID(),
		Type:           domain.EventRunRecorded,
		OrganizationID: organizationID,
		Data: map[string]any{
			"run_id":      run.ID,
			"project_id":  run.ProjectID,
			"pipeline_id": pipeline.ID,
			"success":     run.Success,
		},
		CreatedAt: run.CreatedAt,
	})
}

func simulateExecution(pipeline domain.Pipeline, input map[string]any) domain.ExecutionResult {
	started := time.Now()

	if input == nil {
		input = map[string]any{}
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		inputJSON = []byte("{}")
	}

	rawNodes, _ := pipeline.Graph["nodes"].([]any)

	nodeResults := make([]domain.NodeResult, 0, len(rawNodes))
	for _, rawNode := range rawNodes {
		node, _ := rawNode.(map[string]any)
		id, _ := node["id"].(string)
		nodeType, _ := node["type"].(string)

		nodeResults = append(nodeResults, domain.NodeResult{
			NodeID:     id,
			Type:       nodeType,
			Output:     fmt.Sprintf("Processed by %s node with input: %s", nodeType, inputJSON),
			DurationMS: simulatedNodeDurationMS,
		})
	}

	output := map[string]any{"message": "Pipeline executed successfully"}
	if len(nodeResults) > 0 {
		last := nodeResults[len(nodeResults)-1]
		output = map[string]any{
			"node_id": last.NodeID,
			"type":    last.Type,
			"output":  last.Output,
		}
	}

	return domain.ExecutionResult{
		Success:         true,
		Output:          output,
		ExecutionTimeMS: time.Since(started).Milliseconds(),
		NodeResults:     nodeResults,
	}
}

func failedExecution(message string) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:     false,
		Output:      map[string]any{"error": message},
		NodeResults: []domain.NodeResult{},
	}
}
