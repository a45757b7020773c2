package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPipelineNotFound = errors.New("pipeline not found")
	ErrPipelineInvalid  = errors.New("pipeline graph is invalid")
)

type PipelineStatus string

const (
	PipelineStatusDraft     PipelineStatus = "draft"
	PipelineStatusPublished PipelineStatus = "published"
)

// Pipeline holds an opaque graph document. Drafts may carry invalid
// graphs; publishing gates on validation. A pipeline is callable through
// its endpoint slug only while published and the slug is set.
type Pipeline struct {
	ID           string
	ProjectID    string
	Name         string
	Graph        map[string]any
	Status       PipelineStatus
	EndpointSlug string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Pipeline) IsPublished() bool {
	return p.Status == PipelineStatusPublished
}

type NodeResult struct {
	NodeID     string
	Type       string
	Output     string
	DurationMS int64
}

type ExecutionResult struct {
	Success         bool
	Output          map[string]any
	ExecutionTimeMS int64
	NodeResults     []NodeResult
}

type PipelineStore interface {
	CreatePipeline(ctx context.Context, pipeline Pipeline) error
	GetPipeline(ctx context.Context, id string) (Pipeline, error)
	ListPipelinesByProject(ctx context.Context, projectID string) ([]Pipeline, error)
	UpdatePipeline(ctx context.Context, pipeline Pipeline) error
	DeletePipeline(ctx context.Context, id string) error

	// GetPublishedPipelineBySlug resolves a slug to a published pipeline
	// owned by the organization. Draft, deleted and cross-tenant pipelines
	// all resolve to ErrPipelineNotFound.
	GetPublishedPipelineBySlug(ctx context.Context, slug, organizationID string) (Pipeline, error)
}

// GraphValidation is the verdict for a pipeline graph. Errors keeps
// discovery order.
type GraphValidation struct {
	Valid  bool
	Errors []string
}

type CreatePipelineParams struct {
	ProjectID      string
	OrganizationID string
	ActorID        string
	Name           string
	Graph          map[string]any
}

type UpdatePipelineParams struct {
	PipelineID     string
	OrganizationID string
	ActorID        string
	Name           string
	Graph          map[string]any
}

type ExecutePipelineParams struct {
	PipelineID     string
	OrganizationID string
	Input          map[string]any
}

type PipelineManager interface {
	CreatePipeline(ctx context.Context, params CreatePipelineParams) (Pipeline, error)
	GetPipeline(ctx context.Context, organizationID, pipelineID string) (Pipeline, error)
	ListPipelines(ctx context.Context, organizationID, projectID string) ([]Pipeline, error)
	UpdatePipeline(ctx context.Context, params UpdatePipelineParams) (Pipeline, error)
	DeletePipeline(ctx context.Context, organizationID, actorID, pipelineID string) error

	// ValidatePipeline checks the stored graph and returns the verdict
	// without touching pipeline state.
	ValidatePipeline(ctx context.Context, organizationID, pipelineID string) (GraphValidation, error)

	// PublishPipeline validates the stored graph, mints the endpoint slug
	// on first publish and flips the status. Publishing an already
	// published pipeline keeps its slug. Invalid graphs fail with
	// ErrPipelineInvalid.
	PublishPipeline(ctx context.Context, organizationID, actorID, pipelineID string) (Pipeline, error)
	UnpublishPipeline(ctx context.Context, organizationID, actorID, pipelineID string) (Pipeline, error)

	// ExecutePipeline simulates the pipeline for its owner and records a
	// run under the pipeline's project. Drafts are executable here.
	ExecutePipeline(ctx context.Context, params ExecutePipelineParams) (ExecutionResult, error)

	// ExecutePublishedPipeline is the API-key entrypoint. An unknown key
	// or an unresolvable slug yields a failure-shaped result, not an
	// error; the error return is for infrastructure faults only.
	ExecutePublishedPipeline(ctx context.Context, slug string, input map[string]any, apiKeyToken string) (ExecutionResult, error)
}
