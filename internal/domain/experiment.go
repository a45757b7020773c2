package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrExperimentNotFound   = errors.New("experiment not found")
	ErrExperimentNotRunning = errors.New("experiment not running")
	ErrExperimentCompleted  = errors.New("experiment already completed")
	ErrExperimentLocked     = errors.New("experiment variants cannot change after start")
	ErrInsufficientVariants = errors.New("experiment requires at least two variants")
)

type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusCompleted ExperimentStatus = "completed"
)

type ExperimentVariant struct {
	PromptVersionID string
	Weight          int
}

type Experiment struct {
	ID        string
	ProjectID string
	PromptID  string
	Name      string
	Status    ExperimentStatus
	Variants  []ExperimentVariant
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Experiment) IsRunning() bool {
	return e.Status == ExperimentStatusRunning
}

type ExperimentStore interface {
	CreateExperiment(ctx context.Context, experiment Experiment) error
	GetExperiment(ctx context.Context, id string) (Experiment, error)
	ListExperimentsByProject(ctx context.Context, projectID string) ([]Experiment, error)
	UpdateExperiment(ctx context.Context, experiment Experiment) error
	DeleteExperiment(ctx context.Context, id string) error
}

type CreateExperimentParams struct {
	ProjectID      string
	OrganizationID string
	ActorID        string
	PromptID       string
	Name           string
	Variants       []ExperimentVariant
}

type UpdateExperimentParams struct {
	ExperimentID   string
	OrganizationID string
	ActorID        string
	Name           string
	Variants       []ExperimentVariant
}

type ExperimentManager interface {
	CreateExperiment(ctx context.Context, params CreateExperimentParams) (Experiment, error)
	GetExperiment(ctx context.Context, organizationID, experimentID string) (Experiment, error)
	ListExperiments(ctx context.Context, organizationID, projectID string) ([]Experiment, error)
	UpdateExperiment(ctx context.Context, params UpdateExperimentParams) (Experiment, error)
	DeleteExperiment(ctx context.Context, organizationID, actorID, experimentID string) error

	// StartExperiment moves a draft to running. At least two variants are
	// required. Starting a running experiment is a no-op.
	StartExperiment(ctx context.Context, organizationID, actorID, experimentID string) (Experiment, error)
	CompleteExperiment(ctx context.Context, organizationID, actorID, experimentID string) (Experiment, error)

	// GetResults aggregates recorded runs per variant.
	GetResults(ctx context.Context, organizationID, experimentID string) ([]VariantStats, error)
}
