package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPromptNotFound        = errors.New("prompt not found")
	ErrPromptVersionNotFound = errors.New("prompt version not found")
)

type Prompt struct {
	ID               string
	ProjectID        string
	Name             string
	Description      string
	CurrentVersionID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PromptVersion is immutable once written. New content always produces a
// new version with the next sequential number.
type PromptVersion struct {
	ID          string
	PromptID    string
	Version     int
	Content     string
	Variables   map[string]any
	ModelConfig map[string]any
	CreatedAt   time.Time
}

type PromptStore interface {
	CreatePrompt(ctx context.Context, prompt Prompt) error
	GetPrompt(ctx context.Context, id string) (Prompt, error)
	ListPromptsByProject(ctx context.Context, projectID string) ([]Prompt, error)
	UpdatePrompt(ctx context.Context, prompt Prompt) error
	DeletePrompt(ctx context.Context, id string) error

	CreatePromptVersion(ctx context.Context, version PromptVersion) error
	GetPromptVersion(ctx context.Context, id string) (PromptVersion, error)
	ListPromptVersions(ctx context.Context, promptID string) ([]PromptVersion, error)
	LatestVersionNumber(ctx context.Context, promptID string) (int, error)

	// CreatePromptWithVersion writes the prompt and its first version in a
	// single transaction.
	CreatePromptWithVersion(ctx context.Context, prompt Prompt, version PromptVersion) error
}

type CreatePromptParams struct {
	ProjectID      string
	OrganizationID string
	ActorID        string
	Name           string
	Description    string
	Content        string
	Variables      map[string]any
	ModelConfig    map[string]any
}

type UpdatePromptParams struct {
	PromptID       string
	OrganizationID string
	ActorID        string
	Name           string
	Description    string
}

type CreatePromptVersionParams struct {
	PromptID       string
	OrganizationID string
	ActorID        string
	Content        string
	Variables      map[string]any
	ModelConfig    map[string]any
}

type RestorePromptVersionParams struct {
	PromptID       string
	OrganizationID string
	ActorID        string
	VersionID      string
}

type PromptManager interface {
	CreatePrompt(ctx context.Context, params CreatePromptParams) (Prompt, error)
	GetPrompt(ctx context.Context, organizationID, promptID string) (Prompt, error)
	ListPrompts(ctx context.Context, organizationID, projectID string) ([]Prompt, error)
	UpdatePrompt(ctx context.Context, params UpdatePromptParams) (Prompt, error)
	DeletePrompt(ctx context.Context, organizationID, actorID, promptID string) error

	CreateVersion(ctx context.Context, params CreatePromptVersionParams) (PromptVersion, error)
	GetVersion(ctx context.Context, organizationID, promptID, versionID string) (PromptVersion, error)
	ListVersions(ctx context.Context, organizationID, promptID string) ([]PromptVersion, error)

	// RestoreVersion copies an old version's content into a new head version.
	RestoreVersion(ctx context.Context, params RestorePromptVersionParams) (PromptVersion, error)
}
