package domain

import (
	"context"
	"errors"
	"time"
)

var ErrProjectNotFound = errors.New("project not found")

type Project struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProjectStore interface {
	CreateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsByOrganization(ctx context.Context, organizationID string) ([]Project, error)
	UpdateProject(ctx context.Context, project Project) error
	DeleteProject(ctx context.Context, id string) error
}

type CreateProjectParams struct {
	OrganizationID string
	ActorID        string
	Name           string
	Description    string
}

type UpdateProjectParams struct {
	ProjectID      string
	OrganizationID string
	ActorID        string
	Name           string
	Description    string
}

type ProjectManager interface {
	CreateProject(ctx context.Context, params CreateProjectParams) (Project, error)
	GetProject(ctx context.Context, organizationID, projectID string) (Project, error)
	ListProjects(ctx context.Context, organizationID string) ([]Project, error)
	UpdateProject(ctx context.Context, params UpdateProjectParams) (Project, error)
	DeleteProject(ctx context.Context, organizationID, actorID, projectID string) error
}
