package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type projectManager struct {
	projects domain.ProjectStore
	ids      domain.IDGenerator
	audit    domain.AuditRecorder
}

type ProjectManagerDependencies struct {
	ProjectStore  domain.ProjectStore
	IDGenerator   domain.IDGenerator
	AuditRecorder domain.AuditRecorder
}

func NewProjectManager(deps ProjectManagerDependencies) domain.ProjectManager {
	return &projectManager{
		projects: deps.ProjectStore,
		ids:      deps.IDGenerator,
		audit:    auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *projectManager) CreateProject(ctx context.Context, params domain.CreateProjectParams) (domain.Project, error) {
	now := time.Now()

	project := domain.Project{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Description:    params.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.projects.CreateProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "project.created",
		ResourceType:   "project",
		ResourceID:     project.ID,
	})

	return project, nil
}

func (m *projectManager) GetProject(ctx context.Context, organizationID, projectID string) (domain.Project, error) {
	return requireProject(ctx, m.projects, organizationID, projectID)
}

func (m *projectManager) ListProjects(ctx context.Context, organizationID string) ([]domain.Project, error) {
	projects, err := m.projects.ListProjectsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

func (m *projectManager) UpdateProject(ctx context.Context, params domain.UpdateProjectParams) (domain.Project, error) {
	project, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}

	if params.Name != "" {
		project.Name = params.Name
	}
	if params.Description != "" {
		project.Description = params.Description
	}
	project.UpdatedAt = time.Now()

	if err := m.projects.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("failed to update project: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "project.updated",
		ResourceType:   "project",
		ResourceID:     project.ID,
	})

	return project, nil
}

func (m *projectManager) DeleteProject(ctx context.Context, organizationID, actorID, projectID string) error {
	project, err := requireProject(ctx, m.projects, organizationID, projectID)
	if err != nil {
		return err
	}

	if err := m.projects.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "project.deleted",
		ResourceType:   "project",
		ResourceID:     project.ID,
	})

	return nil
}
