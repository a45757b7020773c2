package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ProjectStore struct {
	pool *pgxpool.Pool
}

func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

func (s *ProjectStore) CreateProject(ctx context.Context, project domain.Project) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, organization_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, project.ID, project.OrganizationID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

func (s *ProjectStore) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, description, created_at, updated_at
		FROM projects WHERE id = $1
	`, id)

	var project domain.Project

	err := row.Scan(&project.ID, &project.OrganizationID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

func (s *ProjectStore) ListProjectsByOrganization(ctx context.Context, organizationID string) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, name, description, created_at, updated_at
		FROM projects WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project

		if err := rows.Scan(&project.ID, &project.OrganizationID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

func (s *ProjectStore) UpdateProject(ctx context.Context, project domain.Project) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, project.ID, project.Name, project.Description, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}
