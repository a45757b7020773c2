package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type PipelineStore struct {
	pool *pgxpool.Pool
}

func NewPipelineStore(pool *pgxpool.Pool) *PipelineStore {
	return &PipelineStore{pool: pool}
}

func (s *PipelineStore) CreatePipeline(ctx context.Context, pipeline domain.Pipeline) error {
	graphJSON, err := json.Marshal(pipeline.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pipelines (id, project_id, name, graph, status, endpoint_slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pipeline.ID, pipeline.ProjectID, pipeline.Name, graphJSON, string(pipeline.Status),
		nullableString(pipeline.EndpointSlug), pipeline.CreatedAt, pipeline.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	return nil
}

func (s *PipelineStore) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, name, graph, status, endpoint_slug, created_at, updated_at
		FROM pipelines WHERE id = $1
	`, id)

	return scanPipeline(row)
}

func (s *PipelineStore) ListPipelinesByProject(ctx context.Context, projectID string) ([]domain.Pipeline, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, name, graph, status, endpoint_slug, created_at, updated_at
		FROM pipelines WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []domain.Pipeline
	for rows.Next() {
		pipeline, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pipeline)
	}

	return pipelines, rows.Err()
}

func (s *PipelineStore) UpdatePipeline(ctx context.Context, pipeline domain.Pipeline) error {
	graphJSON, err := json.Marshal(pipeline.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE pipelines SET name = $2, graph = $3, status = $4, endpoint_slug = $5, updated_at = $6
		WHERE id = $1
	`, pipeline.ID, pipeline.Name, graphJSON, string(pipeline.Status),
		nullableString(pipeline.EndpointSlug), pipeline.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPipelineNotFound
	}

	return nil
}

func (s *PipelineStore) DeletePipeline(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPipelineNotFound
	}

	return nil
}

// GetPublishedPipelineBySlug joins through projects to enforce tenant
// scope. Draft and cross-tenant pipelines are indistinguishable from
// missing ones.
func (s *PipelineStore) GetPublishedPipelineBySlug(ctx context.Context, slug, organizationID string) (domain.Pipeline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pl.id, pl.project_id, pl.name, pl.graph, pl.status, pl.endpoint_slug, pl.created_at, pl.updated_at
		FROM pipelines pl
		JOIN projects p ON p.id = pl.project_id
		WHERE pl.endpoint_slug = $1 AND pl.status = $2 AND p.organization_id = $3
	`, slug, string(domain.PipelineStatusPublished), organizationID)

	return scanPipeline(row)
}

func scanPipeline(row pgx.Row) (domain.Pipeline, error) {
	var pipeline domain.Pipeline
	var graphJSON []byte
	var status string
	var endpointSlug *string

	err := row.Scan(&pipeline.ID, &pipeline.ProjectID, &pipeline.Name, &graphJSON, &status,
		&endpointSlug, &pipeline.CreatedAt, &pipeline.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, domain.ErrPipelineNotFound
		}
		return domain.Pipeline{}, fmt.Errorf("failed to get pipeline: %w", err)
	}
	pipeline.Status = domain.PipelineStatus(status)

	if endpointSlug != nil {
		pipeline.EndpointSlug = *endpointSlug
	}
	if graphJSON != nil {
		if err := json.Unmarshal(graphJSON, &pipeline.Graph); err != nil {
			return domain.Pipeline{}, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
	}

	return pipeline, nil
}
