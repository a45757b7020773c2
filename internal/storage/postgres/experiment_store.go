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

type ExperimentStore struct {
	pool *pgxpool.Pool
}

func NewExperimentStore(pool *pgxpool.Pool) *ExperimentStore {
	return &ExperimentStore{pool: pool}
}

type experimentVariantDoc struct {
	PromptVersionID string `json:"prompt_version_id"`
	Weight          int    `json:"weight"`
}

func variantsToDocs(variants []domain.ExperimentVariant) []experimentVariantDoc {
	docs := make([]experimentVariantDoc, len(variants))
	for i, variant := range variants {
		docs[i] = experimentVariantDoc{
			PromptVersionID: variant.PromptVersionID,
			Weight:          variant.Weight,
		}
	}
	return docs
}

func variantsFromDocs(docs []experimentVariantDoc) []domain.ExperimentVariant {
	variants := make([]domain.ExperimentVariant, len(docs))
	for i, doc := range docs {
		variants[i] = domain.ExperimentVariant{
			PromptVersionID: doc.PromptVersionID,
			Weight:          doc.Weight,
		}
	}
	return variants
}

func (s *ExperimentStore) CreateExperiment(ctx context.Context, experiment domain.Experiment) error {
	variantsJSON, err := json.Marshal(variantsToDocs(experiment.Variants))
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO experiments (id, project_id, prompt_id, name, status, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, experiment.ID, experiment.ProjectID, experiment.PromptID, experiment.Name,
		string(experiment.Status), variantsJSON, experiment.CreatedAt, experiment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	return nil
}

func (s *ExperimentStore) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, prompt_id, name, status, variants, created_at, updated_at
		FROM experiments WHERE id = $1
	`, id)

	return scanExperiment(row)
}

func (s *ExperimentStore) ListExperimentsByProject(ctx context.Context, projectID string) ([]domain.Experiment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, prompt_id, name, status, variants, created_at, updated_at
		FROM experiments WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []domain.Experiment
	for rows.Next() {
		experiment, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, experiment)
	}

	return experiments, rows.Err()
}

func (s *ExperimentStore) UpdateExperiment(ctx context.Context, experiment domain.Experiment) error {
	variantsJSON, err := json.Marshal(variantsToDocs(experiment.Variants))
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE experiments SET name = $2, status = $3, variants = $4, updated_at = $5
		WHERE id = $1
	`, experiment.ID, experiment.Name, string(experiment.Status), variantsJSON, experiment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExperimentNotFound
	}

	return nil
}

func (s *ExperimentStore) DeleteExperiment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExperimentNotFound
	}

	return nil
}

func scanExperiment(row pgx.Row) (domain.Experiment, error) {
	var experiment domain.Experiment
	var status string
	var variantsJSON []byte

	err := row.Scan(&experiment.ID, &experiment.ProjectID, &experiment.PromptID, &experiment.Name,
		&status, &variantsJSON, &experiment.CreatedAt, &experiment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Experiment{}, domain.ErrExperimentNotFound
		}
		return domain.Experiment{}, fmt.Errorf("failed to get experiment: %w", err)
	}
	experiment.Status = domain.ExperimentStatus(status)

	if variantsJSON != nil {
		var docs []experimentVariantDoc
		if err := json.Unmarshal(variantsJSON, &docs); err != nil {
			return domain.Experiment{}, fmt.Errorf("failed to unmarshal variants: %w", err)
		}
		experiment.Variants = variantsFromDocs(docs)
	}

	return experiment, nil
}
