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

type PromptStore struct {
	pool *pgxpool.Pool
}

func NewPromptStore(pool *pgxpool.Pool) *PromptStore {
	return &PromptStore{pool: pool}
}

func (s *PromptStore) CreatePrompt(ctx context.Context, prompt domain.Prompt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prompts (id, project_id, name, description, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, prompt.ID, prompt.ProjectID, prompt.Name, prompt.Description,
		nullableString(prompt.CurrentVersionID), prompt.CreatedAt, prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}

	return nil
}

func (s *PromptStore) GetPrompt(ctx context.Context, id string) (domain.Prompt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, name, description, current_version_id, created_at, updated_at
		FROM prompts WHERE id = $1
	`, id)

	return scanPrompt(row)
}

func (s *PromptStore) ListPromptsByProject(ctx context.Context, projectID string) ([]domain.Prompt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, name, description, current_version_id, created_at, updated_at
		FROM prompts WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []domain.Prompt
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	return prompts, rows.Err()
}

func (s *PromptStore) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE prompts SET name = $2, description = $3, current_version_id = $4, updated_at = $5
		WHERE id = $1
	`, prompt.ID, prompt.Name, prompt.Description, nullableString(prompt.CurrentVersionID), prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromptNotFound
	}

	return nil
}

func (s *PromptStore) DeletePrompt(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromptNotFound
	}

	return nil
}

func (s *PromptStore) CreatePromptVersion(ctx context.Context, version domain.PromptVersion) error {
	variablesJSON, err := json.Marshal(version.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	modelConfigJSON, err := json.Marshal(version.ModelConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal model config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO prompt_versions (id, prompt_id, version, content, variables, model_config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, version.ID, version.PromptID, version.Version, version.Content, variablesJSON, modelConfigJSON, version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt version: %w", err)
	}

	return nil
}

func (s *PromptStore) GetPromptVersion(ctx context.Context, id string) (domain.PromptVersion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, prompt_id, version, content, variables, model_config, created_at
		FROM prompt_versions WHERE id = $1
	`, id)

	return scanPromptVersion(row)
}

func (s *PromptStore) ListPromptVersions(ctx context.Context, promptID string) ([]domain.PromptVersion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, prompt_id, version, content, variables, model_config, created_at
		FROM prompt_versions WHERE prompt_id = $1
		ORDER BY version DESC
	`, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.PromptVersion
	for rows.Next() {
		version, err := scanPromptVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}

func (s *PromptStore) LatestVersionNumber(ctx context.Context, promptID string) (int, error) {
	var latest int

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM prompt_versions WHERE prompt_id = $1
	`, promptID).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest version number: %w", err)
	}

	return latest, nil
}

// CreatePromptWithVersion writes the prompt and its first version in one
// transaction so a failed version insert leaves no orphaned prompt.
func (s *PromptStore) CreatePromptWithVersion(ctx context.Context, prompt domain.Prompt, version domain.PromptVersion) error {
	variablesJSON, err := json.Marshal(version.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	modelConfigJSON, err := json.Marshal(version.ModelConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal model config: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin prompt creation: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO prompts (id, project_id, name, description, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, prompt.ID, prompt.ProjectID, prompt.Name, prompt.Description,
		nullableString(prompt.CurrentVersionID), prompt.CreatedAt, prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO prompt_versions (id, prompt_id, version, content, variables, model_config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, version.ID, version.PromptID, version.Version, version.Content, variablesJSON, modelConfigJSON, version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prompt creation: %w", err)
	}

	return nil
}

func scanPrompt(row pgx.Row) (domain.Prompt, error) {
	var prompt domain.Prompt
	var currentVersionID *string

	err := row.Scan(&prompt.ID, &prompt.ProjectID, &prompt.Name, &prompt.Description, &currentVersionID, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prompt{}, domain.ErrPromptNotFound
		}
		return domain.Prompt{}, fmt.Errorf("failed to get prompt: %w", err)
	}

	if currentVersionID != nil {
		prompt.CurrentVersionID = *currentVersionID
	}

	return prompt, nil
}

func scanPromptVersion(row pgx.Row) (domain.PromptVersion, error) {
	var version domain.PromptVersion
	var variablesJSON, modelConfigJSON []byte

	err := row.Scan(&version.ID, &version.PromptID, &version.Version, &version.Content, &variablesJSON, &modelConfigJSON, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
		}
		return domain.PromptVersion{}, fmt.Errorf("failed to get prompt version: %w", err)
	}

	if variablesJSON != nil {
		if err := json.Unmarshal(variablesJSON, &version.Variables); err != nil {
			return domain.PromptVersion{}, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}
	if modelConfigJSON != nil {
		if err := json.Unmarshal(modelConfigJSON, &version.ModelConfig); err != nil {
			return domain.PromptVersion{}, fmt.Errorf("failed to unmarshal model config: %w", err)
		}
	}

	return version, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
