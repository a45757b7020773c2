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

type TemplateStore struct {
	pool *pgxpool.Pool
}

func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, template domain.Template) error {
	variablesJSON, err := json.Marshal(template.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO templates (id, name, description, category, content, variables, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, template.ID, template.Name, template.Description, template.Category,
		template.Content, variablesJSON, template.Public, template.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

func (s *TemplateStore) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, category, content, variables, is_public, created_at
		FROM templates WHERE id = $1
	`, id)

	return scanTemplate(row)
}

func (s *TemplateStore) ListTemplates(ctx context.Context, category string) ([]domain.Template, error) {
	query := `
		SELECT id, name, description, category, content, variables, is_public, created_at
		FROM templates WHERE is_public`
	args := []any{}

	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func scanTemplate(row pgx.Row) (domain.Template, error) {
	var template domain.Template
	var variablesJSON []byte

	err := row.Scan(&template.ID, &template.Name, &template.Description, &template.Category,
		&template.Content, &variablesJSON, &template.Public, &template.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Template{}, domain.ErrTemplateNotFound
		}
		return domain.Template{}, fmt.Errorf("failed to get template: %w", err)
	}

	if variablesJSON != nil {
		if err := json.Unmarshal(variablesJSON, &template.Variables); err != nil {
			return domain.Template{}, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	return template, nil
}
