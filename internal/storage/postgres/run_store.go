package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const defaultRunListLimit = 50

type RunStore struct {
	pool *pgxpool.Pool
}

func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

func (s *RunStore) CreateRun(ctx context.Context, run domain.Run) error {
	inputJSON, err := json.Marshal(run.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	outputJSON, err := json.Marshal(run.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	flagsJSON, err := json.Marshal(run.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (id, project_id, prompt_id, prompt_version_id, experiment_id, model,
			input, output, tokens_in, tokens_out, cost, latency_ms, success, flags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, run.ID, run.ProjectID, nullableString(run.PromptID), nullableString(run.PromptVersionID),
		nullableString(run.ExperimentID), run.Model, inputJSON, outputJSON,
		run.TokensIn, run.TokensOut, run.Cost, run.LatencyMS, run.Success, flagsJSON, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (s *RunStore) GetRun(ctx context.Context, id string) (domain.Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, prompt_id, prompt_version_id, experiment_id, model,
			input, output, tokens_in, tokens_out, cost, latency_ms, success, flags, created_at
		FROM runs WHERE id = $1
	`, id)

	return scanRun(row)
}

func (s *RunStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	query := `
		SELECT id, project_id, prompt_id, prompt_version_id, experiment_id, model,
			input, output, tokens_in, tokens_out, cost, latency_ms, success, flags, created_at
		FROM runs WHERE project_id = $1`
	args := []any{filter.ProjectID}

	query, args = appendRunFilters(query, args, filter)
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *RunStore) GetRunStats(ctx context.Context, filter domain.RunFilter) (domain.RunStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(SUM(tokens_in), 0),
			COALESCE(SUM(tokens_out), 0)
		FROM runs WHERE project_id = $1`
	args := []any{filter.ProjectID}

	query, args = appendRunFilters(query, args, filter)

	var stats domain.RunStats

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Count,
		&stats.SuccessCount,
		&stats.AvgLatencyMS,
		&stats.TokensIn,
		&stats.TokensOut,
	)
	if err != nil {
		return domain.RunStats{}, fmt.Errorf("failed to get run stats: %w", err)
	}

	return stats, nil
}

func (s *RunStore) GetVariantStats(ctx context.Context, experimentID string) ([]domain.VariantStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT prompt_version_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(SUM(tokens_in), 0),
			COALESCE(SUM(tokens_out), 0)
		FROM runs
		WHERE experiment_id = $1 AND prompt_version_id IS NOT NULL
		GROUP BY prompt_version_id
		ORDER BY prompt_version_id
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.VariantStats
	for rows.Next() {
		var variant domain.VariantStats

		if err := rows.Scan(&variant.PromptVersionID, &variant.Count, &variant.SuccessCount,
			&variant.AvgLatencyMS, &variant.TokensIn, &variant.TokensOut); err != nil {
			return nil, fmt.Errorf("failed to scan variant stats: %w", err)
		}
		stats = append(stats, variant)
	}

	return stats, rows.Err()
}

func (s *RunStore) SumTokensInForOrganization(ctx context.Context, organizationID string, from, to time.Time) (int64, error) {
	var total int64

	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(r.tokens_in), 0)
		FROM runs r
		JOIN projects p ON p.id = r.project_id
		WHERE p.organization_id = $1 AND r.created_at >= $2 AND r.created_at <= $3
	`, organizationID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum token usage: %w", err)
	}

	return total, nil
}

func appendRunFilters(query string, args []any, filter domain.RunFilter) (string, []any) {
	if filter.PromptID != "" {
		args = append(args, filter.PromptID)
		query += fmt.Sprintf(" AND prompt_id = $%d", len(args))
	}
	if filter.ExperimentID != "" {
		args = append(args, filter.ExperimentID)
		query += fmt.Sprintf(" AND experiment_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	return query, args
}

func scanRun(row pgx.Row) (domain.Run, error) {
	var run domain.Run
	var promptID, promptVersionID, experimentID *string
	var inputJSON, outputJSON, flagsJSON []byte

	err := row.Scan(&run.ID, &run.ProjectID, &promptID, &promptVersionID, &experimentID, &run.Model,
		&inputJSON, &outputJSON, &run.TokensIn, &run.TokensOut, &run.Cost, &run.LatencyMS,
		&run.Success, &flagsJSON, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, domain.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("failed to get run: %w", err)
	}

	if promptID != nil {
		run.PromptID = *promptID
	}
	if promptVersionID != nil {
		run.PromptVersionID = *promptVersionID
	}
	if experimentID != nil {
		run.ExperimentID = *experimentID
	}
	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &run.Input); err != nil {
			return domain.Run{}, fmt.Errorf("failed to unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &run.Output); err != nil {
			return domain.Run{}, fmt.Errorf("failed to unmarshal output: %w", err)
		}
	}
	if flagsJSON != nil {
		if err := json.Unmarshal(flagsJSON, &run.Flags); err != nil {
			return domain.Run{}, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}

	return run, nil
}
