package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, organization_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_org ON memberships(organization_id)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(organization_id)`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		current_version_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_project ON prompts(project_id)`,
	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id TEXT PRIMARY KEY,
		prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
		version INT NOT NULL,
		content TEXT NOT NULL,
		variables JSONB,
		model_config JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (prompt_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		variants JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_experiments_project ON experiments(project_id)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		prompt_id TEXT REFERENCES prompts(id) ON DELETE CASCADE,
		prompt_version_id TEXT REFERENCES prompt_versions(id) ON DELETE CASCADE,
		experiment_id TEXT REFERENCES experiments(id) ON DELETE SET NULL,
		model TEXT NOT NULL,
		input JSONB,
		output JSONB,
		tokens_in BIGINT NOT NULL DEFAULT 0,
		tokens_out BIGINT NOT NULL DEFAULT 0,
		cost NUMERIC NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		flags JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_project_created ON runs(project_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment_id)`,
	`CREATE TABLE IF NOT EXISTS pipelines (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		graph JSONB,
		status TEXT NOT NULL DEFAULT 'draft',
		endpoint_slug TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipelines_project ON pipelines(project_id)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		prompt_id TEXT REFERENCES prompts(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		model TEXT NOT NULL,
		messages JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_project ON chat_sessions(project_id)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		variables JSONB,
		is_public BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS billing (
		organization_id TEXT PRIMARY KEY REFERENCES organizations(id) ON DELETE CASCADE,
		payment_customer_id TEXT,
		plan TEXT NOT NULL,
		seats INT NOT NULL,
		metered_quota BIGINT NOT NULL,
		renews_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		token_prefix TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		secret TEXT NOT NULL,
		events JSONB,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS provider_keys (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		label TEXT NOT NULL,
		sealed_key BYTEA NOT NULL,
		key_suffix TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_provider_keys_org ON provider_keys(organization_id, provider)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		actor_id TEXT,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_org_created ON audit_logs(organization_id, created_at DESC)`,
}

// Migrate creates every table and index the stores expect. Statements are
// idempotent so running it repeatedly is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range migrationStatements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
