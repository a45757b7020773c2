package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/initialization"
	"github.com/promptdeck/promptdeck/internal/storage/postgres"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Apply the PostgreSQL schema and seed the starter template gallery.
Safe to run repeatedly; existing tables and templates are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	return cmd
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.DatabaseURI == "" {
		return fmt.Errorf("PROMPTDECK_DATABASE_URI is required to run migrations")
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("connecting to Postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	seeded, err := initialization.SeedTemplates(ctx, postgres.NewTemplateStore(pool))
	if err != nil {
		return fmt.Errorf("seeding templates: %w", err)
	}

	log.Info().Int("templates_seeded", seeded).Msg("Database schema is up to date")
	return nil
}
