package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/initialization"
	"github.com/promptdeck/promptdeck/internal/server"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the PromptDeck API server",
		Long: `Start the HTTP API server. Without a database URI the server runs
against an in-memory store, which is useful for local development.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	container := initialization.NewAppContainer(cfg)

	deps, err := container.BuildAppDependencies(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build application dependencies")
		return err
	}
	defer deps.Close()

	app := server.NewHTTPServer(ctx, deps.ServerDependencies)

	log.Info().Str("address", cfg.HTTPAddress).Msg("PromptDeck API listening")

	if err := app.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("PromptDeck API stopped")
	return nil
}
