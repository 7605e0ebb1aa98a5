package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paavan-1234/minutes-backend/config"
	"github.com/paavan-1234/minutes-backend/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runServe(cmd) },
	}
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the meeting tables",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate() },
	}

	root := &cobra.Command{
		Use:          "minutes",
		Short:        "Meeting recording ingestion service",
		SilenceUsage: true,
		// serve is the default
		RunE: serveCmd.RunE,
	}
	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func runMigrate() error {
	s, err := config.LoadSettings()
	if err != nil {
		return err
	}
	log := logger.New()
	if err := config.InitPostgres(s, log); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := config.Migrate(config.PostgresDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema migrated")
	return nil
}
