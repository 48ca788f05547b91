package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeff-ai/jeff-api/internal/config"
	"github.com/jeff-ai/jeff-api/internal/logger"
	"github.com/jeff-ai/jeff-api/internal/store"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Jeff AI API server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary without a subcommand serves HTTP.
		RunE: runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			return db.Migrate(cmd.Context())
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and insert fixture data",
		Long: `Reset the database and insert fixture data.

Every table is emptied first. The fixture set holds the users foo, bar and baz,
three tasks for foo, ten feedback rows, ten refinements and one settings row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			return db.Seed(cmd.Context())
		},
	}
}

// bootstrap loads configuration and opens the logger and the database.
func bootstrap() (*config.Config, *logger.Logger, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	db, err := store.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, db, nil
}
