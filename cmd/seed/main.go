package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowbuilder/backend/internal/config"
	"flowbuilder/backend/internal/logging"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/internal/services"
)

func main() {
	var envFile, configFile string

	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample flows and results into the PostgreSQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), envFile, configFile)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to config.yaml")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, envFile, configFile string) error {
	cfg, err := config.LoadConfig(envFile, configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("storage driver %q keeps no data between runs; set storage.driver=postgres", cfg.Storage.Driver)
	}

	pool, err := repository.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	flows, results, err := services.SeedSamples(ctx, store)
	if err != nil {
		return err
	}
	logger.Info("Seeding complete", "database", cfg.DB.Name, "flows", flows, "results", results)
	return nil
}
