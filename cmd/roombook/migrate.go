package main

import (
	"context"
	"fmt"
	"time"

	"roombook/internal/seed"
	"roombook/pkg/app"
	"roombook/pkg/config"

	"github.com/spf13/cobra"
)

const jobTimeout = 120 * time.Second

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, indexes or SQL schema for the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
			defer cancel()

			cfg := config.Load(serviceName + "-migrate")
			cfg.Connect()
			defer shutdownClients(cfg)

			cfg.Log.Info("Starting migration job", "backend", cfg.StorageBackend)
			if err := app.Migrate(ctx, cfg); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully.")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default rooms when the store has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
			defer cancel()

			cfg := config.Load(serviceName + "-seed")
			cfg.Connect()
			defer shutdownClients(cfg)

			store, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			created, err := seed.Rooms(ctx, store, cfg.Log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rooms.\n", created)
			return nil
		},
	}
}
