package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"roombook/internal/seed"
	"roombook/pkg/app"
	"roombook/pkg/config"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrateFirst, seedRooms bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := config.Load(serviceName)
			cfg.Connect()
			defer shutdownClients(cfg)

			store, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}

			if migrateFirst {
				if err := app.Migrate(ctx, cfg); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}
			if seedRooms || cfg.SeedOnStart {
				if _, err := seed.Rooms(ctx, store, cfg.Log); err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
			}

			application := app.NewApplication(cfg, store)
			if err := application.SetApp(); err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply storage migrations before serving")
	cmd.Flags().BoolVar(&seedRooms, "seed", false, "insert the default rooms when none exist")
	return cmd
}

func shutdownClients(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	cfg.Client.GracefulShutdown(ctx, cfg.Log)
}
