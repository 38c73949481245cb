package main

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/joao-fontenele/levelup-gamer/internal/collection"
	"github.com/joao-fontenele/levelup-gamer/internal/config"
	"github.com/joao-fontenele/levelup-gamer/internal/seed"
	"github.com/joao-fontenele/levelup-gamer/internal/telemetry"
)

func newSeedCmd(logger *slog.Logger, load func() (*config.Config, error)) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo products and users into empty collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errNoDatabase
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := telemetry.ConnectPostgres(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			report, err := seed.Run(ctx, collection.NewPostgres(db), logger)
			if err != nil {
				return err
			}
			logger.Info("seed finished", "products", report.Products, "users", report.Users)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}
