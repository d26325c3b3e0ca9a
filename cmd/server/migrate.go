package main

import (
	"context"
	"fmt"

	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/storage"
	"github.com/hohotang/shortlink-core/internal/storage/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger.Init(serviceName, cfg.Telemetry.Environment)
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		db, err := storage.OpenPostgres(ctx, storage.PostgresOptions{DSN: cfg.Storage.PostgresDSN()})
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := migrations.NewMigrator(db, logger.L())
		if err := migrator.RunUp(); err != nil {
			return err
		}

		version, dirty, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		logger.L().Info("Schema is up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
