package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"tariff-engine/internal/storage/migrations"
	"tariff-engine/pkg/logger"
)

func prepareGoose(log *zap.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(logger.NewPrintf(log))
	return goose.SetDialect("postgres")
}

func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	const operation = "storage.RunMigrations"

	log.Info("Running database migrations...")

	if err := prepareGoose(log); err != nil {
		return fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", operation, err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

func RollbackMigration(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	const operation = "storage.RollbackMigration"

	log.Info("Rolling back last migration...")

	if err := prepareGoose(log); err != nil {
		return fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}
	if err := goose.DownContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: failed to rollback migration: %w", operation, err)
	}

	log.Info("Migration rollback completed")
	return nil
}
