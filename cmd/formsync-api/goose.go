package main

import (
	"database/sql"
	"fmt"
	"os"

	"formsync/internal/config"
	"formsync/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func runGooseMigrations(cfg *config.Config) error {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Set goose dialect
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	// Embedded migrations unless a directory is given
	migrationsDir := "."
	if cfg.MigrationsDir != "" {
		if _, err := os.Stat(cfg.MigrationsDir); os.IsNotExist(err) {
			return fmt.Errorf("migrations directory not found: %s", cfg.MigrationsDir)
		}
		goose.SetBaseFS(nil)
		migrationsDir = cfg.MigrationsDir
	} else {
		goose.SetBaseFS(migrations.FS)
	}

	// Run migrations
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
