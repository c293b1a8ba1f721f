package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/roomstay/internal/auth/store/drivers/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// gooseUp is a seam for tests that cannot reach a database.
var gooseUp = func(ctx context.Context, s *Store) error {
	return goose.UpContext(ctx, s.db, ".")
}

// ApplyMigrations runs the embedded goose migrations.
func (s *Store) ApplyMigrations() error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := gooseUp(context.Background(), s); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
