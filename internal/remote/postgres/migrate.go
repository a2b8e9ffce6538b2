package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

var newMigrator = func(db *sql.DB) (migrator, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
}

// RunMigrations brings the backend schema up to date and returns the
// versions it applied.
func RunMigrations(ctx context.Context, db *sql.DB) ([]int64, error) {
	m, err := newMigrator(db)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	results, err := m.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// Migrate runs RunMigrations over a database/sql view of pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return RunMigrations(ctx, db)
}
