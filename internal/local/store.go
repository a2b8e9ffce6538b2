// Package local is the device-side durable cache: one SQLite table per
// entity, metadata, and cascade bookkeeping, created by embedded goose
// migrations.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/instalatrack/internal/dbx"
	"github.com/dmitrijs2005/instalatrack/internal/filex"
	"github.com/dmitrijs2005/instalatrack/internal/local/migrations"
	"github.com/dmitrijs2005/instalatrack/internal/local/repositories/collection"
	"github.com/dmitrijs2005/instalatrack/internal/local/repositories/metadata"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Table names of the entity collections.
const (
	TableProjects      = "projects"
	TableInstallations = "installations"
	TableItemVersions  = "item_versions"
	TableContacts      = "contacts"
	TableBudgets       = "budgets"
	TableFiles         = "files"
)

// Store bundles the collections of the local cache. A Store returned by
// InTx is bound to that transaction.
type Store struct {
	db   *sql.DB
	h    dbx.DBTX
	inTx bool

	Projects      *collection.Collection[*models.Project]
	Installations *collection.Collection[*models.Installation]
	Versions      *collection.Collection[*models.ItemVersion]
	Contacts      *collection.Collection[*models.Contact]
	Budgets       *collection.Collection[*models.Budget]
	Files         *collection.Collection[*models.File]
	Metadata      metadata.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (or creates) the cache at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if isFilePath(dsn) {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serialises writers anyway, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local migrations: %w", err)
	}
	return newStore(db, db, false), nil
}

// isFilePath reports a plain file name, as opposed to ":memory:" or a
// "file:" URI.
func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":") && !strings.HasPrefix(dsn, "file:")
}

func newStore(db *sql.DB, h dbx.DBTX, inTx bool) *Store {
	return &Store{
		db:            db,
		h:             h,
		inTx:          inTx,
		Projects:      collection.New(h, TableProjects, func() *models.Project { return &models.Project{} }),
		Installations: collection.New(h, TableInstallations, func() *models.Installation { return &models.Installation{} }),
		Versions:      collection.New(h, TableItemVersions, func() *models.ItemVersion { return &models.ItemVersion{} }),
		Contacts:      collection.New(h, TableContacts, func() *models.Contact { return &models.Contact{} }),
		Budgets:       collection.New(h, TableBudgets, func() *models.Budget { return &models.Budget{} }),
		Files:         collection.New(h, TableFiles, func() *models.File { return &models.File{} }),
		Metadata:      metadata.NewSQLiteRepository(h),
	}
}

// InTx runs fn with a Store bound to one transaction. Calling InTx on a
// transaction-bound Store joins the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newStore(s.db, tx, true))
	})
}

// DB exposes the underlying handle, for health checks and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }
