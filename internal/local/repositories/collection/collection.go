package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/dbx"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/timex"
)

// Secondary key columns usable in filters.
const (
	ColumnID             = "id"
	ColumnProjectID      = "project_id"
	ColumnInstallationID = "installation_id"
)

// Collection stores one entity type T in its own table.
type Collection[T models.Entity] struct {
	db    dbx.DBTX
	table string
	newFn func() T
}

func New[T models.Entity](db dbx.DBTX, table string, newFn func() T) *Collection[T] {
	return &Collection[T]{db: db, table: table, newFn: newFn}
}

// WithTx returns a copy of the collection bound to tx.
func (c *Collection[T]) WithTx(tx dbx.DBTX) *Collection[T] {
	return &Collection[T]{db: tx, table: c.table, newFn: c.newFn}
}

func (c *Collection[T]) Table() string { return c.table }

// Get returns the record with id, tombstoned or not, or common.ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	row := c.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT data, dirty, deleted, updated_at FROM %s WHERE id = ?`, c.table), id)

	rec, err := c.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s[%s]: %w", c.table, id, common.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s[%s]: %w", c.table, id, err)
	}
	return rec, nil
}

// Put replaces or creates the stored record. The last write wins; nothing
// is merged.
func (c *Collection[T]) Put(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s[%s]: %w", c.table, rec.EntityID(), err)
	}
	st := rec.State()

	_, err = c.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, project_id, installation_id, data, dirty, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			installation_id = excluded.installation_id,
			data = excluded.data,
			dirty = excluded.dirty,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
	`, c.table),
		rec.EntityID(), rec.ProjectRef(), rec.InstallationRef(), string(data),
		boolToInt(st.Dirty), boolToInt(st.Deleted), st.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put %s[%s]: %w", c.table, rec.EntityID(), err)
	}
	return nil
}

// Remove physically deletes a row. Only re-keying uses it; deletions of
// domain data go through Tombstone.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.table), id)
	if err != nil {
		return fmt.Errorf("failed to remove %s[%s]: %w", c.table, id, err)
	}
	return nil
}

// ListActive returns every non-tombstoned record, most recently updated first.
func (c *Collection[T]) ListActive(ctx context.Context) ([]T, error) {
	return c.query(ctx, `WHERE deleted != 1 ORDER BY updated_at DESC, id`)
}

func (c *Collection[T]) ListByProject(ctx context.Context, projectID string) ([]T, error) {
	return c.query(ctx, `WHERE project_id = ? AND deleted != 1 ORDER BY updated_at DESC, id`, projectID)
}

func (c *Collection[T]) ListByInstallation(ctx context.Context, installationID string) ([]T, error) {
	return c.query(ctx, `WHERE installation_id = ? AND deleted != 1 ORDER BY updated_at DESC, id`, installationID)
}

// ListDirty returns records awaiting remote confirmation, tombstones
// included, oldest first.
func (c *Collection[T]) ListDirty(ctx context.Context) ([]T, error) {
	return c.query(ctx, `WHERE dirty = 1 ORDER BY updated_at, id`)
}

// MarkClean clears the dirty flag only while the stored updated_at still
// equals the pushed one. A false result means a newer local write landed in
// between and must be pushed on its own.
func (c *Collection[T]) MarkClean(ctx context.Context, id string, updatedAt time.Time) (bool, error) {
	n, err := dbx.Affected(c.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET dirty = 0 WHERE id = ? AND updated_at = ?`, c.table), id, updatedAt.UnixMilli()))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s[%s] clean: %w", c.table, id, err)
	}
	return n == 1, nil
}

// Tombstone marks one record deleted and dirty.
func (c *Collection[T]) Tombstone(ctx context.Context, id string, at time.Time) error {
	n, err := dbx.Affected(c.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND deleted = 0`, c.table),
		at.UnixMilli(), id))
	if err != nil {
		return fmt.Errorf("failed to tombstone %s[%s]: %w", c.table, id, err)
	}
	if n != 1 {
		return fmt.Errorf("%s[%s]: %w", c.table, id, common.ErrNotFound)
	}
	return nil
}

// TombstoneWhere tombstones every live record whose column equals value and
// returns how many rows changed. Running it twice is harmless.
func (c *Collection[T]) TombstoneWhere(ctx context.Context, column, value string, at time.Time) (int64, error) {
	if err := checkColumn(column); err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET deleted = 1, dirty = 1, updated_at = ? WHERE %s = ? AND deleted = 0`, c.table, column),
		at.UnixMilli(), value)
	if err != nil {
		return 0, fmt.Errorf("failed to tombstone %s by %s: %w", c.table, column, err)
	}
	return res.RowsAffected()
}

// ClearProjectTombstones marks the tombstones of a project clean once the
// backend has dropped the whole project.
func (c *Collection[T]) ClearProjectTombstones(ctx context.Context, projectID string) (int64, error) {
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET dirty = 0 WHERE project_id = ? AND deleted = 1`, c.table), projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s tombstones of %s: %w", c.table, projectID, err)
	}
	return res.RowsAffected()
}

// RewriteProject moves every record of oldID to newID, payload included.
func (c *Collection[T]) RewriteProject(ctx context.Context, oldID, newID string) (int64, error) {
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET project_id = ?, data = json_set(data, '$.project_id', ?)
		WHERE project_id = ?`, c.table), newID, newID, oldID)
	if err != nil {
		return 0, fmt.Errorf("failed to rewrite %s project %s: %w", c.table, oldID, err)
	}
	return res.RowsAffected()
}

func (c *Collection[T]) query(ctx context.Context, where string, args ...any) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT data, dirty, deleted, updated_at FROM %s %s`, c.table, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.table, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		rec, err := c.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.table, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", c.table, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (c *Collection[T]) scan(s scanner) (T, error) {
	var (
		data           string
		dirty, deleted int
		updatedAt      int64
		zero           T
	)
	if err := s.Scan(&data, &dirty, &deleted, &updatedAt); err != nil {
		return zero, err
	}

	rec := c.newFn()
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return zero, err
	}
	st := rec.State()
	st.Dirty = dirty == 1
	st.Deleted = deleted == 1
	st.UpdatedAt = timex.UnixMilli(updatedAt)
	return rec, nil
}

func checkColumn(column string) error {
	switch column {
	case ColumnID, ColumnProjectID, ColumnInstallationID:
		return nil
	default:
		return fmt.Errorf("unsupported filter column %q", column)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
