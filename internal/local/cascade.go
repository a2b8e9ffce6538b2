package local

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/local/repositories/collection"
	"github.com/dmitrijs2005/instalatrack/internal/timex"
	"github.com/google/uuid"
)

// CascadeStep tombstones the rows of Table whose Column matches the root id.
type CascadeStep struct {
	Table  string
	Column string
}

// ProjectCascade removes a project's dependents before the project itself.
var ProjectCascade = []CascadeStep{
	{Table: TableItemVersions, Column: collection.ColumnProjectID},
	{Table: TableInstallations, Column: collection.ColumnProjectID},
	{Table: TableContacts, Column: collection.ColumnProjectID},
	{Table: TableBudgets, Column: collection.ColumnProjectID},
	{Table: TableFiles, Column: collection.ColumnProjectID},
	{Table: TableProjects, Column: collection.ColumnID},
}

// InstallationCascade removes an installation's history and photos records
// before the installation.
var InstallationCascade = []CascadeStep{
	{Table: TableItemVersions, Column: collection.ColumnInstallationID},
	{Table: TableFiles, Column: collection.ColumnInstallationID},
	{Table: TableInstallations, Column: collection.ColumnID},
}

const (
	CascadeRunning = "running"
	CascadeDone    = "done"
)

// CascadeRecord is the audit row written for every cascade.
type CascadeRecord struct {
	ID         string
	RootTable  string
	RootID     string
	Status     string
	Affected   int64
	StartedAt  time.Time
	FinishedAt time.Time
}

type tombstoner interface {
	TombstoneWhere(ctx context.Context, column, value string, at time.Time) (int64, error)
}

func (s *Store) tombstoner(table string) (tombstoner, error) {
	switch table {
	case TableProjects:
		return s.Projects, nil
	case TableInstallations:
		return s.Installations, nil
	case TableItemVersions:
		return s.Versions, nil
	case TableContacts:
		return s.Contacts, nil
	case TableBudgets:
		return s.Budgets, nil
	case TableFiles:
		return s.Files, nil
	default:
		return nil, fmt.Errorf("unknown cascade table %q", table)
	}
}

// Cascade runs steps in order inside one local transaction, together with
// its audit record. Either every step is applied or none is.
func (s *Store) Cascade(ctx context.Context, rootTable, rootID string, steps []CascadeStep, at time.Time) (*CascadeRecord, error) {
	rec := &CascadeRecord{
		ID:        uuid.NewString(),
		RootTable: rootTable,
		RootID:    rootID,
		Status:    CascadeRunning,
		StartedAt: at.UTC(),
	}

	err := s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if _, err := tx.h.ExecContext(ctx, `
			INSERT INTO cascades (id, root_table, root_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.RootTable, rec.RootID, rec.Status, rec.StartedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to record cascade: %w", err)
		}

		for _, step := range steps {
			t, err := tx.tombstoner(step.Table)
			if err != nil {
				return err
			}
			n, err := t.TombstoneWhere(ctx, step.Column, rootID, at)
			if err != nil {
				return err
			}
			rec.Affected += n
		}

		rec.Status = CascadeDone
		rec.FinishedAt = at.UTC()
		_, err := tx.h.ExecContext(ctx, `
			UPDATE cascades SET status = ?, affected = ?, finished_at = ? WHERE id = ?`,
			rec.Status, rec.Affected, rec.FinishedAt.UnixMilli(), rec.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cascade %s[%s]: %w", rootTable, rootID, err)
	}
	return rec, nil
}

// Cascades lists the audit records of cascades rooted at rootID, newest first.
func (s *Store) Cascades(ctx context.Context, rootID string) ([]CascadeRecord, error) {
	rows, err := s.h.QueryContext(ctx, `
		SELECT id, root_table, root_id, status, affected, started_at, COALESCE(finished_at, 0)
		FROM cascades WHERE root_id = ? ORDER BY started_at DESC`, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cascades: %w", err)
	}
	defer rows.Close()

	var out []CascadeRecord
	for rows.Next() {
		var (
			r                 CascadeRecord
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.RootTable, &r.RootID, &r.Status, &r.Affected, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan cascade row: %w", err)
		}
		r.StartedAt = timex.UnixMilli(started)
		r.FinishedAt = timex.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
