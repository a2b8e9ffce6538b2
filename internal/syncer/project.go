package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
)

// SaveProject pushes first when online and signed in, then stores the
// confirmed record, re-keyed if the backend assigned a new id. Otherwise
// the project is stored dirty and queued.
func (d *Dispatcher) SaveProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if err := models.Validate(p); err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = common.NewLocalID()
	}

	unlock := d.locks.Lock(p.ID)
	defer unlock()

	p.Touch(d.now())

	if d.Online(ctx) && d.sessionValid(ctx) {
		err := d.pushProject(ctx, p)
		if err == nil {
			d.metrics.RecordWrite(string(KindProject), metrics.ResultSynced)
			return p, nil
		}
		d.log.Warn(ctx, "project push failed, saving locally", "id", p.ID, "error", err)
	}

	p.Dirty = true
	if err := d.store.Projects.Put(ctx, p); err != nil {
		return p, fmt.Errorf("local write: %w", err)
	}
	d.enqueue(ProjectChange{ID: p.ID}, p)
	d.metrics.RecordWrite(string(KindProject), metrics.ResultQueued)
	return p, nil
}

func (d *Dispatcher) replayProject(ctx context.Context, id string) (bool, error) {
	if !d.sessionValid(ctx) {
		return false, common.ErrUnauthorized
	}

	unlock := d.locks.Lock(id)
	defer unlock()

	p, err := d.store.Projects.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !p.Dirty {
		return false, nil
	}
	return true, d.pushProject(ctx, p)
}

// pushProject sends p and stores the confirmed state locally. Caller holds
// the project's lock.
func (d *Dispatcher) pushProject(ctx context.Context, p *models.Project) error {
	if p.Deleted {
		return d.pushProjectTombstone(ctx, p)
	}

	started := time.Now()
	oldID := p.ID
	newID, err := d.remote.UpsertProject(ctx, postgres.ProjectToRow(p))
	if err != nil {
		return err
	}
	d.metrics.ObservePush(string(KindProject), time.Since(started))

	confirmed := *p
	confirmed.ID = newID
	confirmed.Dirty = false

	err = d.store.InTx(ctx, func(ctx context.Context, tx *local.Store) error {
		if newID != oldID {
			if err := rekeyProject(ctx, tx, oldID, newID); err != nil {
				return err
			}
		}
		return tx.Projects.Put(ctx, &confirmed)
	})
	if err != nil {
		return fmt.Errorf("store confirmed project: %w", err)
	}

	if newID != oldID {
		d.aliasMu.Lock()
		d.aliases[oldID] = newID
		d.aliasMu.Unlock()
		d.log.Info(ctx, "project re-keyed", "old_id", oldID, "id", newID)
	}
	*p = confirmed
	d.notify(ctx, postgres.TableProjects, p.ID, p.ID, realtime.OpUpsert)
	return nil
}

// rekeyProject drops the local- row and points every dependent at newID.
func rekeyProject(ctx context.Context, tx *local.Store, oldID, newID string) error {
	if err := tx.Projects.Remove(ctx, oldID); err != nil {
		return err
	}
	rewrites := []func(context.Context, string, string) (int64, error){
		tx.Installations.RewriteProject,
		tx.Versions.RewriteProject,
		tx.Contacts.RewriteProject,
		tx.Budgets.RewriteProject,
		tx.Files.RewriteProject,
	}
	for _, rewrite := range rewrites {
		if _, err := rewrite(ctx, oldID, newID); err != nil {
			return err
		}
	}
	return nil
}

// pushProjectTombstone purges the project on the backend, removes its stored
// objects and marks the local tombstones clean. A project that never
// reached the backend has nothing to purge.
func (d *Dispatcher) pushProjectTombstone(ctx context.Context, p *models.Project) error {
	if !common.IsLocalID(p.ID) {
		res, err := d.remote.PurgeProject(ctx, p.ID)
		if err != nil {
			return err
		}
		d.removeObjects(ctx, d.buckets.files, res.FilePaths...)
		d.removeObjects(ctx, d.buckets.budgets, res.BudgetPaths...)
	}

	err := d.store.InTx(ctx, func(ctx context.Context, tx *local.Store) error {
		clean, err := clearProjectTombstones(ctx, tx, p.ID, p.UpdatedAt)
		if clean {
			p.Dirty = false
		}
		return err
	})
	if err != nil {
		return err
	}
	d.notify(ctx, postgres.TableProjects, p.ID, p.ID, realtime.OpDelete)
	return nil
}

// DestroyProject tombstones a project and all its dependents in one local
// transaction and pushes the project tombstone, which purges the backend.
func (d *Dispatcher) DestroyProject(ctx context.Context, id string) (*local.CascadeRecord, error) {
	if _, err := d.store.Projects.Get(ctx, id); err != nil {
		return nil, err
	}

	unlock := d.locks.Lock(id)
	rec, err := d.store.Cascade(ctx, local.TableProjects, id, local.ProjectCascade, d.now())
	unlock()
	if err != nil {
		return nil, err
	}
	d.metrics.RecordCascade(local.TableProjects)

	d.Dispatch(ctx, ProjectChange{ID: id})
	return rec, nil
}

// PurgeProject hard-deletes a project now: backend rows in dependency
// order, then stored objects, then the local cascade. It needs the backend;
// a remote purge that succeeded is not undone if a later step fails.
func (d *Dispatcher) PurgeProject(ctx context.Context, id string) error {
	if !d.Online(ctx) {
		return common.ErrUnavailable
	}

	unlock := d.locks.Lock(id)
	defer unlock()

	if !common.IsLocalID(id) {
		res, err := d.remote.PurgeProject(ctx, id)
		if err != nil {
			return fmt.Errorf("remote purge: %w", err)
		}
		d.removeObjects(ctx, d.buckets.files, res.FilePaths...)
		d.removeObjects(ctx, d.buckets.budgets, res.BudgetPaths...)
	}

	if _, err := d.store.Projects.Get(ctx, id); errors.Is(err, common.ErrNotFound) {
		// Never cached on this device.
		return nil
	} else if err != nil {
		return err
	}

	// The backend is already empty: cascade and clear the flags at once.
	err := d.store.InTx(ctx, func(ctx context.Context, tx *local.Store) error {
		if _, err := tx.Cascade(ctx, local.TableProjects, id, local.ProjectCascade, d.now()); err != nil {
			return err
		}
		tomb, err := tx.Projects.Get(ctx, id)
		if err != nil {
			return err
		}
		_, err = clearProjectTombstones(ctx, tx, id, tomb.UpdatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("local purge: %w", err)
	}
	d.metrics.RecordCascade(local.TableProjects)
	return nil
}

// clearProjectTombstones marks every tombstone of the project clean,
// including the project row itself while it still carries updatedAt.
func clearProjectTombstones(ctx context.Context, tx *local.Store, projectID string, updatedAt time.Time) (bool, error) {
	clears := []func(context.Context, string) (int64, error){
		tx.Installations.ClearProjectTombstones,
		tx.Versions.ClearProjectTombstones,
		tx.Contacts.ClearProjectTombstones,
		tx.Budgets.ClearProjectTombstones,
		tx.Files.ClearProjectTombstones,
	}
	for _, fn := range clears {
		if _, err := fn(ctx, projectID); err != nil {
			return false, err
		}
	}
	return tx.Projects.MarkClean(ctx, projectID, updatedAt)
}
