package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/local/repositories/collection"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
)

// binding ties a child entity type to its collection, remote table and
// transform.
type binding[T models.Entity] struct {
	kind   Kind
	table  string
	coll   func(s *local.Store) *collection.Collection[T]
	toRow  func(T) (postgres.Row, error)
	change func(id string) Change
	// afterDelete runs once the backend dropped the row.
	afterDelete func(ctx context.Context, d *Dispatcher, rec T)
}

var installations = binding[*models.Installation]{
	kind:   KindInstallation,
	table:  postgres.TableInstallations,
	coll:   func(s *local.Store) *collection.Collection[*models.Installation] { return s.Installations },
	toRow:  postgres.InstallationToRow,
	change: func(id string) Change { return InstallationChange{ID: id} },
}

var contacts = binding[*models.Contact]{
	kind:   KindContact,
	table:  postgres.TableContacts,
	coll:   func(s *local.Store) *collection.Collection[*models.Contact] { return s.Contacts },
	toRow:  postgres.ContactToRow,
	change: func(id string) Change { return ContactChange{ID: id} },
}

var budgets = binding[*models.Budget]{
	kind:   KindBudget,
	table:  postgres.TableSupplierProposals,
	coll:   func(s *local.Store) *collection.Collection[*models.Budget] { return s.Budgets },
	toRow:  postgres.BudgetToRow,
	change: func(id string) Change { return BudgetChange{ID: id} },
	afterDelete: func(ctx context.Context, d *Dispatcher, b *models.Budget) {
		if b.FilePath != "" {
			d.removeObjects(ctx, d.buckets.budgets, b.FilePath)
		}
	},
}

var files = binding[*models.File]{
	kind:   KindFile,
	table:  postgres.TableFiles,
	coll:   func(s *local.Store) *collection.Collection[*models.File] { return s.Files },
	toRow:  postgres.FileToRow,
	change: func(id string) Change { return FileChange{ID: id} },
	afterDelete: func(ctx context.Context, d *Dispatcher, f *models.File) {
		d.removeObjects(ctx, d.buckets.files, f.Path)
	},
}

func saveEntity[T models.Entity](ctx context.Context, d *Dispatcher, b binding[T], rec T, hooks []TxHook) (T, error) {
	if err := models.Validate(rec); err != nil {
		return rec, err
	}

	unlock := d.locks.Lock(rec.EntityID())
	defer unlock()

	rec.State().Touch(d.now())
	err := d.store.InTx(ctx, func(ctx context.Context, tx *local.Store) error {
		for _, h := range hooks {
			if err := h(ctx, tx); err != nil {
				return err
			}
		}
		return b.coll(tx).Put(ctx, rec)
	})
	if err != nil {
		return rec, fmt.Errorf("local write: %w", err)
	}

	if d.Online(ctx) {
		err := pushEntity(ctx, d, b, rec)
		if err == nil {
			d.metrics.RecordWrite(string(b.kind), metrics.ResultSynced)
			return rec, nil
		}
		d.log.Warn(ctx, "push failed, queued for replay", "entity", string(b.kind), "id", rec.EntityID(), "error", err)
	}

	d.enqueue(b.change(rec.EntityID()), rec)
	d.metrics.RecordWrite(string(b.kind), metrics.ResultQueued)
	return rec, nil
}

func removeEntity[T models.Entity](ctx context.Context, d *Dispatcher, b binding[T], id string) error {
	unlock := d.locks.Lock(id)
	err := b.coll(d.store).Tombstone(ctx, id, d.now())
	unlock()
	if err != nil {
		return err
	}
	d.Dispatch(ctx, b.change(id))
	return nil
}

// pushEntity sends rec (an upsert, or a delete for tombstones) and clears
// the dirty flag if no newer local write landed meanwhile. Caller holds the
// record's lock.
func pushEntity[T models.Entity](ctx context.Context, d *Dispatcher, b binding[T], rec T) error {
	st := rec.State()
	started := time.Now()

	op := realtime.OpUpsert
	if st.Deleted {
		op = realtime.OpDelete
		// Backend rows have no tombstone column; the local tombstone stays.
		if err := d.remote.Delete(ctx, b.table, rec.EntityID()); err != nil {
			return err
		}
		if b.afterDelete != nil {
			b.afterDelete(ctx, d, rec)
		}
	} else {
		row, err := b.toRow(rec)
		if err != nil {
			return err
		}
		if err := d.remote.Upsert(ctx, b.table, row); err != nil {
			return err
		}
	}
	d.metrics.ObservePush(string(b.kind), time.Since(started))

	clean, err := b.coll(d.store).MarkClean(ctx, rec.EntityID(), st.UpdatedAt)
	if err != nil {
		return err
	}
	if clean {
		st.Dirty = false
	}
	d.notify(ctx, b.table, rec.EntityID(), rec.ProjectRef(), op)
	return nil
}

func replayEntity[T models.Entity](ctx context.Context, d *Dispatcher, b binding[T], id string) (bool, error) {
	unlock := d.locks.Lock(id)
	defer unlock()

	rec, err := b.coll(d.store).Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !rec.State().Dirty {
		return false, nil
	}
	return true, pushEntity(ctx, d, b, rec)
}
