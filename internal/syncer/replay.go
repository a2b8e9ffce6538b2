package syncer

import (
	"context"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// ReplayReport summarises one ProcessQueue batch.
type ReplayReport struct {
	Attempted int
	Succeeded int
	Requeued  int
	// Skipped counts entries whose record vanished or was already clean.
	Skipped int
}

// ProcessQueue replays, oldest first, every entry queued at call time. A
// failed entry goes back to the tail and the batch moves on. Nothing
// happens while offline or while another batch is running.
func (d *Dispatcher) ProcessQueue(ctx context.Context) ReplayReport {
	var report ReplayReport
	if d.queue.Len() == 0 || !d.Online(ctx) {
		return report
	}
	if !d.replaying.CompareAndSwap(false, true) {
		return report
	}
	defer d.replaying.Store(false)

	batch := d.queue.Drain()
	for i, e := range batch {
		if ctx.Err() != nil {
			for _, rest := range batch[i:] {
				d.queue.Push(rest)
			}
			report.Requeued += len(batch) - i
			break
		}

		report.Attempted++
		kind := string(e.Change.Kind())
		pushed, err := d.replay(ctx, e.Change)
		switch {
		case err != nil:
			d.log.Warn(ctx, "replay failed, requeued", "entity", kind, "id", e.Change.EntityID(), "error", err)
			d.queue.Push(e)
			report.Requeued++
			d.metrics.RecordReplay(kind, metrics.ResultFailed)
		case pushed:
			report.Succeeded++
			d.metrics.RecordReplay(kind, metrics.ResultSynced)
		default:
			report.Skipped++
			d.metrics.RecordReplay(kind, metrics.ResultSkipped)
		}
	}

	d.metrics.SetQueueDepth(d.queue.Len())
	if report.Attempted > 0 {
		d.log.Info(ctx, "queue replayed",
			"attempted", report.Attempted, "succeeded", report.Succeeded,
			"requeued", report.Requeued, "skipped", report.Skipped)
	}
	return report
}

// Rehydrate rebuilds the queue from the dirty flags of the cache, projects
// first so re-keys happen before their dependents are pushed. Item versions
// stay on the device and are never queued.
func (d *Dispatcher) Rehydrate(ctx context.Context) (int, error) {
	d.queue.Clear()

	if err := rehydrate(ctx, d, d.store.Projects.ListDirty, func(p *models.Project) Change { return ProjectChange{ID: p.ID} }); err != nil {
		return 0, err
	}
	if err := rehydrate(ctx, d, d.store.Installations.ListDirty, func(i *models.Installation) Change { return InstallationChange{ID: i.ID} }); err != nil {
		return 0, err
	}
	if err := rehydrate(ctx, d, d.store.Contacts.ListDirty, func(c *models.Contact) Change { return ContactChange{ID: c.ID} }); err != nil {
		return 0, err
	}
	if err := rehydrate(ctx, d, d.store.Budgets.ListDirty, func(b *models.Budget) Change { return BudgetChange{ID: b.ID} }); err != nil {
		return 0, err
	}
	if err := rehydrate(ctx, d, d.store.Files.ListDirty, func(f *models.File) Change { return FileChange{ID: f.ID} }); err != nil {
		return 0, err
	}

	n := d.queue.Len()
	d.metrics.SetQueueDepth(n)
	return n, nil
}

func rehydrate[T models.Entity](ctx context.Context, d *Dispatcher, list func(context.Context) ([]T, error), change func(T) Change) error {
	recs, err := list(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.enqueue(change(rec), rec)
	}
	return nil
}

// PullReport counts what Pull stored.
type PullReport struct {
	Projects      int
	Installations int
	// Kept counts records left alone because the local copy has unpushed
	// changes or is a tombstone.
	Kept int
}

// Pull seeds the cache with the owner's projects and installations. Local
// records with pending changes win.
func (d *Dispatcher) Pull(ctx context.Context, ownerID string) (PullReport, error) {
	var report PullReport
	if !d.Online(ctx) {
		return report, common.ErrUnavailable
	}

	projects, err := d.remote.FetchProjects(ctx, ownerID)
	if err != nil {
		return report, err
	}
	for _, p := range projects {
		stored, err := pullOne(ctx, d, d.store.Projects.Get, d.store.Projects.Put, p)
		if err != nil {
			return report, err
		}
		if !stored {
			report.Kept++
			continue
		}
		report.Projects++

		items, err := d.remote.FetchInstallations(ctx, p.ID)
		if err != nil {
			return report, err
		}
		for _, inst := range items {
			stored, err := pullOne(ctx, d, d.store.Installations.Get, d.store.Installations.Put, inst)
			if err != nil {
				return report, err
			}
			if stored {
				report.Installations++
			} else {
				report.Kept++
			}
		}
	}

	if err := d.store.Metadata.SetTime(ctx, common.MetaLastPull, d.now()); err != nil {
		return report, err
	}
	return report, nil
}

func pullOne[T models.Entity](ctx context.Context, d *Dispatcher, get func(context.Context, string) (T, error), put func(context.Context, T) error, rec T) (bool, error) {
	unlock := d.locks.Lock(rec.EntityID())
	defer unlock()

	current, err := get(ctx, rec.EntityID())
	if err == nil {
		st := current.State()
		if st.Dirty || st.Deleted {
			return false, nil
		}
	}
	rec.State().Dirty = false
	rec.State().Deleted = false
	return true, put(ctx, rec)
}
