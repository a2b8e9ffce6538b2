package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
)

// Remote is the backend surface the dispatcher pushes to.
type Remote interface {
	UpsertProject(ctx context.Context, row postgres.Row) (string, error)
	Upsert(ctx context.Context, table string, row postgres.Row) error
	Delete(ctx context.Context, table, id string) error
	PurgeProject(ctx context.Context, projectID string) (*postgres.PurgeResult, error)
	FetchProjects(ctx context.Context, ownerID string) ([]*models.Project, error)
	FetchInstallations(ctx context.Context, projectID string) ([]*models.Installation, error)
}

// ObjectRemover deletes stored objects orphaned by remote deletions.
type ObjectRemover interface {
	Delete(ctx context.Context, bucket string, keys ...string) error
}

type Notifier interface {
	Publish(ctx context.Context, e realtime.Event) error
}

// SessionChecker reports whether a signed-in session exists. Project pushes
// require one.
type SessionChecker interface {
	EnsureSession(ctx context.Context) error
}

// TxHook runs inside the local transaction of a save, before the record is
// written, so it may still adjust the record (the revision ledger does).
type TxHook func(ctx context.Context, tx *local.Store) error

type Options struct {
	Checker       connectivity.Checker
	Session       SessionChecker
	Notifier      Notifier
	Storage       ObjectRemover
	FilesBucket   string
	BudgetsBucket string
	Metrics       *metrics.Metrics
	Log           logging.Logger
	Now           func() time.Time
}

type Dispatcher struct {
	store    *local.Store
	remote   Remote
	checker  connectivity.Checker
	session  SessionChecker
	notifier Notifier
	storage  ObjectRemover
	buckets  struct{ files, budgets string }
	metrics  *metrics.Metrics
	log      logging.Logger
	now      func() time.Time

	queue     Queue
	locks     keyedMutex
	replaying atomic.Bool

	aliasMu sync.RWMutex
	aliases map[string]string
}

// NewDispatcher wires the dispatcher. A nil remote makes every write queue.
func NewDispatcher(store *local.Store, remote Remote, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		remote:   remote,
		checker:  opts.Checker,
		session:  opts.Session,
		notifier: opts.Notifier,
		storage:  opts.Storage,
		metrics:  opts.Metrics,
		log:      opts.Log,
		now:      opts.Now,
		aliases:  make(map[string]string),
	}
	d.buckets.files = opts.FilesBucket
	d.buckets.budgets = opts.BudgetsBucket
	if d.checker == nil {
		d.checker = connectivity.Static(false)
	}
	if d.log == nil {
		d.log = logging.Discard()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

func (d *Dispatcher) Store() *local.Store { return d.store }

// Online reads connectivity once.
func (d *Dispatcher) Online(ctx context.Context) bool {
	return d.remote != nil && d.checker.Online(ctx)
}

func (d *Dispatcher) sessionValid(ctx context.Context) bool {
	if d.session == nil {
		return true
	}
	return d.session.EnsureSession(ctx) == nil
}

// Pending returns the queued changes, oldest first.
func (d *Dispatcher) Pending() []Entry { return d.queue.Entries() }

func (d *Dispatcher) QueueLen() int { return d.queue.Len() }

// ResolveProjectID follows re-keys: a project created offline is known by
// its backend id after its first push.
func (d *Dispatcher) ResolveProjectID(id string) string {
	d.aliasMu.RLock()
	defer d.aliasMu.RUnlock()
	for {
		next, ok := d.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
}

func (d *Dispatcher) enqueue(c Change, snapshot models.Entity) {
	d.queue.Push(Entry{Change: c, Snapshot: snapshot, QueuedAt: d.now()})
	d.metrics.SetQueueDepth(d.queue.Len())
}

func (d *Dispatcher) notify(ctx context.Context, table, id, projectID, op string) {
	if d.notifier == nil {
		return
	}
	err := d.notifier.Publish(ctx, realtime.Event{Table: table, ID: id, ProjectID: projectID, Op: op, At: d.now().UTC()})
	if err != nil {
		d.log.Warn(ctx, "change notification failed", "table", table, "id", id, "error", err)
	}
}

func (d *Dispatcher) removeObjects(ctx context.Context, bucket string, keys ...string) {
	if d.storage == nil || bucket == "" || len(keys) == 0 {
		return
	}
	if err := d.storage.Delete(ctx, bucket, keys...); err != nil {
		d.log.Warn(ctx, "storage cleanup failed", "bucket", bucket, "objects", len(keys), "error", err)
	}
}

// SaveInstallation writes inst locally (hooks share the transaction) and
// pushes it when online. The returned record is clean when the backend
// confirmed it.
func (d *Dispatcher) SaveInstallation(ctx context.Context, inst *models.Installation, hooks ...TxHook) (*models.Installation, error) {
	return saveEntity(ctx, d, installations, inst, hooks)
}

func (d *Dispatcher) SaveContact(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	return saveEntity(ctx, d, contacts, c, nil)
}

func (d *Dispatcher) SaveBudget(ctx context.Context, b *models.Budget) (*models.Budget, error) {
	return saveEntity(ctx, d, budgets, b, nil)
}

func (d *Dispatcher) SaveFile(ctx context.Context, f *models.File, hooks ...TxHook) (*models.File, error) {
	return saveEntity(ctx, d, files, f, hooks)
}

func (d *Dispatcher) RemoveContact(ctx context.Context, id string) error {
	return removeEntity(ctx, d, contacts, id)
}

func (d *Dispatcher) RemoveBudget(ctx context.Context, id string) error {
	return removeEntity(ctx, d, budgets, id)
}

func (d *Dispatcher) RemoveFile(ctx context.Context, id string) error {
	return removeEntity(ctx, d, files, id)
}

// RemoveInstallation tombstones an installation with its history and photo
// records in one local transaction, then pushes the tombstones.
func (d *Dispatcher) RemoveInstallation(ctx context.Context, id string) (*local.CascadeRecord, error) {
	if _, err := d.store.Installations.Get(ctx, id); err != nil {
		return nil, err
	}
	attached, err := d.store.Files.ListByInstallation(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := d.locks.Lock(id)
	rec, err := d.store.Cascade(ctx, local.TableInstallations, id, local.InstallationCascade, d.now())
	unlock()
	if err != nil {
		return nil, err
	}
	d.metrics.RecordCascade(local.TableInstallations)

	for _, f := range attached {
		d.Dispatch(ctx, FileChange{ID: f.ID})
	}
	d.Dispatch(ctx, InstallationChange{ID: id})
	return rec, nil
}

// Dispatch pushes the current local state of c, or queues it.
func (d *Dispatcher) Dispatch(ctx context.Context, c Change) {
	if d.Online(ctx) {
		_, err := d.replay(ctx, c)
		if err == nil {
			d.metrics.RecordWrite(string(c.Kind()), metrics.ResultSynced)
			return
		}
		d.log.Warn(ctx, "push failed, queued for replay", "entity", string(c.Kind()), "id", c.EntityID(), "error", err)
	}
	d.enqueue(c, nil)
	d.metrics.RecordWrite(string(c.Kind()), metrics.ResultQueued)
}

// replay pushes the current local record behind c. It reports false when
// there was nothing to push: the record is gone or already clean.
func (d *Dispatcher) replay(ctx context.Context, c Change) (bool, error) {
	switch c := c.(type) {
	case ProjectChange:
		return d.replayProject(ctx, c.ID)
	case InstallationChange:
		return replayEntity(ctx, d, installations, c.ID)
	case ContactChange:
		return replayEntity(ctx, d, contacts, c.ID)
	case BudgetChange:
		return replayEntity(ctx, d, budgets, c.ID)
	case FileChange:
		return replayEntity(ctx, d, files, c.ID)
	default:
		return false, fmt.Errorf("unsupported change %T", c)
	}
}
