// Package installations implements the item operations of a project on top
// of the sync dispatcher and the revision ledger. Every mutating call hands
// back the undo.Func that reverts it.
package installations

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/revisions"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/dmitrijs2005/instalatrack/internal/undo"
	"github.com/google/uuid"
)

// SaveOptions controls whether a write is recorded in the history.
type SaveOptions struct {
	ForceRevision bool
	Type          models.VersionType
	Motive        models.Motive
	Description   string
	UserEmail     string
}

func (o SaveOptions) entry() revisions.Entry {
	return revisions.Entry{Type: o.Type, Motive: o.Motive, Description: o.Description, UserEmail: o.UserEmail}
}

type Service struct {
	d      *syncer.Dispatcher
	ledger *revisions.Ledger
	log    logging.Logger
	now    func() time.Time
}

func NewService(d *syncer.Dispatcher, ledger *revisions.Ledger, log logging.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{d: d, ledger: ledger, log: log, now: now}
}

func (s *Service) store() *local.Store { return s.d.Store() }

// save writes inst through the dispatcher, appending a version in the same
// local transaction when a revision is forced.
func (s *Service) save(ctx context.Context, inst *models.Installation, opts SaveOptions) (*models.Installation, error) {
	if err := models.Validate(inst); err != nil {
		return nil, err
	}
	var hooks []syncer.TxHook
	if opts.ForceRevision {
		hooks = append(hooks, func(ctx context.Context, tx *local.Store) error {
			_, err := s.ledger.Revise(ctx, tx, inst, opts.entry())
			return err
		})
	}
	return s.d.SaveInstallation(ctx, inst, hooks...)
}

// Create stores a new installation as revision 1.
func (s *Service) Create(ctx context.Context, inst *models.Installation, opts SaveOptions) (*models.Installation, undo.Func, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.ProjectID = s.d.ResolveProjectID(inst.ProjectID)
	if _, err := s.store().Projects.Get(ctx, inst.ProjectID); err != nil {
		return nil, nil, fmt.Errorf("project %s: %w", inst.ProjectID, err)
	}
	inst.Revision, inst.Revised = 0, false
	opts.ForceRevision = true
	opts.Type = models.VersionCreated

	saved, err := s.save(ctx, inst, opts)
	if err != nil {
		return nil, nil, err
	}
	id := saved.ID
	return saved, func(ctx context.Context) error {
		_, err := s.d.RemoveInstallation(ctx, id)
		return err
	}, nil
}

// Update writes the editable fields of inst. The revision counter cannot
// be set by callers; it only moves through forced revisions.
func (s *Service) Update(ctx context.Context, inst *models.Installation, opts SaveOptions) (*models.Installation, undo.Func, error) {
	prev, err := s.Get(ctx, inst.ID)
	if err != nil {
		return nil, nil, err
	}
	inst.ProjectID = prev.ProjectID
	inst.Revision, inst.Revised = prev.Revision, prev.Revised
	inst.SyncState = prev.SyncState

	saved, err := s.save(ctx, inst, opts)
	if err != nil {
		return nil, nil, err
	}
	return saved, s.revertTo(prev), nil
}

// revertTo rewrites the fields of prev without touching the revision
// counter or the history.
func (s *Service) revertTo(prev *models.Installation) undo.Func {
	return func(ctx context.Context) error {
		cur, err := s.Get(ctx, prev.ID)
		if err != nil {
			return err
		}
		back := *prev
		back.Revision, back.Revised = cur.Revision, cur.Revised
		back.SyncState = cur.SyncState
		_, err = s.save(ctx, &back, SaveOptions{})
		return err
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Installation, error) {
	inst, err := s.store().Installations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Deleted {
		return nil, fmt.Errorf("installation %s: %w", id, common.ErrNotFound)
	}
	return inst, nil
}

// List returns the active installations of a project ordered by typology
// and code.
func (s *Service) List(ctx context.Context, projectID string) ([]*models.Installation, error) {
	items, err := s.store().Installations.ListByProject(ctx, s.d.ResolveProjectID(projectID))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b *models.Installation) int {
		return cmp.Or(
			cmp.Compare(a.Typology, b.Typology),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return items, nil
}

// Delete tombstones the installation with its history and photo records.
// Undo brings back the installation and its history; photo records are
// not recovered, so the restored item has no photos.
func (s *Service) Delete(ctx context.Context, id string) (undo.Func, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store().Versions.ListByInstallation(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.d.RemoveInstallation(ctx, id); err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		cur, err := s.store().Installations.Get(ctx, id)
		if err != nil {
			return err
		}
		back := *prev
		back.Photos = nil
		back.SyncState = cur.SyncState
		back.Deleted = false
		_, err = s.d.SaveInstallation(ctx, &back, func(ctx context.Context, tx *local.Store) error {
			for _, v := range history {
				v.Deleted = false
				if err := tx.Versions.Put(ctx, v); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	}, nil
}

// BulkDelete deletes ids in order. On failure the undo of the deletions
// already applied is returned with the error.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (undo.Func, error) {
	var undos []undo.Func
	for _, id := range ids {
		fn, err := s.Delete(ctx, id)
		if err != nil {
			return undo.Chain(undos...), fmt.Errorf("delete %s: %w", id, err)
		}
		undos = append(undos, fn)
	}
	return undo.Chain(undos...), nil
}

// SetInstalled flips the installed flag of every id. It never forces a
// revision.
func (s *Service) SetInstalled(ctx context.Context, ids []string, installed bool) (undo.Func, error) {
	var (
		undos []undo.Func
		errs  []error
	)
	for _, id := range ids {
		prev, err := s.Get(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev.Installed == installed {
			continue
		}
		next := *prev
		next.Installed = installed
		next.InstalledAt = nil
		if installed {
			at := s.now().UTC()
			next.InstalledAt = &at
		}
		if _, err := s.save(ctx, &next, SaveOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("installation %s: %w", id, err))
			continue
		}
		undos = append(undos, s.revertTo(prev))
	}
	return undo.Chain(undos...), errors.Join(errs...)
}

// AttachPhoto appends a stored photo path to the installation.
func (s *Service) AttachPhoto(ctx context.Context, id, path string) (*models.Installation, undo.Func, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if slices.Contains(prev.Photos, path) {
		return prev, nil, nil
	}
	next := *prev
	next.Photos = append(slices.Clone(prev.Photos), path)
	saved, err := s.save(ctx, &next, SaveOptions{})
	if err != nil {
		return nil, nil, err
	}
	return saved, s.revertTo(prev), nil
}

// Restore rewrites the installation with the snapshot of versionID as a
// new revision. History is never truncated.
func (s *Service) Restore(ctx context.Context, id, versionID string, opts SaveOptions) (*models.Installation, undo.Func, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	v, err := revisions.Version(ctx, s.store(), id, versionID)
	if err != nil {
		return nil, nil, err
	}
	next, err := revisions.Restored(cur, v)
	if err != nil {
		return nil, nil, err
	}
	opts.ForceRevision = true
	opts.Type = models.VersionRestored

	saved, err := s.save(ctx, next, opts)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info(ctx, "installation restored", "id", id, "from_revision", v.Revision, "revision", saved.Revision)
	return saved, s.revertTo(cur), nil
}

// History lists the versions of an installation, newest first.
func (s *Service) History(ctx context.Context, id string) ([]*models.ItemVersion, error) {
	return revisions.History(ctx, s.store(), id)
}
