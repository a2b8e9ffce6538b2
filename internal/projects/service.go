// Package projects implements the project lifecycle: creation, trash with a
// grace period, archive, permanent purge, and the project's contacts.
package projects

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
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/dmitrijs2005/instalatrack/internal/undo"
	"github.com/google/uuid"
)

type Service struct {
	d   *syncer.Dispatcher
	log logging.Logger
	now func() time.Time
}

func NewService(d *syncer.Dispatcher, log logging.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{d: d, log: log, now: now}
}

func (s *Service) store() *local.Store { return s.d.Store() }

// Create stores a new project. Its id stays local until the backend
// assigns one.
func (s *Service) Create(ctx context.Context, p *models.Project) (*models.Project, undo.Func, error) {
	p.ID = ""
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	p.CreatedAt = s.now().UTC()
	p.ArchivedAt, p.DeletedAt, p.PermanentDeletionAt = nil, nil, nil

	saved, err := s.d.SaveProject(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	id := saved.ID
	return saved, func(ctx context.Context) error {
		_, err := s.d.DestroyProject(ctx, s.d.ResolveProjectID(id))
		return err
	}, nil
}

// Update writes the descriptive fields of p. Lifecycle timestamps are only
// changed by the dedicated transitions.
func (s *Service) Update(ctx context.Context, p *models.Project) (*models.Project, undo.Func, error) {
	prev, err := s.Get(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	next := *p
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	next.ArchivedAt, next.DeletedAt, next.PermanentDeletionAt = prev.ArchivedAt, prev.DeletedAt, prev.PermanentDeletionAt
	next.SyncState = prev.SyncState

	saved, err := s.d.SaveProject(ctx, &next)
	if err != nil {
		return nil, nil, err
	}
	return saved, s.revertTo(prev), nil
}

func (s *Service) revertTo(prev *models.Project) undo.Func {
	return func(ctx context.Context) error {
		cur, err := s.Get(ctx, prev.ID)
		if err != nil {
			return err
		}
		back := *prev
		back.ID = cur.ID
		back.SyncState = cur.SyncState
		_, err = s.d.SaveProject(ctx, &back)
		return err
	}
}

// Get follows the re-key of a project first synced after id was handed
// out. Tombstoned projects are not found.
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	id = s.d.ResolveProjectID(id)
	p, err := s.store().Projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	return p, nil
}

func (s *Service) list(ctx context.Context, keep func(*models.Project) bool) ([]*models.Project, error) {
	all, err := s.store().Projects.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(all, func(p *models.Project) bool { return !keep(p) })
	slices.SortFunc(out, func(a, b *models.Project) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

// ListActive returns projects neither archived nor in the trash.
func (s *Service) ListActive(ctx context.Context) ([]*models.Project, error) {
	return s.list(ctx, (*models.Project).IsActive)
}

func (s *Service) ListArchived(ctx context.Context) ([]*models.Project, error) {
	return s.list(ctx, (*models.Project).IsArchived)
}

func (s *Service) ListTrash(ctx context.Context) ([]*models.Project, error) {
	return s.list(ctx, (*models.Project).InTrash)
}

// transition applies fn to the stored project and saves it; the undo puts
// the previous lifecycle state back.
func (s *Service) transition(ctx context.Context, id string, fn func(p *models.Project)) (*models.Project, undo.Func, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	next := *prev
	fn(&next)
	saved, err := s.d.SaveProject(ctx, &next)
	if err != nil {
		return nil, nil, err
	}
	return saved, s.revertTo(prev), nil
}

// SoftDelete moves a project to the trash; it is purged once the grace
// period ends unless restored.
func (s *Service) SoftDelete(ctx context.Context, id string) (*models.Project, undo.Func, error) {
	return s.transition(ctx, id, func(p *models.Project) { p.SoftDelete(s.now()) })
}

func (s *Service) Restore(ctx context.Context, id string) (*models.Project, undo.Func, error) {
	return s.transition(ctx, id, (*models.Project).Restore)
}

func (s *Service) Archive(ctx context.Context, id string) (*models.Project, undo.Func, error) {
	return s.transition(ctx, id, func(p *models.Project) { p.Archive(s.now()) })
}

func (s *Service) Unarchive(ctx context.Context, id string) (*models.Project, undo.Func, error) {
	return s.transition(ctx, id, (*models.Project).Unarchive)
}

// Destroy tombstones the project with everything below it and pushes the
// deletion. It cannot be undone.
func (s *Service) Destroy(ctx context.Context, id string) (*local.CascadeRecord, error) {
	return s.d.DestroyProject(ctx, s.d.ResolveProjectID(id))
}

// Purge hard-deletes a project on the backend, its stored objects and the
// local copy. It requires connectivity.
func (s *Service) Purge(ctx context.Context, id string) error {
	id = s.d.ResolveProjectID(id)
	if err := s.d.PurgeProject(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "project purged", "id", id)
	return nil
}

// PurgeExpired purges every id and reports the ones that went through.
// Failures do not stop the run; they are joined in the returned error.
func (s *Service) PurgeExpired(ctx context.Context, ids []string) ([]string, error) {
	var (
		purged []string
		errs   []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Purge(ctx, id); err != nil {
			s.log.Error(ctx, "purge failed", "id", id, "error", err)
			errs = append(errs, fmt.Errorf("purge %s: %w", id, err))
			continue
		}
		purged = append(purged, id)
	}
	return purged, errors.Join(errs...)
}

// ExpiredLocal lists trashed projects of this device whose grace period
// ended by now.
func (s *Service) ExpiredLocal(ctx context.Context) ([]string, error) {
	trash, err := s.ListTrash(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var ids []string
	for _, p := range trash {
		if p.PurgeDue(now) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// AddContact stores a contact of the project.
func (s *Service) AddContact(ctx context.Context, c *models.Contact) (*models.Contact, undo.Func, error) {
	p, err := s.Get(ctx, c.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	c.ProjectID = p.ID
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	saved, err := s.d.SaveContact(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	id := saved.ID
	return saved, func(ctx context.Context) error { return s.d.RemoveContact(ctx, id) }, nil
}

func (s *Service) ListContacts(ctx context.Context, projectID string) ([]*models.Contact, error) {
	contacts, err := s.store().Contacts.ListByProject(ctx, s.d.ResolveProjectID(projectID))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(contacts, func(a, b *models.Contact) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return contacts, nil
}

func (s *Service) RemoveContact(ctx context.Context, id string) error {
	return s.d.RemoveContact(ctx, id)
}
