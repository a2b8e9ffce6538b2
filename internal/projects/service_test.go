package projects

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu     sync.Mutex
	purged []string
}

func (f *fakeRemote) UpsertProject(_ context.Context, row postgres.Row) (string, error) {
	if id, _ := row["id"].(string); id != "" && !common.IsLocalID(id) {
		return id, nil
	}
	return uuid.NewString(), nil
}

func (f *fakeRemote) Upsert(context.Context, string, postgres.Row) error { return nil }
func (f *fakeRemote) Delete(context.Context, string, string) error       { return nil }

func (f *fakeRemote) PurgeProject(_ context.Context, id string) (*postgres.PurgeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, id)
	return &postgres.PurgeResult{}, nil
}

func (f *fakeRemote) FetchProjects(context.Context, string) ([]*models.Project, error) {
	return nil, nil
}

func (f *fakeRemote) FetchInstallations(context.Context, string) ([]*models.Installation, error) {
	return nil, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newService(t *testing.T, online bool) (*Service, *fakeRemote, *clock) {
	t.Helper()
	store, err := local.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	r := &fakeRemote{}
	d := syncer.NewDispatcher(store, r, syncer.Options{
		Checker: connectivity.Static(online),
		Now:     c.now,
	})
	return NewService(d, nil, c.now), r, c
}

func obra(name string) *models.Project {
	return &models.Project{Name: name, Client: "Construtora Sul", City: "Curitiba"}
}

func TestCreate_OfflineKeepsLocalID(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()

	p, _, err := s.Create(ctx, obra("Edifício Aurora"))
	require.NoError(t, err)
	assert.True(t, common.IsLocalID(p.ID))
	assert.True(t, p.Dirty)
	assert.Equal(t, models.ProjectPlanning, p.Status)

	_, _, err = s.Create(ctx, &models.Project{Client: "x"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestCreate_OnlineTakesBackendID(t *testing.T) {
	s, _, _ := newService(t, true)
	ctx := context.Background()

	p, _, err := s.Create(ctx, obra("Edifício Aurora"))
	require.NoError(t, err)
	assert.False(t, common.IsLocalID(p.ID))
	assert.False(t, p.Dirty)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edifício Aurora", got.Name)
}

func TestLifecycle_TrashArchiveRestore(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()

	a, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)
	b, _, err := s.Create(ctx, obra("B"))
	require.NoError(t, err)

	deleted, _, err := s.SoftDelete(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	require.NotNil(t, deleted.PermanentDeletionAt)
	assert.Equal(t, deleted.DeletedAt.Add(common.GracePeriod), *deleted.PermanentDeletionAt)

	archived, _, err := s.Archive(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, archived.Status)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	trash, err := s.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, a.ID, trash[0].ID)
	archivedList, err := s.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, archivedList, 1)

	restored, _, err := s.Restore(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Nil(t, restored.PermanentDeletionAt)
	assert.Nil(t, restored.ArchivedAt)
	assert.Equal(t, models.ProjectInProgress, restored.Status)

	unarchived, _, err := s.Unarchive(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInProgress, unarchived.Status)

	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSoftDelete_UndoRestoresPreviousState(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()

	p, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)
	_, revert, err := s.SoftDelete(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, revert(ctx))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
	assert.Equal(t, models.ProjectPlanning, got.Status)
}

func TestUpdate_KeepsLifecycleFields(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()

	p, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)
	_, _, err = s.Archive(ctx, p.ID)
	require.NoError(t, err)

	edit := obra("A2")
	edit.ID = p.ID
	edit.Status = models.ProjectCompleted
	got, _, err := s.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.NotNil(t, got.ArchivedAt)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
}

func TestDestroy_CascadesLocally(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()

	p, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)
	_, _, err = s.AddContact(ctx, &models.Contact{ProjectID: p.ID, Name: "Marta", Role: "Engenheira"})
	require.NoError(t, err)

	rec, err := s.Destroy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, local.CascadeDone, rec.Status)

	_, err = s.Get(ctx, p.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	contacts, err := s.ListContacts(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestPurge_RequiresConnectivity(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()
	p, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)

	require.ErrorIs(t, s.Purge(ctx, p.ID), common.ErrUnavailable)
}

func TestPurgeExpired(t *testing.T) {
	s, r, c := newService(t, true)
	ctx := context.Background()

	old, _, err := s.Create(ctx, obra("Antiga"))
	require.NoError(t, err)
	_, _, err = s.SoftDelete(ctx, old.ID)
	require.NoError(t, err)

	c.t = c.t.Add(3 * 24 * time.Hour)
	recent, _, err := s.Create(ctx, obra("Recente"))
	require.NoError(t, err)
	_, _, err = s.SoftDelete(ctx, recent.ID)
	require.NoError(t, err)

	c.t = c.t.Add(5 * 24 * time.Hour)
	ids, err := s.ExpiredLocal(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids)

	purged, err := s.PurgeExpired(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids, purged)
	assert.Equal(t, ids, r.purged)

	trash, err := s.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, recent.ID, trash[0].ID)
}

func TestContacts(t *testing.T) {
	s, _, _ := newService(t, false)
	ctx := context.Background()
	p, _, err := s.Create(ctx, obra("A"))
	require.NoError(t, err)

	_, _, err = s.AddContact(ctx, &models.Contact{ProjectID: p.ID, Name: "Rui", Email: "não-email"})
	require.ErrorIs(t, err, common.ErrValidation)

	_, revert, err := s.AddContact(ctx, &models.Contact{ProjectID: p.ID, Name: "Rui"})
	require.NoError(t, err)
	_, _, err = s.AddContact(ctx, &models.Contact{ProjectID: p.ID, Name: "Ana"})
	require.NoError(t, err)

	list, err := s.ListContacts(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)

	require.NoError(t, revert(ctx))
	list, err = s.ListContacts(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
