package installations

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/revisions"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectID = "local-obra-1"

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newService(t *testing.T) (*Service, *syncer.Dispatcher) {
	t.Helper()
	ctx := context.Background()
	store, err := local.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p := &models.Project{ID: projectID, Name: "Obra Centro", Status: models.ProjectInProgress}
	require.NoError(t, store.Projects.Put(ctx, p))

	c := &clock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	d := syncer.NewDispatcher(store, nil, syncer.Options{Now: c.now})
	return NewService(d, revisions.NewLedger(c.now), nil, c.now), d
}

func placa(code int) *models.Installation {
	return &models.Installation{
		ProjectID:   projectID,
		Typology:    "Placa",
		Code:        code,
		Description: "Saída de emergência",
		Quantity:    1,
		Floor:       "2",
	}
}

func TestCreate_StartsAtRevisionOne(t *testing.T) {
	s, d := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{UserEmail: "ana@obra.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, 1, inst.Revision)
	assert.False(t, inst.Revised)
	assert.True(t, inst.Dirty, "offline writes stay dirty")
	assert.Equal(t, 1, d.QueueLen())

	history, err := s.History(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.VersionCreated, history[0].Type)
	assert.Equal(t, "ana@obra.com", history[0].UserEmail)
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	bad := placa(1)
	bad.Quantity = 0
	_, _, err := s.Create(ctx, bad, SaveOptions{})
	require.ErrorIs(t, err, common.ErrValidation)

	orphan := placa(2)
	orphan.ProjectID = "local-nope"
	_, _, err = s.Create(ctx, orphan, SaveOptions{})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate_ForcedRevisionsCountUp(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)

	const n = 4
	for i := 2; i <= n; i++ {
		edit := *inst
		edit.Quantity = i
		edit.Revision = 99 // ignored
		inst, _, err = s.Update(ctx, &edit, SaveOptions{ForceRevision: true, Motive: models.MotiveContentReview})
		require.NoError(t, err)
	}
	assert.Equal(t, n, inst.Revision)
	assert.True(t, inst.Revised)

	plain := *inst
	plain.Notes = "conferir fixação"
	inst, _, err = s.Update(ctx, &plain, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, n, inst.Revision, "plain edits do not revise")

	history, err := s.History(ctx, inst.ID)
	require.NoError(t, err)
	revs := make([]int, 0, len(history))
	for _, v := range history {
		revs = append(revs, v.Revision)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, revs)
}

func TestUpdate_UndoKeepsCounter(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	edit := *inst
	edit.Description = "Extintor"
	_, revert, err := s.Update(ctx, &edit, SaveOptions{ForceRevision: true})
	require.NoError(t, err)

	require.NoError(t, revert(ctx))
	got, err := s.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saída de emergência", got.Description)
	assert.Equal(t, 2, got.Revision)
}

func TestRestore_AppendsMaxPlusOne(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	history, err := s.History(ctx, inst.ID)
	require.NoError(t, err)
	first := history[0]

	edit := *inst
	edit.Floor = "10"
	edit.Quantity = 3
	_, _, err = s.Update(ctx, &edit, SaveOptions{ForceRevision: true})
	require.NoError(t, err)

	restored, _, err := s.Restore(ctx, inst.ID, first.ID, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Revision)
	assert.Equal(t, first.Snapshot.Floor, restored.Floor)
	assert.Equal(t, first.Snapshot.Quantity, restored.Quantity)

	history, err = s.History(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.VersionRestored, history[0].Type)
	assert.Equal(t, models.MotiveRestored, history[0].Motive)

	_, _, err = s.Restore(ctx, "someone-else", first.ID, SaveOptions{})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRestore_BringsBackSnapshotPhotos(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	history, err := s.History(ctx, inst.ID)
	require.NoError(t, err)
	first := history[0]
	require.Empty(t, first.Snapshot.Photos)

	withPhoto, _, err := s.AttachPhoto(ctx, inst.ID, "fotos/a.jpg")
	require.NoError(t, err)
	require.Equal(t, []string{"fotos/a.jpg"}, withPhoto.Photos)

	restored, _, err := s.Restore(ctx, inst.ID, first.ID, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot, restored.Snapshot())
	assert.Empty(t, restored.Photos)

	stored, err := s.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot, stored.Snapshot())
}

func TestSetInstalled_BulkWithoutRevision(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	a, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	b, _, err := s.Create(ctx, placa(2), SaveOptions{})
	require.NoError(t, err)

	revert, err := s.SetInstalled(ctx, []string{a.ID, b.ID, "ghost"}, true)
	require.ErrorIs(t, err, common.ErrNotFound)

	for _, id := range []string{a.ID, b.ID} {
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Installed)
		assert.NotNil(t, got.InstalledAt)
		assert.Equal(t, 1, got.Revision)
	}

	require.NoError(t, revert(ctx))
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Installed)
	assert.Nil(t, got.InstalledAt)
}

func TestDelete_TombstonesHistoryAndUndo(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	inst, _, err = s.AttachPhoto(ctx, inst.ID, "projects/p/2025/06/x-foto.jpg")
	require.NoError(t, err)
	require.Len(t, inst.Photos, 1)

	revert, err := s.Delete(ctx, inst.ID)
	require.NoError(t, err)

	_, err = s.Get(ctx, inst.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	list, err := s.List(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, list)
	history, err := s.History(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, revert(ctx))
	got, err := s.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Photos)
	history, err = s.History(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// The next forced revision continues the counter.
	edit := *got
	edit.Quantity = 2
	got, _, err = s.Update(ctx, &edit, SaveOptions{ForceRevision: true})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Revision)
}

func TestBulkDeleteAndList(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	var ids []string
	for _, code := range []int{3, 1, 2} {
		inst, _, err := s.Create(ctx, placa(code), SaveOptions{})
		require.NoError(t, err)
		ids = append(ids, inst.ID)
	}

	list, err := s.List(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Code, list[1].Code, list[2].Code})

	revert, err := s.BulkDelete(ctx, ids[:2])
	require.NoError(t, err)
	list, err = s.List(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, revert(ctx))
	list, err = s.List(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAttachPhoto_Idempotent(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	inst, _, err := s.Create(ctx, placa(1), SaveOptions{})
	require.NoError(t, err)
	_, revert, err := s.AttachPhoto(ctx, inst.ID, "a.jpg")
	require.NoError(t, err)
	again, none, err := s.AttachPhoto(ctx, inst.ID, "a.jpg")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, []string{"a.jpg"}, again.Photos)

	require.NoError(t, revert(ctx))
	got, err := s.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Photos)
}
