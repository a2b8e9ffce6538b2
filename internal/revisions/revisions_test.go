package revisions

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 2, 13, 30, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func openStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newInstallation() *models.Installation {
	return &models.Installation{
		ID:          "inst-1",
		ProjectID:   "proj-1",
		Typology:    "Placa",
		Code:        12,
		Description: "Rota de fuga",
		Quantity:    2,
		Floor:       "3",
	}
}

// save mimics the write path: revise and store the installation in one tx.
func save(t *testing.T, s *local.Store, l *Ledger, inst *models.Installation, e Entry) *models.ItemVersion {
	t.Helper()
	var v *models.ItemVersion
	err := s.InTx(context.Background(), func(ctx context.Context, tx *local.Store) error {
		var err error
		if v, err = l.Revise(ctx, tx, inst, e); err != nil {
			return err
		}
		inst.Touch(l.now())
		return tx.Installations.Put(ctx, inst)
	})
	require.NoError(t, err)
	return v
}

func TestRevise_SequentialRevisions(t *testing.T) {
	s := openStore(t)
	c := &clock{t: t0}
	l := NewLedger(c.now)
	inst := newInstallation()

	for i := 1; i <= 5; i++ {
		inst.Quantity = i
		v := save(t, s, l, inst, Entry{UserEmail: "ana@obra.com"})
		assert.Equal(t, i, v.Revision)
		assert.Equal(t, i, inst.Revision)
		assert.Equal(t, i > 1, inst.Revised)
		assert.False(t, v.Dirty, "versions are local only")
	}

	history, err := History(context.Background(), s, inst.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, v := range history {
		assert.Equal(t, 5-i, v.Revision)
		assert.Equal(t, 5-i, v.Snapshot.Quantity)
	}
	assert.Equal(t, models.VersionCreated, history[4].Type)
	assert.Equal(t, models.MotiveCreated, history[4].Motive)
	assert.Equal(t, models.VersionEdited, history[0].Type)
	assert.Equal(t, models.MotiveEdited, history[0].Motive)
}

func TestRevise_UsesLatestOfCounterAndHistory(t *testing.T) {
	s := openStore(t)
	l := NewLedger((&clock{t: t0}).now)
	inst := newInstallation()
	inst.Revision = 7

	v := save(t, s, l, inst, Entry{})
	assert.Equal(t, 8, v.Revision)
	assert.Equal(t, models.VersionEdited, v.Type)

	inst.Revision = 2 // stale counter from an older copy
	v = save(t, s, l, inst, Entry{Motive: models.MotiveClientRejected, Description: "cor errada"})
	assert.Equal(t, 9, v.Revision)
	assert.Equal(t, models.MotiveClientRejected, v.Motive)
}

func TestRevise_RejectsUnknownValues(t *testing.T) {
	s := openStore(t)
	l := NewLedger((&clock{t: t0}).now)
	inst := newInstallation()
	save(t, s, l, inst, Entry{})

	err := s.InTx(context.Background(), func(ctx context.Context, tx *local.Store) error {
		_, err := l.Revise(ctx, tx, inst, Entry{Motive: "capricho"})
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	latest, err := LatestRevision(context.Background(), s, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest)
	assert.Equal(t, 1, inst.Revision, "a rejected revision leaves the counter alone")
}

func TestRestore_AppendsNewRevision(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	l := NewLedger((&clock{t: t0}).now)
	inst := newInstallation()

	first := save(t, s, l, inst, Entry{})
	inst.Description = "Saída"
	inst.Quantity = 4
	inst.Photos = []string{"fotos/depois.jpg"}
	save(t, s, l, inst, Entry{})

	v, err := Version(ctx, s, inst.ID, first.ID)
	require.NoError(t, err)
	restored, err := Restored(inst, v)
	require.NoError(t, err)
	assert.Equal(t, "Rota de fuga", restored.Description)
	assert.Equal(t, v.Snapshot, restored.Snapshot())
	assert.Empty(t, restored.Photos)
	assert.Equal(t, 2, restored.Revision, "restore keeps bookkeeping until revised")

	rv := save(t, s, l, restored, Entry{Type: models.VersionRestored})
	assert.Equal(t, 3, rv.Revision)
	assert.Equal(t, models.MotiveRestored, rv.Motive)
	assert.Equal(t, 2, rv.Snapshot.Quantity)

	_, err = Version(ctx, s, "other", first.ID)
	require.ErrorIs(t, err, common.ErrVersionNotInScope)
	_, err = Restored(&models.Installation{ID: "other"}, v)
	require.ErrorIs(t, err, common.ErrVersionNotInScope)
}

func TestFilterAndPrevious(t *testing.T) {
	mk := func(id string, rev int, typ models.VersionType, motive models.Motive, email string, at time.Time) *models.ItemVersion {
		return &models.ItemVersion{ID: id, Revision: rev, Type: typ, Motive: motive, UserEmail: email, CreatedAt: at}
	}
	list := []*models.ItemVersion{
		mk("v1", 1, models.VersionCreated, models.MotiveCreated, "ana@obra.com", t0),
		mk("v2", 2, models.VersionEdited, models.MotiveContentReview, "bia@obra.com", t0.Add(time.Hour)),
		mk("v3", 3, models.VersionEdited, models.MotiveEdited, "ana@obra.com", t0.Add(2*time.Hour)),
		mk("v4", 4, models.VersionRestored, models.MotiveRestored, "ANA@obra.com", t0.Add(2*time.Hour)),
	}
	SortNewestFirst(list)
	assert.Equal(t, []string{"v4", "v3", "v2", "v1"}, ids(list))

	byAna := Filter(list, HistoryFilter{UserEmail: "ana@obra.com"})
	assert.Equal(t, []string{"v4", "v3", "v1"}, ids(byAna))

	edits := Filter(list, HistoryFilter{Types: []models.VersionType{models.VersionEdited}})
	assert.Equal(t, []string{"v3", "v2"}, ids(edits))

	window := Filter(list, HistoryFilter{From: t0.Add(time.Hour), To: t0.Add(time.Hour)})
	assert.Equal(t, []string{"v2"}, ids(window))

	prev, ok := Previous(byAna, "v3")
	require.True(t, ok)
	assert.Equal(t, "v1", prev.ID, "filtered lists skip hidden revisions")
	_, ok = Previous(byAna, "v1")
	assert.False(t, ok)
	_, ok = Previous(byAna, "missing")
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	h := 120.0
	a := newInstallation().Snapshot()
	b := a
	b.Quantity = 3
	b.GuidelineHeightCm = &h
	b.Photos = []string{"a.jpg"}
	b.Pendency = &models.Pendency{Type: models.PendencySupplier, Description: "falta peça"}

	changes := Diff(a, b)
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{"quantity", "guideline_height_cm", "photos", "pendency"}, fields)
	assert.Equal(t, "2", changes[0].Before)
	assert.Equal(t, "3", changes[0].After)
	assert.Equal(t, "120", changes[1].After)
	assert.Equal(t, "fornecedor: falta peça", changes[3].After)

	assert.Empty(t, Diff(a, a))
}

func TestExportCSV(t *testing.T) {
	sp := time.FixedZone("BRT", -3*60*60)
	snap := newInstallation().Snapshot()
	snap.Description = `Placa "saída"; térreo`
	versions := []*models.ItemVersion{
		{Revision: 2, Type: models.VersionEdited, Motive: models.MotiveInstallationProblem, Description: "linha 1\nlinha 2", UserEmail: "ana@obra.com", CreatedAt: t0, Snapshot: snap},
		{Revision: 1, Type: models.VersionCreated, Motive: models.MotiveCreated, CreatedAt: t0.Add(-time.Hour), Snapshot: snap},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, versions, sp))

	r := csv.NewReader(&buf)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"2", "02/05/2025 10:30", "Edição", "Problema de instalação", "linha 1\nlinha 2", "ana@obra.com", Summary(snap)}, records[1])
	assert.Equal(t, "Criação", records[2][2])
	assert.Contains(t, records[1][6], `Placa "saída"; térreo`)
}

func TestExportCSV_QuotesLeadingSpace(t *testing.T) {
	v := &models.ItemVersion{
		Revision: 3, Type: models.VersionEdited, Motive: models.MotiveOther,
		Description: " ver rodapé", UserEmail: "ana@obra.com", CreatedAt: t0,
		Snapshot: newInstallation().Snapshot(),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*models.ItemVersion{v}, time.UTC))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `3;02/05/2025 13:30;Edição;Outros;" ver rodapé";ana@obra.com;`), lines[1])
}

func ids(list []*models.ItemVersion) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.ID)
	}
	return out
}
