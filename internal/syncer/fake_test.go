package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const remoteProjectID = "3f1a2b4c-5d6e-4f70-8a9b-0c1d2e3f4a5b"

var errRemoteDown = errors.Join(common.ErrUnavailable, errors.New("dial tcp: connection refused"))

type call struct {
	table string
	id    string
}

type fakeRemote struct {
	mu       sync.Mutex
	fail     error
	upserts  []call
	deletes  []call
	purged   []string
	purgeRes postgres.PurgeResult
	onUpsert func(table string, row postgres.Row)

	projects      []*models.Project
	installations map[string][]*models.Installation
}

func (f *fakeRemote) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeRemote) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeRemote) UpsertProject(_ context.Context, row postgres.Row) (string, error) {
	if err := f.err(); err != nil {
		return "", err
	}
	id, _ := row["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	f.mu.Lock()
	f.upserts = append(f.upserts, call{postgres.TableProjects, id})
	f.mu.Unlock()
	return id, nil
}

func (f *fakeRemote) Upsert(_ context.Context, table string, row postgres.Row) error {
	if err := f.err(); err != nil {
		return err
	}
	if f.onUpsert != nil {
		f.onUpsert(table, row)
	}
	id, _ := row["id"].(string)
	f.mu.Lock()
	f.upserts = append(f.upserts, call{table, id})
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, table, id string) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.deletes = append(f.deletes, call{table, id})
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) PurgeProject(_ context.Context, projectID string) (*postgres.PurgeResult, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.purged = append(f.purged, projectID)
	f.mu.Unlock()
	res := f.purgeRes
	return &res, nil
}

func (f *fakeRemote) FetchProjects(context.Context, string) ([]*models.Project, error) {
	return f.projects, f.err()
}

func (f *fakeRemote) FetchInstallations(_ context.Context, projectID string) ([]*models.Installation, error) {
	return f.installations[projectID], f.err()
}

func (f *fakeRemote) upsertCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.upserts...)
}

type fakeStorage struct {
	mu      sync.Mutex
	removed map[string][]string
}

func (s *fakeStorage) Delete(_ context.Context, bucket string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed == nil {
		s.removed = map[string][]string{}
	}
	s.removed[bucket] = append(s.removed[bucket], keys...)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *fakeNotifier) Publish(_ context.Context, e realtime.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

type harness struct {
	d        *Dispatcher
	store    *local.Store
	remote   *fakeRemote
	storage  *fakeStorage
	notifier *fakeNotifier
	online   *atomic.Bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := local.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:    store,
		remote:   &fakeRemote{installations: map[string][]*models.Installation{}},
		storage:  &fakeStorage{},
		notifier: &fakeNotifier{},
		online:   &atomic.Bool{},
	}
	h.d = NewDispatcher(store, h.remote, Options{
		Checker:       connectivity.Func(func(context.Context) bool { return h.online.Load() }),
		Notifier:      h.notifier,
		Storage:       h.storage,
		FilesBucket:   "files",
		BudgetsBucket: "Orcamentos",
		Log:           logging.Discard(),
	})
	return h
}

func newInstallation(projectID string) *models.Installation {
	return &models.Installation{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Typology:    "Placa",
		Code:        1,
		Description: "Saída de emergência",
		Quantity:    1,
		Floor:       "1",
	}
}

func newProject(id string) *models.Project {
	return &models.Project{
		ID:        id,
		Name:      "Hospital Central",
		Client:    "Rede Saúde",
		Status:    models.ProjectPlanning,
		CreatedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}
