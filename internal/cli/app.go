package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/attachments"
	"github.com/dmitrijs2005/instalatrack/internal/auth"
	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/config"
	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/installations"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/projects"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
	"github.com/dmitrijs2005/instalatrack/internal/remote/storage"
	"github.com/dmitrijs2005/instalatrack/internal/revisions"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/dmitrijs2005/instalatrack/internal/undo"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App wires the local cache, the backend clients and the services behind
// every command.
type App struct {
	cfg *config.Config
	log logging.Logger
	now func() time.Time

	store   *local.Store
	pool    *pgxpool.Pool
	repo    *postgres.Repo
	s3      *storage.S3
	pub     *realtime.Publisher
	grpc    *connectivity.GRPCHealthChecker
	metrics *metrics.Metrics

	watcher  *connectivity.Watcher
	dispatch *syncer.Dispatcher
	session  *syncer.Session

	auth     *auth.Service
	projects *projects.Service
	items    *installations.Service
	files    *attachments.Service
	undo     *undo.History

	in  *bufio.Reader
	out io.Writer
}

// NewApp opens the local cache and the clients configured in cfg. Backend
// clients connect lazily; an unreachable backend only means offline mode.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := local.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		store:   store,
		metrics: metrics.New(),
		undo:    undo.New(undo.DefaultLimit),
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	var (
		remote  syncer.Remote
		checker connectivity.Checker = connectivity.Static(false)
	)
	if !cfg.Offline && cfg.RemoteDSN != "" {
		a.pool, err = postgres.NewLazyPool(ctx, cfg.RemoteDSN)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.repo = postgres.NewRepo(a.pool)
		remote = a.repo
		checker = connectivity.PingChecker{Pinger: a.repo, Timeout: cfg.OnlineCheckTimeout}

		if cfg.HealthEndpoint != "" {
			a.grpc, err = connectivity.NewGRPCHealthChecker(cfg.HealthEndpoint, "", cfg.OnlineCheckTimeout)
			if err != nil {
				_ = a.Close()
				return nil, err
			}
			checker = a.grpc
		}
	}

	if !cfg.Offline && cfg.S3Endpoint != "" {
		a.s3, err = storage.NewS3(ctx, storage.Config{
			User:     cfg.S3User,
			Password: cfg.S3Password,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			log.Warn(ctx, "object storage disabled", "error", err)
		}
	}

	var notifier syncer.Notifier
	if !cfg.Offline && cfg.RedisAddr != "" {
		a.pub, err = realtime.Connect(ctx, cfg.RedisAddr, cfg.RealtimeChannel)
		if err != nil {
			log.Warn(ctx, "realtime notifications disabled", "error", err)
		} else {
			notifier = a.pub
		}
	}

	var profiles auth.ProfileStore
	if a.repo != nil {
		profiles = a.repo
	}
	a.auth = auth.NewService(profiles, store.Metadata, []byte(cfg.SecretKey), cfg.SessionTTL, log)

	a.watcher = connectivity.NewWatcher(checker, cfg.OnlineCheckInterval, log)
	a.watcher.OnChange(func(m connectivity.Mode) { a.metrics.SetOnline(m == connectivity.ModeOnline) })

	opts := syncer.Options{
		Checker:       a.watcher,
		Session:       a.auth,
		Metrics:       a.metrics,
		FilesBucket:   cfg.FilesBucket,
		BudgetsBucket: cfg.BudgetsBucket,
		Log:           log,
		Now:           a.clock,
	}
	if notifier != nil {
		opts.Notifier = notifier
	}
	if a.s3 != nil {
		opts.Storage = a.s3
	}
	a.dispatch = syncer.NewDispatcher(store, remote, opts)
	a.session = syncer.NewSession(a.dispatch, cfg.AutoSyncInterval, log)

	a.projects = projects.NewService(a.dispatch, log, a.clock)
	a.items = installations.NewService(a.dispatch, revisions.NewLedger(a.clock), log, a.clock)

	var uploader attachments.Uploader
	if a.s3 != nil {
		uploader = a.s3
	}
	a.files = attachments.NewService(a.dispatch, a.items, uploader, attachments.Options{
		FilesBucket:   cfg.FilesBucket,
		BudgetsBucket: cfg.BudgetsBucket,
		MaxAttempts:   cfg.UploadMaxAttempts,
		BaseDelay:     cfg.UploadBaseDelay,
		Metrics:       a.metrics,
		Log:           log,
		Now:           a.clock,
	})
	return a, nil
}

func (a *App) clock() time.Time { return a.now() }

// Close releases every client. The session is stopped first so no push is
// in flight while connections go away.
func (a *App) Close() error {
	if a.session != nil {
		a.session.Stop()
	}
	var errs []error
	if a.pub != nil {
		errs = append(errs, a.pub.Close())
	}
	if a.grpc != nil {
		errs = append(errs, a.grpc.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// userEmail is recorded on every revision.
func (a *App) userEmail(ctx context.Context) string {
	return a.auth.UserEmail(ctx)
}

// requireSession fails unless someone is signed in.
func (a *App) requireSession(ctx context.Context) (*auth.Session, error) {
	sess, err := a.auth.Current(ctx)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpired) {
			return nil, fmt.Errorf("session expired, run login again: %w", err)
		}
		return nil, fmt.Errorf("not signed in, run login first: %w", common.ErrUnauthorized)
	}
	return sess, nil
}

func (a *App) remember(label string, fn undo.Func) {
	a.undo.Push(label, fn)
}
