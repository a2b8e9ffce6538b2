// Command cleanup purges projects whose trash grace period has ended: the
// backend rows, their stored objects and the local copy. Run it from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/buildinfo"
	"github.com/dmitrijs2005/instalatrack/internal/config"
	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/flagx"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/projects"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
	"github.com/dmitrijs2005/instalatrack/internal/remote/storage"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
)

type options struct {
	dryRun  bool
	local   bool
	migrate bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.BoolVar(&o.dryRun, "dry-run", false, "list the expired projects without purging")
	fs.BoolVar(&o.local, "local", false, "also purge expired projects found only in the local cache")
	fs.BoolVar(&o.migrate, "migrate", false, "apply pending backend migrations first")
	own := flagx.FilterArgs(args, flagx.Bool("dry-run"), flagx.Bool("local"), flagx.Bool("migrate"))
	return o, fs.Parse(own)
}

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cleanup:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.New(cfg.Logging())

	if cfg.RemoteDSN == "" {
		return fmt.Errorf("remote_dsn is required")
	}
	pool, err := postgres.NewPool(ctx, cfg.RemoteDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if opts.migrate {
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		log.Info(ctx, "backend schema up to date", "applied", applied)
	}
	repo := postgres.NewRepo(pool)

	store, err := local.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	dopts := syncer.Options{
		Checker:       connectivity.PingChecker{Pinger: repo, Timeout: cfg.OnlineCheckTimeout},
		FilesBucket:   cfg.FilesBucket,
		BudgetsBucket: cfg.BudgetsBucket,
		Metrics:       metrics.New(),
		Log:           log,
	}
	if cfg.S3Endpoint != "" {
		s3, err := storage.NewS3(ctx, storage.Config{
			User:     cfg.S3User,
			Password: cfg.S3Password,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			log.Warn(ctx, "object storage disabled, files stay orphaned", "error", err)
		} else {
			dopts.Storage = s3
		}
	}
	d := syncer.NewDispatcher(store, repo, dopts)
	svc := projects.NewService(d, log, time.Now)

	ids, err := repo.ExpiredProjects(ctx, time.Now())
	if err != nil {
		return err
	}
	if opts.local {
		localIDs, err := svc.ExpiredLocal(ctx)
		if err != nil {
			return err
		}
		for _, id := range localIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}

	log.Info(ctx, "expired projects", "count", len(ids))
	if opts.dryRun {
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	purged, err := svc.PurgeExpired(ctx, ids)
	log.Info(ctx, "cleanup finished", "purged", len(purged), "failed", len(ids)-len(purged))
	return err
}
