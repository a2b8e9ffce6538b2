package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/connectivity"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/realtime"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSyncCommand(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every pending change to the backend now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			n, err := a.dispatch.Rehydrate(ctx)
			if err != nil {
				return err
			}
			if !a.dispatch.Online(ctx) {
				fmt.Fprintf(a.out, "Offline: %d alteração(ões) aguardando conexão\n", n)
				return nil
			}
			rep := a.dispatch.ProcessQueue(ctx)
			fmt.Fprintf(a.out, "Enviadas %d de %d, reenfileiradas %d, ignoradas %d\n",
				rep.Succeeded, rep.Attempted, rep.Requeued, rep.Skipped)
			return nil
		},
	}
}

func newPullCommand(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download your projects and installations into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			sess, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			rep, err := a.dispatch.Pull(ctx, sess.UserID)
			if errors.Is(err, common.ErrUnavailable) {
				return fmt.Errorf("backend unreachable, working from the local cache: %w", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d projeto(s), %d item(ns) atualizados; %d mantidos com alterações locais\n",
				rep.Projects, rep.Installations, rep.Kept)
			return nil
		},
	}
}

// watchConnectivity runs the connectivity watcher until ctx is done. Going
// online drains the sync queue at once.
func (a *App) watchConnectivity(ctx context.Context, g *errgroup.Group) {
	a.watcher.OnChange(func(m connectivity.Mode) {
		if m == connectivity.ModeOnline {
			a.session.Trigger()
		}
	})
	g.Go(func() error {
		a.watcher.Run(ctx)
		return nil
	})
}

func newDaemonCommand(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep syncing in the background and serve /metrics and /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := h.app
			sess, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			if err := a.session.Start(gctx); err != nil {
				return err
			}
			defer a.session.Stop()
			a.watchConnectivity(gctx, g)

			if a.cfg.MetricsAddr != "" {
				srv := metrics.NewServer(a.cfg.MetricsAddr, a.metrics, a.watcher.Online, a.log)
				g.Go(func() error { return srv.Serve(gctx) })
			}

			if a.pub != nil {
				kick := make(chan struct{}, 1)
				g.Go(func() error {
					return a.pub.Subscribe(gctx, func(e realtime.Event) {
						a.log.Debug(gctx, "remote change", "table", e.Table, "id", e.ID, "op", e.Op)
						select {
						case kick <- struct{}{}:
						default:
						}
					})
				})
				g.Go(func() error {
					a.pullOnChange(gctx, sess.UserID, kick)
					return nil
				})
			}

			a.log.Info(ctx, "daemon started", "user", sess.Email, "mode", string(a.watcher.Mode()))
			err = g.Wait()
			a.log.Info(context.WithoutCancel(ctx), "daemon stopped")
			return err
		},
	}
}

// pullOnChange refreshes the cache when another device reports a change.
// Bursts collapse into one pull per second at most.
func (a *App) pullOnChange(ctx context.Context, ownerID string, kick <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
		}
		if a.dispatch.Online(ctx) {
			if _, err := a.dispatch.Pull(ctx, ownerID); err != nil && ctx.Err() == nil {
				a.log.Warn(ctx, "pull after remote change failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
