package cli

import (
	"context"

	"github.com/dmitrijs2005/instalatrack/internal/buildinfo"
	"github.com/dmitrijs2005/instalatrack/internal/config"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/spf13/cobra"
)

// holder builds the App on first use and keeps it for the shell, where the
// command tree runs once per line.
type holder struct {
	build func(ctx context.Context) (*App, error)
	app   *App
}

func (h *holder) get(ctx context.Context) (*App, error) {
	if h.app != nil {
		return h.app, nil
	}
	a, err := h.build(ctx)
	if err != nil {
		return nil, err
	}
	a.watcher.Check(ctx)
	h.app = a
	return a, nil
}

func (h *holder) close() error {
	if h.app == nil {
		return nil
	}
	err := h.app.Close()
	h.app = nil
	return err
}

// Execute runs one command line and releases everything it opened.
func Execute(ctx context.Context, cfg *config.Config, log logging.Logger, args []string) error {
	h := &holder{build: func(ctx context.Context) (*App, error) { return NewApp(ctx, cfg, log) }}
	root := newRootCommand(h)
	root.Version = buildinfo.String()
	root.PersistentFlags().BoolVar(&cfg.Offline, "offline", cfg.Offline, "never contact the backend")
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := h.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCommand(h *holder) *cobra.Command {
	root := &cobra.Command{
		Use:           "instalatrack",
		Short:         "Track field installations offline and sync them when the network is back",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := h.get(cmd.Context())
			if err != nil {
				return err
			}
			a.out = cmd.OutOrStdout()
			cmd.SetContext(logging.ContextWith(cmd.Context(), "command", cmd.CommandPath()))
			return nil
		},
	}
	// Read by config.Load before cobra runs; declared so it parses.
	root.PersistentFlags().StringP("config", "c", "", "path to JSON config file")

	root.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "data", Title: "Projects and items:"},
		&cobra.Group{ID: "sync", Title: "Synchronisation:"},
	)
	root.AddCommand(
		withGroup("session", newLoginCommand(h)),
		withGroup("session", newLogoutCommand(h)),
		withGroup("session", newStatusCommand(h)),
		withGroup("data", newProjectCommand(h)),
		withGroup("data", newContactCommand(h)),
		withGroup("data", newItemCommand(h)),
		withGroup("data", newAttachCommand(h)),
		withGroup("data", newReportCommand(h)),
		withGroup("sync", newSyncCommand(h)),
		withGroup("sync", newPullCommand(h)),
		withGroup("sync", newDaemonCommand(h)),
		newShellCommand(h),
	)
	return root
}

func withGroup(id string, cmd *cobra.Command) *cobra.Command {
	cmd.GroupID = id
	return cmd
}
