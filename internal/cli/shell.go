package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the shell loop needs.
type execIface interface {
	run(ctx context.Context, args []string) error
	undoLast(ctx context.Context) (string, error)
	prompt(ctx context.Context) string
}

// runREPL reads one line at a time and runs it as a command line. The
// loop ends on EOF or on "exit" or "quit". Command errors are printed and
// the loop goes on.
//
// Besides every regular command the shell understands:
//
//	undo         revert the last change made in this shell
//	help         list the commands
//	exit | quit  leave
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader) {
	for {
		printlnFn(a.prompt(ctx))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		words, perr := splitLine(line)
		if perr != nil {
			printlnFn("Erro:", perr)
			continue
		}
		if len(words) == 0 {
			continue
		}

		switch words[0] {
		case "exit", "quit":
			printlnFn("Até logo!")
			return

		case "undo", "desfazer":
			label, uerr := a.undoLast(ctx)
			switch {
			case errors.Is(uerr, common.ErrNothingToUndo):
				printlnFn("Nada para desfazer")
			case uerr != nil:
				printlnFn("Erro ao desfazer", label+":", uerr)
			default:
				printlnFn("Desfeito:", label)
			}

		case "shell", "daemon":
			printlnFn("Not available inside the shell:", words[0])

		default:
			if err := a.run(ctx, words); err != nil {
				printlnFn("Erro:", err)
			}
		}

		if err != nil {
			return
		}
	}
}

// shellExec runs each line through a fresh command tree sharing one App,
// so flags never leak from one line to the next.
type shellExec struct {
	h   *holder
	out io.Writer
}

func (s *shellExec) run(ctx context.Context, args []string) error {
	root := newRootCommand(s.h)
	root.SetArgs(args)
	root.SetOut(s.out)
	root.SetErr(s.out)
	if err := root.ExecuteContext(ctx); err != nil {
		return err
	}
	if args[0] == "login" {
		return s.h.app.startSyncIfSignedIn(ctx)
	}
	return nil
}

func (s *shellExec) undoLast(ctx context.Context) (string, error) {
	return s.h.app.undo.Undo(ctx)
}

func (s *shellExec) prompt(ctx context.Context) string {
	a := s.h.app
	user := "-"
	if sess, err := a.auth.Current(ctx); err == nil {
		user = sess.Email
	}
	pending := a.dispatch.QueueLen()
	if pending > 0 {
		return fmt.Sprintf("instalatrack [%s | %s | %d pendente(s)] > ", user, a.watcher.Mode(), pending)
	}
	return fmt.Sprintf("instalatrack [%s | %s] > ", user, a.watcher.Mode())
}

// startSyncIfSignedIn starts auto-sync once someone is signed in.
func (a *App) startSyncIfSignedIn(ctx context.Context) error {
	if _, err := a.auth.Current(ctx); err != nil {
		return nil
	}
	return a.session.Start(ctx)
}

func newShellCommand(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with undo and background sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := h.app
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var g errgroup.Group
			a.watchConnectivity(ctx, &g)
			if err := a.startSyncIfSignedIn(ctx); err != nil {
				return err
			}

			runREPL(ctx, &shellExec{h: h, out: cmd.OutOrStdout()}, a.in)

			cancel()
			a.session.Stop()
			return g.Wait()
		},
	}
}
