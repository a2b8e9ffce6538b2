package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/spf13/cobra"
)

func newLoginCommand(h *holder) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, online when possible and from the cached credentials otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			var err error
			if email == "" {
				if email, err = GetSimpleText(a.in, "E-mail", a.out); err != nil {
					return err
				}
			}
			pw, err := GetPassword(a.out)
			if err != nil {
				return err
			}
			defer wipe(pw)

			sess, err := a.auth.Login(ctx, email, pw, a.watcher.Online(ctx))
			if errors.Is(err, common.ErrLocalDataNotAvailable) {
				return fmt.Errorf("no cached credentials on this device, sign in once while online: %w", err)
			}
			if err != nil {
				return err
			}
			mode := "online"
			if sess.Offline {
				mode = "offline"
			}
			fmt.Fprintf(a.out, "Conectado como %s (%s), sessão até %s\n", sess.Email, mode, sess.ExpiresAt.Local().Format("02/01/2006 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account e-mail")
	return cmd
}

func newLogoutCommand(h *holder) *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and stop background sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			a.session.Stop()
			a.undo.Clear()
			if err := a.auth.Logout(ctx); err != nil {
				return err
			}
			if forget {
				if err := a.auth.ClearOfflineData(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(a.out, "Sessão encerrada")
			return nil
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "also remove the cached offline credentials")
	return cmd
}

func newStatusCommand(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, connectivity and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()

			user := "(desconectado)"
			if sess, err := a.auth.Current(ctx); err == nil {
				user = sess.Email
			}
			pending, err := pendingCounts(cmd, a.store)
			if err != nil {
				return err
			}
			pulledAt, pulled, err := a.store.Metadata.GetTime(ctx, common.MetaLastPull)
			if err != nil {
				return err
			}
			lastPull := "nunca"
			if pulled {
				lastPull = pulledAt.Local().Format(displayLayout)
			}

			fmt.Fprintf(a.out, "Usuário:   %s\n", user)
			fmt.Fprintf(a.out, "Modo:      %s\n", a.watcher.Mode())
			fmt.Fprintf(a.out, "Pendentes: %d\n", pending.total())
			for _, c := range pending {
				if c.n > 0 {
					fmt.Fprintf(a.out, "  %-14s %d\n", c.table, c.n)
				}
			}
			fmt.Fprintf(a.out, "Último pull: %s\n", lastPull)
			return nil
		},
	}
}

type pendingCount struct {
	table string
	n     int
}

type pendingList []pendingCount

func (p pendingList) total() int {
	n := 0
	for _, c := range p {
		n += c.n
	}
	return n
}

// pendingCounts counts records not yet confirmed by the backend. Versions
// are local only and never pending.
func pendingCounts(cmd *cobra.Command, s *local.Store) (pendingList, error) {
	ctx := cmd.Context()
	var out pendingList
	add := func(table string, n int, err error) error {
		if err != nil {
			return err
		}
		out = append(out, pendingCount{table: table, n: n})
		return nil
	}
	projects, err := s.Projects.ListDirty(ctx)
	if err := add(local.TableProjects, len(projects), err); err != nil {
		return nil, err
	}
	items, err := s.Installations.ListDirty(ctx)
	if err := add(local.TableInstallations, len(items), err); err != nil {
		return nil, err
	}
	contacts, err := s.Contacts.ListDirty(ctx)
	if err := add(local.TableContacts, len(contacts), err); err != nil {
		return nil, err
	}
	budgets, err := s.Budgets.ListDirty(ctx)
	if err := add(local.TableBudgets, len(budgets), err); err != nil {
		return nil, err
	}
	files, err := s.Files.ListDirty(ctx)
	if err := add(local.TableFiles, len(files), err); err != nil {
		return nil, err
	}
	return out, nil
}
