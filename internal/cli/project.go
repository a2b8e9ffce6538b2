package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/projects"
	"github.com/dmitrijs2005/instalatrack/internal/undo"
	"github.com/spf13/cobra"
)

type projectFlags struct {
	name, client, city, code, status string
	suppliers                        []string
	installation, inauguration       string
}

func (f *projectFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "project name")
	fs.StringVar(&f.client, "client", "", "client name")
	fs.StringVar(&f.city, "city", "", "city")
	fs.StringVar(&f.code, "code", "", "internal project code")
	fs.StringVar(&f.status, "status", "", "planning, in-progress or completed")
	fs.StringSliceVar(&f.suppliers, "supplier", nil, "supplier name (repeatable)")
	fs.StringVar(&f.installation, "installation-date", "", "planned installation date")
	fs.StringVar(&f.inauguration, "inauguration-date", "", "inauguration date")
}

// apply copies the flags the user set onto p.
func (f *projectFlags) apply(cmd *cobra.Command, p *models.Project) error {
	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("name", &p.Name, f.name)
	set("client", &p.Client, f.client)
	set("city", &p.City, f.city)
	set("code", &p.Code, f.code)
	if fs.Changed("status") {
		p.Status = models.ProjectStatus(f.status)
	}
	if fs.Changed("supplier") {
		p.Suppliers = f.suppliers
	}

	var err error
	if fs.Changed("installation-date") {
		if p.InstallationDate, err = optionalDate(f.installation); err != nil {
			return err
		}
	}
	if fs.Changed("inauguration-date") {
		if p.InaugurationDate, err = optionalDate(f.inauguration); err != nil {
			return err
		}
	}
	return nil
}

// optionalDate maps an empty value to nil so a date can be cleared.
func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s, time.Local)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func newProjectCommand(h *holder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projeto"},
		Short:   "Create projects and move them through their lifecycle",
	}

	var create projectFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			sess, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			p := &models.Project{Owner: sess.UserID}
			if err := create.apply(cmd, p); err != nil {
				return err
			}
			saved, revert, err := a.projects.Create(ctx, p)
			if err != nil {
				return err
			}
			a.remember("criar projeto "+saved.Name, revert)
			printProject(a.out, saved)
			return nil
		},
	}
	create.bind(createCmd)

	var edit projectFlags
	editCmd := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Change the details of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			p, err := a.projects.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := edit.apply(cmd, p); err != nil {
				return err
			}
			saved, revert, err := a.projects.Update(ctx, p)
			if err != nil {
				return err
			}
			a.remember("editar projeto "+saved.Name, revert)
			printProject(a.out, saved)
			return nil
		},
	}
	edit.bind(editCmd)

	var archived, trash bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active projects, or the archive or trash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx := h.app, cmd.Context()
			list := a.projects.ListActive
			switch {
			case trash:
				list = a.projects.ListTrash
			case archived:
				list = a.projects.ListArchived
			}
			projects, err := list(ctx)
			if err != nil {
				return err
			}
			tw := table(a.out, "ID", "NOME", "CLIENTE", "STATUS", "EXCLUSÃO", "")
			for _, p := range projects {
				row(tw, p.ID, p.Name, p.Client, p.Status, fmtDate(p.PermanentDeletionAt), dirtyMark(&p.SyncState))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().BoolVar(&archived, "archived", false, "list archived projects")
	listCmd.Flags().BoolVar(&trash, "trash", false, "list projects in the trash")
	listCmd.MarkFlagsMutuallyExclusive("archived", "trash")

	showCmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			p, err := a.projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProject(a.out, p)
			return nil
		},
	}

	type transition struct {
		use, short, label string
		run               func(s *projects.Service, ctx context.Context, id string) (*models.Project, undo.Func, error)
	}
	transitions := []transition{
		{"delete", "Move a project to the trash for 7 days", "excluir projeto", (*projects.Service).SoftDelete},
		{"restore", "Bring a project back from the trash or archive", "restaurar projeto", (*projects.Service).Restore},
		{"archive", "Archive a finished project", "arquivar projeto", (*projects.Service).Archive},
		{"unarchive", "Move a project out of the archive", "desarquivar projeto", (*projects.Service).Unarchive},
	}
	for _, t := range transitions {
		cmd.AddCommand(&cobra.Command{
			Use:   t.use + " <project-id>",
			Short: t.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := h.app
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				p, revert, err := t.run(a.projects, cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.remember(t.label+" "+p.Name, revert)
				printProject(a.out, p)
				return nil
			},
		})
	}

	destroyCmd := &cobra.Command{
		Use:   "destroy <project-id>",
		Short: "Delete a project and everything in it now (cannot be undone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			rec, err := a.projects.Destroy(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Projeto %s removido (%d registros)\n", rec.RootID, rec.Affected)
			return nil
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge <project-id>",
		Short: "Hard-delete a project on the backend, its files and the local copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			if err := a.projects.Purge(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Projeto %s excluído definitivamente\n", args[0])
			return nil
		},
	}

	auditCmd := &cobra.Command{
		Use:   "audit <project-id>",
		Short: "List the local cascade deletions recorded for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			recs, err := a.store.Cascades(ctx, args[0])
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(a.out, "Nenhuma exclusão registrada")
				return nil
			}
			tw := table(a.out, "ID", "TABELA", "STATUS", "REGISTROS", "CONCLUÍDA")
			for _, r := range recs {
				row(tw, r.ID, r.RootTable, r.Status, r.Affected, r.FinishedAt.Local().Format(displayLayout))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(createCmd, editCmd, listCmd, showCmd, destroyCmd, purgeCmd, auditCmd)
	return cmd
}

func newContactCommand(h *holder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contact",
		Aliases: []string{"contato"},
		Short:   "Manage the contacts of a project",
	}

	var c models.Contact
	addCmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			in := c
			in.ProjectID = args[0]
			saved, revert, err := a.projects.AddContact(ctx, &in)
			if err != nil {
				return err
			}
			a.remember("adicionar contato "+saved.Name, revert)
			fmt.Fprintf(a.out, "Contato %s adicionado (%s)\n", saved.Name, saved.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&c.Name, "name", "", "contact name")
	addCmd.Flags().StringVar(&c.Role, "role", "", "role on the project")
	addCmd.Flags().StringVar(&c.Phone, "phone", "", "phone number")
	addCmd.Flags().StringVar(&c.Email, "email", "", "e-mail")

	listCmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the contacts of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			contacts, err := a.projects.ListContacts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := table(a.out, "ID", "NOME", "FUNÇÃO", "TELEFONE", "E-MAIL")
			for _, c := range contacts {
				row(tw, c.ID, c.Name, c.Role, c.Phone, c.Email)
			}
			return tw.Flush()
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <contact-id>",
		Short: "Remove a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			return a.projects.RemoveContact(ctx, args[0])
		},
	}

	cmd.AddCommand(addCmd, listCmd, removeCmd)
	return cmd
}
