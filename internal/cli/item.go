package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/installations"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/revisions"
	"github.com/spf13/cobra"
)

type itemFlags struct {
	typology, description, floor, notes, supplierComments string
	code, quantity                                        int
	height, doorDistance                                  float64
	pendency, pendencyDescription                         string
}

func (f *itemFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.typology, "typology", "", "typology, e.g. Placa")
	fs.IntVar(&f.code, "code", 0, "item code within the typology")
	fs.StringVar(&f.description, "description", "", "description")
	fs.IntVar(&f.quantity, "quantity", 1, "quantity")
	fs.StringVar(&f.floor, "floor", "", "floor (pavimento)")
	fs.Float64Var(&f.height, "height", 0, "installation height guideline in cm")
	fs.Float64Var(&f.doorDistance, "door-distance", 0, "distance from the door frame in cm")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.StringVar(&f.supplierComments, "supplier-comments", "", "supplier comments")
	fs.StringVar(&f.pendency, "pendency", "", "pending on: cliente, fornecedor or projetista (empty clears)")
	fs.StringVar(&f.pendencyDescription, "pendency-description", "", "what is pending")
}

// apply copies the flags the user set onto i. On creation every flag
// applies, defaults included.
func (f *itemFlags) apply(cmd *cobra.Command, i *models.Installation, creating bool) {
	fs := cmd.Flags()
	changed := func(name string) bool { return creating || fs.Changed(name) }

	if changed("typology") {
		i.Typology = f.typology
	}
	if changed("code") {
		i.Code = f.code
	}
	if changed("description") {
		i.Description = f.description
	}
	if changed("quantity") {
		i.Quantity = f.quantity
	}
	if changed("floor") {
		i.Floor = f.floor
	}
	if fs.Changed("height") {
		h := f.height
		i.GuidelineHeightCm = &h
	}
	if fs.Changed("door-distance") {
		d := f.doorDistance
		i.GuidelineDoorDistanceCm = &d
	}
	if changed("notes") {
		i.Notes = f.notes
	}
	if changed("supplier-comments") {
		i.SupplierComments = f.supplierComments
	}
	if fs.Changed("pendency") || fs.Changed("pendency-description") {
		typ := f.pendency
		if !fs.Changed("pendency") && i.Pendency != nil {
			typ = string(i.Pendency.Type)
		}
		if typ == "" {
			i.Pendency = nil
		} else {
			i.Pendency = &models.Pendency{Type: models.PendencyType(typ), Description: f.pendencyDescription}
		}
	}
}

type revisionFlags struct {
	revise      bool
	motive      string
	description string
}

func (f *revisionFlags) bind(cmd *cobra.Command, withToggle bool) {
	if withToggle {
		cmd.Flags().BoolVar(&f.revise, "revise", false, "record this change as a new revision")
	}
	cmd.Flags().StringVar(&f.motive, "motive", "", "problema-instalacao, revisao-conteudo, desaprovado-cliente or outros")
	cmd.Flags().StringVar(&f.description, "reason", "", "free text reason for the revision")
}

func (f *revisionFlags) options(a *App, cmd *cobra.Command) installations.SaveOptions {
	return installations.SaveOptions{
		ForceRevision: f.revise,
		Motive:        models.Motive(f.motive),
		Description:   f.description,
		UserEmail:     a.userEmail(cmd.Context()),
	}
}

func newItemCommand(h *holder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"items", "instalacao"},
		Short:   "Manage the installations of a project",
	}

	var add itemFlags
	addCmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add an installation (revision 1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			inst := &models.Installation{ProjectID: args[0]}
			add.apply(cmd, inst, true)
			saved, revert, err := a.items.Create(ctx, inst, installations.SaveOptions{UserEmail: a.userEmail(ctx)})
			if err != nil {
				return err
			}
			a.remember(fmt.Sprintf("adicionar %s %d", saved.Typology, saved.Code), revert)
			printInstallation(a.out, saved)
			return nil
		},
	}
	add.bind(addCmd)

	var (
		edit    itemFlags
		editRev revisionFlags
	)
	editCmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Change an installation, optionally as a new revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			inst, err := a.items.Get(ctx, args[0])
			if err != nil {
				return err
			}
			edit.apply(cmd, inst, false)
			saved, revert, err := a.items.Update(ctx, inst, editRev.options(a, cmd))
			if err != nil {
				return err
			}
			a.remember(fmt.Sprintf("editar %s %d", saved.Typology, saved.Code), revert)
			printInstallation(a.out, saved)
			return nil
		},
	}
	edit.bind(editCmd)
	editRev.bind(editCmd, true)

	listCmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the installations of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			items, err := a.items.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := table(a.out, "ID", "TIPOLOGIA", "CÓD", "DESCRIÇÃO", "PAV", "QTD", "INST", "REV", "")
			for _, i := range items {
				row(tw, i.ID, i.Typology, i.Code, i.Description, i.Floor, i.Quantity, yesNo(i.Installed), i.Revision, dirtyMark(&i.SyncState))
			}
			return tw.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show an installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			inst, err := a.items.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printInstallation(a.out, inst)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <item-id>...",
		Short: "Delete installations with their history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			revert, err := a.items.BulkDelete(ctx, args)
			a.remember(fmt.Sprintf("excluir %d item(ns)", len(args)), revert)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d item(ns) excluído(s)\n", len(args))
			return nil
		},
	}

	var uninstall bool
	installCmd := &cobra.Command{
		Use:   "install <item-id>...",
		Short: "Mark installations as installed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			revert, err := a.items.SetInstalled(ctx, args, !uninstall)
			a.remember(fmt.Sprintf("marcar %d item(ns)", len(args)), revert)
			return err
		},
	}
	installCmd.Flags().BoolVar(&uninstall, "undo", false, "mark as not installed")

	cmd.AddCommand(addCmd, editCmd, listCmd, showCmd, deleteCmd, installCmd,
		newHistoryCommand(h), newRestoreCommand(h), newDiffCommand(h), newExportHistoryCommand(h))
	return cmd
}

type historyFlags struct {
	types, motives []string
	user           string
	since, until   string
}

func (f *historyFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.types, "type", nil, "created, edited, restored, deleted or installed (repeatable)")
	fs.StringSliceVar(&f.motives, "motive", nil, "motive filter (repeatable)")
	fs.StringVar(&f.user, "user", "", "only revisions by this e-mail")
	fs.StringVar(&f.since, "since", "", `from this date, e.g. 2025-05-01 or "last week"`)
	fs.StringVar(&f.until, "until", "", "up to this date")
}

func (f *historyFlags) filter(now time.Time) (revisions.HistoryFilter, error) {
	hf := revisions.HistoryFilter{UserEmail: f.user}
	for _, t := range f.types {
		vt := models.VersionType(t)
		if !vt.Valid() {
			return hf, fmt.Errorf("type %q: %w", t, common.ErrValidation)
		}
		hf.Types = append(hf.Types, vt)
	}
	for _, m := range f.motives {
		mo := models.Motive(m)
		if !mo.Valid() {
			return hf, fmt.Errorf("motive %q: %w", m, common.ErrValidation)
		}
		hf.Motives = append(hf.Motives, mo)
	}
	var err error
	if f.since != "" {
		if hf.From, err = parseWhen(f.since, now); err != nil {
			return hf, err
		}
	}
	if f.until != "" {
		if hf.To, err = parseWhen(f.until, now); err != nil {
			return hf, err
		}
	}
	return hf, nil
}

func (a *App) filteredHistory(cmd *cobra.Command, id string, f *historyFlags) ([]*models.ItemVersion, error) {
	hf, err := f.filter(a.now())
	if err != nil {
		return nil, err
	}
	versions, err := a.items.History(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	return revisions.Filter(versions, hf), nil
}

func newHistoryCommand(h *holder) *cobra.Command {
	var f historyFlags
	cmd := &cobra.Command{
		Use:   "history <item-id>",
		Short: "List the revisions of an installation, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			versions, err := a.filteredHistory(cmd, args[0], &f)
			if err != nil {
				return err
			}
			tw := table(a.out, "ID", "REV", "DATA", "AÇÃO", "MOTIVO", "USUÁRIO", "RESUMO")
			for _, v := range versions {
				row(tw, v.ID, v.Revision, v.CreatedAt.Local().Format(displayLayout),
					revisions.TypeLabel(v.Type), revisions.MotiveLabel(v.Motive), v.UserEmail, revisions.Summary(v.Snapshot))
			}
			return tw.Flush()
		},
	}
	f.bind(cmd)
	return cmd
}

func newRestoreCommand(h *holder) *cobra.Command {
	var rev revisionFlags
	cmd := &cobra.Command{
		Use:   "restore <item-id> <version-id>",
		Short: "Restore an older revision as a new one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			saved, revert, err := a.items.Restore(ctx, args[0], args[1], rev.options(a, cmd))
			if err != nil {
				return err
			}
			a.remember(fmt.Sprintf("restaurar %s %d", saved.Typology, saved.Code), revert)
			printInstallation(a.out, saved)
			return nil
		},
	}
	rev.bind(cmd, false)
	return cmd
}

func newDiffCommand(h *holder) *cobra.Command {
	var (
		against string
		f       historyFlags
	)
	cmd := &cobra.Command{
		Use:   "diff <item-id> <version-id>",
		Short: "Compare a revision with the one listed before it, or with --against",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			v, err := revisions.Version(ctx, a.store, args[0], args[1])
			if err != nil {
				return err
			}

			var base *models.ItemVersion
			if against != "" {
				if base, err = revisions.Version(ctx, a.store, args[0], against); err != nil {
					return err
				}
			} else {
				list, err := a.filteredHistory(cmd, args[0], &f)
				if err != nil {
					return err
				}
				prev, ok := revisions.Previous(list, v.ID)
				if !ok {
					fmt.Fprintf(a.out, "Revisão %d é a primeira da lista\n", v.Revision)
					return nil
				}
				base = prev
			}

			changes := revisions.Diff(base.Snapshot, v.Snapshot)
			fmt.Fprintf(a.out, "Revisão %d → %d\n", base.Revision, v.Revision)
			if len(changes) == 0 {
				fmt.Fprintln(a.out, "sem diferenças")
				return nil
			}
			tw := table(a.out, "CAMPO", "ANTES", "DEPOIS")
			for _, c := range changes {
				row(tw, c.Label, c.Before, c.After)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "version id to compare with")
	f.bind(cmd)
	return cmd
}

func newExportHistoryCommand(h *holder) *cobra.Command {
	var (
		out, tz string
		f       historyFlags
	)
	cmd := &cobra.Command{
		Use:   "export-history <item-id>",
		Short: "Export the revision history as semicolon separated CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			loc := time.Local
			if tz != "" {
				var err error
				if loc, err = time.LoadLocation(tz); err != nil {
					return fmt.Errorf("timezone %q: %w", tz, err)
				}
			}
			versions, err := a.filteredHistory(cmd, args[0], &f)
			if err != nil {
				return err
			}

			w := a.out
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := revisions.ExportCSV(w, versions, loc); err != nil {
				return err
			}
			if w != a.out {
				fmt.Fprintf(a.out, "%d revisões exportadas para %s\n", len(versions), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVar(&tz, "tz", "", `timezone for dates, e.g. "America/Sao_Paulo"`)
	f.bind(cmd)
	return cmd
}
