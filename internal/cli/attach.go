package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/spf13/cobra"
)

func newAttachCommand(h *holder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Upload photos, documents and supplier budgets",
	}

	photoCmd := &cobra.Command{
		Use:   "photo <item-id> <path>",
		Short: "Attach a photo to an installation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			f, revert, err := a.files.AttachPhoto(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			a.remember("foto "+f.Name, revert)
			fmt.Fprintf(a.out, "Foto %s anexada (%s)%s\n", f.Name, f.Path, dirtyMark(&f.SyncState))
			return nil
		},
	}

	var category string
	fileCmd := &cobra.Command{
		Use:   "file <project-id> <path>",
		Short: "Attach a document or drawing to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			f, revert, err := a.files.AttachFile(ctx, args[0], args[1], models.FileCategory(category))
			if err != nil {
				return err
			}
			a.remember("arquivo "+f.Name, revert)
			fmt.Fprintf(a.out, "Arquivo %s anexado (%s, %s)%s\n", f.Name, f.MimeType, f.Path, dirtyMark(&f.SyncState))
			return nil
		},
	}
	fileCmd.Flags().StringVar(&category, "category", string(models.FileDocument), "document or drawing")

	var (
		supplier, description, status string
		amount                        float64
	)
	budgetCmd := &cobra.Command{
		Use:   "budget <project-id> [path]",
		Short: "Record a supplier budget, optionally with its proposal document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			b := &models.Budget{
				ProjectID:   args[0],
				Supplier:    supplier,
				Description: description,
				Amount:      amount,
				Status:      models.BudgetStatus(status),
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			saved, revert, err := a.files.AttachBudget(ctx, b, path)
			if err != nil {
				return err
			}
			a.remember("orçamento "+saved.Supplier, revert)
			fmt.Fprintf(a.out, "Orçamento de %s: R$ %.2f (%s)%s\n", saved.Supplier, saved.Amount, saved.Status, dirtyMark(&saved.SyncState))
			return nil
		},
	}
	budgetCmd.Flags().StringVar(&supplier, "supplier", "", "supplier name")
	budgetCmd.Flags().StringVar(&description, "description", "", "what the budget covers")
	budgetCmd.Flags().Float64Var(&amount, "amount", 0, "amount in BRL")
	budgetCmd.Flags().StringVar(&status, "status", string(models.BudgetPending), "pending, approved or rejected")
	_ = budgetCmd.MarkFlagRequired("supplier")

	listCmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the files and budgets of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			files, err := a.files.ListFiles(ctx, args[0])
			if err != nil {
				return err
			}
			budgets, err := a.files.ListBudgets(ctx, args[0])
			if err != nil {
				return err
			}
			tw := table(a.out, "ID", "TIPO", "NOME", "TAMANHO", "ITEM", "")
			for _, f := range files {
				row(tw, f.ID, f.Category, f.Name, f.Size, f.InstallationID, dirtyMark(&f.SyncState))
			}
			for _, b := range budgets {
				name := b.Supplier
				if b.FileName != "" {
					name += " (" + filepath.Base(b.FileName) + ")"
				}
				row(tw, b.ID, "budget/"+string(b.Status), name, fmt.Sprintf("R$ %.2f", b.Amount), "", dirtyMark(&b.SyncState))
			}
			return tw.Flush()
		},
	}

	var ttl time.Duration
	urlCmd := &cobra.Command{
		Use:   "url <file-id>",
		Short: "Print a temporary download link for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			if a.s3 == nil || !a.watcher.Online(ctx) {
				return fmt.Errorf("object storage unreachable: %w", common.ErrUnavailable)
			}
			f, err := a.store.Files.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if f.Deleted {
				return fmt.Errorf("file %s: %w", f.ID, common.ErrNotFound)
			}
			url, err := a.s3.PresignGet(ctx, a.cfg.FilesBucket, f.Path, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, url)
			return nil
		},
	}
	urlCmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "link lifetime")

	cmd.AddCommand(photoCmd, fileCmd, budgetCmd, listCmd, urlCmd)
	return cmd
}
