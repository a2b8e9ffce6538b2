package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/reports"
	"github.com/spf13/cobra"
)

var sectionTitles = map[reports.Section]string{
	reports.SectionInRevision: "Em revisão",
	reports.SectionPending:    "Pendências",
	reports.SectionCompleted:  "Concluídas",
	reports.SectionInProgress: "Em andamento",
}

func newReportCommand(h *holder) *cobra.Command {
	var audience, format, out string
	cmd := &cobra.Command{
		Use:   "report <project-id>",
		Short: "Build the client or supplier report of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx := h.app, cmd.Context()
			aud, err := reports.ParseAudience(audience)
			if err != nil {
				return err
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("format %q: %w", format, common.ErrValidation)
			}
			p, err := a.projects.Get(ctx, args[0])
			if err != nil {
				return err
			}
			items, err := a.items.List(ctx, p.ID)
			if err != nil {
				return err
			}
			ext := "txt"
			if format == "json" {
				ext = "json"
			}
			rep := reports.Build(p, items, aud, ext, a.now())

			w := a.out
			if out != "" {
				if out == "auto" {
					out = rep.FileName
				}
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				err = enc.Encode(rep)
			} else {
				err = writeTextReport(w, rep)
			}
			if err != nil {
				return err
			}
			if w != a.out {
				fmt.Fprintf(a.out, "Relatório salvo em %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&audience, "audience", "a", string(reports.AudienceClient), "cliente or fornecedor")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "text or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file; "auto" uses the generated report name`)
	return cmd
}

func writeTextReport(w io.Writer, rep *reports.Report) error {
	p := rep.Project
	fmt.Fprintf(w, "Relatório de instalações (%s)\n", rep.Audience)
	fmt.Fprintf(w, "%s - %s, %s\n", p.Name, p.Client, p.City)
	fmt.Fprintf(w, "Concluídas %d%%  Atenção %d%%  Em andamento %d%%\n\n",
		rep.Bar.Completed, rep.Bar.Attention, rep.Bar.InProgress)

	for _, sec := range reports.SectionOrder {
		items := rep.Sections.Get(sec)
		fmt.Fprintf(w, "%s (%d)\n", sectionTitles[sec], len(items))
		for _, i := range items {
			line := fmt.Sprintf("  %s %d - %s  pav. %s  qtd. %d", i.Typology, i.Code, i.Description, i.Floor, i.Quantity)
			if i.HasPendency() {
				line += fmt.Sprintf("  [%s: %s]", i.Pendency.Type, i.Pendency.Description)
			}
			if n := rep.PhotoCounts[i.ID]; n > 0 {
				line += fmt.Sprintf("  %d foto(s)", n)
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	tw := table(w, "PAVIMENTO", "REVISÃO", "PENDÊNCIAS", "CONCLUÍDAS", "ANDAMENTO", "TOTAL")
	for _, f := range rep.Floors {
		row(tw, f.Floor, f.InRevision, f.Pending, f.Completed, f.InProgress, f.Total)
	}
	return tw.Flush()
}
