package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
)

const displayLayout = "02/01/2006 15:04"

func table(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func dirtyMark(s *models.SyncState) string {
	if s.Dirty {
		return "*"
	}
	return ""
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("02/01/2006")
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

func printProject(w io.Writer, p *models.Project) {
	fmt.Fprintf(w, "%s  %s%s\n", p.ID, p.Name, dirtyMark(&p.SyncState))
	fmt.Fprintf(w, "  cliente: %s  cidade: %s  código: %s  status: %s\n", p.Client, p.City, p.Code, p.Status)
	if p.InTrash() {
		fmt.Fprintf(w, "  na lixeira desde %s, exclusão definitiva em %s\n", fmtDate(p.DeletedAt), fmtDate(p.PermanentDeletionAt))
	} else if p.IsArchived() {
		fmt.Fprintf(w, "  arquivado em %s\n", fmtDate(p.ArchivedAt))
	}
}

func printInstallation(w io.Writer, i *models.Installation) {
	fmt.Fprintf(w, "%s  %s %d - %s%s\n", i.ID, i.Typology, i.Code, i.Description, dirtyMark(&i.SyncState))
	fmt.Fprintf(w, "  pavimento: %s  quantidade: %d  instalado: %s  revisão: %d\n", i.Floor, i.Quantity, yesNo(i.Installed), i.Revision)
	if i.HasPendency() {
		fmt.Fprintf(w, "  pendência (%s): %s\n", i.Pendency.Type, i.Pendency.Description)
	}
	if i.HasNotes() {
		fmt.Fprintf(w, "  observações: %s\n", i.Notes)
	}
	if len(i.Photos) > 0 {
		fmt.Fprintf(w, "  fotos: %d\n", len(i.Photos))
	}
}
