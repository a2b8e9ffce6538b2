package revisions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// FieldChange is one field that differs between two snapshots.
type FieldChange struct {
	Field  string
	Label  string
	Before string
	After  string
}

type field struct {
	name   string
	label  string
	render func(s models.InstallationSnapshot) string
}

var fields = []field{
	{"typology", "Tipologia", func(s models.InstallationSnapshot) string { return s.Typology }},
	{"code", "Código", func(s models.InstallationSnapshot) string { return strconv.Itoa(s.Code) }},
	{"description", "Descrição", func(s models.InstallationSnapshot) string { return s.Description }},
	{"quantity", "Quantidade", func(s models.InstallationSnapshot) string { return strconv.Itoa(s.Quantity) }},
	{"floor", "Pavimento", func(s models.InstallationSnapshot) string { return s.Floor }},
	{"guideline_height_cm", "Altura (cm)", func(s models.InstallationSnapshot) string { return formatFloat(s.GuidelineHeightCm) }},
	{"guideline_door_distance_cm", "Distância do batente (cm)", func(s models.InstallationSnapshot) string { return formatFloat(s.GuidelineDoorDistanceCm) }},
	{"installed", "Instalado", func(s models.InstallationSnapshot) string { return yesNo(s.Installed) }},
	{"installed_at", "Instalado em", func(s models.InstallationSnapshot) string { return formatTime(s.InstalledAt) }},
	{"notes", "Observações", func(s models.InstallationSnapshot) string { return s.Notes }},
	{"supplier_comments", "Comentários do fornecedor", func(s models.InstallationSnapshot) string { return s.SupplierComments }},
	{"photos", "Fotos", func(s models.InstallationSnapshot) string { return strings.Join(s.Photos, ", ") }},
	{"pendency", "Pendência", func(s models.InstallationSnapshot) string { return formatPendency(s.Pendency) }},
}

// Diff lists the fields that changed from a to b, in display order.
func Diff(a, b models.InstallationSnapshot) []FieldChange {
	var out []FieldChange
	for _, f := range fields {
		before, after := f.render(a), f.render(b)
		if before == after {
			continue
		}
		out = append(out, FieldChange{Field: f.name, Label: f.label, Before: before, After: after})
	}
	return out
}

// Summary is the one-line description of a snapshot used in listings and
// exports.
func Summary(s models.InstallationSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d - %s", s.Typology, s.Code, s.Description)
	if s.Floor != "" {
		fmt.Fprintf(&b, " (Pav. %s, Qtd. %d)", s.Floor, s.Quantity)
	} else {
		fmt.Fprintf(&b, " (Qtd. %d)", s.Quantity)
	}
	if s.Installed {
		b.WriteString(" [instalado]")
	}
	return b.String()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatPendency(p *models.Pendency) string {
	if p == nil || p.Type == "" {
		return ""
	}
	if p.Description == "" {
		return string(p.Type)
	}
	return string(p.Type) + ": " + p.Description
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}
