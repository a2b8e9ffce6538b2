package revisions

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
)

const dateLayout = "02/01/2006 15:04"

var csvHeader = []string{"Revisão", "Data", "Ação", "Motivo", "Descrição", "Usuário", "Resumo"}

var typeLabels = map[models.VersionType]string{
	models.VersionCreated:   "Criação",
	models.VersionEdited:    "Edição",
	models.VersionRestored:  "Restauração",
	models.VersionDeleted:   "Exclusão",
	models.VersionInstalled: "Instalação",
}

var motiveLabels = map[models.Motive]string{
	models.MotiveInstallationProblem: "Problema de instalação",
	models.MotiveContentReview:       "Revisão de conteúdo",
	models.MotiveClientRejected:      "Desaprovado pelo cliente",
	models.MotiveOther:               "Outros",
	models.MotiveCreated:             "Criação",
	models.MotiveEdited:              "Edição",
	models.MotiveRestored:            "Restauração",
}

func TypeLabel(t models.VersionType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

func MotiveLabel(m models.Motive) string {
	if l, ok := motiveLabels[m]; ok {
		return l
	}
	return string(m)
}

// ExportCSV writes versions as semicolon separated values in the given
// order. Fields with quotes, semicolons or line breaks are quoted, inner
// quotes doubled; encoding/csv also quotes a leading space or tab and the
// field `\.`. Dates are rendered in loc (time.Local when nil).
func ExportCSV(w io.Writer, versions []*models.ItemVersion, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range versions {
		record := []string{
			strconv.Itoa(v.Revision),
			v.CreatedAt.In(loc).Format(dateLayout),
			TypeLabel(v.Type),
			MotiveLabel(v.Motive),
			v.Description,
			v.UserEmail,
			Summary(v.Snapshot),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
