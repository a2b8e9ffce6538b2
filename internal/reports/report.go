package reports

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// StatusBar is the three segment progress bar, in whole percent summing to
// 100, or all zero for an empty project.
type StatusBar struct {
	Completed  int `json:"concluidas"`
	Attention  int `json:"atencao"`
	InProgress int `json:"emAndamento"`
}

// CalculateStatusBar splits with the largest remainder method so rounding
// never loses or adds a point.
func CalculateStatusBar(s Sections) StatusBar {
	total := s.Total()
	if total == 0 {
		return StatusBar{}
	}
	counts := [3]int{len(s.Completed), len(s.Pending) + len(s.InRevision), len(s.InProgress)}

	var pct, rem [3]int
	sum := 0
	for i, c := range counts {
		pct[i] = c * 100 / total
		rem[i] = c * 100 % total
		sum += pct[i]
	}
	for ; sum < 100; sum++ {
		best := 0
		for i := 1; i < 3; i++ {
			if rem[i] > rem[best] {
				best = i
			}
		}
		pct[best]++
		rem[best] = -1
	}
	return StatusBar{Completed: pct[0], Attention: pct[1], InProgress: pct[2]}
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// GenerateFileName builds the download name of a report, for example
// Relatorio_Instalacoes_Obra_Centro_2025-06-01_CLIENTE.pdf.
func GenerateFileName(p *models.Project, a Audience, ext string, now time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(p.Name), "_"), "_")
	if name == "" {
		name = "Projeto"
	}
	return fmt.Sprintf("Relatorio_Instalacoes_%s_%s_%s.%s",
		name, now.Format("2006-01-02"), strings.ToUpper(string(a)), strings.TrimPrefix(ext, "."))
}

// Report is everything a renderer needs for one project and audience.
type Report struct {
	Project     *models.Project `json:"project"`
	Audience    Audience        `json:"audience"`
	Sections    Sections        `json:"sections"`
	Floors      []FloorSummary  `json:"floors"`
	Bar         StatusBar       `json:"status_bar"`
	PhotoCounts map[string]int  `json:"photo_counts"`
	FileName    string          `json:"file_name"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func Build(p *models.Project, items []*models.Installation, a Audience, ext string, now time.Time) *Report {
	sections := CalculateSections(items, a)
	photos := make(map[string]int)
	for _, i := range items {
		if n := len(i.Photos); n > 0 {
			photos[i.ID] = n
		}
	}
	return &Report{
		Project:     p,
		Audience:    a,
		Sections:    sections,
		Floors:      CalculateFloorSummary(sections),
		Bar:         CalculateStatusBar(sections),
		PhotoCounts: photos,
		FileName:    GenerateFileName(p, a, ext, now),
		GeneratedAt: now.UTC(),
	}
}
