package reports

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FloorSummary counts the items of one floor per section.
type FloorSummary struct {
	Floor      string `json:"floor"`
	InRevision int    `json:"emRevisao"`
	Pending    int    `json:"pendencias"`
	Completed  int    `json:"concluidas"`
	InProgress int    `json:"emAndamento"`
	Total      int    `json:"total"`
}

// NoFloor labels items without a floor.
const NoFloor = "Sem pavimento"

// CalculateFloorSummary groups every section by floor. Floors sort in
// natural order, so "2" comes before "10".
func CalculateFloorSummary(s Sections) []FloorSummary {
	byFloor := map[string]*FloorSummary{}
	get := func(floor string) *FloorSummary {
		floor = strings.TrimSpace(floor)
		if floor == "" {
			floor = NoFloor
		}
		fs, ok := byFloor[floor]
		if !ok {
			fs = &FloorSummary{Floor: floor}
			byFloor[floor] = fs
		}
		fs.Total++
		return fs
	}
	for _, i := range s.InRevision {
		get(i.Floor).InRevision++
	}
	for _, i := range s.Pending {
		get(i.Floor).Pending++
	}
	for _, i := range s.Completed {
		get(i.Floor).Completed++
	}
	for _, i := range s.InProgress {
		get(i.Floor).InProgress++
	}

	floors := make([]string, 0, len(byFloor))
	for f := range byFloor {
		floors = append(floors, f)
	}
	SortFloors(floors)

	out := make([]FloorSummary, 0, len(floors))
	for _, f := range floors {
		out = append(out, *byFloor[f])
	}
	return out
}

// SortFloors orders floor labels the way a Brazilian reader expects:
// numbers by value, accents ignored at the first level.
func SortFloors(floors []string) {
	c := collate.New(language.BrazilianPortuguese, collate.Numeric)
	slices.SortStableFunc(floors, func(a, b string) int {
		if r := c.CompareString(a, b); r != 0 {
			return r
		}
		return strings.Compare(a, b)
	})
}
