// Package reports shapes a project's installations into the data behind
// the client and supplier reports: sections, per floor counts and the
// status bar. Rendering is left to the caller.
package reports

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// Audience selects which notes make an item pending.
type Audience string

const (
	AudienceClient   Audience = "cliente"
	AudienceSupplier Audience = "fornecedor"
)

func ParseAudience(s string) (Audience, error) {
	switch a := Audience(strings.ToLower(strings.TrimSpace(s))); a {
	case AudienceClient, AudienceSupplier:
		return a, nil
	}
	return "", fmt.Errorf("audience %q: %w", s, common.ErrValidation)
}

type Section string

const (
	SectionInRevision Section = "emRevisao"
	SectionPending    Section = "pendencias"
	SectionCompleted  Section = "concluidas"
	SectionInProgress Section = "emAndamento"
)

// SectionOrder is the order sections appear in a report.
var SectionOrder = []Section{SectionInRevision, SectionPending, SectionCompleted, SectionInProgress}

// Sections partitions items: every input lands in exactly one slice.
type Sections struct {
	InRevision []*models.Installation `json:"emRevisao"`
	Pending    []*models.Installation `json:"pendencias"`
	Completed  []*models.Installation `json:"concluidas"`
	InProgress []*models.Installation `json:"emAndamento"`
}

func (s *Sections) Get(sec Section) []*models.Installation {
	switch sec {
	case SectionInRevision:
		return s.InRevision
	case SectionPending:
		return s.Pending
	case SectionCompleted:
		return s.Completed
	default:
		return s.InProgress
	}
}

func (s *Sections) Total() int {
	return len(s.InRevision) + len(s.Pending) + len(s.Completed) + len(s.InProgress)
}

// Classify returns the section of one item; the first matching rule wins.
func Classify(i *models.Installation, a Audience) Section {
	switch {
	case i.Revision > 1:
		return SectionInRevision
	case isPending(i, a):
		return SectionPending
	case i.Installed:
		return SectionCompleted
	default:
		return SectionInProgress
	}
}

func isPending(i *models.Installation, a Audience) bool {
	if i.HasPendency() {
		return true
	}
	switch a {
	case AudienceClient:
		return i.HasNotes()
	case AudienceSupplier:
		return i.HasNotes() || i.HasSupplierComments()
	}
	return false
}

// CalculateSections keeps the input order inside each section.
func CalculateSections(items []*models.Installation, a Audience) Sections {
	var s Sections
	for _, i := range items {
		switch Classify(i, a) {
		case SectionInRevision:
			s.InRevision = append(s.InRevision, i)
		case SectionPending:
			s.Pending = append(s.Pending, i)
		case SectionCompleted:
			s.Completed = append(s.Completed, i)
		case SectionInProgress:
			s.InProgress = append(s.InProgress, i)
		}
	}
	return s
}
