package models

import (
	"slices"
	"strings"
	"time"
)

type PendencyType string

const (
	PendencyClient   PendencyType = "cliente"
	PendencySupplier PendencyType = "fornecedor"
	PendencyDesigner PendencyType = "projetista"
)

type Pendency struct {
	Type        PendencyType `json:"type" validate:"required,oneof=cliente fornecedor projetista"`
	Description string       `json:"description"`
}

// Installation is a trackable physical item of a project.
type Installation struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id" validate:"required"`

	Typology    string `json:"typology" validate:"required"`
	Code        int    `json:"code" validate:"gte=0"`
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
	Floor       string `json:"floor"`

	GuidelineHeightCm       *float64 `json:"guideline_height_cm,omitempty" validate:"omitempty,gte=0"`
	GuidelineDoorDistanceCm *float64 `json:"guideline_door_distance_cm,omitempty" validate:"omitempty,gte=0"`

	Installed   bool       `json:"installed"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`

	// Revised is set once the item went through a revision after creation.
	Revised bool `json:"revised"`
	// Revision counts forced revisions; it starts at 0 and never decreases.
	Revision int `json:"revision" validate:"gte=0"`

	Notes            string    `json:"notes,omitempty"`
	SupplierComments string    `json:"supplier_comments,omitempty"`
	Photos           []string  `json:"photos,omitempty"`
	Pendency         *Pendency `json:"pendency,omitempty" validate:"omitempty"`

	SyncState
}

func (i *Installation) EntityID() string        { return i.ID }
func (i *Installation) ProjectRef() string      { return i.ProjectID }
func (i *Installation) InstallationRef() string { return i.ID }

func (i *Installation) HasPendency() bool {
	return i.Pendency != nil && i.Pendency.Type != ""
}

func (i *Installation) HasNotes() bool { return strings.TrimSpace(i.Notes) != "" }

func (i *Installation) HasSupplierComments() bool {
	return strings.TrimSpace(i.SupplierComments) != ""
}

// InstallationSnapshot is the displayable state of an installation, without
// its identity and revision bookkeeping.
type InstallationSnapshot struct {
	Typology                string     `json:"typology"`
	Code                    int        `json:"code"`
	Description             string     `json:"description"`
	Quantity                int        `json:"quantity"`
	Floor                   string     `json:"floor"`
	GuidelineHeightCm       *float64   `json:"guideline_height_cm,omitempty"`
	GuidelineDoorDistanceCm *float64   `json:"guideline_door_distance_cm,omitempty"`
	Installed               bool       `json:"installed"`
	InstalledAt             *time.Time `json:"installed_at,omitempty"`
	Notes                   string     `json:"notes,omitempty"`
	SupplierComments        string     `json:"supplier_comments,omitempty"`
	Photos                  []string   `json:"photos,omitempty"`
	Pendency                *Pendency  `json:"pendency,omitempty"`
}

// Snapshot copies the displayable fields. Slices and pointers are cloned
// so the snapshot never aliases the live record.
func (i *Installation) Snapshot() InstallationSnapshot {
	return InstallationSnapshot{
		Typology:                i.Typology,
		Code:                    i.Code,
		Description:             i.Description,
		Quantity:                i.Quantity,
		Floor:                   i.Floor,
		GuidelineHeightCm:       cloneFloat(i.GuidelineHeightCm),
		GuidelineDoorDistanceCm: cloneFloat(i.GuidelineDoorDistanceCm),
		Installed:               i.Installed,
		InstalledAt:             cloneTime(i.InstalledAt),
		Notes:                   i.Notes,
		SupplierComments:        i.SupplierComments,
		Photos:                  slices.Clone(i.Photos),
		Pendency:                clonePendency(i.Pendency),
	}
}

// ApplySnapshot overwrites the displayable fields with s, keeping identity,
// project and revision bookkeeping untouched.
func (i *Installation) ApplySnapshot(s InstallationSnapshot) {
	i.Typology = s.Typology
	i.Code = s.Code
	i.Description = s.Description
	i.Quantity = s.Quantity
	i.Floor = s.Floor
	i.GuidelineHeightCm = cloneFloat(s.GuidelineHeightCm)
	i.GuidelineDoorDistanceCm = cloneFloat(s.GuidelineDoorDistanceCm)
	i.Installed = s.Installed
	i.InstalledAt = cloneTime(s.InstalledAt)
	i.Notes = s.Notes
	i.SupplierComments = s.SupplierComments
	i.Photos = slices.Clone(s.Photos)
	i.Pendency = clonePendency(s.Pendency)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clonePendency(v *Pendency) *Pendency {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
