package models

import (
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
)

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// Project is the aggregate root. A project created on the device carries a
// local- id until the backend assigns its UUID.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name" validate:"required,max=200"`
	Client    string        `json:"client" validate:"required"`
	City      string        `json:"city"`
	Code      string        `json:"code"`
	Status    ProjectStatus `json:"status" validate:"required,oneof=planning in-progress completed"`
	Owner     string        `json:"owner"`
	Suppliers []string      `json:"suppliers,omitempty"`

	InstallationDate *time.Time `json:"installation_date,omitempty"`
	InaugurationDate *time.Time `json:"inauguration_date,omitempty"`

	CreatedAt           time.Time  `json:"created_at"`
	ArchivedAt          *time.Time `json:"archived_at,omitempty"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
	PermanentDeletionAt *time.Time `json:"permanent_deletion_at,omitempty"`

	SyncState
}

func (p *Project) EntityID() string        { return p.ID }
func (p *Project) ProjectRef() string      { return p.ID }
func (p *Project) InstallationRef() string { return "" }

// InTrash reports a soft-deleted project. Deletion takes precedence over
// archiving.
func (p *Project) InTrash() bool { return p.DeletedAt != nil }

func (p *Project) IsArchived() bool { return p.DeletedAt == nil && p.ArchivedAt != nil }

func (p *Project) IsActive() bool {
	return !p.Deleted && p.DeletedAt == nil && p.ArchivedAt == nil
}

// SoftDelete moves the project to the trash for the grace period.
func (p *Project) SoftDelete(now time.Time) {
	deletedAt := now.UTC()
	purgeAt := deletedAt.Add(common.GracePeriod)
	p.DeletedAt = &deletedAt
	p.PermanentDeletionAt = &purgeAt
}

// Restore brings a project back from the trash or the archive.
func (p *Project) Restore() {
	p.DeletedAt = nil
	p.ArchivedAt = nil
	p.PermanentDeletionAt = nil
	p.Status = ProjectInProgress
}

func (p *Project) Archive(now time.Time) {
	at := now.UTC()
	p.ArchivedAt = &at
	p.Status = ProjectCompleted
}

func (p *Project) Unarchive() {
	p.ArchivedAt = nil
	p.Status = ProjectInProgress
}

// PurgeDue reports whether the grace period has elapsed at now.
func (p *Project) PurgeDue(now time.Time) bool {
	return p.PermanentDeletionAt != nil && !now.Before(*p.PermanentDeletionAt)
}
