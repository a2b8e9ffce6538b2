package syncer

import (
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// Kind names the entity a change refers to.
type Kind string

const (
	KindProject      Kind = "project"
	KindInstallation Kind = "installation"
	KindContact      Kind = "contact"
	KindBudget       Kind = "budget"
	KindFile         Kind = "file"
)

// Change identifies one record that needs to reach the backend. The set of
// implementations is closed.
type Change interface {
	Kind() Kind
	EntityID() string
	change()
}

type ProjectChange struct{ ID string }

func (c ProjectChange) Kind() Kind       { return KindProject }
func (c ProjectChange) EntityID() string { return c.ID }
func (ProjectChange) change()            {}

type InstallationChange struct{ ID string }

func (c InstallationChange) Kind() Kind       { return KindInstallation }
func (c InstallationChange) EntityID() string { return c.ID }
func (InstallationChange) change()            {}

type ContactChange struct{ ID string }

func (c ContactChange) Kind() Kind       { return KindContact }
func (c ContactChange) EntityID() string { return c.ID }
func (ContactChange) change()            {}

type BudgetChange struct{ ID string }

func (c BudgetChange) Kind() Kind       { return KindBudget }
func (c BudgetChange) EntityID() string { return c.ID }
func (BudgetChange) change()            {}

type FileChange struct{ ID string }

func (c FileChange) Kind() Kind       { return KindFile }
func (c FileChange) EntityID() string { return c.ID }
func (FileChange) change()            {}

// Entry is one queued change. Snapshot is the record as it was when the
// change was queued; replay always reloads the current local record.
type Entry struct {
	Change   Change
	Snapshot models.Entity
	QueuedAt time.Time
}
