package models

import "time"

type VersionType string

const (
	VersionCreated   VersionType = "created"
	VersionEdited    VersionType = "edited"
	VersionRestored  VersionType = "restored"
	VersionDeleted   VersionType = "deleted"
	VersionInstalled VersionType = "installed"
)

// Motive classifies why a revision was recorded.
type Motive string

const (
	MotiveInstallationProblem Motive = "problema-instalacao"
	MotiveContentReview       Motive = "revisao-conteudo"
	MotiveClientRejected      Motive = "desaprovado-cliente"
	MotiveOther               Motive = "outros"
	MotiveCreated             Motive = "created"
	MotiveEdited              Motive = "edited"
	MotiveRestored            Motive = "restored"
)

var validVersionTypes = map[VersionType]struct{}{
	VersionCreated: {}, VersionEdited: {}, VersionRestored: {}, VersionDeleted: {}, VersionInstalled: {},
}

var validMotives = map[Motive]struct{}{
	MotiveInstallationProblem: {}, MotiveContentReview: {}, MotiveClientRejected: {}, MotiveOther: {},
	MotiveCreated: {}, MotiveEdited: {}, MotiveRestored: {},
}

func (t VersionType) Valid() bool { _, ok := validVersionTypes[t]; return ok }
func (m Motive) Valid() bool      { _, ok := validMotives[m]; return ok }

// ItemVersion is an immutable snapshot of an installation at one revision.
type ItemVersion struct {
	ID             string               `json:"id"`
	InstallationID string               `json:"installation_id" validate:"required"`
	ProjectID      string               `json:"project_id"`
	Revision       int                  `json:"revision" validate:"gte=1"`
	Type           VersionType          `json:"type" validate:"required"`
	Motive         Motive               `json:"motive" validate:"required"`
	Description    string               `json:"description,omitempty"`
	Snapshot       InstallationSnapshot `json:"snapshot"`
	CreatedAt      time.Time            `json:"created_at"`
	UserEmail      string               `json:"user_email,omitempty"`

	SyncState
}

func (v *ItemVersion) EntityID() string        { return v.ID }
func (v *ItemVersion) ProjectRef() string      { return v.ProjectID }
func (v *ItemVersion) InstallationRef() string { return v.InstallationID }
