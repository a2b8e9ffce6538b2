package models

type FileCategory string

const (
	FilePhoto    FileCategory = "photo"
	FileDocument FileCategory = "document"
	FileDrawing  FileCategory = "drawing"
)

// File is an uploaded object attached to a project and, for photos, to an
// installation.
type File struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id" validate:"required"`
	InstallationID string       `json:"installation_id,omitempty"`
	Name           string       `json:"name" validate:"required"`
	Path           string       `json:"path" validate:"required"`
	Size           int64        `json:"size" validate:"gte=0"`
	MimeType       string       `json:"mime_type"`
	Category       FileCategory `json:"category" validate:"required,oneof=photo document drawing"`

	SyncState
}

func (f *File) EntityID() string        { return f.ID }
func (f *File) ProjectRef() string      { return f.ProjectID }
func (f *File) InstallationRef() string { return f.InstallationID }
