package models

type Contact struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`

	SyncState
}

func (c *Contact) EntityID() string        { return c.ID }
func (c *Contact) ProjectRef() string      { return c.ProjectID }
func (c *Contact) InstallationRef() string { return "" }
