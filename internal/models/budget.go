package models

type BudgetStatus string

const (
	BudgetPending  BudgetStatus = "pending"
	BudgetApproved BudgetStatus = "approved"
	BudgetRejected BudgetStatus = "rejected"
)

// Budget is a supplier proposal; its document lives in the budgets bucket.
type Budget struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id" validate:"required"`
	Supplier    string       `json:"supplier" validate:"required"`
	Description string       `json:"description"`
	Amount      float64      `json:"amount" validate:"gte=0"`
	Status      BudgetStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	FilePath    string       `json:"file_path,omitempty"`
	FileName    string       `json:"file_name,omitempty"`
	FileSize    int64        `json:"file_size,omitempty"`

	SyncState
}

func (b *Budget) EntityID() string        { return b.ID }
func (b *Budget) ProjectRef() string      { return b.ProjectID }
func (b *Budget) InstallationRef() string { return "" }
