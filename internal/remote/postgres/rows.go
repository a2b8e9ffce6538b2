package postgres

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// Remote table names.
const (
	TableProjects          = "projects"
	TableInstallations     = "installations"
	TableContacts          = "contacts"
	TableSupplierProposals = "supplier_proposals"
	TableFiles             = "files"
	TableProfiles          = "profiles"
	TableUserAccessLogs    = "user_access_logs"
)

// Row is one entity in the remote column layout.
type Row map[string]any

// ProjectToRow maps a project onto the projects table. A local- id is left
// out so the backend assigns one.
func ProjectToRow(p *models.Project) Row {
	row := Row{
		"name":                  p.Name,
		"client":                p.Client,
		"city":                  nullString(p.City),
		"code":                  nullString(p.Code),
		"status":                string(p.Status),
		"owner_id":              nullString(p.Owner),
		"suppliers":             nonNil(p.Suppliers),
		"installation_date":     p.InstallationDate,
		"inauguration_date":     p.InaugurationDate,
		"archived_at":           p.ArchivedAt,
		"deleted_at":            p.DeletedAt,
		"permanent_deletion_at": p.PermanentDeletionAt,
		"updated_at":            p.UpdatedAt,
	}
	if !p.CreatedAt.IsZero() {
		row["created_at"] = p.CreatedAt
	}
	if common.IsRemoteID(p.ID) {
		row["id"] = p.ID
	}
	return row
}

// InstallationToRow maps an installation onto the installations table. It
// fails with common.ErrProjectNotSynced while the parent project still has
// a local id.
func InstallationToRow(i *models.Installation) (Row, error) {
	if err := requireRemoteProject(i.ProjectID); err != nil {
		return nil, err
	}
	row := Row{
		"id":                       i.ID,
		"project_id":               i.ProjectID,
		"tipologia":                i.Typology,
		"codigo":                   i.Code,
		"descricao":                i.Description,
		"quantidade":               i.Quantity,
		"pavimento":                nullString(i.Floor),
		"diretriz_altura_cm":       i.GuidelineHeightCm,
		"diretriz_dist_batente_cm": i.GuidelineDoorDistanceCm,
		"installed":                i.Installed,
		"installed_at":             i.InstalledAt,
		"revisado":                 i.Revised,
		"revisao":                  i.Revision,
		"observacoes":              nullString(i.Notes),
		"comentarios_fornecedor":   nullString(i.SupplierComments),
		"photos":                   nonNil(i.Photos),
		"pendencia_tipo":           nil,
		"pendencia_descricao":      nil,
		"updated_at":               i.UpdatedAt,
	}
	if i.HasPendency() {
		row["pendencia_tipo"] = string(i.Pendency.Type)
		row["pendencia_descricao"] = nullString(i.Pendency.Description)
	}
	return row, nil
}

func ContactToRow(c *models.Contact) (Row, error) {
	if err := requireRemoteProject(c.ProjectID); err != nil {
		return nil, err
	}
	return Row{
		"id":         c.ID,
		"project_id": c.ProjectID,
		"nome":       c.Name,
		"funcao":     nullString(c.Role),
		"telefone":   nullString(c.Phone),
		"email":      nullString(c.Email),
		"updated_at": c.UpdatedAt,
	}, nil
}

func BudgetToRow(b *models.Budget) (Row, error) {
	if err := requireRemoteProject(b.ProjectID); err != nil {
		return nil, err
	}
	return Row{
		"id":              b.ID,
		"project_id":      b.ProjectID,
		"fornecedor":      b.Supplier,
		"descricao":       nullString(b.Description),
		"valor":           b.Amount,
		"status":          string(b.Status),
		"arquivo_path":    nullString(b.FilePath),
		"arquivo_nome":    nullString(b.FileName),
		"arquivo_tamanho": b.FileSize,
		"updated_at":      b.UpdatedAt,
	}, nil
}

func FileToRow(f *models.File) (Row, error) {
	if err := requireRemoteProject(f.ProjectID); err != nil {
		return nil, err
	}
	return Row{
		"id":              f.ID,
		"project_id":      f.ProjectID,
		"installation_id": nullString(f.InstallationID),
		"name":            f.Name,
		"storage_path":    f.Path,
		"size":            f.Size,
		"mime_type":       nullString(f.MimeType),
		"category":        string(f.Category),
		"updated_at":      f.UpdatedAt,
	}, nil
}

func requireRemoteProject(projectID string) error {
	if common.IsLocalID(projectID) {
		return fmt.Errorf("project %s: %w", projectID, common.ErrProjectNotSynced)
	}
	if !common.IsRemoteID(projectID) {
		return fmt.Errorf("project %q: %w", projectID, common.ErrNotRemoteID)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// projectRecord and installationRecord are the scan targets of pulls.
type projectRecord struct {
	ID                  string     `db:"id"`
	Name                string     `db:"name"`
	Client              string     `db:"client"`
	City                *string    `db:"city"`
	Code                *string    `db:"code"`
	Status              string     `db:"status"`
	OwnerID             *string    `db:"owner_id"`
	Suppliers           []string   `db:"suppliers"`
	InstallationDate    *time.Time `db:"installation_date"`
	InaugurationDate    *time.Time `db:"inauguration_date"`
	CreatedAt           time.Time  `db:"created_at"`
	ArchivedAt          *time.Time `db:"archived_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
	PermanentDeletionAt *time.Time `db:"permanent_deletion_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (r *projectRecord) toModel() *models.Project {
	p := &models.Project{
		ID:                  r.ID,
		Name:                r.Name,
		Client:              r.Client,
		City:                deref(r.City),
		Code:                deref(r.Code),
		Status:              models.ProjectStatus(r.Status),
		Owner:               deref(r.OwnerID),
		Suppliers:           r.Suppliers,
		InstallationDate:    r.InstallationDate,
		InaugurationDate:    r.InaugurationDate,
		CreatedAt:           r.CreatedAt,
		ArchivedAt:          r.ArchivedAt,
		DeletedAt:           r.DeletedAt,
		PermanentDeletionAt: r.PermanentDeletionAt,
	}
	p.UpdatedAt = r.UpdatedAt
	return p
}

type installationRecord struct {
	ID                    string     `db:"id"`
	ProjectID             string     `db:"project_id"`
	Tipologia             string     `db:"tipologia"`
	Codigo                int        `db:"codigo"`
	Descricao             string     `db:"descricao"`
	Quantidade            int        `db:"quantidade"`
	Pavimento             *string    `db:"pavimento"`
	DiretrizAlturaCm      *float64   `db:"diretriz_altura_cm"`
	DiretrizDistBatenteCm *float64   `db:"diretriz_dist_batente_cm"`
	Installed             bool       `db:"installed"`
	InstalledAt           *time.Time `db:"installed_at"`
	Revisado              bool       `db:"revisado"`
	Revisao               int        `db:"revisao"`
	Observacoes           *string    `db:"observacoes"`
	ComentariosFornecedor *string    `db:"comentarios_fornecedor"`
	Photos                []string   `db:"photos"`
	PendenciaTipo         *string    `db:"pendencia_tipo"`
	PendenciaDescricao    *string    `db:"pendencia_descricao"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

func (r *installationRecord) toModel() *models.Installation {
	i := &models.Installation{
		ID:                      r.ID,
		ProjectID:               r.ProjectID,
		Typology:                r.Tipologia,
		Code:                    r.Codigo,
		Description:             r.Descricao,
		Quantity:                r.Quantidade,
		Floor:                   deref(r.Pavimento),
		GuidelineHeightCm:       r.DiretrizAlturaCm,
		GuidelineDoorDistanceCm: r.DiretrizDistBatenteCm,
		Installed:               r.Installed,
		InstalledAt:             r.InstalledAt,
		Revised:                 r.Revisado,
		Revision:                r.Revisao,
		Notes:                   deref(r.Observacoes),
		SupplierComments:        deref(r.ComentariosFornecedor),
		Photos:                  r.Photos,
	}
	if r.PendenciaTipo != nil && *r.PendenciaTipo != "" {
		i.Pendency = &models.Pendency{Type: models.PendencyType(*r.PendenciaTipo), Description: deref(r.PendenciaDescricao)}
	}
	i.UpdatedAt = r.UpdatedAt
	return i
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
