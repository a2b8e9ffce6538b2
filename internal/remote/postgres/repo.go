package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// purgeOrder lists the tables emptied for a project before the project row.
var purgeOrder = []string{
	"calendar_events",
	"collaboration_events",
	"project_versions",
	"project_backups",
	"project_activities",
	"project_collaborators",
	"project_files",
	TableFiles,
	TableInstallations,
	TableContacts,
	TableSupplierProposals,
}

// PurgeOrder returns the dependency order used by PurgeProject, ending with
// the projects table.
func PurgeOrder() []string {
	return append(append([]string(nil), purgeOrder...), TableProjects)
}

type Repo struct {
	db DB
}

func NewRepo(db DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Ping(ctx context.Context) error {
	return mapError(r.db.Ping(ctx), "remote", "ping")
}

// UpsertProject writes a project and returns the id the backend holds for
// it. Rows without an id are inserted and get a server-assigned one.
func (r *Repo) UpsertProject(ctx context.Context, row Row) (string, error) {
	id, _ := row["id"].(string)

	b := psql.Insert(TableProjects).SetMap(row)
	if id != "" {
		b = b.Suffix(onConflictUpdate(row))
	}
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return "", fmt.Errorf("build project upsert: %w", err)
	}

	var out string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&out); err != nil {
		return "", mapError(err, TableProjects, id)
	}
	return out, nil
}

// Upsert writes row into table keyed by its id.
func (r *Repo) Upsert(ctx context.Context, table string, row Row) error {
	id, _ := row["id"].(string)
	query, args, err := psql.Insert(table).SetMap(row).Suffix(onConflictUpdate(row)).ToSql()
	if err != nil {
		return fmt.Errorf("build %s upsert: %w", table, err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err, table, id)
	}
	return nil
}

// Delete removes one row. Deleting a row that is already gone succeeds.
func (r *Repo) Delete(ctx context.Context, table, id string) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build %s delete: %w", table, err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err, table, id)
	}
	return nil
}

// PurgeResult lists the storage objects orphaned by a purge.
type PurgeResult struct {
	FilePaths   []string
	BudgetPaths []string
}

// PurgeProject hard-deletes a project and every dependent row in one
// transaction, children first.
func (r *Repo) PurgeProject(ctx context.Context, projectID string) (*PurgeResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapError(err, TableProjects, projectID)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res := &PurgeResult{}
	if res.FilePaths, err = collectPaths(ctx, tx,
		`SELECT storage_path FROM files WHERE project_id = $1 AND storage_path IS NOT NULL`, projectID); err != nil {
		return nil, mapError(err, TableFiles, projectID)
	}
	if res.BudgetPaths, err = collectPaths(ctx, tx,
		`SELECT arquivo_path FROM supplier_proposals WHERE project_id = $1 AND arquivo_path IS NOT NULL`, projectID); err != nil {
		return nil, mapError(err, TableSupplierProposals, projectID)
	}

	for _, table := range purgeOrder {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1`, table), projectID); err != nil {
			return nil, mapError(err, table, projectID)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		return nil, mapError(err, TableProjects, projectID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError(err, TableProjects, projectID)
	}
	return res, nil
}

// ExpiredProjects lists projects whose grace period ended before now.
func (r *Repo) ExpiredProjects(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := pgxscan.Select(ctx, r.db, &ids,
		`SELECT id FROM projects WHERE permanent_deletion_at IS NOT NULL AND permanent_deletion_at <= $1 ORDER BY permanent_deletion_at`, now)
	if err != nil {
		return nil, mapError(err, TableProjects, "expired")
	}
	return ids, nil
}

// FetchProjects returns the projects owned by ownerID.
func (r *Repo) FetchProjects(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query, args, err := psql.Select("id", "name", "client", "city", "code", "status", "owner_id", "suppliers",
		"installation_date", "inauguration_date", "created_at", "archived_at", "deleted_at",
		"permanent_deletion_at", "updated_at").
		From(TableProjects).Where(sq.Eq{"owner_id": ownerID}).OrderBy("created_at").ToSql()
	if err != nil {
		return nil, err
	}

	var recs []*projectRecord
	if err := pgxscan.Select(ctx, r.db, &recs, query, args...); err != nil {
		return nil, mapError(err, TableProjects, ownerID)
	}
	out := make([]*models.Project, len(recs))
	for i, rec := range recs {
		out[i] = rec.toModel()
	}
	return out, nil
}

// FetchInstallations returns every installation of a project.
func (r *Repo) FetchInstallations(ctx context.Context, projectID string) ([]*models.Installation, error) {
	query, args, err := psql.Select("id", "project_id", "tipologia", "codigo", "descricao", "quantidade",
		"pavimento", "diretriz_altura_cm", "diretriz_dist_batente_cm", "installed", "installed_at",
		"revisado", "revisao", "observacoes", "comentarios_fornecedor", "photos", "pendencia_tipo",
		"pendencia_descricao", "updated_at").
		From(TableInstallations).Where(sq.Eq{"project_id": projectID}).OrderBy("codigo").ToSql()
	if err != nil {
		return nil, err
	}

	var recs []*installationRecord
	if err := pgxscan.Select(ctx, r.db, &recs, query, args...); err != nil {
		return nil, mapError(err, TableInstallations, projectID)
	}
	out := make([]*models.Installation, len(recs))
	for i, rec := range recs {
		out[i] = rec.toModel()
	}
	return out, nil
}

func collectPaths(ctx context.Context, tx pgx.Tx, query, projectID string) ([]string, error) {
	var paths []string
	if err := pgxscan.Select(ctx, tx, &paths, query, projectID); err != nil {
		return nil, err
	}
	return paths, nil
}

// onConflictUpdate renders the upsert clause for every column but id.
func onConflictUpdate(row Row) string {
	cols := make([]string, 0, len(row))
	for k := range row {
		if k != "id" {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = EXCLUDED." + c
	}
	return "ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}
