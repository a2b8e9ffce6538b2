package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepo(mock), mock
}

func TestRepo_UpsertProject(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		setup   func(mock pgxmock.PgxPoolIface)
		wantID  string
		wantErr error
	}{
		{
			name: "new project gets server id",
			row:  Row{"name": "Obra", "client": "ACME", "status": "planning"},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`^INSERT INTO projects \(client,name,status\) VALUES \(\$1,\$2,\$3\) RETURNING id$`).
					WithArgs("ACME", "Obra", "planning").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(remoteProject))
			},
			wantID: remoteProject,
		},
		{
			name: "known project is upserted",
			row:  Row{"id": remoteProject, "name": "Obra"},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name RETURNING id`)).
					WithArgs(remoteProject, "Obra").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(remoteProject))
			},
			wantID: remoteProject,
		},
		{
			name: "check violation",
			row:  Row{"name": "Obra", "status": "paused"},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO projects`).WillReturnError(&pgconn.PgError{Code: "23514"})
			},
			wantErr: common.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			tt.setup(mock)

			id, err := repo.UpsertProject(context.Background(), tt.row)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepo_UpsertAndDelete(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO contacts (id,nome,project_id) VALUES ($1,$2,$3) ON CONFLICT (id) DO UPDATE SET nome = EXCLUDED.nome, project_id = EXCLUDED.project_id`)).
		WithArgs("c1", "Ana", remoteProject).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM contacts WHERE id = $1`)).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Upsert(ctx, TableContacts, Row{"id": "c1", "nome": "Ana", "project_id": remoteProject}))
	require.NoError(t, repo.Delete(ctx, TableContacts, "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Upsert_ForeignKeyViolation(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO installations`).WillReturnError(&pgconn.PgError{Code: "23503", Message: "fk"})

	err := repo.Upsert(context.Background(), TableInstallations, Row{"id": "i1"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestRepo_PurgeProject_DeletesInDependencyOrder(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT storage_path FROM files`).WithArgs(remoteProject).
		WillReturnRows(pgxmock.NewRows([]string{"storage_path"}).AddRow("proj/a.jpg").AddRow("proj/b.jpg"))
	mock.ExpectQuery(`SELECT arquivo_path FROM supplier_proposals`).WithArgs(remoteProject).
		WillReturnRows(pgxmock.NewRows([]string{"arquivo_path"}).AddRow("orc/1.pdf"))
	for _, table := range purgeOrder {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table + " WHERE project_id = $1")).
			WithArgs(remoteProject).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
	}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM projects WHERE id = $1`)).WithArgs(remoteProject).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	res, err := repo.PurgeProject(context.Background(), remoteProject)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/a.jpg", "proj/b.jpg"}, res.FilePaths)
	assert.Equal(t, []string{"orc/1.pdf"}, res.BudgetPaths)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_PurgeProject_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT storage_path FROM files`).WillReturnRows(pgxmock.NewRows([]string{"storage_path"}))
	mock.ExpectQuery(`SELECT arquivo_path FROM supplier_proposals`).WillReturnRows(pgxmock.NewRows([]string{"arquivo_path"}))
	mock.ExpectExec(`DELETE FROM calendar_events`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.PurgeProject(context.Background(), remoteProject)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOrder_EndsWithProjects(t *testing.T) {
	order := PurgeOrder()
	assert.Equal(t, "calendar_events", order[0])
	assert.Equal(t, TableProjects, order[len(order)-1])
	assert.Equal(t, TableSupplierProposals, order[len(order)-2])
}

func TestRepo_ExpiredProjects(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id FROM projects WHERE permanent_deletion_at IS NOT NULL`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ExpiredProjects(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRepo_FetchInstallations(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	floor := "3"
	pend := "cliente"
	pendDesc := "aprovar arte"
	var nilStr *string
	var nilFloat *float64
	var nilTime *time.Time

	cols := []string{"id", "project_id", "tipologia", "codigo", "descricao", "quantidade", "pavimento",
		"diretriz_altura_cm", "diretriz_dist_batente_cm", "installed", "installed_at", "revisado", "revisao",
		"observacoes", "comentarios_fornecedor", "photos", "pendencia_tipo", "pendencia_descricao", "updated_at"}
	mock.ExpectQuery(`SELECT id, project_id, tipologia`).WithArgs(remoteProject).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("i1", remoteProject, "Placa", 4, "Saída", 2, &floor,
			nilFloat, nilFloat, true, nilTime, false, 1, nilStr, nilStr, []string{"a.jpg"}, &pend, &pendDesc, now))

	items, err := repo.FetchInstallations(context.Background(), remoteProject)
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, "Placa", it.Typology)
	assert.Equal(t, "3", it.Floor)
	assert.True(t, it.Installed)
	assert.Equal(t, 1, it.Revision)
	require.NotNil(t, it.Pendency)
	assert.Equal(t, "aprovar arte", it.Pendency.Description)
	assert.Equal(t, now, it.UpdatedAt)
	assert.False(t, it.Dirty)
}

func TestRepo_ProfileByEmail_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, email, full_name, role, password_hash FROM profiles`).
		WithArgs("nobody@obra.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.ProfileByEmail(context.Background(), "nobody@obra.com")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepo_LogAccess(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_access_logs (user_id,action,created_at) VALUES ($1,$2,$3)`)).
		WithArgs("u1", "login", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.LogAccess(context.Background(), "u1", "login", at))
	require.NoError(t, mock.ExpectationsWereMet())
}
