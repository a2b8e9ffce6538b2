package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/config"
	"github.com/dmitrijs2005/instalatrack/internal/cryptox"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "time/tzdata"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "s3nha"
)

var t0 = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

type testCLI struct {
	t *testing.T
	h *holder
	a *App
}

// newTestCLI builds an offline App over an in-memory cache whose metadata
// holds the credentials of a previous online login.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.LocalDSN = ":memory:"
	cfg.Offline = true
	cfg.SecretKey = "0123456789abcdef0123456789abcdef"

	a, err := NewApp(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	a.now = func() time.Time { return t0 }

	salt := []byte("0123456789abcdef")
	require.NoError(t, a.store.Metadata.SetMany(ctx, map[string][]byte{
		common.MetaUserEmail: []byte(testEmail),
		common.MetaUserID:    []byte("7b0c5d8e-8a4e-4a53-9a53-3d1f1c0e9a11"),
		common.MetaSalt:      salt,
		common.MetaVerifier:  cryptox.MakeVerifier(cryptox.DeriveKey([]byte(testPassword), salt)),
	}))

	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(testPassword), nil }
	t.Cleanup(func() { readPassword = orig })

	h := &holder{app: a}
	t.Cleanup(func() { _ = h.close() })
	return &testCLI{t: t, h: h, a: a}
}

func (c *testCLI) run(args ...string) (string, error) {
	c.t.Helper()
	var buf bytes.Buffer
	root := newRootCommand(c.h)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func (c *testCLI) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *testCLI) login() {
	c.t.Helper()
	out := c.mustRun("login", "--email", testEmail)
	require.Contains(c.t, out, "offline")
}

// createProject returns the id of the only active project.
func (c *testCLI) createProject(name string) string {
	c.t.Helper()
	c.mustRun("project", "create", "--name", name, "--client", "Construtora Alfa", "--city", "Curitiba")
	list, err := c.a.projects.ListActive(context.Background())
	require.NoError(c.t, err)
	for _, p := range list {
		if p.Name == name {
			return p.ID
		}
	}
	c.t.Fatalf("project %q not created", name)
	return ""
}

func (c *testCLI) onlyItem(projectID string) string {
	c.t.Helper()
	items, err := c.a.items.List(context.Background(), projectID)
	require.NoError(c.t, err)
	require.Len(c.t, items, 1)
	return items[0].ID
}

func TestCommands_RequireSession(t *testing.T) {
	c := newTestCLI(t)

	_, err := c.run("project", "create", "--name", "Obra", "--client", "X")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_OfflineWithCachedCredentials(t *testing.T) {
	c := newTestCLI(t)

	readPassword = func(int) ([]byte, error) { return []byte("errada"), nil }
	_, err := c.run("login", "--email", testEmail)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	readPassword = func(int) ([]byte, error) { return []byte(testPassword), nil }
	c.login()

	out := c.mustRun("status")
	assert.Contains(t, out, testEmail)
	assert.Contains(t, out, "offline")
	assert.Contains(t, out, "nunca")

	c.mustRun("logout")
	out = c.mustRun("status")
	assert.Contains(t, out, "(desconectado)")
}

func TestProjectLifecycle(t *testing.T) {
	c := newTestCLI(t)
	c.login()
	id := c.createProject("Obra Centro")
	assert.True(t, common.IsLocalID(id), "offline projects keep a local id")

	out := c.mustRun("project", "list")
	assert.Contains(t, out, "Obra Centro")
	assert.Contains(t, out, "*", "unsynced rows are marked")

	c.mustRun("project", "archive", id)
	assert.NotContains(t, c.mustRun("project", "list"), "Obra Centro")
	assert.Contains(t, c.mustRun("project", "list", "--archived"), "Obra Centro")

	c.mustRun("project", "delete", id)
	out = c.mustRun("project", "show", id)
	assert.Contains(t, out, "na lixeira desde 02/06/2025")
	assert.Contains(t, out, "09/06/2025", "purge is due seven days later")
	assert.Contains(t, c.mustRun("project", "list", "--trash"), "Obra Centro")

	c.mustRun("project", "restore", id)
	assert.Contains(t, c.mustRun("project", "list"), "Obra Centro", "restore brings it back as active")
	assert.NotContains(t, c.mustRun("project", "list", "--trash"), "Obra Centro")

	_, err := c.run("project", "list", "--archived", "--trash")
	require.Error(t, err)

	_, err = c.run("project", "purge", id)
	require.ErrorIs(t, err, common.ErrUnavailable, "purging needs the backend")

	assert.Contains(t, c.mustRun("project", "audit", id), "Nenhuma exclusão registrada")
	assert.Contains(t, c.mustRun("project", "destroy", id), "Projeto "+id+" removido")
	out = c.mustRun("project", "audit", id)
	assert.Contains(t, out, "projects")
	assert.Contains(t, out, "02/06/2025")
}

func TestItemRevisionsFlow(t *testing.T) {
	c := newTestCLI(t)
	c.login()
	pid := c.createProject("Obra Norte")

	c.mustRun("item", "add", pid, "--typology", "Placa", "--code", "7", "--description", "Saída de emergência", "--floor", "2")
	id := c.onlyItem(pid)

	out := c.mustRun("item", "edit", id, "--floor", "3", "--revise", "--motive", "revisao-conteudo", "--reason", "layout novo")
	assert.Contains(t, out, "revisão: 2")

	out = c.mustRun("item", "edit", id, "--notes", "conferir altura")
	assert.Contains(t, out, "revisão: 2", "plain edits keep the counter")

	history, err := c.a.items.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	latest, first := history[0], history[1]
	assert.Equal(t, 2, latest.Revision)

	out = c.mustRun("item", "history", id, "--motive", "revisao-conteudo")
	assert.Contains(t, out, latest.ID)
	assert.NotContains(t, out, first.ID)

	out = c.mustRun("item", "diff", id, latest.ID)
	assert.Contains(t, out, "Revisão 1 → 2")
	assert.Contains(t, out, "Pavimento")

	out = c.mustRun("item", "export-history", id, "--tz", "America/Sao_Paulo")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Revisão;Data;"), lines[0])
	assert.Contains(t, lines[1], "02/06/2025 11:30")
	assert.Contains(t, lines[1], testEmail)

	out = c.mustRun("item", "restore", id, first.ID)
	assert.Contains(t, out, "pavimento: 2")
	assert.Contains(t, out, "revisão: 3")

	_, err = c.run("item", "history", id, "--type", "bogus")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestReport_JSONAndText(t *testing.T) {
	c := newTestCLI(t)
	c.login()
	pid := c.createProject("Obra Sul")

	c.mustRun("item", "add", pid, "--typology", "Placa", "--code", "1", "--description", "A", "--floor", "10")
	c.mustRun("item", "add", pid, "--typology", "Placa", "--code", "2", "--description", "B", "--floor", "2",
		"--supplier-comments", "trocar a cor da base")
	items, err := c.a.items.List(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, items, 2)
	c.mustRun("item", "install", items[0].ID)

	out := c.mustRun("report", pid, "--format", "json")
	var rep reports.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Len(t, rep.Sections.Completed, 1)
	assert.Len(t, rep.Sections.InProgress, 1, "supplier comments do not concern the client")
	assert.Equal(t, reports.StatusBar{Completed: 50, InProgress: 50}, rep.Bar)
	require.Len(t, rep.Floors, 2)
	assert.Equal(t, "2", rep.Floors[0].Floor)
	assert.Equal(t, "Relatorio_Instalacoes_Obra_Sul_2025-06-02_CLIENTE.json", rep.FileName)

	out = c.mustRun("report", pid, "--audience", "fornecedor")
	assert.Contains(t, out, "Pendências (1)")
	assert.Contains(t, out, "Concluídas (1)")
	assert.Contains(t, out, "Em andamento (0)")

	_, err = c.run("report", pid, "--audience", "todos")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestItemDeleteAndSync_Offline(t *testing.T) {
	c := newTestCLI(t)
	c.login()
	pid := c.createProject("Obra Leste")
	c.mustRun("item", "add", pid, "--typology", "Totem", "--description", "Entrada")
	id := c.onlyItem(pid)

	c.mustRun("item", "delete", id)
	items, err := c.a.items.List(context.Background(), pid)
	require.NoError(t, err)
	assert.Empty(t, items)

	out := c.mustRun("sync")
	assert.Contains(t, out, "Offline: 2")

	_, err = c.run("pull")
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestShell_RunsCommandsAndUndo(t *testing.T) {
	c := newTestCLI(t)

	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		printed = append(printed, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })

	input := strings.Join([]string{
		"login --email " + testEmail,
		`project create --name "Obra Oeste" --client 'Construtora Beta'`,
		"",
		"undo",
		"undo",
		"shell",
		`project create --name "sem fim`,
		"exit",
		"status",
	}, "\n")

	var out bytes.Buffer
	runREPL(context.Background(), &shellExec{h: c.h, out: &out}, bufio.NewReader(strings.NewReader(input)))

	list, err := c.a.projects.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "undo removed the project")
	assert.Contains(t, out.String(), "Obra Oeste")

	all := strings.Join(printed, "\n")
	assert.Contains(t, all, "Desfeito: criar projeto Obra Oeste")
	assert.Contains(t, all, "Nada para desfazer")
	assert.Contains(t, all, "Not available inside the shell: shell")
	assert.Contains(t, all, "unterminated quote")
	assert.Contains(t, all, "Até logo!")
	assert.NotContains(t, out.String(), "Usuário:", "nothing runs after exit")
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
		err  bool
	}{
		{in: "", want: nil},
		{in: "item list p1", want: []string{"item", "list", "p1"}},
		{in: `a "b c"  d`, want: []string{"a", "b c", "d"}},
		{in: `--name 'Obra "Centro"'`, want: []string{"--name", `Obra "Centro"`}},
		{in: `x\ y ""`, want: []string{"x y", ""}},
		{in: `"open`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := splitLine(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseWhen("2025-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseWhen("01/05/2025 08:15", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 8, 15, 0, 0, time.UTC), got)

	got, err = parseWhen("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Day())

	_, err = parseWhen("quando der", now)
	require.ErrorIs(t, err, common.ErrValidation)
}
