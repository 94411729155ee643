package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	for _, k := range []string{"HOMEPAGE_DATA_DIR", "HOMEPAGE_CONFIG_DIR", "HOMEPAGE_LEGACY_PATH", "HOMEPAGE_QUOTA_BYTES"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	return env{configDir: filepath.Join(dir, "config"), dataDir: filepath.Join(dir, "data")}
}

// run executes one command line against e and returns stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	require.NoError(t, a.close())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func runJSON[T any](t *testing.T, e env, args ...string) T {
	t.Helper()
	out := e.mustRun(t, append([]string{"--json"}, args...)...)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	assert.Contains(t, out, "homepage v"+Version)
	_, err := os.Stat(e.configDir)
	assert.True(t, os.IsNotExist(err), "version does not touch the config dir")
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, "homepage.db"))

	folders := runJSON[[]types.Folder](t, e, "folder", "list")
	require.Len(t, folders, 1)
	assert.True(t, folders[0].IsDefault)
}

func TestBookmarkCommands(t *testing.T) {
	e := newEnv(t)

	var ids []string
	for _, title := range []string{"Zeta", "Alpha", "Mid"} {
		b := runJSON[types.Bookmark](t, e, "bookmark", "add", title, "https://"+title+".example")
		ids = append(ids, b.ID)
	}

	_, err := e.run(t, "bookmark", "add", "Again", "https://Zeta.example", "--unique")
	assert.ErrorIs(t, err, types.ErrDuplicateURL)
	assert.Equal(t, exitUserError, exitCode(err))

	list := runJSON[[]types.Bookmark](t, e, "bookmark", "list")
	require.Len(t, list, 3)
	assert.Equal(t, "Zeta", list[0].Title)

	sorted := runJSON[[]types.Bookmark](t, e, "bookmark", "sort")
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, titles(sorted))

	moved := runJSON[[]types.Bookmark](t, e, "bookmark", "move", ids[0], "0")
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, titles(moved))

	edited := runJSON[types.Bookmark](t, e, "bookmark", "edit", ids[1], "--title", "First")
	assert.Equal(t, "First", edited.Title)
	assert.Equal(t, "https://Alpha.example", edited.URL)

	work := runJSON[types.Folder](t, e, "folder", "create", "Work")
	inWork := runJSON[[]types.Bookmark](t, e, "bookmark", "folder", ids[2], work.ID)
	require.Len(t, inWork, 1)
	assert.Equal(t, ids[2], inWork[0].ID)

	e.mustRun(t, "bookmark", "delete", ids[0])
	all := runJSON[[]types.Bookmark](t, e, "bookmark", "list", "--all")
	assert.Len(t, all, 2)

	_, err = e.run(t, "bookmark", "move", ids[1], "x")
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
}

func titles(bookmarks []types.Bookmark) []string {
	out := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.Title
	}
	return out
}

func TestFolderCommands(t *testing.T) {
	e := newEnv(t)

	a := runJSON[types.Folder](t, e, "folder", "create", "A")
	b := runJSON[types.Folder](t, e, "folder", "create", "B")
	assert.True(t, a.InheritBackground)

	_, err := e.run(t, "folder", "create", "a")
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	renamed := runJSON[types.Folder](t, e, "folder", "rename", a.ID, "Apps")
	assert.Equal(t, "Apps", renamed.Name)

	folders := runJSON[[]types.Folder](t, e, "folder", "reorder", "2", "1")
	require.Len(t, folders, 3)
	assert.Equal(t, []string{types.DefaultFolderID, b.ID, a.ID}, []string{folders[0].ID, folders[1].ID, folders[2].ID})

	_, err = e.run(t, "folder", "delete", types.DefaultFolderID)
	assert.ErrorIs(t, err, types.ErrDefaultFolder)

	runJSON[types.Bookmark](t, e, "bookmark", "add", "X", "https://x.example", "--folder", b.ID)
	e.mustRun(t, "folder", "delete", b.ID)
	main := runJSON[[]types.Bookmark](t, e, "bookmark", "list")
	require.Len(t, main, 1)
	assert.Equal(t, types.DefaultFolderID, main[0].FolderID)
}

func TestFolderBackground(t *testing.T) {
	e := newEnv(t)
	img := filepath.Join(t.TempDir(), "bg.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nrest"), 0o644))

	out := e.mustRun(t, "folder", "background", types.DefaultFolderID)
	assert.Contains(t, out, "built-in background")

	f := runJSON[types.Folder](t, e, "folder", "background", types.DefaultFolderID, "--file", img)
	require.NotNil(t, f.BackgroundImageID)

	child := runJSON[types.Folder](t, e, "folder", "create", "Child")
	bg := runJSON[homepage.Background](t, e, "folder", "background", child.ID)
	require.NotNil(t, bg.Image)
	assert.Equal(t, types.DefaultFolderID, bg.SourceFolderID)
	assert.Equal(t, "image/png", bg.Image.ContentType)

	f = runJSON[types.Folder](t, e, "folder", "background", child.ID, "--url", "https://img.example/a.jpg")
	assert.False(t, f.InheritBackground)

	f = runJSON[types.Folder](t, e, "folder", "background", child.ID, "--clear")
	assert.True(t, f.InheritBackground)

	_, err := e.run(t, "folder", "background", child.ID, "--clear", "--url", "x")
	assert.Error(t, err)
}

func TestSettingsCommands(t *testing.T) {
	e := newEnv(t)

	s := runJSON[types.Settings](t, e, "settings", "show")
	assert.Equal(t, types.DefaultSettings(), s)

	s = runJSON[types.Settings](t, e, "settings", "set", "iconSize=96", "titleColor=#202020", "gridPosition=top-left")
	assert.Equal(t, 96, s.IconSize)
	assert.Equal(t, "#202020", s.TitleColor)
	assert.Equal(t, "top-left", s.GridPosition)

	tests := []struct {
		name string
		arg  string
	}{
		{"out of range", "iconSize=1"},
		{"unknown key", "fontFamily=serif"},
		{"wrong type", "iconSize=big"},
		{"no equals", "iconSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, "settings", "set", tt.arg)
			assert.ErrorIs(t, err, types.ErrInvalidSettings)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}

	assert.Equal(t, 96, runJSON[types.Settings](t, e, "settings", "show").IconSize)
}

func TestLegacyImport(t *testing.T) {
	e := newEnv(t)
	dump := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(dump, []byte(`{
		"bookmarks": [{"id":"b1","title":"Go","url":"https://go.dev","icon":"x"}],
		"settings": {"iconSize": 72}
	}`), 0o644))

	res := runJSON[map[string]any](t, e, "legacy", "import", dump)
	assert.Equal(t, float64(2), res["keys"])
	assert.Equal(t, string(types.MigrationComplete), res["migration"])
	assert.Equal(t, float64(1), res["bookmarks"])

	list := runJSON[[]types.Bookmark](t, e, "bookmark", "list")
	require.Len(t, list, 1)
	assert.Equal(t, types.DefaultFolderID, list[0].FolderID)
	assert.Equal(t, 72, runJSON[types.Settings](t, e, "settings", "show").IconSize)

	_, err := e.run(t, "legacy", "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatus(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "bookmark", "add", "Go", "https://go.dev")

	st := runJSON[statusOutput](t, e, "status")
	assert.Equal(t, 1, st.Bookmarks)
	assert.Equal(t, 1, st.Folders)
	assert.Equal(t, types.MigrationComplete, st.Migration)
	assert.NotNil(t, st.LastUpdated)
	require.NotNil(t, st.Usage)
	assert.Equal(t, int64(50<<20), st.Usage.TotalBytes)
	assert.Equal(t, e.dataDir, st.DataDir)

	out := e.mustRun(t, "status")
	assert.Contains(t, out, "Migration:")
	assert.Contains(t, out, "complete")
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("log:\n  format: xml\n"), 0o644))

	_, err := e.run(t, "status")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitSuccess},
		{"user error", fmt.Errorf("x: %w", types.ErrNotFound), exitUserError},
		{"usage error", errors.New("accepts 1 arg(s), received 0"), exitUserError},
		{"storage unavailable", types.Unavailable("open", errors.New("denied")), exitSysError},
		{"write failed", types.WriteFailed("replace", "folders", "", errors.New("disk")), exitSysError},
		{"system error", systemError("listen: %w", errors.New("in use")), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})}
	a := &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, srv, ln, a) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
