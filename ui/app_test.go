package ui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	app, err := NewApp(Config{ReportsDir: dir})
	require.NoError(t, err)
	return app, dir
}

func get(app *App, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewApp_RequiresReportsDir(t *testing.T) {
	_, err := NewApp(Config{})
	assert.Error(t, err)
}

func TestApp_IndexListsNewestFirst(t *testing.T) {
	app, dir := newTestApp(t)

	older := filepath.Join(dir, "older.md")
	require.NoError(t, os.WriteFile(older, []byte("# Pendulum\n\nbody\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "newer.md"), []byte("no heading\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	rec := get(app, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Pendulum")
	assert.Contains(t, body, ">newer<")
	assert.NotContains(t, body, "notes.txt")
	assert.Less(t, strings.Index(body, "newer.md"), strings.Index(body, "older.md"))
}

func TestApp_IndexWithoutDirectory(t *testing.T) {
	app, err := NewApp(Config{ReportsDir: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)

	rec := get(app, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No reports yet.")
}

func TestApp_ReportRendering(t *testing.T) {
	app, dir := newTestApp(t)
	md := "# Free fall\n\n| t | h |\n|---|---|\n| 1 | 4.9 |\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fall.md"), []byte(md), 0o644))

	rec := get(app, "/reports/fall.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Free fall</title>")
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = get(app, "/reports/fall.md/raw")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, md, rec.Body.String())
}

func TestApp_ReportLookupErrors(t *testing.T) {
	app, dir := newTestApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o644))

	tests := []struct {
		path   string
		status int
	}{
		{"/reports/missing.md", http.StatusNotFound},
		{"/reports/secret.txt", http.StatusBadRequest},
		{"/reports/.hidden.md", http.StatusBadRequest},
		{"/reports/..%2Fsecret.md", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.status, get(app, tt.path).Code)
		})
	}
}

func TestReportTitle(t *testing.T) {
	assert.Equal(t, "Lab 3", reportTitle("x.md", []byte("intro\n# Lab 3 \n## sub\n")))
	assert.Equal(t, "x", reportTitle("x.md", []byte("## only sub\n")))
}
