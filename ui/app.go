package ui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"labreport/internal/report"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the read-only preview site for saved Markdown reports
type App struct {
	router     *chi.Mux
	port       string
	reportsDir string
	templates  *template.Template
}

// Config holds preview application configuration
type Config struct {
	Port       string
	ReportsDir string
}

// reportEntry is one saved report listed on the index page
type reportEntry struct {
	Name     string
	Title    string
	Modified time.Time
	Size     int64
}

// NewApp creates the preview application
func NewApp(config Config) (*App, error) {
	if config.ReportsDir == "" {
		return nil, fmt.Errorf("reports directory is required (set REPORTS_DIR)")
	}
	if config.Port == "" {
		config.Port = "8081"
	}

	funcMap := template.FuncMap{
		"kb": func(n int64) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
		"stamp": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:     chi.NewRouter(),
		port:       config.Port,
		reportsDir: config.ReportsDir,
		templates:  templates,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/health", a.handleHealth)
	a.router.Get("/reports/{name}", a.handleReport)
	a.router.Get("/reports/{name}/raw", a.handleRawReport)
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting report preview on :%s (reports in %s)", a.port, a.reportsDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy","service":"labreport-preview"}`))
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := a.listReports()
	if err != nil {
		log.Printf("[Preview] Listing %s failed: %v", a.reportsDir, err)
		http.Error(w, "could not list reports", http.StatusInternalServerError)
		return
	}
	a.renderTemplate(w, "index.html", map[string]interface{}{
		"Reports": entries,
		"Dir":     a.reportsDir,
	})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	md, ok := a.readReport(w, name)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(report.RenderHTML(reportTitle(name, md), md))
}

func (a *App) handleRawReport(w http.ResponseWriter, r *http.Request) {
	md, ok := a.readReport(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(md)
}

// readReport loads a saved report, rejecting anything but a plain .md file name
func (a *App) readReport(w http.ResponseWriter, name string) ([]byte, bool) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid report name", http.StatusBadRequest)
		return nil, false
	}
	md, err := os.ReadFile(filepath.Join(a.reportsDir, name))
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "report not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Printf("[Preview] Reading %s failed: %v", name, err)
		http.Error(w, "could not read report", http.StatusInternalServerError)
		return nil, false
	}
	return md, true
}

// listReports returns saved reports, newest first
func (a *App) listReports() ([]reportEntry, error) {
	dirEntries, err := os.ReadDir(a.reportsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []reportEntry
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		md, err := os.ReadFile(filepath.Join(a.reportsDir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, reportEntry{
			Name:     e.Name(),
			Title:    reportTitle(e.Name(), md),
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Modified.Equal(out[j].Modified) {
			return out[i].Name < out[j].Name
		}
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}

// reportTitle is the first level-one heading, or the file name without extension
func reportTitle(name string, md []byte) string {
	for _, line := range strings.Split(string(md), "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return strings.TrimSuffix(name, ".md")
}
