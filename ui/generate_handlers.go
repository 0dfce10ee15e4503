package ui

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labreport/app"
	"labreport/domain/experiment"
	domainreport "labreport/domain/report"
	apperrors "labreport/internal/errors"
	"labreport/internal/report"
)

// fullReportRequest is the JSON body of POST /api/generate/full-report
type fullReportRequest struct {
	BatchID     string                          `json:"batch_id"`
	ReportTitle string                          `json:"report_title"`
	Experiments []experiment.Result             `json:"experiments"`
	ManualInfo  *experiment.ManualInfo          `json:"manual_info,omitempty"`
	Options     app.ReportOptions               `json:"options"`
	Narrative   *domainreport.NarrativeSections `json:"narrative,omitempty"`
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (s *Server) handleGenerationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.container.NarrativeStatus())
}

// handleExtractManual reads an uploaded PDF manual into manual info
func (s *Server) handleExtractManual(c *gin.Context) {
	upload, err := readFormFile(c, s.container.Config.Upload.MaxPDFSizeBytes())
	if err != nil {
		respondError(c, err)
		return
	}

	manual, err := s.container.ReportService.ExtractManual(c.Request.Context(), upload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "manual extracted",
		"data":    manual,
	})
}

// handleFullReport writes the narrative for an analyzed batch and assembles the report.
// ?format=html returns the rendered page instead of JSON.
func (s *Server) handleFullReport(c *gin.Context) {
	var body fullReportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if strings.TrimSpace(body.ReportTitle) == "" {
		respondError(c, apperrors.InvalidInput("report_title is required"))
		return
	}
	if body.BatchID == "" {
		body.BatchID = uuid.New().String()
	}

	batch := &experiment.BatchResult{
		BatchID:          body.BatchID,
		ReportTitle:      body.ReportTitle,
		Experiments:      body.Experiments,
		TotalExperiments: len(body.Experiments),
		Manual:           body.ManualInfo,
	}

	generated, err := s.container.ReportService.GenerateReport(c.Request.Context(), app.ReportRequest{
		Title:     body.ReportTitle,
		Batch:     batch,
		Manual:    body.ManualInfo,
		Options:   body.Options,
		Narrative: body.Narrative,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	s.metrics.narrativeGenerated(generated.Audit.GeneratorType)
	saved := s.saveReport(body.BatchID, generated.Markdown)

	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.DocumentHTML(generated.Document))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          fmt.Sprintf("report generated for %d experiments", len(body.Experiments)),
		"batch_id":         body.BatchID,
		"markdown_content": generated.Markdown,
		"sections":         generated.Sections,
		"audit":            generated.Audit,
		"saved_as":         saved,
	})
}

// saveReport stores the Markdown under REPORTS_DIR for the preview app. It is
// a no-op when no directory is configured. A failed write is logged and does
// not fail the request.
func (s *Server) saveReport(batchID, markdown string) string {
	dir := s.container.Config.Server.ReportsDir
	if dir == "" {
		return ""
	}
	name := strings.Trim(unsafeFileChars.ReplaceAllString(batchID, "_"), "_")
	if name == "" {
		name = uuid.New().String()
	}
	name += ".md"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[API] Could not create reports dir %s: %v", dir, err)
		return ""
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(markdown), 0o644); err != nil {
		log.Printf("[API] Could not save report %s: %v", name, err)
		return ""
	}
	return name
}
