package ui

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport/adapters/excel"
	"labreport/app"
	"labreport/domain/experiment"
)

const serviceVersion = "1.0.0"

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "labreport API",
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "labreport"})
}

// handleAnalyzeData analyzes one x/y pair of an uploaded file
func (s *Server) handleAnalyzeData(c *gin.Context) {
	upload, err := s.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	req := app.SingleAnalysisRequest{Upload: upload, TableName: strings.TrimSpace(c.PostForm("sheet_name"))}
	if req.Title, err = requiredForm(c, "title"); err != nil {
		respondError(c, err)
		return
	}
	if req.XColumn, err = requiredForm(c, "x_column"); err != nil {
		respondError(c, err)
		return
	}
	if req.YColumn, err = requiredForm(c, "y_column"); err != nil {
		respondError(c, err)
		return
	}
	if req.TheoreticalSlope, err = optionalFloat(c, "theoretical_slope"); err != nil {
		respondError(c, err)
		return
	}

	result, err := s.container.ReportService.AnalyzeSingle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.metrics.addExperiments(1)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "analysis completed",
		"data":    result,
	})
}

// handleDetectColumns lists the columns of the first (or named) sheet
func (s *Server) handleDetectColumns(c *gin.Context) {
	upload, err := s.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	profile, err := s.container.ReportService.DetectColumns(c.Request.Context(), upload, strings.TrimSpace(c.PostForm("sheet_name")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         fmt.Sprintf("%d columns detected (%d numeric)", len(profile.Columns), len(profile.NumericColumns)),
		"columns":         profile.Columns,
		"numeric_columns": profile.NumericColumns,
	})
}

// handleDetectSheets lists every non-empty sheet with sample rows
func (s *Server) handleDetectSheets(c *gin.Context) {
	upload, err := s.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	sheets, err := s.container.ReportService.DetectSheets(c.Request.Context(), upload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("%d sheets detected", len(sheets)),
		"sheets":       sheets,
		"total_sheets": len(sheets),
	})
}

// handleAnalyzeBatch runs every configured experiment of a multi-sheet upload
func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	req, ok := s.bindBatchRequest(c)
	if !ok {
		return
	}

	batch, err := s.container.ReportService.AnalyzeBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.metrics.addExperiments(batch.TotalExperiments)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("batch analysis of %d experiments completed", batch.TotalExperiments),
		"data":    batch,
	})
}

// handleExportBatch runs a batch and returns it as an xlsx workbook
func (s *Server) handleExportBatch(c *gin.Context) {
	req, ok := s.bindBatchRequest(c)
	if !ok {
		return
	}

	batch, err := s.container.ReportService.AnalyzeBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.metrics.addExperiments(batch.TotalExperiments)

	var buf bytes.Buffer
	if err := excel.WriteBatch(&buf, batch); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[API] Exported batch %s (%d bytes)", batch.BatchID, buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, batch.BatchID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// bindBatchRequest reads the upload and the JSON encoded batch form fields
func (s *Server) bindBatchRequest(c *gin.Context) (app.BatchAnalysisRequest, bool) {
	upload, err := s.readUpload(c)
	if err != nil {
		respondError(c, err)
		return app.BatchAnalysisRequest{}, false
	}

	req := app.BatchAnalysisRequest{Upload: upload}
	if req.Title, err = requiredForm(c, "report_title"); err != nil {
		respondError(c, err)
		return req, false
	}

	var configs []experiment.Config
	found, err := decodeFormJSON(c, "experiments_json", &configs)
	if err == nil && !found {
		_, err = requiredForm(c, "experiments_json")
	}
	if err != nil {
		respondError(c, err)
		return req, false
	}
	req.Configs = configs

	var manual experiment.ManualInfo
	hasManual, err := decodeFormJSON(c, "manual_info_json", &manual)
	if err != nil {
		respondError(c, err)
		return req, false
	}
	if hasManual {
		req.Manual = &manual
	}
	return req, true
}
