package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"labreport/domain/core"
	"labreport/domain/dataset"
	"labreport/domain/experiment"
	domainreport "labreport/domain/report"
	"labreport/domain/stats"
	"labreport/internal"
	apperrors "labreport/internal/errors"
	"labreport/internal/report"
	"labreport/ports"
)

// ServiceTimeouts bound the collaborators invoked at the boundary
type ServiceTimeouts struct {
	Chart     time.Duration
	Narrative time.Duration
}

// DefaultServiceTimeouts returns the timeouts used when none are configured
func DefaultServiceTimeouts() ServiceTimeouts {
	return ServiceTimeouts{Chart: 30 * time.Second, Narrative: 120 * time.Second}
}

// ReportService drives the upload -> analysis -> chart -> narrative -> document pipeline
type ReportService struct {
	reader       ports.TableReaderPort
	profiler     ports.ProfilerPort
	orchestrator *BatchOrchestrator
	charts       ports.ChartPort
	narrator     ports.NarrativePort
	assembler    *report.Assembler
	manuals      ManualSources
	timeouts     ServiceTimeouts
	logger       *internal.Logger
}

// ManualSources are the collaborators of manual extraction. A nil Manual
// means no LLM is configured.
type ManualSources struct {
	Text     ports.TextExtractorPort
	Manual   ports.ManualExtractorPort
	MaxBytes int64
}

// NewReportService wires the pipeline; a nil chart port disables charts
func NewReportService(
	reader ports.TableReaderPort,
	profiler ports.ProfilerPort,
	orchestrator *BatchOrchestrator,
	charts ports.ChartPort,
	narrator ports.NarrativePort,
	assembler *report.Assembler,
	timeouts ServiceTimeouts,
) *ReportService {
	defaults := DefaultServiceTimeouts()
	if timeouts.Chart <= 0 {
		timeouts.Chart = defaults.Chart
	}
	if timeouts.Narrative <= 0 {
		timeouts.Narrative = defaults.Narrative
	}
	if assembler == nil {
		assembler = report.NewAssembler()
	}
	return &ReportService{
		reader:       reader,
		profiler:     profiler,
		orchestrator: orchestrator,
		charts:       charts,
		narrator:     narrator,
		assembler:    assembler,
		timeouts:     timeouts,
		logger:       internal.DefaultLogger.WithComponent("ReportService"),
	}
}

// SetManualSources enables ExtractManual
func (s *ReportService) SetManualSources(m ManualSources) {
	s.manuals = m
}

// Upload is a file received from a client
type Upload struct {
	Filename string
	Data     []byte
}

// SingleAnalysisRequest analyzes one (table, x, y) triple of an upload
type SingleAnalysisRequest struct {
	Upload
	Title            string
	TableName        string // empty selects the first table
	XColumn          string
	YColumn          string
	TheoreticalSlope *float64
}

// SingleAnalysis is the outcome of AnalyzeSingle
type SingleAnalysis struct {
	AnalysisID string                     `json:"analysis_id"`
	Statistics stats.RegressionStatistics `json:"statistics"`
	Chart      experiment.ChartRef        `json:"graph"`
	Summary    stats.DataSummary          `json:"data_summary"`
}

// BatchAnalysisRequest analyzes several experiments drawn from one upload
type BatchAnalysisRequest struct {
	Upload
	Title   string
	Configs []experiment.Config
	Manual  *experiment.ManualInfo
}

// ReportOptions tune narrative generation
type ReportOptions struct {
	Language string `json:"language"` // "ko" or "en"
	Tone     string `json:"tone"`     // "academic" or "general"
}

// ReportRequest assembles a report from an already analyzed batch
type ReportRequest struct {
	Title   string
	Batch   *experiment.BatchResult
	Manual  *experiment.ManualInfo
	Options ReportOptions

	// Narrative, when set, is used as is and no generator is called
	Narrative *domainreport.NarrativeSections
}

// GeneratedReport is an assembled document with its narrative audit
type GeneratedReport struct {
	Document *domainreport.Document
	Markdown string
	Sections domainreport.NarrativeSections
	Audit    ports.GenerationAudit
}

// DetectSheets lists every non-empty table of an upload with sample rows
func (s *ReportService) DetectSheets(ctx context.Context, upload Upload) ([]dataset.TableInfo, error) {
	tables, err := s.reader.ReadTables(ctx, upload.Filename, upload.Data)
	if err != nil {
		return nil, err
	}

	infos := make([]dataset.TableInfo, 0, tables.Len())
	for _, t := range tables.Tables() {
		infos = append(infos, s.profiler.DescribeTable(t, 5))
	}
	return infos, nil
}

// DetectColumns profiles the columns of one table (the first when tableName is empty)
func (s *ReportService) DetectColumns(ctx context.Context, upload Upload, tableName string) (*dataset.TableProfile, error) {
	tables, err := s.reader.ReadTables(ctx, upload.Filename, upload.Data)
	if err != nil {
		return nil, err
	}
	table, err := pickTable(tables, tableName)
	if err != nil {
		return nil, err
	}

	profile := s.profiler.ProfileTable(table, 3)
	return &profile, nil
}

// AnalyzeSingle runs one regression and renders its chart
func (s *ReportService) AnalyzeSingle(ctx context.Context, req SingleAnalysisRequest) (*SingleAnalysis, error) {
	tables, err := s.reader.ReadTables(ctx, req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	table, err := pickTable(tables, req.TableName)
	if err != nil {
		return nil, err
	}

	analysis, err := s.orchestrator.analyzer.Analyze(table, req.XColumn, req.YColumn, req.TheoreticalSlope)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("%s vs %s", req.YColumn, req.XColumn)
	}
	chart, err := s.renderChart(ctx, analysis.Series, analysis.Statistics, title, req.XColumn, req.YColumn)
	if err != nil {
		return nil, err
	}

	result := &SingleAnalysis{
		AnalysisID: core.NewAnalysisID().String(),
		Statistics: analysis.Statistics,
		Chart:      chart,
		Summary:    analysis.Summary,
	}
	s.logger.Info("analysis %s: %s/%s on %s (n=%d)", result.AnalysisID, req.XColumn, req.YColumn, table.Name, analysis.Statistics.DataPoints)
	return result, nil
}

// AnalyzeBatch reads the upload, runs the batch and attaches a chart to every experiment
func (s *ReportService) AnalyzeBatch(ctx context.Context, req BatchAnalysisRequest) (*experiment.BatchResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, core.NewInvalidInputError("report_title", "must not be empty")
	}
	if err := experiment.ValidateConfigs(req.Configs); err != nil {
		return nil, err
	}

	tables, err := s.reader.ReadTables(ctx, req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	batch, err := s.orchestrator.Run(ctx, BatchRequest{
		Title:   req.Title,
		Tables:  tables,
		Configs: req.Configs,
		Manual:  req.Manual,
	})
	if err != nil {
		return nil, err
	}

	for i := range batch.Experiments {
		exp := &batch.Experiments[i]
		chart, err := s.renderChart(ctx, exp.Series, exp.Statistics, exp.Name, exp.Display.XColumn, exp.Display.YColumn)
		if err != nil {
			return nil, apperrors.Wrapf(err, "chart for experiment %d (%s)", i+1, exp.Name)
		}
		exp.Chart = chart
	}
	return batch, nil
}

// GenerateReport produces the narrative (unless supplied) and assembles the document
func (s *ReportService) GenerateReport(ctx context.Context, req ReportRequest) (*GeneratedReport, error) {
	if req.Batch == nil || len(req.Batch.Experiments) == 0 {
		return nil, core.NewInvalidInputError("experiments", "at least one experiment is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Batch.ReportTitle
	}
	manual := req.Manual
	if manual == nil {
		manual = req.Batch.Manual
	}

	var (
		sections domainreport.NarrativeSections
		audit    ports.GenerationAudit
	)
	if req.Narrative != nil {
		sections = *req.Narrative
		audit = ports.GenerationAudit{GeneratorType: "supplied"}
	} else {
		gen, err := s.generateNarrative(ctx, ports.NarrativeRequest{
			Title:    title,
			Batch:    req.Batch,
			Manual:   manual,
			Language: req.Options.Language,
			Tone:     req.Options.Tone,
		})
		if err != nil {
			return nil, err
		}
		sections, audit = gen.Sections, gen.Audit
	}

	doc, err := s.assembler.Assemble(report.Input{
		Title:       title,
		Experiments: req.Batch.Experiments,
		Narrative:   sections,
		Manual:      manual,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("report %q assembled: %d experiments, narrative by %s", title, len(req.Batch.Experiments), audit.GeneratorType)
	return &GeneratedReport{
		Document: doc,
		Markdown: doc.Markdown(),
		Sections: sections,
		Audit:    audit,
	}, nil
}

// BuildReport runs the whole pipeline from an upload to a document
func (s *ReportService) BuildReport(ctx context.Context, req BatchAnalysisRequest, opts ReportOptions) (*experiment.BatchResult, *GeneratedReport, error) {
	batch, err := s.AnalyzeBatch(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	generated, err := s.GenerateReport(ctx, ReportRequest{Title: req.Title, Batch: batch, Manual: req.Manual, Options: opts})
	if err != nil {
		return nil, nil, err
	}
	return batch, generated, nil
}

// ExtractManual reads a PDF experiment manual into ManualInfo
func (s *ReportService) ExtractManual(ctx context.Context, upload Upload) (*experiment.ManualInfo, error) {
	if strings.ToLower(filepath.Ext(upload.Filename)) != ".pdf" {
		return nil, apperrors.InvalidFileFormat("only PDF manuals (.pdf) are supported")
	}
	if limit := s.manuals.MaxBytes; limit > 0 && int64(len(upload.Data)) > limit {
		return nil, apperrors.FileTooLarge(int64(len(upload.Data)), limit)
	}
	if s.manuals.Text == nil || s.manuals.Manual == nil {
		return nil, apperrors.ExternalServiceError("llm", fmt.Errorf("manual extraction needs LLM_API_KEY"))
	}

	text, err := s.manuals.Text.ExtractText(ctx, upload.Data)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Narrative)
	defer cancel()

	manual, err := s.manuals.Manual.ExtractManual(callCtx, upload.Filename, text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("manual extracted from %s (%d characters of text)", upload.Filename, len(text))
	return manual, nil
}

func (s *ReportService) generateNarrative(ctx context.Context, req ports.NarrativeRequest) (*ports.NarrativeGeneration, error) {
	if s.narrator == nil {
		return nil, apperrors.ConfigInvalid("no narrative generator configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Narrative)
	defer cancel()

	start := time.Now()
	gen, err := s.narrator.GenerateNarrative(callCtx, req)
	if err != nil {
		return nil, err
	}
	if err := gen.Sections.Validate(); err != nil {
		return nil, apperrors.ExternalServiceError("narrative", fmt.Errorf("incomplete sections: %v", err))
	}
	s.logger.Debug("narrative generated in %v (fallback=%t)", time.Since(start), gen.Audit.Fallback)
	return gen, nil
}

func (s *ReportService) renderChart(ctx context.Context, series dataset.Series, st stats.RegressionStatistics, title, xLabel, yLabel string) (experiment.ChartRef, error) {
	if s.charts == nil {
		return experiment.ChartRef{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Chart)
	defer cancel()

	return s.charts.Render(callCtx, ports.ChartRequest{
		Series:    series,
		Slope:     st.Slope,
		Intercept: st.Intercept,
		RSquared:  st.RSquared,
		Title:     title,
		XLabel:    xLabel,
		YLabel:    yLabel,
	})
}

// pickTable returns the named table, or the first one when name is empty
func pickTable(tables *dataset.TableSet, name string) (*dataset.Table, error) {
	if name == "" {
		all := tables.Tables()
		if len(all) == 0 {
			return nil, core.NewTableNotFoundError("(first)", nil)
		}
		return all[0], nil
	}
	t, ok := tables.Get(name)
	if !ok {
		return nil, core.NewTableNotFoundError(name, tables.Names())
	}
	return t, nil
}
