package container

import (
	"fmt"
	"log"

	"labreport/adapters/chart"
	"labreport/adapters/datareadiness"
	"labreport/adapters/datareadiness/coercer"
	"labreport/adapters/excel"
	"labreport/adapters/llm"
	"labreport/adapters/llm/heuristic"
	"labreport/adapters/pdftext"
	"labreport/adapters/stats/engine"
	"labreport/app"
	"labreport/internal/config"
	"labreport/internal/report"
	"labreport/internal/usage"
	"labreport/ports"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Adapters
	Reader    *excel.DataReader
	Profiler  *datareadiness.ProfilerAdapter
	Charts    ports.ChartPort
	Narrator  ports.NarrativePort
	Heuristic *heuristic.Generator
	Usage     *usage.Tracker
	PDFText   *pdftext.Extractor
	Manuals   *llm.ManualExtractor // nil without an API key

	// Services
	Analyzer      *app.ExperimentAnalyzer
	Orchestrator  *app.BatchOrchestrator
	Assembler     *report.Assembler
	ReportService *app.ReportService
}

// New creates a new dependency injection container and wires every component
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{Config: cfg}
	c.initAdapters()
	c.initNarrative()
	c.initServices()

	log.Printf("Container initialized (narrative=%s, workers=%d)", c.narrativeMode(), cfg.Batch.Workers)
	return c, nil
}

func (c *Container) initAdapters() {
	coercion := coercer.DefaultCoercionConfig()
	coercion.Lenient = c.Config.Analysis.LenientNumeric
	typeCoercer := coercer.NewTypeCoercer(coercion)

	c.Reader = excel.NewDataReader(excel.ReaderConfig{
		AllowedExtensions: excel.DefaultReaderConfig().AllowedExtensions,
		MaxFileSizeBytes:  c.Config.Upload.MaxFileSizeBytes(),
		MaxSheets:         c.Config.Upload.MaxSheetsPerBatch,
		MaxRowsPerSheet:   c.Config.Upload.MaxDataPointsPerSheet,
		NormalizeHeaders:  true,
	})
	c.Profiler = datareadiness.NewProfilerAdapter(typeCoercer)
	c.Charts = chart.NewRenderer(chart.Config{
		WidthCm:  c.Config.Chart.WidthCm,
		HeightCm: c.Config.Chart.HeightCm,
		DPI:      c.Config.Chart.DPI,
	})

	c.Analyzer = app.NewExperimentAnalyzer(
		datareadiness.NewDataCleaner(typeCoercer),
		engine.NewRegressionEngine(),
		app.AnalyzerOptions{
			MinDataPoints: c.Config.Analysis.MinDataPoints,
			DisplayRowCap: c.Config.Analysis.ResultRowCap,
		},
	)
}

// initNarrative selects the LLM adapter when a key is configured and the
// heuristic generator otherwise
func (c *Container) initNarrative() {
	c.Heuristic = heuristic.NewGenerator()
	c.Narrator = c.Heuristic
	c.Usage = usage.NewTracker()
	c.PDFText = pdftext.NewExtractor(pdftext.DefaultMaxChars)

	if !c.Config.AI.Enabled() {
		log.Printf("LLM_API_KEY not set, using heuristic narrative generator; manual extraction disabled")
		return
	}

	llmConfig := llm.Config{
		Model:               c.Config.AI.Model,
		APIKey:              c.Config.AI.APIKey,
		BaseURL:             c.Config.AI.BaseURL,
		Temperature:         c.Config.AI.Temperature,
		MaxTokens:           c.Config.AI.MaxTokens,
		Timeout:             c.Config.AI.Timeout,
		FallbackToHeuristic: c.Config.AI.FallbackToHeuristic,
	}
	adapter, err := llm.NewGeneratorAdapter(llmConfig, c.Heuristic)
	if err != nil {
		log.Printf("Warning: failed to initialize LLM narrative adapter, using heuristic: %v", err)
		return
	}
	adapter.SetUsageRecorder(c.Usage)
	c.Narrator = adapter

	manuals, err := llm.NewManualExtractor(llmConfig)
	if err != nil {
		log.Printf("Warning: failed to initialize manual extractor: %v", err)
		return
	}
	manuals.SetUsageRecorder(c.Usage)
	c.Manuals = manuals
}

func (c *Container) initServices() {
	c.Orchestrator = app.NewBatchOrchestrator(c.Analyzer, c.Config.Batch.Workers)
	c.Assembler = report.NewAssembler(report.WithDisplayRowCap(c.Config.Analysis.DisplayRowCap))
	c.ReportService = app.NewReportService(
		c.Reader,
		c.Profiler,
		c.Orchestrator,
		c.Charts,
		c.Narrator,
		c.Assembler,
		app.ServiceTimeouts{Chart: c.Config.Chart.Timeout, Narrative: c.Config.Batch.NarrativeTimeout},
	)

	sources := app.ManualSources{Text: c.PDFText, MaxBytes: c.Config.Upload.MaxPDFSizeBytes()}
	if c.Manuals != nil {
		sources.Manual = c.Manuals
	}
	c.ReportService.SetManualSources(sources)
}

func (c *Container) narrativeMode() string {
	if _, ok := c.Narrator.(*llm.GeneratorAdapter); ok {
		return "llm:" + c.Config.AI.Model
	}
	return "heuristic"
}

// NarrativeStatus describes the configured narrative generator
type NarrativeStatus struct {
	Service    string        `json:"service"`
	Model      string        `json:"model"`
	Configured bool          `json:"configured"`
	Status     string        `json:"status"`
	Manuals    bool          `json:"manual_extraction"`
	Usage      usage.Summary `json:"usage"`
}

// NarrativeStatus reports what the generation status endpoint returns
func (c *Container) NarrativeStatus() NarrativeStatus {
	if _, ok := c.Narrator.(*llm.GeneratorAdapter); ok {
		return NarrativeStatus{Service: "llm", Model: c.Config.AI.Model, Configured: true, Status: "ready", Manuals: c.Manuals != nil, Usage: c.Usage.Summary()}
	}
	return NarrativeStatus{Service: "heuristic", Model: "rules", Configured: false, Status: "fallback", Usage: c.Usage.Summary()}
}
