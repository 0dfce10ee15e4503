package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labreport/adapters/datareadiness"
	"labreport/adapters/excel"
	"labreport/domain/core"
	"labreport/domain/experiment"
	domainreport "labreport/domain/report"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

type mockChart struct {
	mock.Mock
}

func (m *mockChart) Render(ctx context.Context, req ports.ChartRequest) (experiment.ChartRef, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(experiment.ChartRef), args.Error(1)
}

type mockNarrator struct {
	mock.Mock
}

func (m *mockNarrator) GenerateNarrative(ctx context.Context, req ports.NarrativeRequest) (*ports.NarrativeGeneration, error) {
	args := m.Called(ctx, req)
	gen, _ := args.Get(0).(*ports.NarrativeGeneration)
	return gen, args.Error(1)
}

func newTestService(charts ports.ChartPort, narrator ports.NarrativePort) *ReportService {
	return NewReportService(
		excel.NewDataReader(excel.DefaultReaderConfig()),
		datareadiness.NewProfilerAdapter(nil),
		NewBatchOrchestrator(nil, 2),
		charts,
		narrator,
		nil,
		ServiceTimeouts{},
	)
}

// csvUpload is y = 2x + 1 over x = 1..n plus one unusable row
func csvUpload(name string, n int) Upload {
	var b strings.Builder
	b.WriteString("x,y,label\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,%d,p%d\n", i, 2*i+1, i)
	}
	b.WriteString("oops,3,bad\n")
	return Upload{Filename: name, Data: []byte(b.String())}
}

func okNarrative() *ports.NarrativeGeneration {
	return &ports.NarrativeGeneration{
		Sections: domainreport.NarrativeSections{ResultAnalysis: "Slopes agree.", Discussion: "Timing errors dominate."},
		Audit:    ports.GenerationAudit{GeneratorType: "test"},
	}
}

func TestReportService_DetectSheetsAndColumns(t *testing.T) {
	svc := newTestService(nil, nil)

	infos, err := svc.DetectSheets(context.Background(), csvUpload("run.csv", 8))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "run", infos[0].Name)
	assert.Equal(t, 9, infos[0].RowCount)
	assert.Len(t, infos[0].SampleRows, 5)

	profile, err := svc.DetectColumns(context.Background(), csvUpload("run.csv", 8), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, profile.NumericColumns)

	_, err = svc.DetectColumns(context.Background(), csvUpload("run.csv", 8), "Sheet9")
	assert.True(t, errors.Is(err, core.ErrTableNotFound))
}

func TestReportService_AnalyzeSingle(t *testing.T) {
	charts := new(mockChart)
	charts.On("Render", mock.Anything, mock.MatchedBy(func(req ports.ChartRequest) bool {
		return req.Title == "Calibration" && req.Series.Len() == 6 && req.Slope == 2
	})).Return(experiment.ChartRef{ImageBase64: "iVBORw0KGgo="}, nil)

	svc := newTestService(charts, nil)
	result, err := svc.AnalyzeSingle(context.Background(), SingleAnalysisRequest{
		Upload:  csvUpload("cal.csv", 6),
		Title:   "Calibration",
		XColumn: "x",
		YColumn: "y",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, 2.0, result.Statistics.Slope)
	assert.Equal(t, 1.0, result.Statistics.Intercept)
	assert.Equal(t, 1, result.Summary.NullValuesRemoved)
	assert.Equal(t, "iVBORw0KGgo=", result.Chart.ImageBase64)
	charts.AssertExpectations(t)
}

func TestReportService_AnalyzeBatchAttachesCharts(t *testing.T) {
	charts := new(mockChart)
	charts.On("Render", mock.Anything, mock.Anything).Return(experiment.ChartRef{ImageBase64: "png"}, nil)

	svc := newTestService(charts, nil)
	batch, err := svc.AnalyzeBatch(context.Background(), BatchAnalysisRequest{
		Upload: csvUpload("lab.csv", 7),
		Title:  "Lab 3",
		Configs: []experiment.Config{
			{TableName: "lab", Name: "first", XColumn: "x", YColumn: "y"},
			{TableName: "lab", Name: "second", XColumn: "y", YColumn: "x"},
		},
	})
	require.NoError(t, err)

	require.Len(t, batch.Experiments, 2)
	for _, exp := range batch.Experiments {
		assert.Equal(t, "png", exp.Chart.ImageBase64)
	}
	charts.AssertNumberOfCalls(t, "Render", 2)
}

func TestReportService_AnalyzeBatchChartFailure(t *testing.T) {
	charts := new(mockChart)
	charts.On("Render", mock.Anything, mock.Anything).Return(experiment.ChartRef{}, errors.New("canvas exploded"))

	svc := newTestService(charts, nil)
	_, err := svc.AnalyzeBatch(context.Background(), BatchAnalysisRequest{
		Upload:  csvUpload("lab.csv", 7),
		Title:   "Lab 3",
		Configs: []experiment.Config{{TableName: "lab", Name: "only", XColumn: "x", YColumn: "y"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart for experiment 1 (only)")
}

func TestReportService_AnalyzeBatchValidation(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.AnalyzeBatch(context.Background(), BatchAnalysisRequest{Upload: csvUpload("a.csv", 6)})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = svc.AnalyzeBatch(context.Background(), BatchAnalysisRequest{
		Upload:  csvUpload("a.csv", 6),
		Title:   "t",
		Configs: []experiment.Config{{TableName: "missing", Name: "n", XColumn: "x", YColumn: "y"}},
	})
	assert.True(t, errors.Is(err, core.ErrTableNotFound))
}

func TestReportService_BuildReport(t *testing.T) {
	narrator := new(mockNarrator)
	narrator.On("GenerateNarrative", mock.Anything, mock.MatchedBy(func(req ports.NarrativeRequest) bool {
		return req.Title == "Ohm's law" && req.Language == "en" && len(req.Batch.Experiments) == 1
	})).Return(okNarrative(), nil)

	svc := newTestService(nil, narrator)
	batch, generated, err := svc.BuildReport(context.Background(), BatchAnalysisRequest{
		Upload:  csvUpload("ohm.csv", 10),
		Title:   "Ohm's law",
		Configs: []experiment.Config{{TableName: "ohm", Name: "Resistor", XColumn: "x", YColumn: "y"}},
	}, ReportOptions{Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.TotalExperiments)
	assert.True(t, batch.Experiments[0].Chart.IsZero(), "no chart port means no chart")
	assert.Equal(t, "test", generated.Audit.GeneratorType)
	assert.Contains(t, generated.Markdown, "# Ohm's law")
	assert.Contains(t, generated.Markdown, "Timing errors dominate.")
	assert.NotContains(t, generated.Markdown, "![", "image is omitted without a chart")
	narrator.AssertExpectations(t)
}

func TestReportService_GenerateReportWithSuppliedNarrative(t *testing.T) {
	narrator := new(mockNarrator)
	svc := newTestService(nil, narrator)

	supplied := okNarrative().Sections
	generated, err := svc.GenerateReport(context.Background(), ReportRequest{
		Batch: &experiment.BatchResult{
			ReportTitle: "From batch",
			Experiments: []experiment.Result{{Name: "E1", TableName: "S1"}},
			Manual:      &experiment.ManualInfo{Purpose: "Check the law"},
		},
		Narrative: &supplied,
	})
	require.NoError(t, err)

	assert.Equal(t, "supplied", generated.Audit.GeneratorType)
	assert.Equal(t, "From batch", generated.Document.Title)
	assert.Contains(t, generated.Document.Headings(), "Background")
	narrator.AssertNotCalled(t, "GenerateNarrative", mock.Anything, mock.Anything)
}

func TestReportService_GenerateReportNarrativeErrors(t *testing.T) {
	batch := &experiment.BatchResult{ReportTitle: "T", Experiments: []experiment.Result{{Name: "E1"}}}

	t.Run("generator failure propagates", func(t *testing.T) {
		narrator := new(mockNarrator)
		narrator.On("GenerateNarrative", mock.Anything, mock.Anything).
			Return(nil, apperrors.ExternalServiceError("llm", errors.New("down")))

		_, err := newTestService(nil, narrator).GenerateReport(context.Background(), ReportRequest{Batch: batch})
		assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	})

	t.Run("incomplete sections", func(t *testing.T) {
		narrator := new(mockNarrator)
		narrator.On("GenerateNarrative", mock.Anything, mock.Anything).Return(&ports.NarrativeGeneration{
			Sections: domainreport.NarrativeSections{ResultAnalysis: "only analysis"},
		}, nil)

		_, err := newTestService(nil, narrator).GenerateReport(context.Background(), ReportRequest{Batch: batch})
		assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	})

	t.Run("no generator", func(t *testing.T) {
		_, err := newTestService(nil, nil).GenerateReport(context.Background(), ReportRequest{Batch: batch})
		assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := newTestService(nil, nil).GenerateReport(context.Background(), ReportRequest{Batch: &experiment.BatchResult{}})
		assert.True(t, errors.Is(err, core.ErrInvalidInput))
	})
}

type mockTextExtractor struct {
	mock.Mock
}

func (m *mockTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

type mockManualExtractor struct {
	mock.Mock
}

func (m *mockManualExtractor) ExtractManual(ctx context.Context, filename, text string) (*experiment.ManualInfo, error) {
	args := m.Called(ctx, filename, text)
	manual, _ := args.Get(0).(*experiment.ManualInfo)
	return manual, args.Error(1)
}

func TestReportService_ExtractManual(t *testing.T) {
	text := &mockTextExtractor{}
	text.On("ExtractText", mock.Anything, []byte("%PDF-1.4 ...")).Return("Purpose: measure g", nil)
	manuals := &mockManualExtractor{}
	manuals.On("ExtractManual", mock.Anything, "pendulum.PDF", "Purpose: measure g").
		Return(&experiment.ManualInfo{Purpose: "Measure g"}, nil)

	svc := newTestService(nil, nil)
	svc.SetManualSources(ManualSources{Text: text, Manual: manuals, MaxBytes: 1 << 20})

	manual, err := svc.ExtractManual(context.Background(), Upload{Filename: "pendulum.PDF", Data: []byte("%PDF-1.4 ...")})
	require.NoError(t, err)
	assert.Equal(t, "Measure g", manual.Purpose)
	text.AssertExpectations(t)
	manuals.AssertExpectations(t)
}

func TestReportService_ExtractManualErrors(t *testing.T) {
	failing := &mockTextExtractor{}
	failing.On("ExtractText", mock.Anything, mock.Anything).Return("", apperrors.InvalidInput("no text"))
	unused := &mockManualExtractor{}

	tests := []struct {
		name     string
		sources  ManualSources
		upload   Upload
		wantCode string
	}{
		{
			name:     "not a pdf",
			sources:  ManualSources{Text: failing, Manual: unused},
			upload:   Upload{Filename: "manual.docx", Data: []byte("x")},
			wantCode: apperrors.CodeInvalidFileFormat,
		},
		{
			name:     "too large",
			sources:  ManualSources{Text: failing, Manual: unused, MaxBytes: 4},
			upload:   Upload{Filename: "manual.pdf", Data: []byte("%PDF-1.4")},
			wantCode: apperrors.CodeFileTooLarge,
		},
		{
			name:     "no llm configured",
			sources:  ManualSources{Text: failing},
			upload:   Upload{Filename: "manual.pdf", Data: []byte("%PDF-1.4")},
			wantCode: apperrors.CodeExternalService,
		},
		{
			name:     "no text layer",
			sources:  ManualSources{Text: failing, Manual: unused},
			upload:   Upload{Filename: "manual.pdf", Data: []byte("%PDF-1.4")},
			wantCode: apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(nil, nil)
			svc.SetManualSources(tt.sources)

			_, err := svc.ExtractManual(context.Background(), tt.upload)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
	unused.AssertNotCalled(t, "ExtractManual", mock.Anything, mock.Anything, mock.Anything)
}
