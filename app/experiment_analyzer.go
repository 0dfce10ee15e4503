package app

import (
	"math"

	"labreport/adapters/datareadiness"
	"labreport/adapters/stats/engine"
	"labreport/domain/core"
	"labreport/domain/dataset"
	"labreport/domain/experiment"
	"labreport/domain/stats"
)

const (
	DefaultMinDataPoints = 5
	DefaultDisplayRowCap = 50
)

// AnalyzerOptions configures the single-experiment pipeline
type AnalyzerOptions struct {
	MinDataPoints int
	DisplayRowCap int
}

// DefaultAnalyzerOptions returns the standard thresholds
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		MinDataPoints: DefaultMinDataPoints,
		DisplayRowCap: DefaultDisplayRowCap,
	}
}

// ExperimentAnalyzer cleans one (table, x, y) triple and fits a line to it
type ExperimentAnalyzer struct {
	cleaner *datareadiness.DataCleaner
	engine  *engine.RegressionEngine
	opts    AnalyzerOptions
}

// NewExperimentAnalyzer creates an analyzer; zero option values fall back to defaults
func NewExperimentAnalyzer(cleaner *datareadiness.DataCleaner, regression *engine.RegressionEngine, opts AnalyzerOptions) *ExperimentAnalyzer {
	if cleaner == nil {
		cleaner = datareadiness.NewDataCleaner(nil)
	}
	if regression == nil {
		regression = engine.NewRegressionEngine()
	}
	if opts.MinDataPoints <= 0 {
		opts.MinDataPoints = DefaultMinDataPoints
	}
	if opts.DisplayRowCap <= 0 {
		opts.DisplayRowCap = DefaultDisplayRowCap
	}
	return &ExperimentAnalyzer{cleaner: cleaner, engine: regression, opts: opts}
}

// Options returns the effective options
func (a *ExperimentAnalyzer) Options() AnalyzerOptions {
	return a.opts
}

// Analyze runs cleaning, the sample-size check and the fit.
// Nothing is returned unless every step succeeds.
func (a *ExperimentAnalyzer) Analyze(table *dataset.Table, xColumn, yColumn string, theoreticalSlope *float64) (*experiment.Analysis, error) {
	if table == nil {
		return nil, core.NewInvalidInputError("table", "must not be nil")
	}

	cleaned, err := a.cleaner.Clean(table, xColumn, yColumn)
	if err != nil {
		return nil, err
	}

	n := cleaned.Series.Len()
	if n < a.opts.MinDataPoints {
		return nil, core.NewInsufficientDataError(a.opts.MinDataPoints, n)
	}

	statistics, err := a.engine.Regress(cleaned.Series, theoreticalSlope)
	if err != nil {
		return nil, err
	}

	return &experiment.Analysis{
		Statistics: statistics,
		Summary: stats.DataSummary{
			Columns:           table.ColumnNames(),
			RowCount:          n,
			NullValuesRemoved: cleaned.RowsRemoved,
		},
		Display: buildDisplayTable(cleaned.Series, xColumn, yColumn, a.opts.DisplayRowCap),
		Series:  cleaned.Series,
	}, nil
}

// buildDisplayTable keeps the first rowCap rows, rounded; non-finite values become nulls
func buildDisplayTable(series dataset.Series, xColumn, yColumn string, rowCap int) experiment.DisplayTable {
	n := series.Len()
	if n > rowCap {
		n = rowCap
	}

	rows := make([]experiment.DisplayRow, n)
	for i := 0; i < n; i++ {
		rows[i] = experiment.DisplayRow{
			X: displayValue(series.X, i),
			Y: displayValue(series.Y, i),
		}
	}

	return experiment.DisplayTable{XColumn: xColumn, YColumn: yColumn, Rows: rows}
}

func displayValue(values []float64, i int) *float64 {
	if i >= len(values) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
		return nil
	}
	v := stats.RoundStat(values[i])
	return &v
}
