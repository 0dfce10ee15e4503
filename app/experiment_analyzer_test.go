package app

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/domain/core"
	"labreport/domain/dataset"
)

// linearTable builds a table with n valid rows of y = 2x + 1 plus the given junk rows
func linearTable(name string, n int, junk ...[]dataset.Cell) *dataset.Table {
	rows := make([][]dataset.Cell, 0, n+len(junk))
	for i := 0; i < n; i++ {
		x := float64(i)
		rows = append(rows, []dataset.Cell{dataset.NumberCell(x), dataset.NumberCell(2*x + 1)})
	}
	rows = append(rows, junk...)
	return dataset.NewTable(name, []string{"x", "y"}, rows)
}

func TestAnalyze_MinimumDataPointsBoundary(t *testing.T) {
	analyzer := NewExperimentAnalyzer(nil, nil, DefaultAnalyzerOptions())

	_, err := analyzer.Analyze(linearTable("t", 4), "x", "y", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	var ae *core.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 5, ae.Required)
	assert.Equal(t, 4, ae.Actual)

	analysis, err := analyzer.Analyze(linearTable("t", 5), "x", "y", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, analysis.Statistics.DataPoints)
	assert.Equal(t, 2.0, analysis.Statistics.Slope)
	assert.Equal(t, 1.0, analysis.Statistics.Intercept)
}

func TestAnalyze_ThresholdCountsCleanedRows(t *testing.T) {
	analyzer := NewExperimentAnalyzer(nil, nil, DefaultAnalyzerOptions())
	table := linearTable("t", 4,
		[]dataset.Cell{dataset.TextCell("n/a"), dataset.NumberCell(3)},
		[]dataset.Cell{dataset.NumberCell(9), dataset.MissingCell()},
	)

	_, err := analyzer.Analyze(table, "x", "y", nil)
	assert.Equal(t, core.KindInsufficientData, core.KindOf(err))
}

func TestAnalyze_SummaryAndDisplayTable(t *testing.T) {
	analyzer := NewExperimentAnalyzer(nil, nil, AnalyzerOptions{MinDataPoints: 5, DisplayRowCap: 3})
	table := linearTable("Sheet1", 6, []dataset.Cell{dataset.TextCell("bad"), dataset.NumberCell(1)})

	analysis, err := analyzer.Analyze(table, "x", "y", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, analysis.Summary.Columns)
	assert.Equal(t, 6, analysis.Summary.RowCount)
	assert.Equal(t, 1, analysis.Summary.NullValuesRemoved)
	assert.Equal(t, table.RowCount()-analysis.Summary.RowCount, analysis.Summary.NullValuesRemoved)

	require.Equal(t, 3, analysis.Display.Len())
	assert.Equal(t, "x", analysis.Display.XColumn)
	for i, row := range analysis.Display.Rows {
		require.NotNil(t, row.X)
		require.NotNil(t, row.Y)
		assert.Equal(t, float64(i), *row.X)
		assert.Equal(t, 2*float64(i)+1, *row.Y)
	}
}

func TestAnalyze_PropagatesFailures(t *testing.T) {
	analyzer := NewExperimentAnalyzer(nil, nil, DefaultAnalyzerOptions())

	_, err := analyzer.Analyze(linearTable("t", 6), "x", "missing", nil)
	assert.Equal(t, core.KindColumnNotFound, core.KindOf(err))

	constantX := make([][]dataset.Cell, 6)
	for i := range constantX {
		constantX[i] = []dataset.Cell{dataset.NumberCell(1), dataset.NumberCell(float64(i))}
	}
	analysis, err := analyzer.Analyze(dataset.NewTable("c", []string{"x", "y"}, constantX), "x", "y", nil)
	assert.Nil(t, analysis)
	assert.Equal(t, core.KindRegressionFailed, core.KindOf(err))
}

func TestBuildDisplayTable_NonFiniteBecomesNull(t *testing.T) {
	nan := math.NaN()
	table := buildDisplayTable(dataset.Series{X: []float64{1.23456789, nan}, Y: []float64{2, 3}}, "x", "y", 50)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, 1.234568, *table.Rows[0].X)
	assert.Nil(t, table.Rows[1].X)
	assert.Equal(t, 3.0, *table.Rows[1].Y)
}
