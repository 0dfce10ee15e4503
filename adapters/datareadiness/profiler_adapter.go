package datareadiness

import (
	"github.com/montanaflynn/stats"

	"labreport/adapters/datareadiness/coercer"
	"labreport/domain/dataset"
)

const (
	// DefaultColumnSamples is the number of sample values reported per column
	DefaultColumnSamples = 3
	// DefaultSheetSamples is the number of sample rows reported per table
	DefaultSheetSamples = 5
)

// ProfilerAdapter infers column kinds and sample values for detection endpoints
type ProfilerAdapter struct {
	coercer *coercer.TypeCoercer
}

// NewProfilerAdapter creates a new profiler adapter
func NewProfilerAdapter(c *coercer.TypeCoercer) *ProfilerAdapter {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &ProfilerAdapter{coercer: c}
}

// ProfileTable analyzes every column of a table
func (p *ProfilerAdapter) ProfileTable(table *dataset.Table, samples int) dataset.TableProfile {
	if samples <= 0 {
		samples = DefaultColumnSamples
	}

	result := dataset.TableProfile{
		TableName:      table.Name,
		RowCount:       table.RowCount(),
		Columns:        make([]dataset.ColumnProfile, 0, len(table.Columns)),
		NumericColumns: []string{},
	}

	for i := range table.Columns {
		profile := p.profileColumn(&table.Columns[i], samples)
		if profile.Kind == string(coercer.ColumnNumeric) {
			result.NumericColumns = append(result.NumericColumns, profile.Name)
		}
		result.Columns = append(result.Columns, profile)
	}

	return result
}

// DescribeTable returns the sheet detection summary with up to samples rows
func (p *ProfilerAdapter) DescribeTable(table *dataset.Table, samples int) dataset.TableInfo {
	if samples <= 0 {
		samples = DefaultSheetSamples
	}

	rows := table.RowCount()
	if samples > rows {
		samples = rows
	}

	sampleRows := make([][]string, samples)
	for r := 0; r < samples; r++ {
		row := make([]string, len(table.Columns))
		for c := range table.Columns {
			row[c] = table.Columns[c].CellAt(r).String()
		}
		sampleRows[r] = row
	}

	return dataset.TableInfo{
		Name:       table.Name,
		Columns:    table.ColumnNames(),
		RowCount:   rows,
		SampleRows: sampleRows,
	}
}

// profileColumn analyzes a single column
func (p *ProfilerAdapter) profileColumn(col *dataset.Column, samples int) dataset.ColumnProfile {
	analysis := p.coercer.AnalyzeColumn(col)

	profile := dataset.ColumnProfile{
		Name:         col.Name,
		Kind:         string(analysis.RecommendedKind),
		SampleValues: make([]string, 0, samples),
		NonMissing:   analysis.ValidCount,
		NumericRatio: analysis.NumericRatio,
	}

	var nums []float64
	for _, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		if len(profile.SampleValues) < samples {
			profile.SampleValues = append(profile.SampleValues, cell.String())
		}
		if v, ok := p.coercer.ToNumber(cell); ok {
			nums = append(nums, v)
		}
	}

	if analysis.RecommendedKind == coercer.ColumnNumeric {
		profile.Numeric = computeNumericStats(nums)
	}

	return profile
}

// computeNumericStats calculates statistics for numeric columns
func computeNumericStats(values []float64) *dataset.NumStats {
	if len(values) == 0 {
		return nil
	}
	min, err := stats.Min(values)
	if err != nil {
		return nil
	}
	max, _ := stats.Max(values)
	mean, _ := stats.Mean(values)
	return &dataset.NumStats{Min: min, Max: max, Mean: mean}
}
