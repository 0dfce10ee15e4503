package datareadiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/adapters/datareadiness/coercer"
	"labreport/domain/dataset"
)

func textRows(rows ...[]string) [][]dataset.Cell {
	out := make([][]dataset.Cell, len(rows))
	for i, r := range rows {
		cells := make([]dataset.Cell, len(r))
		for j, v := range r {
			cells[j] = dataset.TextCell(v)
		}
		out[i] = cells
	}
	return out
}

func TestColumnKindInference(t *testing.T) {
	profiler := NewProfilerAdapter(coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()))

	tests := []struct {
		name         string
		values       []string
		expectedKind coercer.ColumnKind
	}{
		{
			name:         "numeric strings should be numeric",
			values:       []string{"25", "34", "45", "28", "52"},
			expectedKind: coercer.ColumnNumeric,
		},
		{
			name:         "scientific notation should be numeric",
			values:       []string{"1e-3", "2.5E2", "-4"},
			expectedKind: coercer.ColumnNumeric,
		},
		{
			name:         "text values should be text",
			values:       []string{"North", "South", "East", "West", "North"},
			expectedKind: coercer.ColumnText,
		},
		{
			name:         "blank column should be empty",
			values:       []string{"", "", ""},
			expectedKind: coercer.ColumnEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			table := dataset.NewTable("Sheet1", []string{"col"}, textRows(rows...))

			profile := profiler.ProfileTable(table, 0)
			require.Len(t, profile.Columns, 1)

			if profile.Columns[0].Kind != string(tt.expectedKind) {
				t.Errorf("Expected kind %s, got %s for values: %v", tt.expectedKind, profile.Columns[0].Kind, tt.values)
			}
			if profile.Columns[0].NumericRatio < 0 || profile.Columns[0].NumericRatio > 1 {
				t.Errorf("Numeric ratio should be between 0 and 1, got %f", profile.Columns[0].NumericRatio)
			}
		})
	}
}

func TestProfileTable_SamplesAndNumericColumns(t *testing.T) {
	profiler := NewProfilerAdapter(nil)
	table := dataset.NewTable("Data", []string{"time", "label", "distance"}, textRows(
		[]string{"0", "a", "0"},
		[]string{"1", "b", "10"},
		[]string{"2", "", "20"},
		[]string{"3", "d", "30"},
	))

	profile := profiler.ProfileTable(table, DefaultColumnSamples)

	assert.Equal(t, "Data", profile.TableName)
	assert.Equal(t, 4, profile.RowCount)
	assert.Equal(t, []string{"time", "distance"}, profile.NumericColumns)
	assert.Equal(t, []string{"0", "1", "2"}, profile.Columns[0].SampleValues)
	assert.Equal(t, []string{"a", "b", "d"}, profile.Columns[1].SampleValues, "missing cells are not sampled")

	require.NotNil(t, profile.Columns[2].Numeric)
	assert.Equal(t, 0.0, profile.Columns[2].Numeric.Min)
	assert.Equal(t, 30.0, profile.Columns[2].Numeric.Max)
	assert.InDelta(t, 15.0, profile.Columns[2].Numeric.Mean, 1e-9)
	assert.Nil(t, profile.Columns[1].Numeric)
}

func TestDescribeTable_LimitsSampleRows(t *testing.T) {
	profiler := NewProfilerAdapter(nil)

	rows := make([][]string, 8)
	for i := range rows {
		rows[i] = []string{"1", "2"}
	}
	table := dataset.NewTable("Run", []string{"x", "y"}, textRows(rows...))

	info := profiler.DescribeTable(table, DefaultSheetSamples)
	assert.Equal(t, 8, info.RowCount)
	assert.Len(t, info.SampleRows, DefaultSheetSamples)
	assert.Equal(t, []string{"x", "y"}, info.Columns)

	short := dataset.NewTable("Short", []string{"x"}, textRows([]string{"1"}))
	assert.Len(t, profiler.DescribeTable(short, DefaultSheetSamples).SampleRows, 1)
}
