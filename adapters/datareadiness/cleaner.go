package datareadiness

import (
	"labreport/adapters/datareadiness/coercer"
	"labreport/domain/core"
	"labreport/domain/dataset"
)

// CleanResult is a cleaned (x, y) series plus the number of rows dropped
type CleanResult struct {
	Series      dataset.Series
	RowsBefore  int
	RowsRemoved int
}

// DataCleaner extracts numeric (x, y) pairs from two table columns.
// It holds no mutable state and is safe for concurrent use.
type DataCleaner struct {
	coercer *coercer.TypeCoercer
}

// NewDataCleaner creates a cleaner backed by the given coercer
func NewDataCleaner(c *coercer.TypeCoercer) *DataCleaner {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &DataCleaner{coercer: c}
}

// Clean coerces both columns to numbers and keeps only rows where both values
// are present. The source table is never modified.
func (dc *DataCleaner) Clean(table *dataset.Table, xColumn, yColumn string) (*CleanResult, error) {
	xCol, ok := table.Column(xColumn)
	if !ok {
		return nil, core.NewColumnNotFoundError(xColumn, table.ColumnNames())
	}
	yCol, ok := table.Column(yColumn)
	if !ok {
		return nil, core.NewColumnNotFoundError(yColumn, table.ColumnNames())
	}

	rows := table.RowCount()
	series := dataset.Series{
		X: make([]float64, 0, rows),
		Y: make([]float64, 0, rows),
	}

	for r := 0; r < rows; r++ {
		x, xok := dc.coercer.ToNumber(xCol.CellAt(r))
		y, yok := dc.coercer.ToNumber(yCol.CellAt(r))
		if !xok || !yok {
			continue
		}
		series.X = append(series.X, x)
		series.Y = append(series.Y, y)
	}

	return &CleanResult{
		Series:      series,
		RowsBefore:  rows,
		RowsRemoved: rows - series.Len(),
	}, nil
}
