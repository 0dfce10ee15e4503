package ports

import (
	"context"

	"labreport/domain/dataset"
)

// TableReaderPort materializes uploaded files into named tables.
// Spreadsheets yield one table per non-empty sheet; CSV files yield one table.
type TableReaderPort interface {
	ReadTables(ctx context.Context, filename string, data []byte) (*dataset.TableSet, error)
}
