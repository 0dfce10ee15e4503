package excel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labreport/domain/dataset"
	apperrors "labreport/internal/errors"
)

// workbook builds an xlsx in memory; a nil sheet body leaves the sheet empty
func workbook(t *testing.T, sheets map[string][][]interface{}, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadTables_Workbook(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Spring": {
			{"Mass (kg)", "Extension (m)"},
			{0.1, 0.02},
			{0.2, 0.041},
			{0.3, "n/a"},
		},
		"Blank": nil,
		"Pendulum": {
			{"L", "T"},
			{1, 2.01},
		},
	}, "Spring", "Blank", "Pendulum")

	set, err := NewDataReader(DefaultReaderConfig()).ReadTables(context.Background(), "lab.xlsx", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Spring", "Pendulum"}, set.Names(), "empty sheets are skipped, order is kept")

	spring, ok := set.Get("Spring")
	require.True(t, ok)
	assert.Equal(t, []string{"Mass (kg)", "Extension (m)"}, spring.ColumnNames())
	assert.Equal(t, 3, spring.RowCount())

	col, _ := spring.Column("Extension (m)")
	assert.Equal(t, dataset.NumberCell(0.041), col.Cells[1])
	assert.Equal(t, dataset.TextCell("n/a"), col.Cells[2])
}

func TestReadTables_CSV(t *testing.T) {
	csvData := "\ufefftime,distance\n0,0\n1,4.9\n\n2,19.6\n3,\n"

	set, err := NewDataReader(DefaultReaderConfig()).ReadTables(context.Background(), "free_fall.csv", []byte(csvData))
	require.NoError(t, err)

	require.Equal(t, []string{"free_fall"}, set.Names())
	table, _ := set.Get("free_fall")
	assert.Equal(t, []string{"time", "distance"}, table.ColumnNames(), "byte order mark is stripped")
	assert.Equal(t, 4, table.RowCount(), "blank lines are dropped")

	distance, _ := table.Column("distance")
	assert.True(t, distance.Cells[3].IsMissing())
}

func TestReadTables_HeaderCleanup(t *testing.T) {
	// the header below uses a decomposed "e" + combining acute accent
	csvData := " Tempe\u0301rature ,,x,x\n1,2,3,4\n"

	set, err := NewDataReader(DefaultReaderConfig()).ReadTables(context.Background(), "h.csv", []byte(csvData))
	require.NoError(t, err)

	table, _ := set.Get("h")
	assert.Equal(t, []string{"Temp\u00e9rature", "Unnamed: 1", "x", "x.1"}, table.ColumnNames())
}

func TestReadTables_Limits(t *testing.T) {
	tests := []struct {
		name     string
		config   ReaderConfig
		filename string
		data     string
		code     string
		contains string
	}{
		{
			name:     "extension not allowed",
			config:   DefaultReaderConfig(),
			filename: "data.xls",
			data:     "a,b\n1,2\n",
			code:     apperrors.CodeInvalidFileFormat,
			contains: ".xls",
		},
		{
			name:     "file too large",
			config:   ReaderConfig{AllowedExtensions: []string{".csv"}, MaxFileSizeBytes: 4},
			filename: "data.csv",
			data:     "a,b\n1,2\n",
			code:     apperrors.CodeFileTooLarge,
		},
		{
			name:     "too many rows",
			config:   ReaderConfig{AllowedExtensions: []string{".csv"}, MaxRowsPerSheet: 2},
			filename: "data.csv",
			data:     "a,b\n1,2\n3,4\n5,6\n",
			code:     apperrors.CodeInvalidInput,
			contains: "3 data rows",
		},
		{
			name:     "no data",
			config:   DefaultReaderConfig(),
			filename: "empty.csv",
			data:     "a,b\n",
			code:     apperrors.CodeInvalidInput,
			contains: "no sheet with data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataReader(tt.config).ReadTables(context.Background(), tt.filename, []byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestReadTables_TooManySheets(t *testing.T) {
	sheets := map[string][][]interface{}{}
	var order []string
	for _, name := range []string{"A", "B", "C"} {
		sheets[name] = [][]interface{}{{"x", "y"}, {1, 2}}
		order = append(order, name)
	}
	data := workbook(t, sheets, order...)

	cfg := DefaultReaderConfig()
	cfg.MaxSheets = 2
	_, err := NewDataReader(cfg).ReadTables(context.Background(), "many.xlsx", data)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
	assert.True(t, strings.Contains(err.Error(), "3 sheets"))
}

func TestReadTables_CorruptWorkbook(t *testing.T) {
	_, err := NewDataReader(DefaultReaderConfig()).ReadTables(context.Background(), "bad.xlsx", bytes.Repeat([]byte("x"), 64))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidFileFormat, apperrors.GetCode(err))
}

func TestReadTables_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDataReader(DefaultReaderConfig()).ReadTables(ctx, "a.csv", []byte("a\n1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want dataset.Cell
	}{
		{"1.5", dataset.NumberCell(1.5)},
		{" -2e3 ", dataset.NumberCell(-2000)},
		{"", dataset.MissingCell()},
		{"   ", dataset.MissingCell()},
		{"NaN", dataset.TextCell("NaN")},
		{"1,5", dataset.TextCell("1,5")},
		{"abc", dataset.TextCell("abc")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCell(tt.raw))
		})
	}
}
