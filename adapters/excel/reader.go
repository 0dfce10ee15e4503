package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"labreport/domain/dataset"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// DataReader turns uploaded Excel and CSV files into named tables
type DataReader struct {
	config ReaderConfig
}

var _ ports.TableReaderPort = (*DataReader)(nil)

// NewDataReader creates a reader enforcing the given limits
func NewDataReader(config ReaderConfig) *DataReader {
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = DefaultReaderConfig().AllowedExtensions
	}
	return &DataReader{config: config}
}

// ReadFile reads a file from disk; used by the CLI
func (r *DataReader) ReadFile(ctx context.Context, path string) (*dataset.TableSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read %s", path)
	}
	return r.ReadTables(ctx, filepath.Base(path), data)
}

// ReadTables implements TableReaderPort
func (r *DataReader) ReadTables(ctx context.Context, filename string, data []byte) (*dataset.TableSet, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !r.config.allows(ext) {
		return nil, apperrors.InvalidFileFormat(fmt.Sprintf("unsupported file type %q (allowed: %s)",
			ext, strings.Join(r.config.AllowedExtensions, ", ")))
	}
	if r.config.MaxFileSizeBytes > 0 && int64(len(data)) > r.config.MaxFileSizeBytes {
		return nil, apperrors.FileTooLarge(int64(len(data)), r.config.MaxFileSizeBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("[DataReader] Starting to read %s (%d bytes)", filename, len(data))

	var (
		set *dataset.TableSet
		err error
	)
	switch ext {
	case ".csv":
		set, err = r.readCSV(strings.TrimSuffix(filename, filepath.Ext(filename)), data)
	default:
		set, err = r.readWorkbook(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	if set.Len() == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s contains no sheet with data", filename))
	}
	if r.config.MaxSheets > 0 && set.Len() > r.config.MaxSheets {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s has %d sheets with data; at most %d are allowed",
			filename, set.Len(), r.config.MaxSheets))
	}

	log.Printf("[DataReader] %s loaded: %d table(s) %v", filename, set.Len(), set.Names())
	return set, nil
}

// readWorkbook loads every non-empty sheet, in workbook order
func (r *DataReader) readWorkbook(ctx context.Context, data []byte) (*dataset.TableSet, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.InvalidFileFormat(fmt.Sprintf("failed to open workbook: %v", err))
	}
	defer f.Close()
	log.Printf("[DataReader] Workbook opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	set := dataset.NewTableSet()
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		readStart := time.Now()
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to read sheet %s", sheet)
		}
		log.Printf("[DataReader] Sheet %s read in %.2fms (%d rows)",
			sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

		table, err := r.processRows(sheet, rows)
		if err != nil {
			return nil, err
		}
		if table == nil {
			log.Printf("[DataReader] Skipping empty sheet %s", sheet)
			continue
		}
		set.Add(table)
	}
	return set, nil
}

// readCSV loads a CSV file as a single table. UTF-8 and UTF-16 byte order
// marks are honoured so spreadsheet exports read cleanly.
func (r *DataReader) readCSV(name string, data []byte) (*dataset.TableSet, error) {
	decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.InvalidFileFormat(fmt.Sprintf("failed to parse CSV: %v", err))
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	table, err := r.processRows(name, rows)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return dataset.NewTableSet(), nil
	}
	return dataset.NewTableSet(table), nil
}

// processRows converts raw string rows into a table. A sheet without a
// header or without any data row yields nil.
func (r *DataReader) processRows(name string, rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	headers := r.headers(rows[0])
	if len(headers) == 0 {
		return nil, nil
	}

	var cells [][]dataset.Cell
	for _, row := range rows[1:] {
		converted, empty := convertRow(row, len(headers))
		if empty {
			continue
		}
		cells = append(cells, converted)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	if r.config.MaxRowsPerSheet > 0 && len(cells) > r.config.MaxRowsPerSheet {
		return nil, apperrors.InvalidInput(fmt.Sprintf("sheet %s has %d data rows; at most %d are allowed",
			name, len(cells), r.config.MaxRowsPerSheet))
	}

	log.Printf("[DataReader] %s processed (%d columns, %d rows)", name, len(headers), len(cells))
	return dataset.NewTable(name, headers, cells), nil
}

// headers cleans the header row: trailing blank headers are dropped, inner
// blanks become "Unnamed: i" and repeated names get ".1", ".2" suffixes.
func (r *DataReader) headers(raw []string) []string {
	last := -1
	for i, h := range raw {
		if strings.TrimSpace(h) != "" {
			last = i
		}
	}
	if last < 0 {
		return nil
	}

	seen := make(map[string]int, last+1)
	headers := make([]string, last+1)
	for i := 0; i <= last; i++ {
		h := strings.TrimSpace(raw[i])
		if r.config.NormalizeHeaders {
			h = norm.NFC.String(h)
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		headers[i] = h
	}
	return headers
}

// convertRow types each cell; the second result reports an all-blank row
func convertRow(row []string, width int) ([]dataset.Cell, bool) {
	cells := make([]dataset.Cell, width)
	empty := true
	for i := range cells {
		if i >= len(row) {
			cells[i] = dataset.MissingCell()
			continue
		}
		cells[i] = parseCell(row[i])
		if !cells[i].IsMissing() {
			empty = false
		}
	}
	return cells, empty
}

// parseCell stores plain decimal numbers as numeric cells and everything
// else as text, leaving interpretation to the coercer
func parseCell(raw string) dataset.Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.MissingCell()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return dataset.NumberCell(v)
	}
	return dataset.TextCell(s)
}
