package dataset

import (
	"strconv"
)

// CellKind defines the storage type of a table cell
type CellKind string

const (
	CellNumeric CellKind = "numeric"
	CellText    CellKind = "text"
	CellMissing CellKind = "missing"
)

// Cell is a single scalar value as produced by ingestion
type Cell struct {
	Kind CellKind `json:"kind"`
	Num  float64  `json:"num,omitempty"`
	Text string   `json:"text,omitempty"`
}

// NumberCell creates a numeric cell
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumeric, Num: v}
}

// TextCell creates a text cell; empty text is treated as missing
func TextCell(s string) Cell {
	if s == "" {
		return MissingCell()
	}
	return Cell{Kind: CellText, Text: s}
}

// MissingCell creates a missing cell
func MissingCell() Cell {
	return Cell{Kind: CellMissing}
}

// IsMissing reports whether the cell holds no value
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing || c.Kind == ""
}

// String returns the display form of the cell
func (c Cell) String() string {
	switch c.Kind {
	case CellNumeric:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	}
	return ""
}

// Column is a named, ordered sequence of cells
type Column struct {
	Name  string `json:"name"`
	Cells []Cell `json:"cells"`
}

// Table is an immutable named-column dataset
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// NewTable builds a table from a header row and row-major cells.
// Short rows are padded with missing cells.
func NewTable(name string, headers []string, rows [][]Cell) *Table {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Name: h, Cells: make([]Cell, len(rows))}
	}
	for r, row := range rows {
		for c := range cols {
			if c < len(row) {
				cols[c].Cells[r] = row[c]
			} else {
				cols[c].Cells[r] = MissingCell()
			}
		}
	}
	return &Table{Name: name, Columns: cols}
}

// ColumnNames returns the column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// RowCount is the length of the longest column
func (t *Table) RowCount() int {
	n := 0
	for _, c := range t.Columns {
		if len(c.Cells) > n {
			n = len(c.Cells)
		}
	}
	return n
}

// CellAt returns the cell at row r, or a missing cell past the column end
func (c *Column) CellAt(r int) Cell {
	if r < 0 || r >= len(c.Cells) {
		return MissingCell()
	}
	return c.Cells[r]
}

// TableSet is a named collection of tables that remembers insertion order
type TableSet struct {
	order  []string
	tables map[string]*Table
}

// NewTableSet creates a set from the given tables; later duplicates replace earlier ones
func NewTableSet(tables ...*Table) *TableSet {
	s := &TableSet{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add inserts or replaces a table
func (s *TableSet) Add(t *Table) {
	if s.tables == nil {
		s.tables = make(map[string]*Table)
	}
	if _, exists := s.tables[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.tables[t.Name] = t
}

// Get looks up a table by name
func (s *TableSet) Get(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tables[name]
	return t, ok
}

// Names returns table names in insertion order
func (s *TableSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Tables returns the tables in insertion order
func (s *TableSet) Tables() []*Table {
	if s == nil {
		return nil
	}
	out := make([]*Table, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.tables[n])
	}
	return out
}

// Len is the number of tables
func (s *TableSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Series is a pair of equal-length numeric sequences derived from a table
type Series struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of (x, y) points
func (s Series) Len() int {
	return len(s.X)
}
