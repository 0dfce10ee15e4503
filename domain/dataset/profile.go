package dataset

// ColumnProfile summarises one column for column detection
type ColumnProfile struct {
	Name         string    `json:"name"`
	Kind         string    `json:"type"` // numeric, text or empty
	SampleValues []string  `json:"sample_values"`
	NonMissing   int       `json:"non_missing"`
	NumericRatio float64   `json:"numeric_ratio"`
	Numeric      *NumStats `json:"numeric_stats,omitempty"`
}

// NumStats holds descriptive statistics of the numeric cells in a column
type NumStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// TableProfile is the column detection output for one table
type TableProfile struct {
	TableName      string          `json:"sheet_name"`
	RowCount       int             `json:"row_count"`
	Columns        []ColumnProfile `json:"columns"`
	NumericColumns []string        `json:"numeric_columns"`
}

// TableInfo is the sheet detection output for one table
type TableInfo struct {
	Name       string     `json:"name"`
	Columns    []string   `json:"columns"`
	RowCount   int        `json:"row_count"`
	SampleRows [][]string `json:"sample_data"`
}
