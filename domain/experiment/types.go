package experiment

import (
	"errors"
	"fmt"
	"strings"

	"labreport/domain/core"
	"labreport/domain/dataset"
	"labreport/domain/stats"
)

// Config describes one experiment of a batch: which table and which columns to fit
type Config struct {
	TableName        string   `json:"sheet_name" yaml:"sheet_name"`
	Name             string   `json:"experiment_name" yaml:"experiment_name"`
	XColumn          string   `json:"x_column" yaml:"x_column"`
	YColumn          string   `json:"y_column" yaml:"y_column"`
	TheoreticalSlope *float64 `json:"theoretical_slope,omitempty" yaml:"theoretical_slope,omitempty"`
}

// Validate checks that every required field is present
func (c Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"sheet_name", c.TableName},
		{"experiment_name", c.Name},
		{"x_column", c.XColumn},
		{"y_column", c.YColumn},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return core.NewInvalidInputError(r.field, "must not be empty")
		}
	}
	return nil
}

// ValidateConfigs validates a whole batch, naming the offending position
func ValidateConfigs(configs []Config) error {
	if len(configs) == 0 {
		return core.NewInvalidInputError("experiments", "at least one experiment is required")
	}
	for i, c := range configs {
		var ae *core.AnalysisError
		if err := c.Validate(); errors.As(err, &ae) {
			return core.NewInvalidInputError(fmt.Sprintf("experiments[%d].%s", i, ae.Subject), "must not be empty")
		}
	}
	return nil
}

// DisplayRow is one rounded (x, y) pair; nil marks a missing value
type DisplayRow struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// DisplayTable is the row-capped rendering of a cleaned series
type DisplayTable struct {
	XColumn string       `json:"x_column"`
	YColumn string       `json:"y_column"`
	Rows    []DisplayRow `json:"rows"`
}

// Len returns the number of rows
func (t DisplayTable) Len() int {
	return len(t.Rows)
}

// ChartRef is an opaque handle to a rendered chart
type ChartRef struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url,omitempty"`
}

const pngDataPrefix = "data:image/png;base64,"

// Source returns a value usable as an image link target
func (c ChartRef) Source() string {
	if c.ImageBase64 == "" {
		return c.ImageURL
	}
	if strings.HasPrefix(c.ImageBase64, "data:") {
		return c.ImageBase64
	}
	return pngDataPrefix + c.ImageBase64
}

// RawBase64 strips the data URI prefix if present
func (c ChartRef) RawBase64() string {
	return strings.TrimPrefix(c.ImageBase64, pngDataPrefix)
}

// IsZero reports whether no chart was attached
func (c ChartRef) IsZero() bool {
	return c.ImageBase64 == "" && c.ImageURL == ""
}

// Analysis is the output of analysing a single (table, x, y) triple
type Analysis struct {
	Statistics stats.RegressionStatistics
	Summary    stats.DataSummary
	Display    DisplayTable
	Series     dataset.Series
}

// Result is the analysed outcome of one experiment config
type Result struct {
	Name       string                     `json:"experiment_name"`
	TableName  string                     `json:"sheet_name"`
	Statistics stats.RegressionStatistics `json:"statistics"`
	Chart      ChartRef                   `json:"graph"`
	Summary    stats.DataSummary          `json:"data_summary"`
	Display    DisplayTable               `json:"data_table"`

	// Series is kept for chart rendering at the boundary and never serialised
	Series dataset.Series `json:"-"`
}

// BatchResult is the ordered outcome of a batch, one Result per input config
type BatchResult struct {
	BatchID          string      `json:"batch_id"`
	ReportTitle      string      `json:"report_title"`
	Experiments      []Result    `json:"experiments"`
	TotalExperiments int         `json:"total_experiments"`
	Manual           *ManualInfo `json:"manual_info,omitempty"`

	AnalyzedAt core.Timestamp `json:"analyzed_at"`
}

// ErrorGuide is one known source of experimental error
type ErrorGuide struct {
	Cause       string `json:"cause" yaml:"cause"`
	Description string `json:"description" yaml:"description"`
	Mitigation  string `json:"mitigation,omitempty" yaml:"mitigation,omitempty"`
}

// ManualInfo is background information extracted from an experiment manual
type ManualInfo struct {
	Purpose         string       `json:"experiment_purpose" yaml:"experiment_purpose"`
	Theory          string       `json:"theory" yaml:"theory"`
	ErrorGuides     []ErrorGuide `json:"error_guides" yaml:"error_guides"`
	ExpectedResults string       `json:"expected_results,omitempty" yaml:"expected_results,omitempty"`
	Equipment       []string     `json:"equipment_list,omitempty" yaml:"equipment_list,omitempty"`
}
