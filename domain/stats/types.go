package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Output precision contract for every surfaced number
const (
	StatPrecision    = 6 // slope, intercept, r_squared, std_error, display values
	RangePrecision   = 4 // x_range, y_range
	PercentPrecision = 2 // error_rate_percent
)

// Range is an inclusive (min, max) pair, encoded as a two-element JSON array
type Range struct {
	Min float64
	Max float64
}

// MarshalJSON encodes the range as [min, max]
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON decodes a [min, max] array
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range must be a [min, max] array: %w", err)
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// RegressionStatistics is the rounded result of an OLS fit
type RegressionStatistics struct {
	Slope            float64  `json:"slope"`
	Intercept        float64  `json:"intercept"`
	RSquared         float64  `json:"r_squared"`
	StdError         float64  `json:"std_error"`
	ErrorRatePercent *float64 `json:"error_rate_percent,omitempty"` // nil when no theoretical slope was supplied
	DataPoints       int      `json:"data_points"`
	XRange           Range    `json:"x_range"`
	YRange           Range    `json:"y_range"`
}

// HasErrorRate reports whether an error rate was computed
func (s RegressionStatistics) HasErrorRate() bool {
	return s.ErrorRatePercent != nil
}

// DataSummary describes the cleaning step for one experiment
type DataSummary struct {
	Columns           []string `json:"columns"`
	RowCount          int      `json:"row_count"`
	NullValuesRemoved int      `json:"null_values_removed"`
}

// Round rounds v to the given number of decimal places using decimal
// (not binary) semantics. Rounding an already rounded value is a no-op.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// RoundStat rounds to statistics precision
func RoundStat(v float64) float64 { return Round(v, StatPrecision) }

// RoundRange rounds both ends to range precision
func RoundRange(min, max float64) Range {
	return Range{Min: Round(min, RangePrecision), Max: Round(max, RangePrecision)}
}

// RoundPercent rounds to percentage precision
func RoundPercent(v float64) float64 { return Round(v, PercentPrecision) }

// Textual formatting contract

// FormatStat renders a statistics value with 6 decimals
func FormatStat(v float64) string { return strconv.FormatFloat(v, 'f', StatPrecision, 64) }

// FormatRange renders a range as "min ~ max" with 4 decimals
func FormatRange(r Range) string {
	return strconv.FormatFloat(r.Min, 'f', RangePrecision, 64) + " ~ " + strconv.FormatFloat(r.Max, 'f', RangePrecision, 64)
}

// FormatPercent renders a percentage with 2 decimals and a trailing %
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', PercentPrecision, 64) + "%"
}
