package coercer

import (
	"math"
	"strconv"
	"strings"

	"labreport/domain/dataset"
)

// TypeCoercer converts table cells to numbers with deterministic rules
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold float64 `json:"numeric_threshold"` // % of non-missing values that must parse as numbers
	// Lenient accepts currency symbols, percent signs, parenthesised negatives
	// and European separators. Strict mode only accepts plain decimal/scientific text.
	Lenient bool `json:"lenient"`
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold: 0.8, // 80% must parse as numbers
		Lenient:          false,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// ToNumber coerces a cell; ok is false for missing or non-numeric cells
func (c *TypeCoercer) ToNumber(cell dataset.Cell) (float64, bool) {
	switch cell.Kind {
	case dataset.CellNumeric:
		if math.IsNaN(cell.Num) || math.IsInf(cell.Num, 0) {
			return 0, false
		}
		return cell.Num, true
	case dataset.CellText:
		if c.config.Lenient {
			return tryParseLenient(cell.Text)
		}
		return tryParseStrict(cell.Text)
	}
	return 0, false
}

// ColumnKind is the inferred kind of a whole column
type ColumnKind string

const (
	ColumnNumeric ColumnKind = "numeric"
	ColumnText    ColumnKind = "text"
	ColumnEmpty   ColumnKind = "empty"
)

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int        `json:"total_count"`
	ValidCount      int        `json:"valid_count"`
	NumericCount    int        `json:"numeric_count"`
	NumericRatio    float64    `json:"numeric_ratio"`
	RecommendedKind ColumnKind `json:"recommended_kind"`
}

// AnalyzeColumn determines whether a column is usable as a numeric axis
func (c *TypeCoercer) AnalyzeColumn(col *dataset.Column) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(col.Cells)}

	for _, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.ToNumber(cell); ok {
			analysis.NumericCount++
		}
	}

	if analysis.ValidCount == 0 {
		analysis.RecommendedKind = ColumnEmpty
		return analysis
	}

	analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
	if analysis.NumericRatio >= c.config.NumericThreshold {
		analysis.RecommendedKind = ColumnNumeric
	} else {
		analysis.RecommendedKind = ColumnText
	}
	return analysis
}

// tryParseStrict accepts what a plain float parser accepts, minus NaN/Inf
func tryParseStrict(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// tryParseLenient handles international formats: parentheses for negatives,
// European decimals, currency symbols and percent signs
func tryParseLenient(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "₩", "USD", "EUR", "GBP", "JPY", "KRW"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(strings.ReplaceAll(cleanVal, "%", ""))

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the tail after the last comma is short
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if len(afterComma) <= 3 && isDigits(afterComma) && commaIdx > strings.LastIndex(cleanVal, ".") {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// Lone comma: decimal separator
		if strings.Count(cleanVal, ",") == 1 {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	return tryParseStrict(cleanVal)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
