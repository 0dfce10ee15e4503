package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies analysis failures
type ErrorKind string

const (
	KindColumnNotFound   ErrorKind = "COLUMN_NOT_FOUND"
	KindInsufficientData ErrorKind = "INSUFFICIENT_DATA"
	KindRegressionFailed ErrorKind = "REGRESSION_FAILED"
	KindTableNotFound    ErrorKind = "TABLE_NOT_FOUND"
	KindInvalidInput     ErrorKind = "INVALID_INPUT"
)

// Domain errors - one sentinel per kind so callers can use errors.Is
var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrRegressionFailed = errors.New("regression failed")
	ErrTableNotFound    = errors.New("table not found")
	ErrInvalidInput     = errors.New("invalid input")
)

var sentinels = map[ErrorKind]error{
	KindColumnNotFound:   ErrColumnNotFound,
	KindInsufficientData: ErrInsufficientData,
	KindRegressionFailed: ErrRegressionFailed,
	KindTableNotFound:    ErrTableNotFound,
	KindInvalidInput:     ErrInvalidInput,
}

// AnalysisError is the structured failure returned by the analysis pipeline
type AnalysisError struct {
	Kind      ErrorKind `json:"code"`
	Message   string    `json:"message"`
	Subject   string    `json:"subject,omitempty"`   // offending column/table/field name
	Available []string  `json:"available,omitempty"` // valid alternatives, when known
	Required  int       `json:"required,omitempty"`
	Actual    int       `json:"actual,omitempty"`

	// Experiment identifies the batch entry that failed (1-based, 0 when unset)
	ExperimentIndex int    `json:"experiment_index,omitempty"`
	ExperimentName  string `json:"experiment_name,omitempty"`

	Cause error `json:"-"`
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.ExperimentIndex > 0 {
		msg = fmt.Sprintf("experiment %d (%s): %s", e.ExperimentIndex, e.ExperimentName, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *AnalysisError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WithExperiment returns a copy tagged with the batch position that produced it.
// Kind, message and alternatives are left untouched.
func (e *AnalysisError) WithExperiment(index int, name string) *AnalysisError {
	cp := *e
	cp.ExperimentIndex = index
	cp.ExperimentName = name
	return &cp
}

// Error constructors with context

func NewColumnNotFoundError(column string, available []string) *AnalysisError {
	return &AnalysisError{
		Kind:      KindColumnNotFound,
		Message:   fmt.Sprintf("column '%s' not found; available columns: %s", column, formatNames(available)),
		Subject:   column,
		Available: append([]string(nil), available...),
	}
}

func NewTableNotFoundError(table string, available []string) *AnalysisError {
	return &AnalysisError{
		Kind:      KindTableNotFound,
		Message:   fmt.Sprintf("table '%s' not found; available tables: %s", table, formatNames(available)),
		Subject:   table,
		Available: append([]string(nil), available...),
	}
}

func NewInsufficientDataError(required, actual int) *AnalysisError {
	return &AnalysisError{
		Kind:     KindInsufficientData,
		Message:  fmt.Sprintf("at least %d data points are required, got %d", required, actual),
		Required: required,
		Actual:   actual,
	}
}

func NewRegressionError(reason string, cause error) *AnalysisError {
	return &AnalysisError{
		Kind:    KindRegressionFailed,
		Message: "regression failed: " + reason,
		Cause:   cause,
	}
}

func NewInvalidInputError(field, reason string) *AnalysisError {
	return &AnalysisError{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Subject: field,
	}
}

// Error checking helpers

// KindOf returns the analysis kind of err, or "" when err is not an AnalysisError
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrColumnNotFound) || errors.Is(err, ErrTableNotFound)
}

func formatNames(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}
