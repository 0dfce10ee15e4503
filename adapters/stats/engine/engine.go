package engine

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"labreport/domain/core"
	"labreport/domain/dataset"
	domainstats "labreport/domain/stats"
)

// Fit is the full-precision result of an ordinary least-squares fit
type Fit struct {
	Slope     float64
	Intercept float64
	R         float64
	RSquared  float64
	StdError  float64 // standard error of the slope estimate
	N         int
	XMin      float64
	XMax      float64
	YMin      float64
	YMax      float64
}

// RegressionEngine fits y = slope*x + intercept.
// It holds no state and is safe for concurrent use.
type RegressionEngine struct{}

// NewRegressionEngine creates a new regression engine
func NewRegressionEngine() *RegressionEngine {
	return &RegressionEngine{}
}

// Fit runs ordinary least squares on x and y without rounding
func (e *RegressionEngine) Fit(x, y []float64) (*Fit, error) {
	if len(x) != len(y) {
		return nil, core.NewRegressionError("x and y must have the same length", nil)
	}
	n := len(x)
	if n < 2 {
		return nil, core.NewRegressionError("at least two points are required", nil)
	}
	for i := 0; i < n; i++ {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return nil, core.NewRegressionError("input contains non-finite values", nil)
		}
	}

	xMin, err := stats.Min(x)
	if err != nil {
		return nil, core.NewRegressionError("cannot compute x range", err)
	}
	xMax, _ := stats.Max(x)
	yMin, err := stats.Min(y)
	if err != nil {
		return nil, core.NewRegressionError("cannot compute y range", err)
	}
	yMax, _ := stats.Max(y)

	if xMin == xMax {
		return nil, core.NewRegressionError("x values have zero variance", nil)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if !isFinite(slope) || !isFinite(intercept) {
		return nil, core.NewRegressionError("fit produced non-finite coefficients", nil)
	}

	// Constant y: the line is exact and the correlation is defined as 0
	r := 0.0
	if yMin != yMax {
		r = stat.Correlation(x, y, nil)
		if math.IsNaN(r) {
			return nil, core.NewRegressionError("correlation is undefined", nil)
		}
		r = math.Max(-1, math.Min(1, r))
	}
	r2 := math.Max(0, math.Min(1, r*r))

	return &Fit{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		RSquared:  r2,
		StdError:  slopeStdError(x, y, r2),
		N:         n,
		XMin:      xMin,
		XMax:      xMax,
		YMin:      yMin,
		YMax:      yMax,
	}, nil
}

// Regress fits the series and returns the rounded statistics record.
// theoreticalSlope may be nil; a zero theoretical slope counts as absent.
func (e *RegressionEngine) Regress(series dataset.Series, theoreticalSlope *float64) (domainstats.RegressionStatistics, error) {
	fit, err := e.Fit(series.X, series.Y)
	if err != nil {
		return domainstats.RegressionStatistics{}, err
	}
	return fit.Statistics(theoreticalSlope), nil
}

// Statistics rounds the fit according to the output precision contract
func (f *Fit) Statistics(theoreticalSlope *float64) domainstats.RegressionStatistics {
	out := domainstats.RegressionStatistics{
		Slope:      domainstats.RoundStat(f.Slope),
		Intercept:  domainstats.RoundStat(f.Intercept),
		RSquared:   domainstats.RoundStat(f.RSquared),
		StdError:   domainstats.RoundStat(f.StdError),
		DataPoints: f.N,
		XRange:     domainstats.RoundRange(f.XMin, f.XMax),
		YRange:     domainstats.RoundRange(f.YMin, f.YMax),
	}
	if rate, ok := ErrorRate(f.Slope, theoreticalSlope); ok {
		out.ErrorRatePercent = &rate
	}
	return out
}

// ErrorRate returns |slope - theoretical| / |theoretical| * 100 rounded to
// percentage precision. ok is false when theoretical is nil or zero.
func ErrorRate(slope float64, theoretical *float64) (float64, bool) {
	if theoretical == nil || *theoretical == 0 || !isFinite(*theoretical) {
		return 0, false
	}
	rate := math.Abs(slope-*theoretical) / math.Abs(*theoretical) * 100
	return domainstats.RoundPercent(rate), true
}

// slopeStdError is sqrt((1 - r^2) * ssy / ssx / (n - 2)); zero for two points
func slopeStdError(x, y []float64, r2 float64) float64 {
	n := len(x)
	if n <= 2 {
		return 0
	}
	ssx := sumSquaredDeviations(x)
	ssy := sumSquaredDeviations(y)
	if ssx == 0 {
		return 0
	}
	v := (1 - r2) * ssy / ssx / float64(n-2)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

func sumSquaredDeviations(values []float64) float64 {
	mean := stat.Mean(values, nil)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
