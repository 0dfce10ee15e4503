package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/domain/core"
	"labreport/domain/dataset"
	domainstats "labreport/domain/stats"
)

func f64(v float64) *float64 { return &v }

func TestRegress_TwoPointsExact(t *testing.T) {
	engine := NewRegressionEngine()

	got, err := engine.Regress(dataset.Series{X: []float64{0, 1}, Y: []float64{0, 10}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 10.0, got.Slope)
	assert.Equal(t, 0.0, got.Intercept)
	assert.Equal(t, 1.0, got.RSquared)
	assert.Equal(t, 0.0, got.StdError)
	assert.Equal(t, 2, got.DataPoints)
	assert.Equal(t, domainstats.Range{Min: 0, Max: 1}, got.XRange)
	assert.Equal(t, domainstats.Range{Min: 0, Max: 10}, got.YRange)
	assert.False(t, got.HasErrorRate())
}

func TestRegress_KnownDataset(t *testing.T) {
	engine := NewRegressionEngine()

	got, err := engine.Regress(dataset.Series{
		X: []float64{1, 2, 3, 4, 5},
		Y: []float64{2, 4, 5, 4, 5},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.6, got.Slope)
	assert.Equal(t, 2.2, got.Intercept)
	assert.Equal(t, 0.6, got.RSquared)
	assert.Equal(t, 0.282843, got.StdError)
	assert.Equal(t, domainstats.Range{Min: 2, Max: 5}, got.YRange)
}

func TestFit_ConstantY(t *testing.T) {
	fit, err := NewRegressionEngine().Fit([]float64{1, 2, 3}, []float64{5, 5, 5})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, fit.Slope, 1e-12)
	assert.InDelta(t, 5.0, fit.Intercept, 1e-12)
	assert.Equal(t, 0.0, fit.R)
	assert.Equal(t, 0.0, fit.RSquared)
	assert.Equal(t, 0.0, fit.StdError)
}

func TestFit_RSquaredWithinUnitInterval(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3*v + 0.7
	}

	fit, err := NewRegressionEngine().Fit(x, y)
	require.NoError(t, err)

	if fit.RSquared < 0 || fit.RSquared > 1 {
		t.Errorf("r_squared out of range: %v", fit.RSquared)
	}
	assert.GreaterOrEqual(t, fit.StdError, 0.0)
	assert.InDelta(t, 3.0, fit.Slope, 1e-9)
}

func TestFit_DegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"zero variance x", []float64{2, 2, 2, 2}, []float64{1, 2, 3, 4}},
		{"single point", []float64{1}, []float64{1}},
		{"empty", nil, nil},
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}},
		{"non-finite value", []float64{1, 2, math.Inf(1)}, []float64{1, 2, 3}},
		{"nan value", []float64{1, 2, 3}, []float64{1, math.NaN(), 3}},
	}

	engine := NewRegressionEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Fit(tt.x, tt.y)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrRegressionFailed), "expected RegressionFailed, got %v", err)
			assert.Equal(t, core.KindRegressionFailed, core.KindOf(err))
		})
	}
}

func TestErrorRate(t *testing.T) {
	tests := []struct {
		name        string
		slope       float64
		theoretical *float64
		want        float64
		present     bool
	}{
		{"absent theoretical", 9.7, nil, 0, false},
		{"zero theoretical counts as absent", 9.7, f64(0), 0, false},
		{"exact match is reported as zero", 9.8, f64(9.8), 0, true},
		{"relative to magnitude", 10, f64(9.8), 2.04, true},
		{"negative theoretical", -4, f64(-5), 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ErrorRate(tt.slope, tt.theoretical)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorRate_RoundingIsIdempotent(t *testing.T) {
	slopes := []float64{9.81234, 10.004999, 7.777777, 12.3456789, 9.8}
	for _, s := range slopes {
		once, ok := ErrorRate(s, f64(9.8))
		require.True(t, ok)
		twice := domainstats.RoundPercent(once)
		if once != twice {
			t.Errorf("rounding twice changed %v to %v", once, twice)
		}
	}
}

func TestRegress_ErrorRatePointerSet(t *testing.T) {
	got, err := NewRegressionEngine().Regress(dataset.Series{
		X: []float64{0, 1, 2, 3, 4},
		Y: []float64{0, 10, 20, 30, 40},
	}, f64(10))
	require.NoError(t, err)

	require.NotNil(t, got.ErrorRatePercent)
	assert.Equal(t, 0.0, *got.ErrorRatePercent)
}
