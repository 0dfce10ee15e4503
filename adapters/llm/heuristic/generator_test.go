package heuristic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/domain/experiment"
	"labreport/domain/stats"
	"labreport/ports"
)

func result(name string, slope, r2, stderr float64, n int, rate *float64) experiment.Result {
	return experiment.Result{
		Name: name,
		Statistics: stats.RegressionStatistics{
			Slope: slope, Intercept: -0.5, RSquared: r2, StdError: stderr,
			ErrorRatePercent: rate, DataPoints: n,
			XRange: stats.Range{Min: 0, Max: 10}, YRange: stats.Range{Min: 0, Max: 100},
		},
	}
}

func TestGenerateNarrative_AllSectionsPresent(t *testing.T) {
	rate := 7.5
	gen, err := NewGenerator().GenerateNarrative(context.Background(), ports.NarrativeRequest{
		Title: "Springs",
		Batch: &experiment.BatchResult{Experiments: []experiment.Result{
			result("Spring A", 10, 0.995, 0.1, 10, nil),
			result("Spring B", 9.25, 0.9, 0.4, 6, &rate),
		}},
	})
	require.NoError(t, err)
	require.NoError(t, gen.Sections.Validate())
	assert.Equal(t, "heuristic", gen.Audit.GeneratorType)

	assert.Contains(t, gen.Sections.ExperimentInterpretation, "an excellent linear trend")
	assert.Contains(t, gen.Sections.ExperimentInterpretation, "a moderate linear trend")
	assert.Contains(t, gen.Sections.ResultAnalysis, "y = 10.000000·x - 0.500000")
	assert.Contains(t, gen.Sections.ResultAnalysis, "95% confidence interval")
	assert.Contains(t, gen.Sections.ResultAnalysis, "relative error is 7.50%")
	assert.Contains(t, gen.Sections.ResultAnalysis, "Across 2 experiments")
	assert.Contains(t, gen.Sections.Discussion, "Spring B (R² = 0.900000)")
	assert.Contains(t, gen.Sections.Discussion, "Spring B (7.50%)")
}

func TestGenerateNarrative_UsesManualErrorGuides(t *testing.T) {
	gen, err := NewGenerator().GenerateNarrative(context.Background(), ports.NarrativeRequest{
		Title: "Pendulum",
		Batch: &experiment.BatchResult{Experiments: []experiment.Result{result("Swing", 2, 0.999, 0.01, 12, nil)}},
		Manual: &experiment.ManualInfo{
			ErrorGuides: []experiment.ErrorGuide{{Cause: "Air drag", Description: "Damps the swing", Mitigation: "Use a heavier bob"}},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, gen.Sections.Discussion, "- **Air drag**: Damps the swing Mitigation: Use a heavier bob")
	assert.True(t, strings.HasPrefix(gen.Sections.Discussion, "All experiments are well described"))
}

func TestGenerateNarrative_IsDeterministic(t *testing.T) {
	req := ports.NarrativeRequest{
		Title: "Ohm",
		Batch: &experiment.BatchResult{Experiments: []experiment.Result{result("R1", 100, 0.97, 2, 8, nil)}},
	}
	a, err := NewGenerator().GenerateNarrative(context.Background(), req)
	require.NoError(t, err)
	b, err := NewGenerator().GenerateNarrative(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Sections, b.Sections)
}

func TestSlopeInterval(t *testing.T) {
	lo, hi, ok := slopeInterval(stats.RegressionStatistics{Slope: 10, StdError: 1, DataPoints: 12})
	require.True(t, ok)
	// t(0.975, 10) = 2.228139
	assert.InDelta(t, 10-2.228139, lo, 1e-5)
	assert.InDelta(t, 10+2.228139, hi, 1e-5)

	_, _, ok = slopeInterval(stats.RegressionStatistics{Slope: 10, StdError: 0, DataPoints: 12})
	assert.False(t, ok)
	_, _, ok = slopeInterval(stats.RegressionStatistics{Slope: 10, StdError: 1, DataPoints: 2})
	assert.False(t, ok)
}

func TestGenerateNarrative_RequiresExperiments(t *testing.T) {
	_, err := NewGenerator().GenerateNarrative(context.Background(), ports.NarrativeRequest{})
	assert.Error(t, err)
}
