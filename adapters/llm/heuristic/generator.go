package heuristic

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"labreport/domain/experiment"
	"labreport/domain/report"
	domainstats "labreport/domain/stats"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// R² bands used to describe fit quality
const (
	excellentFit = 0.99
	goodFit      = 0.95
	moderateFit  = 0.80
)

// Generator writes report narrative using deterministic rules over the statistics
type Generator struct{}

var _ ports.NarrativePort = (*Generator)(nil)

// NewGenerator creates a new heuristic narrative generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateNarrative builds the three narrative sections from batch statistics
func (g *Generator) GenerateNarrative(ctx context.Context, req ports.NarrativeRequest) (*ports.NarrativeGeneration, error) {
	if req.Batch == nil || len(req.Batch.Experiments) == 0 {
		return nil, apperrors.InvalidInput("narrative generation requires at least one analysed experiment")
	}

	return &ports.NarrativeGeneration{
		Sections: report.NarrativeSections{
			ExperimentInterpretation: g.interpretResults(req.Batch.Experiments),
			ResultAnalysis:           g.analyzeResults(req.Batch.Experiments, req.Manual),
			Discussion:               g.discuss(req.Batch.Experiments, req.Manual),
		},
		Audit: ports.GenerationAudit{GeneratorType: "heuristic"},
	}, nil
}

func (g *Generator) interpretResults(results []experiment.Result) string {
	var b strings.Builder
	for i, r := range results {
		s := r.Statistics
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "In experiment %d (%s), %d data points were analysed over x in [%s]. ",
			i+1, r.Name, s.DataPoints, domainstats.FormatRange(s.XRange))
		if r.Summary.NullValuesRemoved > 0 {
			fmt.Fprintf(&b, "%d rows with missing or non-numeric values were excluded. ", r.Summary.NullValuesRemoved)
		}
		fmt.Fprintf(&b, "The measurements show %s %s trend, with y %s as x increases.",
			article(describeFit(s.RSquared)), describeFit(s.RSquared), direction(s.Slope))
	}
	return b.String()
}

func (g *Generator) analyzeResults(results []experiment.Result, manual *experiment.ManualInfo) string {
	var b strings.Builder
	for i, r := range results {
		s := r.Statistics
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**Experiment %d (%s).** The fitted line is y = %s·x %s %s with R² = %s, "+
			"meaning %.1f%% of the variance in y is explained by x. ",
			i+1, r.Name,
			domainstats.FormatStat(s.Slope), sign(s.Intercept), domainstats.FormatStat(math.Abs(s.Intercept)),
			domainstats.FormatStat(s.RSquared), s.RSquared*100)

		if lo, hi, ok := slopeInterval(s); ok {
			fmt.Fprintf(&b, "The 95%% confidence interval for the slope is [%s, %s]. ",
				domainstats.FormatStat(lo), domainstats.FormatStat(hi))
		}
		if s.HasErrorRate() {
			fmt.Fprintf(&b, "Compared with the theoretical slope, the relative error is %s.",
				domainstats.FormatPercent(*s.ErrorRatePercent))
		}
	}

	if len(results) > 1 {
		r2 := make([]float64, len(results))
		for i, r := range results {
			r2[i] = r.Statistics.RSquared
		}
		mean, _ := stats.Mean(r2)
		lowest, _ := stats.Min(r2)
		fmt.Fprintf(&b, "\n\nAcross %d experiments the mean R² is %s and the lowest is %s.",
			len(results), domainstats.FormatStat(domainstats.RoundStat(mean)), domainstats.FormatStat(lowest))
	}

	if manual != nil && strings.TrimSpace(manual.ExpectedResults) != "" {
		fmt.Fprintf(&b, "\n\nExpected behaviour from the manual: %s", strings.TrimSpace(manual.ExpectedResults))
	}
	return b.String()
}

func (g *Generator) discuss(results []experiment.Result, manual *experiment.ManualInfo) string {
	var b strings.Builder

	weakest := results[0]
	for _, r := range results[1:] {
		if r.Statistics.RSquared < weakest.Statistics.RSquared {
			weakest = r
		}
	}
	if weakest.Statistics.RSquared >= goodFit {
		b.WriteString("All experiments are well described by a linear model, supporting the assumed linear relationship. ")
	} else {
		fmt.Fprintf(&b, "The weakest fit is %s (R² = %s), which suggests scatter beyond what a linear model explains. ",
			weakest.Name, domainstats.FormatStat(weakest.Statistics.RSquared))
	}

	var highError []string
	for _, r := range results {
		if r.Statistics.HasErrorRate() && *r.Statistics.ErrorRatePercent > 5 {
			highError = append(highError, fmt.Sprintf("%s (%s)", r.Name, domainstats.FormatPercent(*r.Statistics.ErrorRatePercent)))
		}
	}
	if len(highError) > 0 {
		fmt.Fprintf(&b, "Relative errors above 5%% were observed for %s. ", strings.Join(highError, ", "))
	}

	if manual != nil && len(manual.ErrorGuides) > 0 {
		b.WriteString("\n\nLikely sources of error:\n")
		for _, eg := range manual.ErrorGuides {
			fmt.Fprintf(&b, "\n- **%s**: %s", eg.Cause, eg.Description)
			if eg.Mitigation != "" {
				fmt.Fprintf(&b, " Mitigation: %s", eg.Mitigation)
			}
		}
	} else {
		b.WriteString("\n\nLikely sources of error include instrument resolution, reaction time in manual readings and uncontrolled environmental conditions. " +
			"Repeating each measurement and averaging would reduce random error.")
	}
	return b.String()
}

// slopeInterval is the two-sided 95% Student-t interval for the slope
func slopeInterval(s domainstats.RegressionStatistics) (float64, float64, bool) {
	df := float64(s.DataPoints - 2)
	if df < 1 || s.StdError <= 0 {
		return 0, 0, false
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(0.975)
	half := t * s.StdError
	return domainstats.RoundStat(s.Slope - half), domainstats.RoundStat(s.Slope + half), true
}

func describeFit(r2 float64) string {
	switch {
	case r2 >= excellentFit:
		return "excellent linear"
	case r2 >= goodFit:
		return "strong linear"
	case r2 >= moderateFit:
		return "moderate linear"
	default:
		return "weak linear"
	}
}

func article(phrase string) string {
	if strings.HasPrefix(phrase, "excellent") {
		return "an"
	}
	return "a"
}

func direction(slope float64) string {
	switch {
	case slope > 0:
		return "increasing"
	case slope < 0:
		return "decreasing"
	default:
		return "unchanged"
	}
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}
	return "+"
}
