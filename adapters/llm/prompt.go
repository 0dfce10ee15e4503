package llm

import (
	"fmt"
	"strings"

	"labreport/domain/report"
	"labreport/domain/stats"
	"labreport/ports"
)

// Section marker names, in the order the model must emit them
const (
	SectionExperimentResults = "experiment_results"
	SectionResultAnalysis    = "result_analysis"
	SectionDiscussion        = "discussion"
)

var sectionOrder = []string{SectionExperimentResults, SectionResultAnalysis, SectionDiscussion}

func sectionMarker(name string) string {
	return "<!-- SECTION: " + name + " -->"
}

// BuildPrompt creates the narrative prompt from batch statistics and manual info
func BuildPrompt(req ports.NarrativeRequest) string {
	var prompt strings.Builder

	prompt.WriteString("Write the narrative sections of a complete laboratory report from the data below.\n\n")
	prompt.WriteString("# Report\n")
	fmt.Fprintf(&prompt, "- Title: %s\n", req.Title)
	if req.Batch != nil {
		fmt.Fprintf(&prompt, "- Experiments: %d\n", len(req.Batch.Experiments))
	}

	if m := req.Manual; m != nil {
		prompt.WriteString("\n# Experiment manual\n")
		fmt.Fprintf(&prompt, "## Purpose\n%s\n\n## Theory\n%s\n", orNA(m.Purpose), orNA(m.Theory))
		prompt.WriteString("\n## Known error sources\n")
		if len(m.ErrorGuides) == 0 {
			prompt.WriteString("N/A\n")
		}
		for _, eg := range m.ErrorGuides {
			fmt.Fprintf(&prompt, "- %s: %s", eg.Cause, eg.Description)
			if s := strings.TrimSpace(eg.Mitigation); s != "" {
				fmt.Fprintf(&prompt, " (mitigation: %s)", s)
			}
			prompt.WriteString("\n")
		}
		if strings.TrimSpace(m.ExpectedResults) != "" {
			fmt.Fprintf(&prompt, "\n## Expected results\n%s\n", m.ExpectedResults)
		}
	}

	prompt.WriteString("\n# Results\n")
	if req.Batch != nil {
		for i, exp := range req.Batch.Experiments {
			s := exp.Statistics
			fmt.Fprintf(&prompt, "\n## Experiment %d: %s\n", i+1, exp.Name)
			fmt.Fprintf(&prompt, "- Sheet: %s\n", exp.TableName)
			fmt.Fprintf(&prompt, "- Data points: %d\n", s.DataPoints)
			fmt.Fprintf(&prompt, "- Slope: %s\n", stats.FormatStat(s.Slope))
			fmt.Fprintf(&prompt, "- Intercept: %s\n", stats.FormatStat(s.Intercept))
			fmt.Fprintf(&prompt, "- R²: %s\n", stats.FormatStat(s.RSquared))
			fmt.Fprintf(&prompt, "- Standard error: %s\n", stats.FormatStat(s.StdError))
			fmt.Fprintf(&prompt, "- X range: %s\n", stats.FormatRange(s.XRange))
			fmt.Fprintf(&prompt, "- Y range: %s\n", stats.FormatRange(s.YRange))
			if s.HasErrorRate() {
				fmt.Fprintf(&prompt, "- Error rate vs. theory: %s\n", stats.FormatPercent(*s.ErrorRatePercent))
			}
		}
	}

	language := "in English"
	if req.Language == "ko" {
		language = "in Korean"
	}
	tone := "an objective academic tone"
	if req.Tone == "general" {
		tone = "a plain, easy to follow tone"
	}

	fmt.Fprintf(&prompt, `
# Instructions
Write %s using %s. Produce exactly three sections, each introduced by its marker comment:

%s
Describe each experiment's data and trend, and judge the data quality.

%s
Interpret R², explain the physical meaning of slope and intercept, compare experiments, and compare with theory when available.

%s
Discuss the overall findings, analyse sources of error (use the manual's error sources when given), propose improvements and conclude.

Use Markdown. Do not add a report title or section headings of your own.
`, language, tone, sectionMarker(SectionExperimentResults), sectionMarker(SectionResultAnalysis), sectionMarker(SectionDiscussion))

	return prompt.String()
}

// ParseSections splits a model response on section markers. Each section
// runs until the next known marker; missing markers give empty sections.
func ParseSections(text string) report.NarrativeSections {
	extract := func(name string) string {
		marker := sectionMarker(name)
		start := strings.Index(text, marker)
		if start < 0 {
			return ""
		}
		start += len(marker)

		end := len(text)
		for _, other := range sectionOrder {
			if other == name {
				continue
			}
			if idx := strings.Index(text[start:], sectionMarker(other)); idx >= 0 && start+idx < end {
				end = start + idx
			}
		}
		return strings.TrimSpace(text[start:end])
	}

	return report.NarrativeSections{
		ExperimentInterpretation: extract(SectionExperimentResults),
		ResultAnalysis:           extract(SectionResultAnalysis),
		Discussion:               extract(SectionDiscussion),
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
