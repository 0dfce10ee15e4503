package report

import (
	"fmt"
	"strconv"
	"strings"

	"labreport/domain/core"
	"labreport/domain/experiment"
	"labreport/domain/report"
	"labreport/domain/stats"
)

const (
	// DefaultDisplayRowCap bounds the data table rendered per experiment
	DefaultDisplayRowCap = 20
	// DefaultFooter is the attribution line closing every report
	DefaultFooter = "*This report was generated automatically by labreport.*"
)

// Fixed section headings
const (
	headingBackground     = "Background"
	headingResults        = "1. Experiment Results"
	headingInterpretation = "Interpretation of Results"
	headingAnalysis       = "2. Result Analysis"
	headingDiscussion     = "3. Discussion"
)

// Input is everything the assembler composes into a document
type Input struct {
	Title       string
	Experiments []experiment.Result
	Narrative   report.NarrativeSections
	Manual      *experiment.ManualInfo
}

// Assembler composes report documents. It performs no analysis and no text
// generation, and is safe for concurrent use.
type Assembler struct {
	displayRowCap int
	footer        string
}

// Option customizes an Assembler
type Option func(*Assembler)

// WithDisplayRowCap overrides the per-experiment data table cap
func WithDisplayRowCap(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.displayRowCap = n
		}
	}
}

// WithFooter overrides the footer attribution line
func WithFooter(footer string) Option {
	return func(a *Assembler) {
		if strings.TrimSpace(footer) != "" {
			a.footer = footer
		}
	}
}

// NewAssembler creates an assembler with the default cap and footer
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{displayRowCap: DefaultDisplayRowCap, footer: DefaultFooter}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the document in its fixed section order
func (a *Assembler) Assemble(in Input) (*report.Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, core.NewInvalidInputError("report_title", "must not be empty")
	}
	if err := in.Narrative.Validate(); err != nil {
		return nil, err
	}

	b := &builder{doc: &report.Document{Title: title}}
	b.heading(1, title)

	if in.Manual != nil {
		a.writeManual(b, in.Manual)
	}

	b.heading(2, headingResults)
	for i, result := range in.Experiments {
		a.writeExperiment(b, i+1, result)
	}

	if interpretation := strings.TrimSpace(in.Narrative.ExperimentInterpretation); interpretation != "" {
		b.heading(3, headingInterpretation)
		b.add(report.BlockParagraph, 0, interpretation)
	}

	b.heading(2, headingAnalysis)
	b.add(report.BlockParagraph, 0, strings.TrimSpace(in.Narrative.ResultAnalysis))

	b.heading(2, headingDiscussion)
	b.add(report.BlockParagraph, 0, strings.TrimSpace(in.Narrative.Discussion))

	b.add(report.BlockRule, 0, "---")
	b.add(report.BlockNote, 0, a.footer)

	return b.doc, nil
}

// writeManual emits the background section. A manual with nothing
// printable produces no headings at all.
func (a *Assembler) writeManual(b *builder, m *experiment.ManualInfo) {
	purpose := strings.TrimSpace(m.Purpose)
	theory := strings.TrimSpace(m.Theory)
	items := make([]string, 0, len(m.Equipment))
	for _, e := range m.Equipment {
		if e = strings.TrimSpace(e); e != "" {
			items = append(items, "- "+e)
		}
	}
	if purpose == "" && theory == "" && len(items) == 0 {
		return
	}

	b.heading(2, headingBackground)
	if purpose != "" {
		b.heading(3, "Purpose")
		b.add(report.BlockParagraph, 0, purpose)
	}
	if theory != "" {
		b.heading(3, "Theory")
		b.add(report.BlockParagraph, 0, theory)
	}
	if len(items) > 0 {
		b.heading(3, "Equipment")
		b.add(report.BlockList, 0, strings.Join(items, "\n"))
	}
}

func (a *Assembler) writeExperiment(b *builder, index int, r experiment.Result) {
	b.heading(3, fmt.Sprintf("Experiment %d: %s", index, r.Name))

	b.add(report.BlockTable, 0, a.renderDisplayTable(r.Display))
	if total := r.Display.Len(); total > a.displayRowCap {
		b.add(report.BlockNote, 0, fmt.Sprintf("*(showing %d of %d rows)*", a.displayRowCap, total))
	}

	b.add(report.BlockTable, 0, renderStatisticsTable(r.Statistics))

	caption := fmt.Sprintf("Figure %d: %s — scatter and trendline", index, r.Name)
	if !r.Chart.IsZero() {
		b.add(report.BlockImage, 0, fmt.Sprintf("![%s](%s)", escapeAlt(caption), r.Chart.Source()))
	}
	b.add(report.BlockParagraph, 0, "*"+caption+"*")
}

func (a *Assembler) renderDisplayTable(t experiment.DisplayTable) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "| # | %s | %s |\n", escapeCell(t.XColumn), escapeCell(t.YColumn))
	sb.WriteString("| --- | --- | --- |")

	n := t.Len()
	if n > a.displayRowCap {
		n = a.displayRowCap
	}
	for i := 0; i < n; i++ {
		row := t.Rows[i]
		fmt.Fprintf(&sb, "\n| %d | %s | %s |", i+1, displayCell(row.X), displayCell(row.Y))
	}
	return sb.String()
}

func renderStatisticsTable(s stats.RegressionStatistics) string {
	rows := [][2]string{
		{"Slope", stats.FormatStat(s.Slope)},
		{"Intercept", stats.FormatStat(s.Intercept)},
		{"R²", stats.FormatStat(s.RSquared)},
		{"Standard error", stats.FormatStat(s.StdError)},
	}
	if s.HasErrorRate() {
		rows = append(rows, [2]string{"Error rate", stats.FormatPercent(*s.ErrorRatePercent)})
	}
	rows = append(rows,
		[2]string{"Data points", strconv.Itoa(s.DataPoints)},
		[2]string{"X range", stats.FormatRange(s.XRange)},
		[2]string{"Y range", stats.FormatRange(s.YRange)},
	)

	var sb strings.Builder
	sb.WriteString("| Statistic | Value |\n| --- | --- |")
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n| %s | %s |", r[0], r[1])
	}
	return sb.String()
}

func displayCell(v *float64) string {
	if v == nil {
		return "null"
	}
	return stats.FormatStat(*v)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
}

func escapeAlt(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

type builder struct {
	doc *report.Document
}

func (b *builder) heading(level int, text string) {
	b.add(report.BlockHeading, level, strings.Repeat("#", level)+" "+text)
}

func (b *builder) add(kind report.BlockKind, level int, text string) {
	b.doc.Blocks = append(b.doc.Blocks, report.Block{Kind: kind, Level: level, Text: text})
}
