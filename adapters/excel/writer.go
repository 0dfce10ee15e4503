package excel

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"labreport/domain/experiment"
	"labreport/domain/stats"
	apperrors "labreport/internal/errors"
)

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

var summaryHeader = []interface{}{
	"#", "Experiment", "Sheet", "Slope", "Intercept", "R²", "Standard error",
	"Error rate (%)", "Data points", "X min", "X max", "Y min", "Y max",
}

// WriteBatch exports a batch as a workbook: a summary sheet followed by one
// data sheet per experiment with a scatter chart of the cleaned series
func WriteBatch(w io.Writer, batch *experiment.BatchResult) error {
	if batch == nil || len(batch.Experiments) == 0 {
		return apperrors.InvalidInput("nothing to export: batch has no experiments")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return apperrors.Wrap(err, "failed to create summary sheet")
	}
	if err := writeSummary(f, batch); err != nil {
		return err
	}

	used := map[string]bool{summarySheet: true}
	for i, exp := range batch.Experiments {
		name := sheetName(i+1, exp.Name, used)
		if _, err := f.NewSheet(name); err != nil {
			return apperrors.Wrapf(err, "failed to create sheet for experiment %d", i+1)
		}
		if err := writeExperiment(f, name, exp); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(err, "failed to write workbook")
	}
	log.Printf("[ExcelWriter] Exported batch %s (%d experiments)", batch.BatchID, len(batch.Experiments))
	return nil
}

func writeSummary(f *excelize.File, batch *experiment.BatchResult) error {
	if err := f.SetCellValue(summarySheet, "A1", batch.ReportTitle); err != nil {
		return apperrors.Wrap(err, "failed to write summary title")
	}
	if err := f.SetSheetRow(summarySheet, "A3", &summaryHeader); err != nil {
		return apperrors.Wrap(err, "failed to write summary header")
	}

	for i, exp := range batch.Experiments {
		s := exp.Statistics
		var rate interface{}
		if s.HasErrorRate() {
			rate = *s.ErrorRatePercent
		}
		row := []interface{}{
			i + 1, exp.Name, exp.TableName, s.Slope, s.Intercept, s.RSquared, s.StdError,
			rate, s.DataPoints, s.XRange.Min, s.XRange.Max, s.YRange.Min, s.YRange.Max,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return apperrors.Wrap(err, "failed to address summary row")
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return apperrors.Wrapf(err, "failed to write summary row %d", i+1)
		}
	}
	return nil
}

// writeExperiment lays out x, y and fitted y in columns A-C and anchors the
// chart at E2. The fitted column carries the trendline series.
func writeExperiment(f *excelize.File, sheet string, exp experiment.Result) error {
	header := []interface{}{exp.Display.XColumn, exp.Display.YColumn, "Fitted " + exp.Display.YColumn}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.Wrapf(err, "failed to write header of %s", sheet)
	}

	s := exp.Statistics
	n := exp.Series.Len()
	for i := 0; i < n; i++ {
		x := exp.Series.X[i]
		row := []interface{}{x, exp.Series.Y[i], stats.RoundStat(s.Slope*x + s.Intercept)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.Wrap(err, "failed to address data row")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return apperrors.Wrapf(err, "failed to write row %d of %s", i+1, sheet)
		}
	}
	if n < 2 {
		return nil
	}

	last := n + 1
	xRef := rangeRef(sheet, "A", 2, last)
	chart := &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			{
				Name:       cellRef(sheet, "B1"),
				Categories: xRef,
				Values:     rangeRef(sheet, "B", 2, last),
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
				Line:       excelize.ChartLine{Type: excelize.ChartLineNone},
			},
			{
				Name:       cellRef(sheet, "C1"),
				Categories: xRef,
				Values:     rangeRef(sheet, "C", 2, last),
				Marker:     excelize.ChartMarker{Symbol: "none"},
				Line:       excelize.ChartLine{Type: excelize.ChartLineSolid, Width: 1.5},
			},
		},
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("%s (R² = %s)", exp.Name, stats.FormatStat(s.RSquared))}},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: exp.Display.XColumn}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: exp.Display.YColumn}}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
	if err := f.AddChart(sheet, "E2", chart); err != nil {
		return apperrors.Wrapf(err, "failed to add chart to %s", sheet)
	}
	return nil
}

// sheetName builds a unique, Excel-legal sheet name for an experiment
func sheetName(index int, name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	prefix := fmt.Sprintf("%d ", index)
	runes := []rune(prefix + clean)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	candidate := strings.TrimRight(string(runes), " '")
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%d-%d", index, n)
	}
	used[candidate] = true
	return candidate
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func cellRef(sheet, cell string) string {
	return quoteSheet(sheet) + "!$" + cell[:1] + "$" + cell[1:]
}

func rangeRef(sheet, col string, from, to int) string {
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", quoteSheet(sheet), col, from, col, to)
}
