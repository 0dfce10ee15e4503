package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"labreport/app"
	"labreport/domain/experiment"
	"labreport/internal/config"
	"labreport/internal/container"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labreport-cli",
		Short: "Analyze lab data files and build reports from the command line",
	}

	rootCmd.AddCommand(
		newSheetsCmd(),
		newAnalyzeCmd(),
		newReportCmd(),
		newManualCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newContainer wires the same components the API server uses
func newContainer() (*container.Container, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func readUpload(path string) (app.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return app.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets [data-file]",
		Short: "List the sheets of a data file with their columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			sheets, err := c.ReportService.DetectSheets(cmd.Context(), upload)
			if err != nil {
				return err
			}
			for i, s := range sheets {
				fmt.Printf("%d. %s (%d rows)\n", i+1, s.Name, s.RowCount)
				fmt.Printf("   columns: %s\n", strings.Join(s.Columns, ", "))
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		sheet       string
		xColumn     string
		yColumn     string
		theoretical float64
	)

	cmd := &cobra.Command{
		Use:   "analyze [data-file]",
		Short: "Fit a line through one x/y column pair",
		Long: `Fit y = slope*x + intercept for one column pair and print the statistics.

Example: labreport-cli analyze run.xlsx --sheet "Trial 1" --x time --y distance --theoretical-slope 9.8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			req := app.SingleAnalysisRequest{
				Upload:    upload,
				Title:     filepath.Base(args[0]),
				TableName: sheet,
				XColumn:   xColumn,
				YColumn:   yColumn,
			}
			if cmd.Flags().Changed("theoretical-slope") {
				req.TheoreticalSlope = &theoretical
			}

			result, err := c.ReportService.AnalyzeSingle(cmd.Context(), req)
			if err != nil {
				return err
			}

			st := result.Statistics
			fmt.Printf("slope       %g\n", st.Slope)
			fmt.Printf("intercept   %g\n", st.Intercept)
			fmt.Printf("r_squared   %g\n", st.RSquared)
			fmt.Printf("std_error   %g\n", st.StdError)
			fmt.Printf("points      %d\n", st.DataPoints)
			if st.HasErrorRate() {
				fmt.Printf("error_rate  %.2f%%\n", *st.ErrorRatePercent)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().StringVar(&xColumn, "x", "", "Independent variable column")
	cmd.Flags().StringVar(&yColumn, "y", "", "Dependent variable column")
	cmd.Flags().Float64Var(&theoretical, "theoretical-slope", 0, "Expected slope for the error rate")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}

func newManualCmd() *cobra.Command {
	var (
		out     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "manual [manual.pdf]",
		Short: "Extract purpose, theory and error sources from a PDF manual",
		Long: `Read a PDF experiment manual with the configured LLM and print it as YAML.

The output can be edited and passed to "report --manual". Requires LLM_API_KEY.

Example: labreport-cli manual hooke.pdf -o manual.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			manual, err := extractManual(ctx, c.ReportService, args[0])
			if err != nil {
				return err
			}

			w, err := openOutput(out)
			if err != nil {
				return err
			}
			defer w.Close()
			return writeManual(w, manual)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output YAML file (default: stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit")
	return cmd
}

func extractManual(ctx context.Context, svc *app.ReportService, path string) (*experiment.ManualInfo, error) {
	upload, err := readUpload(path)
	if err != nil {
		return nil, err
	}
	return svc.ExtractManual(ctx, upload)
}

func newReportCmd() *cobra.Command {
	var (
		manualPath string
		manualPDF  string
		format     string
		out        string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report [data-file] [job-file]",
		Short: "Run a batch of experiments and write the report",
		Long: `Run every experiment listed in a YAML job file against one data file.

The job file names the report title, the experiments and optionally the manual:

  report_title: Hooke's law
  language: en
  tone: academic
  experiments:
    - sheet_name: Trial A
      experiment_name: Spring A
      x_column: force
      y_column: stretch
      theoretical_slope: 2.0

Formats: md and html produce the full report, xlsx and json only the analysis.

Example: labreport-cli report springs.xlsx job.yaml --out reports/springs.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(format, out)
			if err != nil {
				return err
			}
			if manualPath != "" && manualPDF != "" {
				return fmt.Errorf("--manual and --manual-pdf cannot be combined")
			}
			job, err := loadJob(args[1])
			if err != nil {
				return err
			}
			if manualPath != "" {
				if job.Manual, err = loadManual(manualPath); err != nil {
					return err
				}
			}

			c, err := newContainer()
			if err != nil {
				return err
			}
			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if manualPDF != "" {
				if job.Manual, err = extractManual(ctx, c.ReportService, manualPDF); err != nil {
					return err
				}
			}
			return runReport(ctx, c.ReportService, upload, job, format, out)
		},
	}

	cmd.Flags().StringVar(&manualPath, "manual", "", "YAML file with the experiment manual")
	cmd.Flags().StringVar(&manualPDF, "manual-pdf", "", "PDF manual to extract with the LLM")
	cmd.Flags().StringVar(&format, "format", "", "Output format: md|html|xlsx|json (default from --out extension)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall time limit")
	return cmd
}

func runReport(ctx context.Context, svc *app.ReportService, upload app.Upload, job *jobFile, format, out string) error {
	req := app.BatchAnalysisRequest{
		Upload:  upload,
		Title:   job.Title,
		Configs: job.Experiments,
		Manual:  job.Manual,
	}

	w, err := openOutput(out)
	if err != nil {
		return err
	}
	defer w.Close()

	if format == "xlsx" || format == "json" {
		batch, err := svc.AnalyzeBatch(ctx, req)
		if err != nil {
			return err
		}
		if err := writeBatch(w, format, batch); err != nil {
			return err
		}
	} else {
		_, generated, err := svc.BuildReport(ctx, req, app.ReportOptions{Language: job.Language, Tone: job.Tone})
		if err != nil {
			return err
		}
		if err := writeDocument(w, format, []byte(generated.Markdown), job.Title); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "narrative by %s\n", generated.Audit.GeneratorType)
	}

	if out != "" && out != "-" {
		fmt.Fprintf(os.Stderr, "✅ wrote %s (%s)\n", out, format)
	}
	return nil
}
