package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"labreport/adapters/excel"
	"labreport/domain/experiment"
	"labreport/internal/report"
)

// jobFile is the YAML description of a batch run
type jobFile struct {
	Title       string                 `yaml:"report_title"`
	Experiments []experiment.Config    `yaml:"experiments"`
	Manual      *experiment.ManualInfo `yaml:"manual_info,omitempty"`
	Language    string                 `yaml:"language,omitempty"`
	Tone        string                 `yaml:"tone,omitempty"`
}

// loadJob reads and validates a job file
func loadJob(path string) (*jobFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job jobFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	if strings.TrimSpace(job.Title) == "" {
		job.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := experiment.ValidateConfigs(job.Experiments); err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	return &job, nil
}

// loadManual reads a standalone manual YAML file
func loadManual(path string) (*experiment.ManualInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manual file: %w", err)
	}
	var manual experiment.ManualInfo
	if err := yaml.Unmarshal(raw, &manual); err != nil {
		return nil, fmt.Errorf("invalid manual file %s: %w", path, err)
	}
	return &manual, nil
}

// writeManual encodes manual info in the format loadManual reads
func writeManual(w io.Writer, manual *experiment.ManualInfo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(manual); err != nil {
		return err
	}
	return enc.Close()
}

// outputFormat resolves the format flag, falling back to the output extension
func outputFormat(format, out string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".html", ".htm":
			format = "html"
		case ".xlsx":
			format = "xlsx"
		case ".json":
			format = "json"
		default:
			format = "md"
		}
	}
	switch format {
	case "md", "html", "xlsx", "json":
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (md, html, xlsx or json)", format)
	}
}

// writeBatch writes the batch-only formats
func writeBatch(w io.Writer, format string, batch *experiment.BatchResult) error {
	switch format {
	case "xlsx":
		return excel.WriteBatch(w, batch)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	default:
		return fmt.Errorf("format %s needs a report", format)
	}
}

// writeDocument renders an assembled report as Markdown or HTML
func writeDocument(w io.Writer, format string, markdown []byte, title string) error {
	if format == "html" {
		_, err := w.Write(report.RenderHTML(title, markdown))
		return err
	}
	_, err := w.Write(markdown)
	return err
}

// openOutput returns stdout for "" or "-", else a created file
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
