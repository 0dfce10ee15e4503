package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"labreport/domain/core"
	"labreport/domain/experiment"
	"labreport/internal"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// ManualExtractor reads an experiment manual with an LLM and returns its
// purpose, theory, error sources, expected results and equipment
type ManualExtractor struct {
	config    Config
	llmClient ports.LLMClient
	usage     UsageRecorder
	logger    *internal.Logger
}

var _ ports.ManualExtractorPort = (*ManualExtractor)(nil)

// NewManualExtractor creates an extractor backed by the configured API
func NewManualExtractor(config Config) (*ManualExtractor, error) {
	client, err := newLLMClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewManualExtractorWithClient(config, client), nil
}

// NewManualExtractorWithClient creates an extractor around an existing client
func NewManualExtractorWithClient(config Config, client ports.LLMClient) *ManualExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &ManualExtractor{
		config:    config,
		llmClient: client,
		logger:    internal.DefaultLogger.WithComponent("ManualLLM"),
	}
}

// SetUsageRecorder attaches a token usage sink
func (m *ManualExtractor) SetUsageRecorder(r UsageRecorder) {
	m.usage = r
}

// ExtractManual implements ManualExtractorPort
func (m *ManualExtractor) ExtractManual(ctx context.Context, filename, text string) (*experiment.ManualInfo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.InvalidInput("manual text is empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	prompt := BuildManualPrompt(filename, text)
	response, err := m.llmClient.ChatCompletionWithUsage(callCtx, m.config.Model, prompt, m.config.MaxTokens)
	if err != nil {
		return nil, apperrors.ExternalServiceError("llm", fmt.Errorf("manual extraction failed: %w", err))
	}

	manual, err := ParseManual(response.Content)
	if err != nil {
		return nil, apperrors.ExternalServiceError("llm", err)
	}

	if response.Usage != nil && m.usage != nil {
		m.usage.RecordUsage("manual_extraction", response.Usage)
	}
	m.logger.Info("manual %s extracted (prompt %s): %d error guides, %d equipment items",
		filename, core.NewHash([]byte(prompt)).Short(), len(manual.ErrorGuides), len(manual.Equipment))
	return manual, nil
}

// BuildManualPrompt asks for the manual fields as one JSON object
func BuildManualPrompt(filename, text string) string {
	var prompt strings.Builder
	prompt.WriteString("You analyse laboratory manuals for science and engineering courses.\n\n")
	fmt.Fprintf(&prompt, "Extract the following fields from the manual %q and answer with a single JSON object only:\n\n", filename)
	prompt.WriteString(`- "experiment_purpose": the purpose of the experiment in 1-3 sentences
- "theory": the theory and principles, including the key equations, in at most 500 characters
- "error_guides": a list of error sources, each {"cause", "description", "mitigation"}
- "expected_results": the expected results, or "" when the manual has none
- "equipment_list": the list of equipment, or [] when the manual has none

Use only information found in the manual. Do not wrap the JSON in any other text.

# Manual text
`)
	prompt.WriteString(text)
	prompt.WriteString("\n")
	return prompt.String()
}

// ParseManual decodes the JSON object of a model response. Code fences and
// text around the object are ignored, and blank entries are dropped.
func ParseManual(content string) (*experiment.ManualInfo, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("manual response contains no JSON object")
	}

	var manual experiment.ManualInfo
	if err := json.Unmarshal([]byte(content[start:end+1]), &manual); err != nil {
		return nil, fmt.Errorf("manual response is not valid JSON: %w", err)
	}

	manual.Purpose = strings.TrimSpace(manual.Purpose)
	manual.Theory = strings.TrimSpace(manual.Theory)
	manual.ExpectedResults = strings.TrimSpace(manual.ExpectedResults)

	guides := manual.ErrorGuides[:0]
	for _, g := range manual.ErrorGuides {
		g.Cause = strings.TrimSpace(g.Cause)
		g.Description = strings.TrimSpace(g.Description)
		g.Mitigation = strings.TrimSpace(g.Mitigation)
		if g.Cause != "" || g.Description != "" {
			guides = append(guides, g)
		}
	}
	manual.ErrorGuides = guides

	equipment := manual.Equipment[:0]
	for _, e := range manual.Equipment {
		if e = strings.TrimSpace(e); e != "" {
			equipment = append(equipment, e)
		}
	}
	manual.Equipment = equipment

	if manual.Purpose == "" && manual.Theory == "" && len(manual.ErrorGuides) == 0 &&
		manual.ExpectedResults == "" && len(manual.Equipment) == 0 {
		return nil, fmt.Errorf("manual response has no usable fields")
	}
	return &manual, nil
}
