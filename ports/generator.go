package ports

import (
	"context"

	"labreport/domain/core"
	"labreport/domain/experiment"
	"labreport/domain/report"
)

// NarrativePort produces the prose sections of a report
type NarrativePort interface {
	GenerateNarrative(ctx context.Context, req NarrativeRequest) (*NarrativeGeneration, error)
}

// NarrativeRequest carries everything a narrative generator may describe
type NarrativeRequest struct {
	Title    string                  `json:"report_title"`
	Batch    *experiment.BatchResult `json:"batch"`
	Manual   *experiment.ManualInfo  `json:"manual_info,omitempty"`
	Language string                  `json:"language,omitempty"` // "en" (default) or "ko"
	Tone     string                  `json:"tone,omitempty"`     // "academic" (default) or "general"
}

// GenerationAudit is metadata about a generation call (prompt/response hashes, model).
type GenerationAudit struct {
	GeneratorType string    `json:"generator_type"` // "llm" | "heuristic"
	Model         string    `json:"model,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	PromptHash    core.Hash `json:"prompt_hash,omitempty"`
	ResponseHash  core.Hash `json:"response_hash,omitempty"`
	Fallback      bool      `json:"fallback,omitempty"` // heuristic used after an LLM failure
	FallbackCause string    `json:"fallback_cause,omitempty"`
}

// NarrativeGeneration is the output of narrative generation.
// Sections are placed into the report; Audit explains how they were produced.
type NarrativeGeneration struct {
	Sections report.NarrativeSections `json:"sections"`
	Audit    GenerationAudit          `json:"audit"`
}
