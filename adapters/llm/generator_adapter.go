package llm

import (
	"context"
	"fmt"
	"time"

	"labreport/domain/core"
	"labreport/internal"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// Config holds LLM adapter configuration
type Config struct {
	Model               string        // e.g., "gpt-4.1-mini"
	APIKey              string        // OpenAI API key
	BaseURL             string        // Optional override (default: https://api.openai.com/v1)
	Temperature         float64       // 0.0-1.0, lower = more deterministic
	MaxTokens           int           // Max tokens in response
	Timeout             time.Duration // Request timeout
	FallbackToHeuristic bool          // Fallback to heuristic on error
}

// UsageRecorder receives token counts of successful LLM calls
type UsageRecorder interface {
	RecordUsage(operation string, usage *ports.UsageData)
}

// GeneratorAdapter implements NarrativePort using an LLM
type GeneratorAdapter struct {
	config      Config
	llmClient   ports.LLMClient
	fallbackGen ports.NarrativePort
	usage       UsageRecorder
	logger      *internal.Logger
}

var _ ports.NarrativePort = (*GeneratorAdapter)(nil)

// NewGeneratorAdapter creates a new LLM narrative adapter
func NewGeneratorAdapter(config Config, fallbackGen ports.NarrativePort) (*GeneratorAdapter, error) {
	client, err := newLLMClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewGeneratorAdapterWithClient(config, client, fallbackGen), nil
}

// NewGeneratorAdapterWithClient creates an adapter around an existing client
func NewGeneratorAdapterWithClient(config Config, client ports.LLMClient, fallbackGen ports.NarrativePort) *GeneratorAdapter {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &GeneratorAdapter{
		config:      config,
		llmClient:   client,
		fallbackGen: fallbackGen,
		logger:      internal.DefaultLogger.WithComponent("NarrativeLLM"),
	}
}

// SetUsageRecorder attaches a token usage sink
func (g *GeneratorAdapter) SetUsageRecorder(r UsageRecorder) {
	g.usage = r
}

// GenerateNarrative implements NarrativePort
func (g *GeneratorAdapter) GenerateNarrative(ctx context.Context, req ports.NarrativeRequest) (*ports.NarrativeGeneration, error) {
	if req.Batch == nil || len(req.Batch.Experiments) == 0 {
		return nil, apperrors.InvalidInput("narrative generation requires at least one analysed experiment")
	}

	// GUARDRAIL: Timeout
	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	prompt := BuildPrompt(req)
	promptHash := core.NewHash([]byte(prompt))

	response, err := g.llmClient.ChatCompletionWithUsage(callCtx, g.config.Model, prompt, g.config.MaxTokens)
	if err != nil {
		return g.fallback(ctx, req, fmt.Errorf("LLM call failed: %w", err))
	}

	sections := ParseSections(response.Content)
	if err := sections.Validate(); err != nil {
		return g.fallback(ctx, req, fmt.Errorf("LLM response is missing sections: %w", err))
	}

	if response.Usage != nil {
		g.logger.Info("prompt %s: %d prompt tokens, %d completion tokens", promptHash.Short(),
			response.Usage.PromptTokens, response.Usage.CompletionTokens)
		if g.usage != nil {
			g.usage.RecordUsage("narrative", response.Usage)
		}
	}

	return &ports.NarrativeGeneration{
		Sections: sections,
		Audit: ports.GenerationAudit{
			GeneratorType: "llm",
			Model:         g.config.Model,
			Temperature:   g.config.Temperature,
			MaxTokens:     g.config.MaxTokens,
			PromptHash:    promptHash,
			ResponseHash:  core.NewHash([]byte(response.Content)),
		},
	}, nil
}

// fallback uses the heuristic generator when allowed, otherwise surfaces cause
func (g *GeneratorAdapter) fallback(ctx context.Context, req ports.NarrativeRequest, cause error) (*ports.NarrativeGeneration, error) {
	if !g.config.FallbackToHeuristic || g.fallbackGen == nil {
		return nil, apperrors.ExternalServiceError("llm", cause)
	}

	g.logger.Warn("falling back to heuristic narrative: %v", cause)
	gen, err := g.fallbackGen.GenerateNarrative(ctx, req)
	if err != nil {
		return nil, err
	}
	gen.Audit.Fallback = true
	gen.Audit.FallbackCause = cause.Error()
	return gen, nil
}
