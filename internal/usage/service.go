package usage

import (
	"log"
	"sync"
	"time"

	"labreport/ports"
)

// Summary is the aggregated LLM token usage since startup
type Summary struct {
	Calls            int            `json:"calls"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	ByOperation      map[string]int `json:"tokens_by_operation,omitempty"`
	LastModel        string         `json:"last_model,omitempty"`
	LastCallAt       *time.Time     `json:"last_call_at,omitempty"`
}

// Tracker keeps LLM usage in memory; safe for concurrent use
type Tracker struct {
	mu      sync.Mutex
	summary Summary
	now     func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		summary: Summary{ByOperation: make(map[string]int)},
		now:     time.Now,
	}
}

// RecordUsage adds one call's token counts under an operation name.
// Invalid data is logged and ignored so tracking never fails the caller.
func (t *Tracker) RecordUsage(operation string, usage *ports.UsageData) {
	if usage == nil {
		log.Printf("[UsageTracker] ERROR: nil usage data provided")
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		log.Printf("[UsageTracker] ERROR: invalid token counts: %+v", usage)
		return
	}

	total := usage.TotalTokens
	if total == 0 {
		total = usage.PromptTokens + usage.CompletionTokens
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	at := t.now()
	t.summary.Calls++
	t.summary.PromptTokens += usage.PromptTokens
	t.summary.CompletionTokens += usage.CompletionTokens
	t.summary.TotalTokens += total
	t.summary.ByOperation[operation] += total
	t.summary.LastModel = usage.Model
	t.summary.LastCallAt = &at
}

// Summary returns a copy of the current totals
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.summary
	out.ByOperation = make(map[string]int, len(t.summary.ByOperation))
	for k, v := range t.summary.ByOperation {
		out.ByOperation[k] = v
	}
	return out
}
