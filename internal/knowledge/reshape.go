package knowledge

import (
	"context"
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const reshapeSystemPrompt = `Rephrase the verified fact below as one or two warm spoken sentences for a phone caller.
Do NOT add any information that is not in the fact. Do NOT add prices, times, or promises.
Reply with the rephrased sentence only — no JSON, no quotes.`

// Reshaper converts a terse verified fact into natural phrasing with a
// narrowly-scoped model call. When that call fails the raw fact is used
// verbatim: correctness beats fluency, and callers rely on that fallback.
type Reshaper struct {
	client llm.Client
	model  string
	logger *logging.Logger
}

// NewReshaper creates a fact reshaper.
func NewReshaper(client llm.Client, model string, logger *logging.Logger) *Reshaper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reshaper{client: client, model: model, logger: logger}
}

// Reshape returns natural phrasing for the fact, or the fact itself when
// the model call fails or returns nothing usable.
func (r *Reshaper) Reshape(ctx context.Context, fact string) (string, bool) {
	fact = strings.TrimSpace(fact)
	if fact == "" || r.client == nil {
		return fact, false
	}

	resp, err := r.client.Complete(ctx, llm.Request{
		Model:       r.model,
		System:      []string{reshapeSystemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: fact}},
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		r.logger.Warn("fact reshape failed, using raw fact", "error", err)
		return fact, false
	}

	reshaped := strings.TrimSpace(resp.Text)
	if reshaped == "" {
		return fact, false
	}
	return reshaped, true
}
