package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
)

const synthesisSystemPrompt = `You answer factual questions for a %s company's phone receptionist using ONLY the knowledge base below.

KNOWLEDGE BASE:
%s

RULES:
- Answer ONLY from the knowledge base. If the answer is not there, say so.
- One or two short spoken sentences. No prices unless the knowledge base states them.

Respond with JSON only:
{"answer": "<answer or empty if unknown>", "confidence": <0.0-1.0>, "source": "<knowledge base entry you used>"}`

// Synthesizer is the Tier-3 resolver: a bounded LLM call over the full
// company knowledge base. Most expensive; only reached when the cheaper
// tiers miss.
type Synthesizer struct {
	client llm.Client
	model  string
}

// NewSynthesizer creates a Tier-3 synthesizer.
func NewSynthesizer(client llm.Client, model string) *Synthesizer {
	if client == nil {
		panic("knowledge: llm client cannot be nil")
	}
	return &Synthesizer{client: client, model: model}
}

// Synthesize asks the model to answer from the assembled knowledge base.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg *company.Config, query string) (*Result, error) {
	kb := assembleKnowledgeBase(cfg)
	if kb == "" {
		return nil, nil
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      []string{fmt.Sprintf(synthesisSystemPrompt, cfg.Trade, kb)},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: query}},
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: tier3 completion: %w", err)
	}

	var decoded struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
	}

	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, fmt.Errorf("knowledge: tier3 response parse: %w", err)
	}

	if strings.TrimSpace(decoded.Answer) == "" {
		return &Result{Tier: 3, Confidence: 0, Cost: costTier3}, nil
	}

	confidence := decoded.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Result{
		Tier:        3,
		Confidence:  confidence,
		FactualText: decoded.Answer,
		Cost:        costTier3,
		SourceID:    decoded.Source,
	}, nil
}

// assembleKnowledgeBase flattens the company's variables, scenario answers,
// and Q&A corpus into the text block the synthesizer is allowed to use.
func assembleKnowledgeBase(cfg *company.Config) string {
	if cfg == nil {
		return ""
	}

	var b strings.Builder
	for name, value := range cfg.Variables {
		if strings.TrimSpace(value) == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, value)
	}
	for _, sc := range cfg.Scenarios {
		if sc.Answer != "" {
			fmt.Fprintf(&b, "- %s\n", sc.Answer)
		}
	}
	for _, qa := range cfg.QAPairs {
		fmt.Fprintf(&b, "- Q: %s A: %s\n", qa.Question, qa.Answer)
	}
	return strings.TrimSpace(b.String())
}
