package engine

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
)

// Action is the closed vocabulary of things the agent may do on a turn.
type Action string

const (
	ActionAskQuestion         Action = "ask_question"
	ActionConfirmInfo         Action = "confirm_info"
	ActionAnswerWithKnowledge Action = "answer_with_knowledge"
	ActionInitiateBooking     Action = "initiate_booking"
	ActionUpdateBooking       Action = "update_booking"
	ActionEscalateToHuman     Action = "escalate_to_human"
	ActionSmallTalk           Action = "small_talk"
	ActionCloseCall           Action = "close_call"
	ActionClarifyIntent       Action = "clarify_intent"
	ActionNoOp                Action = "no_op"
)

var validActions = map[Action]bool{
	ActionAskQuestion:         true,
	ActionConfirmInfo:         true,
	ActionAnswerWithKnowledge: true,
	ActionInitiateBooking:     true,
	ActionUpdateBooking:       true,
	ActionEscalateToHuman:     true,
	ActionSmallTalk:           true,
	ActionCloseCall:           true,
	ActionClarifyIntent:       true,
	ActionNoOp:                true,
}

// IsTerminal reports whether the action ends the agent's involvement in
// the call. Guardrails only rewrite non-terminal actions.
func (a Action) IsTerminal() bool {
	return a == ActionCloseCall || a == ActionEscalateToHuman
}

// DecisionUpdates carries the state changes a decision wants applied.
type DecisionUpdates struct {
	Extracted callcontext.Extracted `json:"extracted"`
	Flags     DecisionFlags         `json:"flags"`
}

// DecisionFlags are boolean state toggles from the model.
type DecisionFlags struct {
	ReadyToBook bool `json:"ready_to_book"`
}

// Decision is what the orchestrator resolved for one turn. Ephemeral —
// never persisted; its effects are folded into the call context.
type Decision struct {
	Action              Action          `json:"action"`
	NextPrompt          string          `json:"next_prompt"`
	UpdatedIntent       string          `json:"updated_intent,omitempty"`
	Updates             DecisionUpdates `json:"updates"`
	KnowledgeQuery      string          `json:"knowledge_query,omitempty"`
	NeedsKnowledge      bool            `json:"needs_knowledge_search,omitempty"`
	DebugNotes          string          `json:"debug_notes,omitempty"`
	FallbackUsed        bool            `json:"-"`
	GuardrailsTriggered []string        `json:"-"`

	tokenUsage llm.TokenUsage
}

// ErrMalformedDecision indicates the model reply could not be turned into
// a usable decision. Handled by the deterministic fallback, never surfaced
// to the caller.
var ErrMalformedDecision = errors.New("engine: malformed orchestrator decision")

// ParseDecision extracts a Decision from raw model output. Markdown code
// fences and leading/trailing prose are tolerated; a missing action or
// next_prompt is a protocol violation.
func ParseDecision(raw string) (*Decision, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, ErrMalformedDecision
	}

	// Strip markdown fencing if present, then fall back to brace scanning
	// for models that wrap JSON in prose.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return nil, ErrMalformedDecision
	}
	content = content[startIdx : endIdx+1]

	var d Decision
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return nil, ErrMalformedDecision
	}

	if !validActions[d.Action] {
		return nil, ErrMalformedDecision
	}
	if strings.TrimSpace(d.NextPrompt) == "" {
		return nil, ErrMalformedDecision
	}

	return &d, nil
}
