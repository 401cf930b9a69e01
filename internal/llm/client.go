package llm

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type Request struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is the provider-agnostic completion interface the engine depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Embedder produces embedding vectors for semantic matching.
type Embedder interface {
	Embed(ctx context.Context, modelID string, texts []string) ([][]float32, error)
}
