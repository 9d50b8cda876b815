package providers

import (
	"context"
	"encoding/json"
)

// Backend is the AI collaborator consumed by the reply pipeline and the
// order-intent extractor. Both calls are fallible network calls with no
// internal retry; failure surfaces to the caller as a localized fallback.
type Backend interface {
	// Complete sends a conversation to the model and returns the reply text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// AnalyzeIntent runs a single-prompt structured analysis and returns
	// the raw JSON emitted by the model.
	AnalyzeIntent(ctx context.Context, prompt string) (json.RawMessage, error)

	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// CompletionRequest contains the input for a Complete call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}
