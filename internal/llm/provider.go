package llm

import (
	"context"
	"errors"
)

// Sentinel errors mapped from provider HTTP responses.
var (
	ErrRateLimited    = errors.New("llm: rate limited by provider")
	ErrAuthFailed     = errors.New("llm: provider authentication failed")
	ErrInvalidRequest = errors.New("llm: invalid request")
	ErrUnavailable    = errors.New("llm: provider unavailable")
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request to a provider.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// Response is a completed (non-streaming) provider reply.
type Response struct {
	ID           string
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
}

// Usage is the provider-reported token accounting.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Chunk is one increment of a streaming reply. Usage is only set on the
// final chunk.
type Chunk struct {
	ID      string
	Content string
	Done    bool
	Usage   *Usage
}

// Stream yields chunks of a streaming reply. Next returns io.EOF when the
// stream is complete.
type Stream interface {
	Next() (Chunk, error)
	Close() error
}

// Provider is the interface LLM adapters implement.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
	CompleteStream(ctx context.Context, req Request) (Stream, error)
}
