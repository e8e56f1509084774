package domain

import "time"

type Idea struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage is the token accounting reported by the LLM provider for one
// exchange. The camelCase tags are part of the client wire contract.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// SendMessageResult is the outcome of one completed AI exchange.
// RemainingReplies is authoritative: clients mirror it, they never derive it.
type SendMessageResult struct {
	UserMessage      ChatMessage `json:"userMessage"`
	AssistantMessage ChatMessage `json:"assistantMessage"`
	RemainingReplies int         `json:"remainingReplies"`
	Usage            Usage       `json:"usage"`
}
