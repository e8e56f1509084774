package apiclient_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/pkg/apiclient"
)

// The SDK must decode exactly what the backend encodes. Marshal the
// server-side exchange result and read it back through the client types
// so a drift in field names or widths fails here instead of in production.
func TestExchangeResultDecodesServerEncoding(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	server := domain.SendMessageResult{
		UserMessage: domain.ChatMessage{
			ID:        "m1",
			IdeaID:    "idea-1",
			Role:      domain.RoleUser,
			Content:   "How do I validate demand?",
			CreatedAt: now,
		},
		AssistantMessage: domain.ChatMessage{
			ID:        "m2",
			IdeaID:    "idea-1",
			Role:      domain.RoleAssistant,
			Content:   "Start with customer interviews.",
			CreatedAt: now,
		},
		RemainingReplies: 4,
		Usage: domain.Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}

	raw, err := json.Marshal(server)
	require.NoError(t, err)

	var got apiclient.SendMessageResult
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "m1", got.UserMessage.ID)
	assert.Equal(t, "idea-1", got.UserMessage.IdeaID)
	assert.Equal(t, domain.RoleUser, got.UserMessage.Role)
	assert.Equal(t, "Start with customer interviews.", got.AssistantMessage.Content)
	assert.Equal(t, 4, got.RemainingReplies)
	assert.Equal(t, int64(10), got.Usage.PromptTokens)
	assert.Equal(t, int64(5), got.Usage.CompletionTokens)
	assert.Equal(t, int64(15), got.Usage.TotalTokens)
}
