package chat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm/mock"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/chat"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdeaRepo struct {
	ideas   map[string]*domain.Idea
	touched []string
}

func (f *fakeIdeaRepo) GetIdeaByID(id string) (*domain.Idea, error) {
	return f.ideas[id], nil
}

func (f *fakeIdeaRepo) TouchIdea(id string) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeMessageRepo struct {
	messages map[string][]domain.ChatMessage
}

func (f *fakeMessageRepo) CreateMessage(id, ideaID, role, content string) (*domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        id,
		IdeaID:    ideaID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.messages[ideaID] = append(f.messages[ideaID], msg)
	return &msg, nil
}

func (f *fakeMessageRepo) ListMessagesByIdea(ideaID string, limit int) ([]domain.ChatMessage, error) {
	msgs := f.messages[ideaID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type fakeUsageRecorder struct {
	records []domain.Usage
}

func (f *fakeUsageRecorder) RecordTokenUsage(id string, userID int64, ideaID, model string, usage domain.Usage) error {
	f.records = append(f.records, usage)
	return nil
}

type fixture struct {
	service  *chat.Service
	ideas    *fakeIdeaRepo
	messages *fakeMessageRepo
	usage    *fakeUsageRecorder
	quota    *quota.MemoryStore
	provider *mock.Provider
}

func newFixture(t *testing.T, provider *mock.Provider) *fixture {
	t.Helper()
	ideas := &fakeIdeaRepo{ideas: map[string]*domain.Idea{
		"idea-1": {ID: "idea-1", UserID: 1, Title: "Solar kiosk", Description: "Off-grid charging stations"},
		"idea-2": {ID: "idea-2", UserID: 2, Title: "Someone else's"},
	}}
	messages := &fakeMessageRepo{messages: make(map[string][]domain.ChatMessage)}
	usage := &fakeUsageRecorder{}
	qs := quota.NewMemoryStore()

	return &fixture{
		service:  chat.NewService(ideas, messages, usage, qs, provider, config.DefaultPlanCatalog(), "test-model"),
		ideas:    ideas,
		messages: messages,
		usage:    usage,
		quota:    qs,
		provider: provider,
	}
}

func freeUser() *domain.User {
	return &domain.User{ID: 1, Email: "a@b.c", Plan: domain.PlanFree}
}

func TestSendMessagePersistsExchange(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	result, err := f.service.SendMessage(context.Background(), user, "idea-1", "How do I validate demand?")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "How do I validate demand?", result.UserMessage.Content)
	assert.Equal(t, domain.RoleAssistant, result.AssistantMessage.Role)
	assert.NotEmpty(t, result.AssistantMessage.Content)

	// Free plan starts at 10/day; one exchange leaves 9.
	assert.Equal(t, 9, result.RemainingReplies)
	assert.Equal(t, int64(30), result.Usage.TotalTokens)

	assert.Len(t, f.messages.messages["idea-1"], 2)
	assert.Len(t, f.usage.records, 1)
	assert.Equal(t, []string{"idea-1"}, f.ideas.touched)
}

func TestSendMessageRejectsWhenExhausted(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()
	plan := config.DefaultPlanCatalog().Get(domain.PlanFree)

	// Burn the whole daily allowance.
	for i := 0; i < plan.RepliesPerDay; i++ {
		_, err := f.quota.Consume(context.Background(), user.ID, plan)
		require.NoError(t, err)
	}

	_, err := f.service.SendMessage(context.Background(), user, "idea-1", "one more?")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// The rejection happens before the provider is ever called and
	// nothing is persisted.
	assert.Equal(t, int64(0), f.provider.CallCount())
	assert.Empty(t, f.messages.messages["idea-1"])
}

func TestSendMessageProviderFailureCostsNothing(t *testing.T) {
	f := newFixture(t, mock.New(mock.WithError(llm.ErrRateLimited)))
	user := freeUser()
	plan := config.DefaultPlanCatalog().Get(domain.PlanFree)

	_, err := f.service.SendMessage(context.Background(), user, "idea-1", "hello")
	assert.ErrorIs(t, err, llm.ErrRateLimited)

	// A failed exchange must not consume allowance or leave messages.
	remaining, qerr := f.quota.Remaining(context.Background(), user.ID, plan)
	require.NoError(t, qerr)
	assert.Equal(t, plan.RepliesPerDay, remaining)
	assert.Empty(t, f.messages.messages["idea-1"])
}

func TestSendMessageEnforcesOwnership(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	_, err := f.service.SendMessage(context.Background(), user, "idea-2", "hi")
	assert.ErrorIs(t, err, domain.ErrNotIdeaOwner)

	_, err = f.service.SendMessage(context.Background(), user, "missing", "hi")
	assert.ErrorIs(t, err, domain.ErrIdeaNotFound)

	assert.Equal(t, int64(0), f.provider.CallCount())
}

func TestSendMessageValidatesContent(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	_, err := f.service.SendMessage(context.Background(), user, "idea-1", "   ")
	assert.Error(t, err)

	long := make([]byte, 4001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.service.SendMessage(context.Background(), user, "idea-1", string(long))
	assert.Error(t, err)

	assert.Equal(t, int64(0), f.provider.CallCount())
}

func TestSendMessageUnlimitedPlan(t *testing.T) {
	f := newFixture(t, mock.New())
	user := &domain.User{ID: 1, Plan: domain.PlanUnlimited}

	for i := 0; i < 3; i++ {
		result, err := f.service.SendMessage(context.Background(), user, "idea-1", fmt.Sprintf("round %d", i))
		require.NoError(t, err)
		assert.Equal(t, domain.Unbounded, result.RemainingReplies)
	}
}

func TestStreamMessageForwardsChunks(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	var chunks []string
	result, err := f.service.StreamMessage(context.Background(), user, "idea-1", "stream it", func(delta string) error {
		chunks = append(chunks, delta)
		return nil
	})
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	var joined string
	for _, c := range chunks {
		joined += c
	}
	assert.Equal(t, joined, result.AssistantMessage.Content)
	assert.Equal(t, 9, result.RemainingReplies)
	assert.Len(t, f.messages.messages["idea-1"], 2)
}

func TestHistoryEnforcesOwnership(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	_, err := f.service.SendMessage(context.Background(), user, "idea-1", "first")
	require.NoError(t, err)

	history, err := f.service.History(user, "idea-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = f.service.History(user, "idea-2")
	assert.ErrorIs(t, err, domain.ErrNotIdeaOwner)
}

func TestRemainingDoesNotConsume(t *testing.T) {
	f := newFixture(t, mock.New())
	user := freeUser()

	for i := 0; i < 3; i++ {
		remaining, err := f.service.Remaining(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, 10, remaining)
	}
}
