package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/quota"
)

const historyWindow = 50
const maxMessageLength = 4000

const systemPrompt = "You are a brainstorming partner inside Sparkpad, an idea development app. " +
	"Help the user sharpen the idea below: ask probing questions, surface risks, " +
	"and suggest concrete next steps. Keep replies short and practical."

type IdeaRepository interface {
	GetIdeaByID(id string) (*domain.Idea, error)
	TouchIdea(id string) error
}

type MessageRepository interface {
	CreateMessage(id, ideaID, role, content string) (*domain.ChatMessage, error)
	ListMessagesByIdea(ideaID string, limit int) ([]domain.ChatMessage, error)
}

type UsageRecorder interface {
	RecordTokenUsage(id string, userID int64, ideaID, model string, usage domain.Usage) error
}

// Service runs AI exchanges: it gates sends on the user's plan allowance,
// calls the LLM provider and persists both sides of the conversation. The
// RemainingReplies it returns is the value clients mirror.
type Service struct {
	ideas    IdeaRepository
	messages MessageRepository
	usage    UsageRecorder
	quota    quota.Store
	provider llm.Provider
	plans    config.PlanCatalog
	model    string
}

func NewService(ideas IdeaRepository, messages MessageRepository, usage UsageRecorder, qs quota.Store, provider llm.Provider, plans config.PlanCatalog, model string) *Service {
	return &Service{
		ideas:    ideas,
		messages: messages,
		usage:    usage,
		quota:    qs,
		provider: provider,
		plans:    plans,
		model:    model,
	}
}

// SendMessage runs one full exchange for the user on the given idea.
// Returns domain.ErrQuotaExceeded when the plan allowance is spent; the
// exchange is never retried in that case.
func (s *Service) SendMessage(ctx context.Context, user *domain.User, ideaID, content string) (*domain.SendMessageResult, error) {
	req, err := s.prepareExchange(ctx, user, ideaID, content)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Complete(ctx, req.llmReq)
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}

	return s.finalizeExchange(ctx, user, ideaID, content, resp.Content, resp.Usage)
}

// StreamMessage runs one exchange, invoking onChunk for every content delta
// before finalizing. The returned result carries the full assistant reply.
func (s *Service) StreamMessage(ctx context.Context, user *domain.User, ideaID, content string, onChunk func(delta string) error) (*domain.SendMessageResult, error) {
	req, err := s.prepareExchange(ctx, user, ideaID, content)
	if err != nil {
		return nil, err
	}

	stream, err := s.provider.CompleteStream(ctx, req.llmReq)
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	var usage llm.Usage
	for {
		chunk, err := stream.Next()
		if err != nil {
			break // io.EOF ends the stream
		}
		if chunk.Content != "" {
			reply.WriteString(chunk.Content)
			if err := onChunk(chunk.Content); err != nil {
				return nil, fmt.Errorf("stream consumer failed: %w", err)
			}
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
	}

	if reply.Len() == 0 {
		return nil, fmt.Errorf("provider returned an empty reply")
	}

	return s.finalizeExchange(ctx, user, ideaID, content, reply.String(), usage)
}

// Remaining reports the user's current reply allowance without consuming it.
func (s *Service) Remaining(ctx context.Context, user *domain.User) (int, error) {
	return s.quota.Remaining(ctx, user.ID, s.plans.Get(user.Plan))
}

// History returns an idea's chat transcript after an ownership check.
func (s *Service) History(user *domain.User, ideaID string) ([]domain.ChatMessage, error) {
	if _, err := s.ownedIdea(user, ideaID); err != nil {
		return nil, err
	}
	return s.messages.ListMessagesByIdea(ideaID, 200)
}

type exchangeRequest struct {
	llmReq llm.Request
}

// prepareExchange validates the send and builds the provider request. The
// allowance check happens here so an exhausted plan is rejected before any
// provider tokens are spent.
func (s *Service) prepareExchange(ctx context.Context, user *domain.User, ideaID, content string) (*exchangeRequest, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is empty")
	}
	if len(content) > maxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters", maxMessageLength)
	}

	idea, err := s.ownedIdea(user, ideaID)
	if err != nil {
		return nil, err
	}

	plan := s.plans.Get(user.Plan)
	remaining, err := s.quota.Remaining(ctx, user.ID, plan)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %v", err)
	}
	if !plan.Unlimited() && remaining <= 0 {
		return nil, domain.ErrQuotaExceeded
	}

	history, err := s.messages.ListMessagesByIdea(ideaID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %v", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf("%s\n\nIdea: %s\n%s", systemPrompt, idea.Title, idea.Description),
	})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: domain.RoleUser, Content: content})

	return &exchangeRequest{
		llmReq: llm.Request{
			Model:    s.model,
			Messages: messages,
		},
	}, nil
}

// finalizeExchange books the consumed reply and persists both messages.
// Consumption happens only after a successful provider call, so a failed
// exchange never costs allowance.
func (s *Service) finalizeExchange(ctx context.Context, user *domain.User, ideaID, userContent, assistantContent string, usage llm.Usage) (*domain.SendMessageResult, error) {
	plan := s.plans.Get(user.Plan)
	remaining, err := s.quota.Consume(ctx, user.ID, plan)
	if err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
		return nil, fmt.Errorf("failed to consume quota: %v", err)
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		// A concurrent send spent the last reply between the preflight
		// check and now. The provider reply is already paid for, so the
		// exchange completes; the reported allowance is simply zero.
		remaining = 0
	}

	userMsg, err := s.messages.CreateMessage(uuid.New().String(), ideaID, domain.RoleUser, userContent)
	if err != nil {
		return nil, fmt.Errorf("failed to persist user message: %v", err)
	}
	assistantMsg, err := s.messages.CreateMessage(uuid.New().String(), ideaID, domain.RoleAssistant, assistantContent)
	if err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %v", err)
	}

	domainUsage := domain.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}

	if err := s.usage.RecordTokenUsage(uuid.New().String(), user.ID, ideaID, s.model, domainUsage); err != nil {
		log.Printf("[CHAT] Warning: Failed to record token usage: %v", err)
	}
	if err := s.ideas.TouchIdea(ideaID); err != nil {
		log.Printf("[CHAT] Warning: Failed to touch idea: %v", err)
	}

	return &domain.SendMessageResult{
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
		RemainingReplies: remaining,
		Usage:            domainUsage,
	}, nil
}

func (s *Service) ownedIdea(user *domain.User, ideaID string) (*domain.Idea, error) {
	idea, err := s.ideas.GetIdeaByID(ideaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load idea: %v", err)
	}
	if idea == nil {
		return nil, domain.ErrIdeaNotFound
	}
	if idea.UserID != user.ID {
		return nil, domain.ErrNotIdeaOwner
	}
	return idea, nil
}
