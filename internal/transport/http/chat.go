package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/chat"
)

type ChatHandler struct {
	Chat     *chat.Service
	UserRepo *postgres.UserRepo
}

func NewChatHandler(chatService *chat.Service, userRepo *postgres.UserRepo) *ChatHandler {
	return &ChatHandler{
		Chat:     chatService,
		UserRepo: userRepo,
	}
}

// SendMessage runs one AI exchange on an idea. The response always carries
// remainingReplies so clients can mirror the server's allowance; an
// exhausted plan gets 402 with code QUOTA_EXCEEDED and nothing consumed.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Message content is required")
		return
	}
	if len(req.Content) > 4000 {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Message must be at most 4000 characters")
		return
	}

	result, err := h.Chat.SendMessage(c.Request.Context(), user, c.Param("id"), req.Content)
	if err != nil {
		h.sendChatError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	messages, err := h.Chat.History(user, c.Param("id"))
	if err != nil {
		h.sendChatError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"messages": messages})
}

// Quota reports the remaining reply allowance without consuming it.
func (h *ChatHandler) Quota(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	remaining, err := h.Chat.Remaining(c.Request.Context(), user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to check quota")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"remainingReplies": remaining,
		"plan":             user.Plan,
	})
}

func (h *ChatHandler) currentUser(c *gin.Context) (*domain.User, bool) {
	userID := c.GetInt64("user_id")
	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return nil, false
	}
	return user, true
}

func (h *ChatHandler) sendChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		sendError(c, http.StatusPaymentRequired, domain.CodeQuotaExceeded, "Daily reply limit reached. Upgrade your plan for more.")
	case errors.Is(err, domain.ErrIdeaNotFound), errors.Is(err, domain.ErrNotIdeaOwner):
		sendError(c, http.StatusNotFound, domain.CodeNotFound, "Idea not found")
	case errors.Is(err, llm.ErrRateLimited):
		sendError(c, http.StatusTooManyRequests, domain.CodeRateLimited, "AI provider is busy, try again shortly")
	case errors.Is(err, llm.ErrInvalidRequest):
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "AI provider rejected the request")
	case errors.Is(err, llm.ErrAuthFailed), errors.Is(err, llm.ErrUnavailable):
		sendError(c, http.StatusBadGateway, domain.CodeInternal, "AI provider is unavailable")
	default:
		log.Printf("[CHAT] Exchange failed: %v", err)
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to process message")
	}
}
