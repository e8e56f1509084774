package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/chat"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
)

// clientMessage is what the app sends over the socket. The first message
// must be an init carrying the JWT; after that, send messages drive
// streamed AI exchanges.
type clientMessage struct {
	Type    string `json:"type"` // "init" or "send"
	JWT     string `json:"jwt,omitempty"`
	IdeaID  string `json:"ideaId,omitempty"`
	Content string `json:"content,omitempty"`
}

type serverMessage struct {
	Type             string              `json:"type"` // "ready", "chunk", "done", "error"
	Content          string              `json:"content,omitempty"`
	Code             string              `json:"code,omitempty"`
	Message          string              `json:"message,omitempty"`
	UserMessage      *domain.ChatMessage `json:"userMessage,omitempty"`
	AssistantMessage *domain.ChatMessage `json:"assistantMessage,omitempty"`
	RemainingReplies *int                `json:"remainingReplies,omitempty"`
	Usage            *domain.Usage       `json:"usage,omitempty"`
}

// Handler upgrades chat connections and streams assistant replies chunk by
// chunk. Streaming is a plan entitlement; free-tier sockets are told to use
// the plain HTTP endpoint instead.
type Handler struct {
	Chat        *chat.Service
	UserRepo    *postgres.UserRepo
	AuthService *session.AuthService
	Plans       config.PlanCatalog
	Upgrader    websocket.Upgrader
}

func NewHandler(chatService *chat.Service, userRepo *postgres.UserRepo, authService *session.AuthService, plans config.PlanCatalog) *Handler {
	return &Handler{
		Chat:        chatService,
		UserRepo:    userRepo,
		AuthService: authService,
		Plans:       plans,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket is the HTTP handler that upgrades the connection.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleConnection(conn)
}

func (h *Handler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	// Writes come from both the pinger and the stream loop.
	var writeMu sync.Mutex
	send := func(msg serverMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// 1. Wait for init with credentials
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[WS] Read error during init: %v", err)
		return
	}

	var initMsg clientMessage
	if err := json.Unmarshal(data, &initMsg); err != nil || initMsg.Type != "init" || initMsg.JWT == "" {
		send(serverMessage{Type: "error", Code: domain.CodeAuthRequired, Message: "First message must be an init with a JWT"})
		return
	}

	claims, err := h.AuthService.ValidateToken(initMsg.JWT)
	if err != nil {
		send(serverMessage{Type: "error", Code: domain.CodeAuthExpired, Message: "Invalid token or session expired"})
		return
	}

	user, err := h.UserRepo.GetUserByID(claims.UserID)
	if err != nil || user == nil {
		send(serverMessage{Type: "error", Code: domain.CodeInternal, Message: "Failed to load user"})
		return
	}

	if !h.Plans.Get(user.Plan).StreamingChat {
		send(serverMessage{Type: "error", Code: domain.CodeQuotaExceeded, Message: "Streaming chat requires a paid plan"})
		return
	}

	sessionID := claims.SessionID
	log.Printf("[WS] Connection initialized for user %d", user.ID)
	send(serverMessage{Type: "ready"})

	// 2. Main message loop
	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] User %d disconnected unexpectedly: %v", user.ID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(serverMessage{Type: "error", Code: domain.CodeBadRequest, Message: "Invalid message format"})
			continue
		}
		if msg.Type != "send" {
			continue
		}

		// Per-message session check: a login on another device kills
		// this socket on its next send.
		sess, err := h.AuthService.GetSession(sessionID)
		if err != nil || sess == nil || !sess.IsActive {
			send(serverMessage{Type: "error", Code: domain.CodeAuthExpired, Message: "Session expired or logged out"})
			return
		}

		h.streamExchange(send, user, msg)
	}
}

// streamExchange runs one send through the chat service, forwarding deltas
// as chunk frames and closing with a done frame that carries the persisted
// messages and the remaining allowance.
func (h *Handler) streamExchange(send func(serverMessage) error, user *domain.User, msg clientMessage) {
	result, err := h.Chat.StreamMessage(context.Background(), user, msg.IdeaID, msg.Content, func(delta string) error {
		return send(serverMessage{Type: "chunk", Content: delta})
	})
	if err != nil {
		send(serverMessage{Type: "error", Code: streamErrorCode(err), Message: streamErrorMessage(err)})
		return
	}

	remaining := result.RemainingReplies
	send(serverMessage{
		Type:             "done",
		UserMessage:      &result.UserMessage,
		AssistantMessage: &result.AssistantMessage,
		RemainingReplies: &remaining,
		Usage:            &result.Usage,
	})
}

func streamErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return domain.CodeQuotaExceeded
	case errors.Is(err, domain.ErrIdeaNotFound), errors.Is(err, domain.ErrNotIdeaOwner):
		return domain.CodeNotFound
	case errors.Is(err, llm.ErrRateLimited):
		return domain.CodeRateLimited
	default:
		return domain.CodeInternal
	}
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "Daily reply limit reached. Upgrade your plan for more."
	case errors.Is(err, domain.ErrIdeaNotFound), errors.Is(err, domain.ErrNotIdeaOwner):
		return "Idea not found"
	case errors.Is(err, llm.ErrRateLimited):
		return "AI provider is busy, try again shortly"
	default:
		log.Printf("[WS] Exchange failed: %v", err)
		return "Failed to process message"
	}
}
