package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Wire types mirroring the backend's JSON shapes.

type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Plan      string `json:"plan"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// SendMessageResult is one completed AI exchange. RemainingReplies is the
// server's authoritative allowance after the exchange and is what feeds
// the Ledger.
type SendMessageResult struct {
	UserMessage      ChatMessage `json:"userMessage"`
	AssistantMessage ChatMessage `json:"assistantMessage"`
	RemainingReplies int         `json:"remainingReplies"`
	Usage            Usage       `json:"usage"`
}

type authData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// Login signs in with email and password and persists the issued pair.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var data authData
	err := c.Do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(TokenPair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %v", err)
	}
	return data.User, nil
}

// Register creates an account and persists the issued pair.
func (c *Client) Register(ctx context.Context, email, name, password string) (*User, error) {
	var data authData
	err := c.Do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}, &data)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(TokenPair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %v", err)
	}
	return data.User, nil
}

// Logout revokes the session server-side and clears local credentials
// regardless of the server's answer.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil {
		return clearErr
	}
	return err
}

// SendMessage runs one AI exchange on an idea.
func (c *Client) SendMessage(ctx context.Context, ideaID, content string) (*SendMessageResult, error) {
	var result SendMessageResult
	err := c.Do(ctx, http.MethodPost, "/api/ideas/"+ideaID+"/chat", map[string]string{
		"content": content,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// QuotaStatus is the /api/quota payload.
type QuotaStatus struct {
	RemainingReplies int    `json:"remainingReplies"`
	Plan             string `json:"plan"`
}

// Quota fetches the current allowance without consuming any of it.
func (c *Client) Quota(ctx context.Context) (*QuotaStatus, error) {
	var status QuotaStatus
	if err := c.Do(ctx, http.MethodGet, "/api/quota", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
