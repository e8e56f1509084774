// Package apiclient is the Go SDK for the Sparkpad backend. It wraps every
// outbound call with bearer-token injection and recovers from expired access
// tokens via a single-flight refresh: the first 401 starts one refresh-token
// exchange, concurrent 401s wait for its outcome, and every waiting call is
// replayed exactly once with the new pair. Quota failures (402) pass through
// untouched; they are business state, not a credential problem.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Client issues authenticated calls against the backend. All methods are
// safe for concurrent use; the refresh protocol is serialized internally.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore

	// onAuthExpired fires once per irrecoverable refresh failure, after
	// the stored credentials have been cleared. The app uses it to route
	// to the sign-in flow.
	onAuthExpired func()

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuthExpiredHandler registers the sign-in redirect hook.
func WithAuthExpiredHandler(fn func()) Option {
	return func(c *Client) {
		c.onAuthExpired = fn
	}
}

func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		store: store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues one call with the current access token attached and decodes the
// envelope's data field into out (which may be nil). A 401 triggers the
// refresh protocol and a single transparent replay; a 402 comes back as
// *QuotaError; everything else non-2xx comes back as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, out, false)
}

// retried marks a call already replayed after a refresh: a second 401 is
// final for it, so one original call can never force two refreshes.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, retried bool) error {
	pair, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %v", err)
	}

	status, respBody, err := c.roundTrip(ctx, method, path, body, pair.AccessToken)
	if err != nil {
		return err
	}

	switch {
	case status >= 200 && status < 300:
		return decodeData(respBody, out)

	case status == http.StatusUnauthorized:
		if retried {
			return fmt.Errorf("%w: request rejected after token refresh", ErrAuthRequired)
		}
		if err := c.refresh(ctx, pair.AccessToken); err != nil {
			return err
		}
		return c.do(ctx, method, path, body, out, true)

	case status == http.StatusPaymentRequired:
		env := parseEnvelope(respBody)
		qe := &QuotaError{Code: "QUOTA_EXCEEDED"}
		if env.Error != nil {
			qe.Code = env.Error.Code
			qe.Message = env.Error.Message
		}
		return qe

	default:
		env := parseEnvelope(respBody)
		ae := &APIError{StatusCode: status}
		if env.Error != nil {
			ae.Code = env.Error.Code
			ae.Message = env.Error.Message
		}
		return ae
	}
}

// roundTrip performs one HTTP exchange. Transport-level failures (no
// connectivity, timeout) surface as plain errors, never as a refresh
// trigger.
func (c *Client) roundTrip(ctx context.Context, method, path string, body interface{}, accessToken string) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %v", err)
	}
	return resp.StatusCode, respBody, nil
}

// refresh runs the single-flight refresh protocol. The first caller
// performs the refresh-token exchange; callers arriving while it is in
// flight park on a channel and share its outcome. Waiters are notified in
// arrival order. failedAccess is the token the caller saw rejected: if the
// stored pair has already rotated past it, the exchange is skipped and the
// caller just replays with the committed pair.
func (c *Client) refresh(ctx context.Context, failedAccess string) error {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan error, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	err := c.doRefresh(ctx, failedAccess)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// doRefresh exchanges the stored refresh token for a new pair. The call
// deliberately carries no access token so an expired one cannot fail it.
// On success the new pair is persisted before any waiter is released; on
// failure the stored credentials are purged and the sign-in hook fires.
func (c *Client) doRefresh(ctx context.Context, failedAccess string) error {
	pair, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %v", err)
	}
	if pair.AccessToken != "" && pair.AccessToken != failedAccess {
		// A refresh committed after this call's failed attempt. The
		// stored pair is already fresh; no exchange needed.
		return nil
	}
	if pair.RefreshToken == "" {
		return c.failRefresh(fmt.Errorf("%w: no refresh token stored", ErrAuthRequired))
	}

	status, respBody, err := c.roundTrip(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": pair.RefreshToken,
	}, "")
	if err != nil {
		// Transport failure: the refresh token may still be good, so the
		// credentials survive for a later attempt.
		return fmt.Errorf("token refresh failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return c.failRefresh(fmt.Errorf("%w: refresh token rejected", ErrAuthRequired))
	}

	var fresh TokenPair
	if err := decodeData(respBody, &fresh); err != nil {
		return c.failRefresh(fmt.Errorf("%w: malformed refresh response", ErrAuthRequired))
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		return c.failRefresh(fmt.Errorf("%w: incomplete refresh response", ErrAuthRequired))
	}

	if err := c.store.Save(fresh); err != nil {
		return fmt.Errorf("failed to persist credentials: %v", err)
	}
	return nil
}

func (c *Client) failRefresh(err error) error {
	c.store.Clear()
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
	return err
}

func parseEnvelope(body []byte) envelope {
	var env envelope
	json.Unmarshal(body, &env)
	return env
}

func decodeData(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	env := parseEnvelope(body)
	if env.Data == nil {
		return fmt.Errorf("response carries no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %v", err)
	}
	return nil
}
