package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "resp-1",
			"model": "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "Try a landing page test."},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
	defer srv.Close()

	p := openai.New(srv.URL, "test-key")
	resp, err := p.Complete(context.Background(), llm.Request{
		Model:    "test-model",
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "Try a landing page test.", resp.Content)
	assert.Equal(t, int64(20), resp.Usage.TotalTokens)
}

func TestCompleteMapsErrorClasses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, llm.ErrRateLimited},
		{http.StatusUnauthorized, llm.ErrAuthFailed},
		{http.StatusForbidden, llm.ErrAuthFailed},
		{http.StatusBadRequest, llm.ErrInvalidRequest},
		{http.StatusInternalServerError, llm.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := openai.New(srv.URL, "k")
			_, err := p.Complete(context.Background(), llm.Request{Model: "m"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCompleteStreamParsesSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"id":"s1","choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"s1","choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"s1","choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := openai.New(srv.URL, "k")
	stream, err := p.CompleteStream(context.Background(), llm.Request{Model: "m"})
	require.NoError(t, err)
	defer stream.Close()

	var content string
	var usage *llm.Usage
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content += chunk.Content
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	assert.Equal(t, "Hello", content)
	require.NotNil(t, usage)
	assert.Equal(t, int64(7), usage.TotalTokens)
}
