package mock

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/sparkpad-app/sparkpad/backend/internal/llm"
)

// Provider is a mock LLM provider for tests.
type Provider struct {
	callCount    atomic.Int64
	staticErr    error
	usage        llm.Usage
	responseFunc func(llm.Request) (llm.Response, error)
}

var _ llm.Provider = (*Provider)(nil)

// Option configures a mock Provider.
type Option func(*Provider)

// New creates a mock provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		usage: llm.Usage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithError makes the provider always return this error.
func WithError(err error) Option {
	return func(p *Provider) { p.staticErr = err }
}

// WithUsage sets the usage returned by the mock.
func WithUsage(u llm.Usage) Option {
	return func(p *Provider) { p.usage = u }
}

// WithResponseFunc sets a custom response function.
func WithResponseFunc(fn func(llm.Request) (llm.Response, error)) Option {
	return func(p *Provider) { p.responseFunc = fn }
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	p.callCount.Add(1)

	if p.staticErr != nil {
		return llm.Response{}, p.staticErr
	}

	if p.responseFunc != nil {
		return p.responseFunc(req)
	}

	return llm.Response{
		ID:           "mock-response-id",
		Content:      "Here is a thought to build on that idea.",
		FinishReason: "stop",
		Model:        req.Model,
		Usage:        p.usage,
	}, nil
}

func (p *Provider) CompleteStream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	return &mockStream{
		chunks: []llm.Chunk{
			{ID: resp.ID, Content: resp.Content},
			{ID: resp.ID, Done: true, Usage: &resp.Usage},
		},
	}, nil
}

// CallCount returns the number of completion calls made.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }

type mockStream struct {
	chunks []llm.Chunk
	index  int
}

func (s *mockStream) Next() (llm.Chunk, error) {
	if s.index >= len(s.chunks) {
		return llm.Chunk{}, io.EOF
	}
	chunk := s.chunks[s.index]
	s.index++
	return chunk, nil
}

func (s *mockStream) Close() error { return nil }
