package intel

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadpilot/internal/resilience"
	"github.com/sells-group/leadpilot/pkg/anthropic"
	"github.com/sells-group/leadpilot/pkg/jina"
	"github.com/sells-group/leadpilot/pkg/perplexity"
)

type mockPerplexity struct{ mock.Mock }

func (m *mockPerplexity) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*perplexity.ChatCompletionResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockJina struct{ mock.Mock }

func (m *mockJina) Read(ctx context.Context, targetURL string, _ ...jina.ReadOption) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if v := args.Get(0); v != nil {
		return v.(*jina.ReadResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJina) Search(ctx context.Context, query string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.(*jina.SearchResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAnthropic struct{ mock.Mock }

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// noRetry makes every remote failure final so tests stay fast.
func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func pplxText(text string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: text}}},
	}
}

func claudeText(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Model:   "claude-test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
