package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/config"
	"github.com/sells-group/compintel/pkg/anthropic"
	"github.com/sells-group/compintel/pkg/perplexity"
)

type mockAnthropicClient struct {
	req  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (m *mockAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestAnthropicProvider(t *testing.T) {
	t.Parallel()

	client := &mockAnthropicClient{
		resp: &anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{
				{Type: "text", Text: `{"entity":`},
				{Type: "text", Text: ` {}}`},
			},
			Usage: anthropic.TokenUsage{InputTokens: 900, OutputTokens: 300},
		},
	}

	p := NewAnthropicProvider(client, config.AnthropicConfig{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 2048,
	})

	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.Model())

	completion, err := p.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)

	// text blocks concatenate in order
	assert.Equal(t, `{"entity": {}}`, completion.Text)
	assert.Equal(t, 900, completion.InputTokens)
	assert.Equal(t, 300, completion.OutputTokens)

	assert.Equal(t, int64(2048), client.req.MaxTokens)
	require.Len(t, client.req.System, 1)
	assert.Equal(t, "system prompt", client.req.System[0].Text)
	require.Len(t, client.req.Messages, 1)
	assert.Equal(t, "user", client.req.Messages[0].Role)
}

func TestAnthropicProviderDefaults(t *testing.T) {
	t.Parallel()

	client := &mockAnthropicClient{resp: &anthropic.MessageResponse{}}
	p := NewAnthropicProvider(client, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"})

	_, err := p.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), client.req.MaxTokens, "max tokens falls back when unset")
}

func TestAnthropicProviderError(t *testing.T) {
	t.Parallel()

	client := &mockAnthropicClient{err: errors.New("overloaded")}
	p := NewAnthropicProvider(client, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"})

	_, err := p.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorContains(t, err, "overloaded")
}

type mockPerplexityClient struct {
	req  perplexity.ChatCompletionRequest
	resp *perplexity.ChatCompletionResponse
	err  error
}

func (m *mockPerplexityClient) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestPerplexityProvider(t *testing.T) {
	t.Parallel()

	client := &mockPerplexityClient{
		resp: &perplexity.ChatCompletionResponse{
			Choices: []perplexity.Choice{
				{Message: perplexity.Message{Role: "assistant", Content: `{"x": 1}`}},
			},
			Usage: perplexity.Usage{PromptTokens: 400, CompletionTokens: 150},
		},
	}

	p := NewPerplexityProvider(client, config.PerplexityConfig{Model: "sonar-pro"})

	assert.Equal(t, "perplexity", p.Name())
	assert.Equal(t, "sonar-pro", p.Model())

	completion, err := p.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1}`, completion.Text)
	assert.Equal(t, 400, completion.InputTokens)
	assert.Equal(t, 150, completion.OutputTokens)

	require.Len(t, client.req.Messages, 2)
	assert.Equal(t, "system", client.req.Messages[0].Role)
	assert.Equal(t, "user", client.req.Messages[1].Role)
}

func TestPerplexityProviderNoChoices(t *testing.T) {
	t.Parallel()

	client := &mockPerplexityClient{resp: &perplexity.ChatCompletionResponse{}}
	p := NewPerplexityProvider(client, config.PerplexityConfig{Model: "sonar"})

	_, err := p.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no choices")
}
