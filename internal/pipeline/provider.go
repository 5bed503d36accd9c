package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compintel/internal/config"
	"github.com/sells-group/compintel/pkg/anthropic"
	"github.com/sells-group/compintel/pkg/perplexity"
)

// Provider issues a single prompt to an LLM and returns the raw text
// completion plus token usage. Transport failures surface as errors and are
// the only error class the pipeline propagates.
type Provider interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
	Name() string
	Model() string
}

// Completion is a provider-neutral LLM response.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// anthropicProvider adapts the Anthropic message API to Provider.
type anthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider wraps an Anthropic client as a Provider.
func NewAnthropicProvider(client anthropic.Client, cfg config.AnthropicConfig) Provider {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &anthropicProvider{client: client, model: cfg.Model, maxTokens: maxTokens}
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Complete(ctx context.Context, system, user string) (*Completion, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.SystemBlock{{Text: system}},
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: anthropic completion")
	}

	var text string
	for _, block := range resp.Content {
		if block.Text != "" {
			text += block.Text
		}
	}

	return &Completion{
		Text:         text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// perplexityProvider adapts the Perplexity chat API to Provider.
type perplexityProvider struct {
	client perplexity.Client
	model  string
}

// NewPerplexityProvider wraps a Perplexity client as a Provider.
func NewPerplexityProvider(client perplexity.Client, cfg config.PerplexityConfig) Provider {
	return &perplexityProvider{client: client, model: cfg.Model}
}

func (p *perplexityProvider) Name() string  { return "perplexity" }
func (p *perplexityProvider) Model() string { return p.model }

func (p *perplexityProvider) Complete(ctx context.Context, system, user string) (*Completion, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: p.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: perplexity completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("pipeline: perplexity returned no choices")
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
