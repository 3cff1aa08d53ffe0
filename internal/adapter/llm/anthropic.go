package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel is used when no model is configured for the anthropic provider.
	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	// The Messages API requires max_tokens.
	defaultAnthropicMaxTokens = 1024
)

// AnthropicBackend implements Backend using the Anthropic Messages API.
type AnthropicBackend struct {
	client anthropic.Client
}

// Ensure AnthropicBackend implements Backend interface.
var _ Backend = (*AnthropicBackend)(nil)

// NewAnthropicBackend creates an Anthropic backend.
func NewAnthropicBackend(apiKey, baseURL string) *AnthropicBackend {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey), anthropicoption.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	return &AnthropicBackend{client: anthropic.NewClient(opts...)}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

// GenerateContent sends the turns as user/assistant messages and returns the
// text blocks of the reply as one candidate.
func (b *AnthropicBackend) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	msgs := make([]anthropic.MessageParam, 0, len(req.Contents))
	for _, c := range req.Contents {
		block := anthropic.NewTextBlock(joinParts(c.Parts))
		if c.Role == ProviderRoleModel {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}

	content := &Content{Role: ProviderRoleModel}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			content.Parts = append(content.Parts, Part{Text: block.Text})
		}
	}
	return &Response{Candidates: []Candidate{{Content: content}}}, nil
}

// ListModels lists the models available to the API key.
func (b *AnthropicBackend) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	iter := b.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	for iter.Next() {
		m := iter.Current()
		models = append(models, Model{Name: m.ID, DisplayName: m.DisplayName})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}
