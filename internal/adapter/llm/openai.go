package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured for the openai provider.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend implements Backend for OpenAI-compatible chat completion APIs.
type OpenAIBackend struct {
	client openai.Client
}

// Ensure OpenAIBackend implements Backend interface.
var _ Backend = (*OpenAIBackend)(nil)

// NewOpenAIBackend creates an OpenAI backend. An empty baseURL targets api.openai.com.
func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{client: openai.NewClient(opts...)}
}

func (b *OpenAIBackend) Name() string { return "openai" }

// GenerateContent maps the model role back to assistant and returns each
// choice as a candidate.
func (b *OpenAIBackend) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Contents))
	for _, c := range req.Contents {
		text := joinParts(c.Parts)
		if c.Role == ProviderRoleModel {
			msgs = append(msgs, openai.AssistantMessage(text))
		} else {
			msgs = append(msgs, openai.UserMessage(text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &Response{}
	for _, choice := range completion.Choices {
		out.Candidates = append(out.Candidates, Candidate{
			Content: &Content{
				Role:  ProviderRoleModel,
				Parts: []Part{{Text: choice.Message.Content}},
			},
		})
	}
	return out, nil
}

// ListModels lists the models visible to the API key.
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	iter := b.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		m := iter.Current()
		models = append(models, Model{Name: m.ID})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

func joinParts(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
