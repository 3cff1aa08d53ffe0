package llm

import (
	"context"
	"fmt"
	"slices"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured for the gemini provider.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend implements Backend using the Gemini API.
type GeminiBackend struct {
	client *genai.Client
}

// Ensure GeminiBackend implements Backend interface.
var _ Backend = (*GeminiBackend)(nil)

// NewGeminiBackend creates a Gemini backend. baseURL is optional and only
// needed to point at a proxy or a test server.
func NewGeminiBackend(ctx context.Context, apiKey, baseURL string) (*GeminiBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

// GenerateContent sends the turns as-is; Gemini already uses the user/model roles.
func (b *GeminiBackend) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		gc := &genai.Content{Role: c.Role}
		for _, p := range c.Parts {
			gc.Parts = append(gc.Parts, genai.NewPartFromText(p.Text))
		}
		contents = append(contents, gc)
	}

	var config *genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	}

	resp, err := b.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, err
	}

	out := &Response{Text: resp.Text()}
	for _, cand := range resp.Candidates {
		var c Candidate
		if cand.Content != nil {
			c.Content = &Content{Role: cand.Content.Role}
			for _, p := range cand.Content.Parts {
				if p != nil && p.Text != "" {
					c.Content.Parts = append(c.Content.Parts, Part{Text: p.Text})
				}
			}
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out, nil
}

// ListModels returns the models that support generateContent.
func (b *GeminiBackend) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	for m, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		if len(m.SupportedActions) > 0 && !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		models = append(models, Model{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			InputTokenLimit:  int(m.InputTokenLimit),
			OutputTokenLimit: int(m.OutputTokenLimit),
			Actions:          m.SupportedActions,
		})
	}
	return models, nil
}
