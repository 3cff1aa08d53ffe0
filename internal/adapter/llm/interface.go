// Package llm provides the generation client and its provider backends.
package llm

import "context"

// Provider-side roles. The internal assistant role is called "model" by the
// provider; backends for other vendors translate it back.
const (
	ProviderRoleUser  = "user"
	ProviderRoleModel = "model"
)

// Part is a fragment of a content turn.
type Part struct {
	Text string
}

// Content is one turn in the provider's expected format.
type Content struct {
	Role  string
	Parts []Part
}

// Request is a single generation call.
type Request struct {
	Model     string
	Contents  []Content
	MaxTokens int
}

// Candidate is one generated alternative.
type Candidate struct {
	Content *Content
}

// Response is the provider's answer. Text holds the provider's aggregated
// text when it offers one; Candidates hold the raw parts.
type Response struct {
	Text       string
	Candidates []Candidate
}

// Model describes a model offered by a backend.
type Model struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name,omitempty"`
	InputTokenLimit  int      `json:"input_token_limit,omitempty"`
	OutputTokenLimit int      `json:"output_token_limit,omitempty"`
	Actions          []string `json:"supported_actions,omitempty"`
}

// Backend defines the interface for a remote text-generation provider.
type Backend interface {
	// Name returns the provider identifier, e.g. "gemini", "openai".
	Name() string

	// GenerateContent sends one non-streaming generation request.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// ListModels retrieves the models that can generate content.
	ListModels(ctx context.Context) ([]Model, error)
}
