package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

// Fallback texts returned in place of a generated reply.
const (
	FallbackCapacity = "I'm currently at capacity. Please try again in a moment."
	FallbackSafety   = "I cannot respond to that message due to safety guidelines."
	FallbackGeneric  = "Sorry, I encountered an error processing your request. Please try again."
	NoResponseText   = "I received your message but couldn't generate a response."
)

// GenerationError is a provider failure that was replaced by a fallback text.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed [%s]: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a generation call. Text is always usable; Err is
// set when Text is a fallback for a provider failure.
type Result struct {
	Text string
	Err  *GenerationError
}

// Options configures a Client.
type Options struct {
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client wraps a Backend with the turn format, text extraction and failure
// mapping the conversation relies on.
type Client struct {
	backend   Backend
	model     string
	timeout   time.Duration
	maxTokens int
}

// NewClient creates a generation client over backend.
func NewClient(backend Backend, opts Options) *Client {
	return &Client{
		backend:   backend,
		model:     opts.Model,
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
	}
}

// Model returns the model used for generation.
func (c *Client) Model() string {
	return c.model
}

// Provider returns the backend name.
func (c *Client) Provider() string {
	return c.backend.Name()
}

// ListModels lists the models of the backend.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	return c.backend.ListModels(ctx)
}

// Generate returns the reply to userMessage given the prior history. It never
// fails: provider errors are replaced by a fallback text.
func (c *Client) Generate(ctx context.Context, userMessage string, history []domain.Turn) string {
	return c.GenerateResult(ctx, userMessage, history).Text
}

// GenerateResult is Generate with the provider failure, if any, attached.
func (c *Client) GenerateResult(ctx context.Context, userMessage string, history []domain.Turn) Result {
	req := &Request{
		Model:     c.model,
		Contents:  BuildContents(userMessage, history),
		MaxTokens: c.maxTokens,
	}

	resp, err := c.call(ctx, req)
	if err != nil {
		return Result{
			Text: FallbackText(err),
			Err:  &GenerationError{Provider: c.backend.Name(), Err: err},
		}
	}
	return Result{Text: ExtractText(resp)}
}

// call runs the backend request on its own goroutine and waits for it or for
// the deadline, whichever comes first.
func (c *Client) call(ctx context.Context, req *Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		resp, err := c.backend.GenerateContent(ctx, req)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-done:
		return o.resp, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BuildContents converts history into provider turns and appends userMessage
// as the final user turn.
func BuildContents(userMessage string, history []domain.Turn) []Content {
	contents := make([]Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, Content{
			Role:  ProviderRole(turn.Role),
			Parts: []Part{{Text: turn.Content}},
		})
	}
	contents = append(contents, Content{
		Role:  ProviderRoleUser,
		Parts: []Part{{Text: userMessage}},
	})
	return contents
}

// ProviderRole maps an internal role to the provider's role name.
func ProviderRole(role domain.Role) string {
	if role == domain.RoleAssistant {
		return ProviderRoleModel
	}
	return ProviderRoleUser
}

// ExtractText picks the reply text: the aggregated text if present, else the
// text parts of the first candidate, else a placeholder.
func ExtractText(resp *Response) string {
	if resp == nil {
		return NoResponseText
	}
	if resp.Text != "" {
		return resp.Text
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return NoResponseText
}

// FallbackText maps a provider failure to the text shown to the user.
func FallbackText(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		return FallbackCapacity
	case strings.Contains(msg, "safety"):
		return FallbackSafety
	default:
		return FallbackGeneric
	}
}
