package llm

import (
	"context"
	"fmt"
)

// DefaultMockModel is reported by the mock backend.
const DefaultMockModel = "mock-chat"

// MockBackend is a deterministic Backend for local runs and tests.
type MockBackend struct{}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Ensure MockBackend implements Backend interface.
var _ Backend = (*MockBackend)(nil)

func (m *MockBackend) Name() string { return "mock" }

// GenerateContent echoes the last user turn.
func (m *MockBackend) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return &Response{
		Candidates: []Candidate{{
			Content: &Content{
				Role:  ProviderRoleModel,
				Parts: []Part{{Text: m.generateMockResponse(req)}},
			},
		}},
	}, nil
}

// ListModels returns a list of mock models.
func (m *MockBackend) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{Name: DefaultMockModel, DisplayName: "Mock Chat", Actions: []string{"generateContent"}},
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockBackend) generateMockResponse(req *Request) string {
	var lastUserMessage string
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == ProviderRoleUser {
			lastUserMessage = joinParts(req.Contents[i].Parts)
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q (%d turns of context). This is a mock response.",
		truncate(lastUserMessage, 100), len(req.Contents)-1)
}

// truncate truncates a string to the given number of characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
