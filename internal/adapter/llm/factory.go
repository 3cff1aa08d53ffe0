package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xiaot623/gogo/relay/internal/config"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewBackend creates the backend named by cfg.Provider. GOGO_MODE=MOCK
// overrides the configured provider with the mock backend.
func NewBackend(ctx context.Context, cfg config.GenerationConfig) (Backend, error) {
	provider := cfg.Provider
	if os.Getenv(EnvGogoMode) == ModeMock {
		slog.Info("GOGO_MODE=MOCK detected, using mock LLM backend")
		provider = config.ProviderMock
	}

	switch provider {
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.APIKey, cfg.BaseURL)
	case config.ProviderOpenAI:
		return NewOpenAIBackend(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicBackend(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderMock:
		return NewMockBackend(), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", provider)
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case config.ProviderOpenAI:
		return DefaultOpenAIModel
	case config.ProviderAnthropic:
		return DefaultAnthropicModel
	case config.ProviderMock:
		return DefaultMockModel
	default:
		return DefaultGeminiModel
	}
}

// NewClientFromConfig builds the backend and wraps it in a Client.
func NewClientFromConfig(ctx context.Context, cfg config.GenerationConfig) (*Client, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(backend.Name())
	}
	return NewClient(backend, Options{
		Model:     model,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}), nil
}
