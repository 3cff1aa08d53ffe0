// Package service implements the conversation orchestration.
package service

import (
	"context"
	"log/slog"

	"github.com/xiaot623/gogo/relay/internal/adapter/llm"
	"github.com/xiaot623/gogo/relay/internal/config"
	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/internal/repository"
	"github.com/xiaot623/gogo/relay/policy"
)

// Generator produces the assistant reply for a turn. Implemented by *llm.Client.
type Generator interface {
	GenerateResult(ctx context.Context, userMessage string, history []domain.Turn) llm.Result
	Model() string
}

// Publisher pushes session events to live subscribers. Implemented by *hub.Hub.
type Publisher interface {
	Publish(sessionID string, event domain.SessionEvent)
}

type Service struct {
	store        store.Store
	generator    Generator
	assembler    *ContextAssembler
	policyEngine *policy.Engine
	publisher    Publisher
	config       *config.Config
	locks        *keyedLocker
	logger       *slog.Logger
}

// New wires the orchestrator. publisher may be nil when no live subscribers
// are served.
func New(store store.Store, generator Generator, cfg *config.Config, policyEngine *policy.Engine, publisher Publisher) *Service {
	s := &Service{
		store:        store,
		generator:    generator,
		assembler:    NewContextAssembler(store, cfg.Conversation.ContextWindow),
		policyEngine: policyEngine,
		publisher:    publisher,
		config:       cfg,
		logger:       slog.Default().With("component", "service"),
	}
	if cfg.Conversation.SerializeTurns {
		s.locks = newKeyedLocker()
	}
	return s
}

// Model returns the generation model in use.
func (s *Service) Model() string {
	return s.generator.Model()
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) publish(sessionID string, event domain.SessionEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(sessionID, event)
}
