package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaot623/gogo/relay/internal/adapter/llm"
	"github.com/xiaot623/gogo/relay/internal/config"
	"github.com/xiaot623/gogo/relay/internal/hub"
	"github.com/xiaot623/gogo/relay/internal/repository"
	"github.com/xiaot623/gogo/relay/internal/service"
	"github.com/xiaot623/gogo/relay/policy"
)

// app holds the components built once at startup.
type app struct {
	store   *store.SQLiteStore
	llm     *llm.Client
	hub     *hub.Hub
	service *service.Service
}

// newApp builds the store, generation client and orchestrator from cfg.
// withHub adds the event hub; the caller must run it.
func newApp(ctx context.Context, cfg *config.Config, withHub bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := store.Open(store.Options{
		Driver:    cfg.Store.Driver,
		DSN:       cfg.Store.URL,
		PoolSize:  cfg.Store.PoolSize,
		OpTimeout: cfg.Store.OpTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	llmClient, err := llm.NewClientFromConfig(ctx, cfg.Generation)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	policyEngine, err := policy.LoadEngine(ctx, cfg.PolicyFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	a := &app{store: db, llm: llmClient}
	var publisher service.Publisher
	if withHub {
		a.hub = hub.New()
		publisher = a.hub
	}
	a.service = service.New(db, llmClient, cfg, policyEngine, publisher)

	slog.Info("relay initialized",
		"driver", cfg.Store.Driver,
		"provider", llmClient.Provider(),
		"model", llmClient.Model(),
		"context_window", cfg.Conversation.ContextWindow,
		"policy_file", cfg.PolicyFile,
		"serialize_turns", cfg.Conversation.SerializeTurns)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
