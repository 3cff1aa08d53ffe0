package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/internal/repository"
)

// ContextAssembler selects the prior turns sent along with a new message.
// The window is a message count, not a token budget.
type ContextAssembler struct {
	store  store.Store
	window int
}

// NewContextAssembler creates an assembler returning at most window turns.
func NewContextAssembler(s store.Store, window int) *ContextAssembler {
	if window <= 0 {
		window = store.DefaultRecentLimit
	}
	return &ContextAssembler{store: s, window: window}
}

// Window returns the number of turns the assembler keeps.
func (a *ContextAssembler) Window() int {
	return a.window
}

// Assemble returns the most recent turns of the session, oldest first.
func (a *ContextAssembler) Assemble(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	return a.assemble(ctx, sessionID, a.window)
}

func (a *ContextAssembler) assemble(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	messages, err := a.store.ListRecentMessagesAscending(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	turns := make([]domain.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, m.Turn())
	}
	return turns, nil
}
