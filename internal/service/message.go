package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/relay/internal/domain"
	"github.com/xiaot623/gogo/relay/policy"
)

// SendMessage runs one conversational turn: it persists the user message,
// generates a reply from the recent context and persists the reply.
//
// Once the session is resolved the turn runs to completion even if ctx is
// cancelled, bounded by the generation and store timeouts. Failures after
// the user message is stored are returned as is; nothing is rolled back.
func (s *Service) SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	if err := s.admit(ctx, req); err != nil {
		return nil, err
	}

	// Resolve session
	sessionID := req.SessionID
	if sessionID == "" {
		session, err := s.store.CreateSession(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = session.ID
	} else if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if s.locks != nil {
		unlock := s.locks.Lock(sessionID)
		defer unlock()
	}

	// A client disconnect must not leave a user message without its reply.
	ctx = context.WithoutCancel(ctx)

	userMsg, err := s.store.CreateMessage(ctx, sessionID, domain.RoleUser, req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// One extra row so the full window of prior turns survives dropping
	// the message just stored.
	window := s.assembler.Window()
	turns, err := s.assembler.assemble(ctx, sessionID, window+1)
	if err != nil {
		return nil, err
	}
	history := priorTurns(turns, userMsg, window)

	result := s.generator.GenerateResult(ctx, req.Content, history)
	if result.Err != nil {
		s.logger.Warn("generation failed, using fallback reply",
			"session_id", sessionID,
			"provider", result.Err.Provider,
			"error", result.Err.Err)
	}

	assistantMsg, err := s.store.CreateMessage(ctx, sessionID, domain.RoleAssistant, result.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	if err := s.store.TouchSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.publish(sessionID, domain.SessionEvent{
		Type:             domain.EventTypeTurnCompleted,
		Ts:               time.Now().UnixMilli(),
		SessionID:        sessionID,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})

	s.logger.Debug("turn completed", "session_id", sessionID, "history", len(history))

	return &domain.SendMessageResponse{
		SessionID:        sessionID,
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
	}, nil
}

// admit evaluates the admission policy before any store access.
func (s *Service) admit(ctx context.Context, req domain.SendMessageRequest) error {
	input := policy.NewInput(req.Content, req.SessionID == "", domain.MaxContentLength)
	if s.policyEngine == nil {
		if input.ContentLength == 0 || input.ContentLength > input.MaxLength {
			return fmt.Errorf("%w: content must be 1-%d characters", domain.ErrInvalidInput, input.MaxLength)
		}
		return nil
	}
	decision, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if !decision.Allowed() {
		reason := decision.Reason
		if reason == "" {
			reason = "message rejected by policy"
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, reason)
	}
	return nil
}

// priorTurns drops the just-stored user message from the assembled context;
// the generation client appends it as the final turn itself. When a
// concurrent turn stored a message after it, nothing is dropped. At most
// window turns are kept.
func priorTurns(turns []domain.Turn, userMsg *domain.Message, window int) []domain.Turn {
	if n := len(turns); n > 0 && turns[n-1] == userMsg.Turn() {
		turns = turns[:n-1]
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	return turns
}
