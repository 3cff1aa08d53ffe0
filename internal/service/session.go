package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

// ValidateSessionID rejects ids that are not UUIDs.
func ValidateSessionID(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("%w: session_id %q is not a valid UUID", domain.ErrInvalidInput, sessionID)
	}
	return nil
}

// CreateSession creates an empty session. An empty name becomes the default.
func (s *Service) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	session, err := s.store.CreateSession(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Debug("session created", "session_id", session.ID)
	return session, nil
}

// ListSessions returns sessions by recency. A non-positive limit uses the
// configured default.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = s.config.Conversation.SessionListLimit
	}
	sessions, err := s.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSessionHistory returns the session with its messages, oldest first.
func (s *Service) GetSessionHistory(ctx context.Context, sessionID string) (*domain.ChatHistory, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessagesAscending(ctx, sessionID, s.config.Conversation.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return &domain.ChatHistory{Session: *session, Messages: messages}, nil
}

// DeleteSession removes the session and its messages. Deleting an absent
// session succeeds.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (*domain.DeleteSessionResponse, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}

	s.publish(sessionID, domain.SessionEvent{
		Type:      domain.EventTypeSessionDeleted,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	})
	return &domain.DeleteSessionResponse{Message: "Session deleted successfully"}, nil
}

// GetSession returns the session or an error wrapping domain.ErrNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return session, nil
}
