// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

const (
	// DefaultSessionListLimit bounds ListSessions when no limit is given.
	DefaultSessionListLimit = 20
	// DefaultHistoryLimit bounds ListMessagesAscending when no limit is given.
	DefaultHistoryLimit = 50
	// DefaultRecentLimit bounds ListRecentMessagesAscending when no limit is given.
	DefaultRecentLimit = 10
)

// Store defines the interface for data persistence.
//
// Failures are reported as errors wrapping domain.ErrStoreUnavailable or
// domain.ErrNotFound. Lookups of a single absent record return (nil, nil).
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, name string) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
	TouchSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Message operations
	CreateMessage(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Message, error)
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	ListMessagesAscending(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	ListRecentMessagesAscending(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
