// Package domain defines the core domain models for the relay.
package domain

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// EventType represents the type of a session event pushed to subscribers.
type EventType string

const (
	EventTypeTurnCompleted  EventType = "turn_completed"
	EventTypeSessionDeleted EventType = "session_deleted"
)

const (
	// DefaultSessionName is used when a session is created without a name.
	DefaultSessionName = "New Chat"

	// MaxContentLength is the upper bound of message content, in characters.
	MaxContentLength = 5000
)
