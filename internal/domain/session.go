package domain

import "time"

// Session represents a conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"session_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single message in a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is the role/content projection of a message used as generation input.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn returns the generation input form of m.
func (m Message) Turn() Turn {
	return Turn{Role: m.Role, Content: m.Content}
}
