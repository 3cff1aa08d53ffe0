package domain

// CreateSessionRequest is the body of a session creation request.
type CreateSessionRequest struct {
	Name string `json:"session_name"`
}

// SendMessageRequest carries one inbound user message.
// An empty SessionID starts a new session.
type SendMessageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// SendMessageResponse is the result of a completed turn.
type SendMessageResponse struct {
	SessionID        string  `json:"session_id"`
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}

// ChatHistory is a session together with its messages, oldest first.
type ChatHistory struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// DeleteSessionResponse acknowledges a deletion.
type DeleteSessionResponse struct {
	Message string `json:"message"`
}

// SessionEvent is pushed to websocket subscribers of a session.
type SessionEvent struct {
	Type             EventType `json:"type"`
	Ts               int64     `json:"ts"` // Unix milliseconds
	SessionID        string    `json:"session_id"`
	UserMessage      *Message  `json:"user_message,omitempty"`
	AssistantMessage *Message  `json:"assistant_message,omitempty"`
}
