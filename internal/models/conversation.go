package models

import "time"

// MessageRole is the sender of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MaxMessageContentLength bounds stored message content.
const MaxMessageContentLength = 10000

// Conversation is a chat thread between one user and the assistant.
// Threads are created implicitly on the first message and only ever
// soft-deleted by the interactive path; an out-of-band archival job
// moves old soft-deleted threads to cold storage.
type Conversation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ConversationSummary is the listing shape returned to the UI.
type ConversationSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Message is one turn half inside a conversation. Messages are
// append-only: nothing updates a row after creation except the
// soft-delete marker, set in lockstep with the parent conversation.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID string      `json:"conversation_id"`
	UserID         string      `json:"user_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}
