package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a titled container of ordered messages belonging to one user.
// MessageCount is populated on list queries, Messages on single fetches.
type Conversation struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
}

// Message is a single turn. Timestamp is the client-supplied ordering key in
// milliseconds since epoch; messages are immutable once stored.
type Message struct {
	ID        int64     `json:"id,string"`
	ConvID    int64     `json:"-"`
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"-"`
}

// ChatTurn is one entry of the prompt sent to the completion provider.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StringPtr returns a pointer to s, for the nullable contact columns.
func StringPtr(s string) *string {
	return &s
}
