package repositories

import "context"

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// TurnSnapshot is one state emitted by the agent while it produces a turn.
// Messages holds the full message list as of this snapshot; Err carries a
// mid-stream failure (the channel is closed after it).
type TurnSnapshot struct {
	Messages []ChatMessage
	Err      error
}

// ConversationalAgent abstracts the turn-taking reasoning service. The caller
// consumes the snapshot stream and keeps the last assistant-authored message
// as the canonical response.
type ConversationalAgent interface {
	StreamTurn(ctx context.Context, messages []ChatMessage) (<-chan TurnSnapshot, error)
}
