package agent

import (
	"context"
	"fmt"

	"github.com/avacare/server/domain/repositories"
)

// MockAgent is a placeholder conversational agent for running the server
// without a Gemini API key
type MockAgent struct{}

// NewMockAgent creates a new mock agent
func NewMockAgent() repositories.ConversationalAgent {
	return &MockAgent{}
}

// StreamTurn emits a single snapshot with a canned reply derived from the
// last user message
func (m *MockAgent) StreamTurn(ctx context.Context, messages []repositories.ChatMessage) (<-chan repositories.TurnSnapshot, error) {
	var lastUser string
	for _, msg := range messages {
		if msg.Role == repositories.UserRole {
			lastUser = msg.Content
		}
	}

	response := "Thank you for sharing that with me. What else is on your mind?"
	if lastUser != "" {
		response = fmt.Sprintf("I hear you. When you say %q, how does that make you feel?", lastUser)
	}

	snapshots := make(chan repositories.TurnSnapshot, 1)
	state := make([]repositories.ChatMessage, 0, len(messages)+1)
	state = append(state, messages...)
	state = append(state, repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: response,
	})
	snapshots <- repositories.TurnSnapshot{Messages: state}
	close(snapshots)
	return snapshots, nil
}
