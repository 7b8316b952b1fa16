package entities

import (
	"fmt"
	"strings"
	"time"
)

// TurnState represents the current stage of a dialogue turn
type TurnState string

const (
	TurnStateReceived             TurnState = "received"
	TurnStatePreprocessed         TurnState = "preprocessed"
	TurnStateTranscribed          TurnState = "transcribed"
	TurnStateEmptyTranscript      TurnState = "empty_transcript"
	TurnStateContextAssembled     TurnState = "context_assembled"
	TurnStateResponseGenerated    TurnState = "response_generated"
	TurnStateResponseFallback     TurnState = "response_fallback"
	TurnStatePersistenceScheduled TurnState = "persistence_scheduled"
	TurnStateSynthesized          TurnState = "synthesized"
	TurnStateDelivered            TurnState = "delivered"
)

// Transcript is the recognized speech for one turn. An empty Text means no
// speech was understood in any candidate language, which is a normal outcome.
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// IsEmpty reports whether no speech was recognized
func (t Transcript) IsEmpty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// DialogueTurn represents one request/response cycle of the voice pipeline.
// It lives for the duration of the request plus the background persistence
// step and is never stored.
type DialogueTurn struct {
	UserID               string     `json:"user_id"`
	Transcript           Transcript `json:"transcript"`
	Expression           string     `json:"expression,omitempty"`
	ExpressionConfidence float64    `json:"expression_confidence"`
	Context              string     `json:"context,omitempty"`
	Response             string     `json:"response"`
	AudioFilename        string     `json:"audio_filename,omitempty"`
	State                TurnState  `json:"state"`
	StartedAt            time.Time  `json:"started_at"`
}

// NewDialogueTurn creates a turn in the received state
func NewDialogueTurn(userID string) *DialogueTurn {
	return &DialogueTurn{
		UserID:    userID,
		State:     TurnStateReceived,
		StartedAt: time.Now(),
	}
}

// Advance moves the turn to the given state
func (t *DialogueTurn) Advance(state TurnState) {
	t.State = state
}

// ConversationText formats the exchange the way the memory service stores it
func (t *DialogueTurn) ConversationText() string {
	return fmt.Sprintf("User: %s\nAssistant: %s", t.Transcript.Text, t.Response)
}
