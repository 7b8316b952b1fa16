package tts

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/repositories"
)

// MockTextToSpeech is a placeholder synthesizer for running the server
// without ElevenLabs credentials
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock synthesizer
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// Synthesize returns a fixed placeholder payload instead of real audio
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	m.logger.Info("Mock synthesis", zap.Int("textLength", len(text)))
	return []byte("mock-audio:" + text), nil
}
