package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/repositories"
)

// MockSpeechToText is a placeholder recognizer for running the server without
// Google Cloud credentials
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Recognize returns a canned transcript based on audio size
func (s *MockSpeechToText) Recognize(ctx context.Context, audioData []byte, config repositories.RecognitionConfig) (string, error) {
	s.logger.Info("Processing mock speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", config.Language))

	switch {
	case len(audioData) == 0:
		return "", repositories.ErrNoSpeech
	case len(audioData) > 10000:
		return "I wanted to tell you about my day, it has been a lot.", nil
	case len(audioData) > 1000:
		return "Hello, how are you today?", nil
	default:
		return "Hi", nil
	}
}

// RecognizeAlternatives returns the single canned transcript as the only
// alternative
func (s *MockSpeechToText) RecognizeAlternatives(ctx context.Context, audioData []byte, config repositories.RecognitionConfig, maxAlternatives int) ([]string, error) {
	text, err := s.Recognize(ctx, audioData, config)
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}
