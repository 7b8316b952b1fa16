package repositories

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the provider understood nothing in the audio.
// It is an expected outcome, distinct from a transport or service failure.
var ErrNoSpeech = errors.New("no speech recognized")

// RecognitionConfig represents audio configuration for speech recognition
type RecognitionConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Recognize converts audio data to text. Returns ErrNoSpeech when the
	// provider understood nothing; any other error is a service failure.
	Recognize(ctx context.Context, audioData []byte, config RecognitionConfig) (string, error)
	// RecognizeAlternatives requests the full result envelope including
	// low-confidence alternatives, best first.
	RecognizeAlternatives(ctx context.Context, audioData []byte, config RecognitionConfig, maxAlternatives int) ([]string, error)
}
