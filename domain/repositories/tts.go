package repositories

import "context"

// TextToSpeech abstracts text-to-speech services. Synthesis always happens in
// the configured output language regardless of the input language.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
