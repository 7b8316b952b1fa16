package stt

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/entities"
	"github.com/avacare/server/domain/repositories"
)

const maxEnvelopeAlternatives = 5

// DefaultLanguages is the ordered candidate list: primary first
var DefaultLanguages = []string{"en-US", "hi-IN"}

// Cascade runs recognition attempts in a fixed order, first success wins:
// primary language, secondary language, then the primary language once more
// requesting the full alternatives envelope. Exhausting every step without a
// transport error yields an empty transcript, which is a normal outcome.
type Cascade struct {
	stt       repositories.SpeechToText
	languages []string
	logger    *zap.Logger
}

// NewCascade creates a transcription cascade over the given provider and
// ordered language candidates
func NewCascade(stt repositories.SpeechToText, languages []string, logger *zap.Logger) *Cascade {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Cascade{stt: stt, languages: languages, logger: logger}
}

// Transcribe runs the cascade over canonical audio. A transport error at any
// step is fatal; "nothing understood" at every step returns an empty
// transcript and a nil error.
func (c *Cascade) Transcribe(ctx context.Context, audioData []byte, sampleRate int) (entities.Transcript, error) {
	for _, lang := range c.languages {
		config := repositories.RecognitionConfig{
			SampleRate: sampleRate,
			Encoding:   "LINEAR16",
			Language:   lang,
		}

		text, err := c.stt.Recognize(ctx, audioData, config)
		if err == nil {
			c.logger.Info("Transcription succeeded",
				zap.String("language", lang),
				zap.Int("length", len(text)))
			return entities.Transcript{Text: text, Language: lang}, nil
		}
		if !errors.Is(err, repositories.ErrNoSpeech) {
			return entities.Transcript{}, err
		}
		c.logger.Info("No speech understood, falling back", zap.String("language", lang))
	}

	// Last chance: primary language with the full result envelope, accepting
	// the first low-confidence alternative if one exists
	primary := c.languages[0]
	config := repositories.RecognitionConfig{
		SampleRate: sampleRate,
		Encoding:   "LINEAR16",
		Language:   primary,
	}
	alternatives, err := c.stt.RecognizeAlternatives(ctx, audioData, config, maxEnvelopeAlternatives)
	if err != nil {
		if errors.Is(err, repositories.ErrNoSpeech) {
			c.logger.Info("No speech understood in any candidate language")
			return entities.Transcript{}, nil
		}
		return entities.Transcript{}, err
	}
	if len(alternatives) > 0 && alternatives[0] != "" {
		c.logger.Info("Accepted low-confidence alternative", zap.String("language", primary))
		return entities.Transcript{Text: alternatives[0], Language: primary}, nil
	}
	return entities.Transcript{}, nil
}
