package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/avacare/server/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud using the
// synchronous Recognize API
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a new Google Cloud speech adapter
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// Recognize converts audio data to text in the configured language
func (g *GoogleSpeechToText) Recognize(ctx context.Context, audioData []byte, config repositories.RecognitionConfig) (string, error) {
	alternatives, err := g.recognize(ctx, audioData, config, 1)
	if err != nil {
		return "", err
	}
	return alternatives[0], nil
}

// RecognizeAlternatives requests the full result envelope including
// low-confidence alternatives, best first
func (g *GoogleSpeechToText) RecognizeAlternatives(ctx context.Context, audioData []byte, config repositories.RecognitionConfig, maxAlternatives int) ([]string, error) {
	return g.recognize(ctx, audioData, config, int32(maxAlternatives))
}

func (g *GoogleSpeechToText) recognize(ctx context.Context, audioData []byte, config repositories.RecognitionConfig, maxAlternatives int32) ([]string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
			MaxAlternatives: maxAlternatives,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognition request failed: %w", err)
	}

	var alternatives []string
	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			if alt.Transcript != "" {
				alternatives = append(alternatives, alt.Transcript)
			}
		}
	}
	if len(alternatives) == 0 {
		// An empty result set is the provider saying it understood nothing,
		// not a service failure
		return nil, repositories.ErrNoSpeech
	}

	g.logger.Debug("Recognition completed",
		zap.String("language", config.Language),
		zap.Int("alternatives", len(alternatives)))

	return alternatives, nil
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
