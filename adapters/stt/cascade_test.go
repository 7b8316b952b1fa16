package stt

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/avacare/server/domain/repositories"
)

// scriptedSpeech replays a fixed outcome per attempt and records the call
// order
type scriptedSpeech struct {
	results []scriptedResult
	calls   []string
}

type scriptedResult struct {
	text string
	alts []string
	err  error
}

func (s *scriptedSpeech) next() scriptedResult {
	if len(s.results) == 0 {
		return scriptedResult{err: repositories.ErrNoSpeech}
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

func (s *scriptedSpeech) Recognize(ctx context.Context, audioData []byte, config repositories.RecognitionConfig) (string, error) {
	s.calls = append(s.calls, "recognize:"+config.Language)
	r := s.next()
	return r.text, r.err
}

func (s *scriptedSpeech) RecognizeAlternatives(ctx context.Context, audioData []byte, config repositories.RecognitionConfig, maxAlternatives int) ([]string, error) {
	s.calls = append(s.calls, "alternatives:"+config.Language)
	r := s.next()
	return r.alts, r.err
}

func TestCascadePrimaryWins(t *testing.T) {
	speech := &scriptedSpeech{results: []scriptedResult{
		{text: "hello there"},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	transcript, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript.Text != "hello there" {
		t.Errorf("Expected primary transcript, got %q", transcript.Text)
	}
	if transcript.Language != "en-US" {
		t.Errorf("Expected en-US, got %s", transcript.Language)
	}
	if len(speech.calls) != 1 {
		t.Errorf("Expected exactly one attempt, got %v", speech.calls)
	}
}

func TestCascadeFallsBackToSecondary(t *testing.T) {
	speech := &scriptedSpeech{results: []scriptedResult{
		{err: repositories.ErrNoSpeech},
		{text: "नमस्ते"},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	transcript, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript.Language != "hi-IN" {
		t.Errorf("Expected hi-IN fallback, got %s", transcript.Language)
	}
	want := []string{"recognize:en-US", "recognize:hi-IN"}
	for i, call := range want {
		if speech.calls[i] != call {
			t.Errorf("Call %d: expected %s, got %s", i, call, speech.calls[i])
		}
	}
}

func TestCascadeAcceptsEnvelopeAlternative(t *testing.T) {
	speech := &scriptedSpeech{results: []scriptedResult{
		{err: repositories.ErrNoSpeech},
		{err: repositories.ErrNoSpeech},
		{alts: []string{"low confidence guess", "worse guess"}},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	transcript, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript.Text != "low confidence guess" {
		t.Errorf("Expected first alternative, got %q", transcript.Text)
	}

	want := []string{"recognize:en-US", "recognize:hi-IN", "alternatives:en-US"}
	if len(speech.calls) != len(want) {
		t.Fatalf("Expected %d attempts, got %v", len(want), speech.calls)
	}
	for i, call := range want {
		if speech.calls[i] != call {
			t.Errorf("Call %d: expected %s, got %s", i, call, speech.calls[i])
		}
	}
}

func TestCascadeAllAttemptsFailIsNotAnError(t *testing.T) {
	speech := &scriptedSpeech{results: []scriptedResult{
		{err: repositories.ErrNoSpeech},
		{err: repositories.ErrNoSpeech},
		{err: repositories.ErrNoSpeech},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	transcript, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000)
	if err != nil {
		t.Fatalf("Expected empty transcript, got error: %v", err)
	}
	if !transcript.IsEmpty() {
		t.Errorf("Expected empty transcript, got %q", transcript.Text)
	}
}

func TestCascadeTransportErrorIsFatal(t *testing.T) {
	transportErr := errors.New("rpc error: service unavailable")
	speech := &scriptedSpeech{results: []scriptedResult{
		{err: transportErr},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	_, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000)
	if !errors.Is(err, transportErr) {
		t.Fatalf("Expected transport error surfaced, got %v", err)
	}
	if len(speech.calls) != 1 {
		t.Errorf("Expected cascade to stop at the transport error, got %v", speech.calls)
	}
}

func TestCascadeTransportErrorDuringEnvelope(t *testing.T) {
	transportErr := errors.New("rpc error: deadline exceeded")
	speech := &scriptedSpeech{results: []scriptedResult{
		{err: repositories.ErrNoSpeech},
		{err: repositories.ErrNoSpeech},
		{err: transportErr},
	}}
	cascade := NewCascade(speech, nil, zaptest.NewLogger(t))

	if _, err := cascade.Transcribe(context.Background(), []byte("audio"), 16000); !errors.Is(err, transportErr) {
		t.Fatalf("Expected transport error surfaced, got %v", err)
	}
}

var _ repositories.SpeechToText = (*scriptedSpeech)(nil)
