package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/entities"
	"github.com/avacare/server/domain/repositories"
	"github.com/avacare/server/internal/audio"
)

// Fixed user-facing payload texts
const (
	tooShortResponse      = "Audio too short. Please speak for at least 1 second."
	noSpeechResponse      = "I couldn't detect any speech. Please speak clearly and try again."
	fallbackEmptyResponse = "I am here for you."
	fallbackErrorResponse = "I am here for you. How can I help you today?"

	tooShortError = "Audio too short"
	noSpeechError = "No speech detected"

	persistTimeout = 30 * time.Second
)

// ErrSpeechService marks a transport or service failure of the transcription
// provider, the only transcription outcome that aborts the turn
var ErrSpeechService = errors.New("speech recognition service error")

// AudioPreparer normalizes raw uploaded audio into the canonical file-backed
// representation
type AudioPreparer interface {
	Prepare(data []byte) (*audio.CanonicalAudio, error)
}

// Transcriber runs the full transcription cascade over canonical audio
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte, sampleRate int) (entities.Transcript, error)
}

// TurnResult is the reply payload of one dialogue turn
type TurnResult struct {
	Transcript           string  `json:"transcript"`
	Response             string  `json:"response"`
	AudioURL             string  `json:"audio_url,omitempty"`
	Expression           string  `json:"expression,omitempty"`
	ExpressionConfidence float64 `json:"expression_confidence"`
	Error                string  `json:"error,omitempty"`
}

// DialogueService orchestrates one dialogue turn: preprocess, transcribe,
// retrieve memory, assemble context, generate the reply, schedule background
// persistence, and synthesize speech. Every enhancement (memory, expression,
// agent) degrades softly; only input rejection and provider transport errors
// end a turn without a spoken reply.
type DialogueService struct {
	preparer    AudioPreparer
	transcriber Transcriber
	memory      repositories.MemoryStore
	agent       repositories.ConversationalAgent
	tts         repositories.TextToSpeech
	audioStore  *audio.Store
	logger      *zap.Logger
}

// NewDialogueService creates a new dialogue turn orchestrator
func NewDialogueService(
	preparer AudioPreparer,
	transcriber Transcriber,
	memory repositories.MemoryStore,
	agent repositories.ConversationalAgent,
	tts repositories.TextToSpeech,
	audioStore *audio.Store,
	logger *zap.Logger,
) *DialogueService {
	return &DialogueService{
		preparer:    preparer,
		transcriber: transcriber,
		memory:      memory,
		agent:       agent,
		tts:         tts,
		audioStore:  audioStore,
		logger:      logger,
	}
}

// ProcessTurn runs one full dialogue turn for an authenticated user
func (s *DialogueService) ProcessTurn(
	ctx context.Context,
	userID string,
	audioData []byte,
	expressionLabel string,
	expressionConfidence float64,
) (*TurnResult, error) {
	turn := entities.NewDialogueTurn(userID)
	turn.Expression = expressionLabel
	turn.ExpressionConfidence = expressionConfidence

	// Stage 1: preprocess into canonical audio
	canonical, err := s.preparer.Prepare(audioData)
	if err != nil {
		if errors.Is(err, audio.ErrTooShort) {
			s.logger.Info("Rejected short clip", zap.String("userID", userID))
			return &TurnResult{
				Response: tooShortResponse,
				Error:    tooShortError,
			}, nil
		}
		return nil, fmt.Errorf("audio preprocessing failed: %w", err)
	}
	defer canonical.Cleanup()
	s.advance(turn, entities.TurnStatePreprocessed)

	canonicalData, err := os.ReadFile(canonical.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canonical audio: %w", err)
	}

	// Stage 2: transcription cascade
	transcript, err := s.transcriber.Transcribe(ctx, canonicalData, canonical.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechService, err)
	}
	if transcript.IsEmpty() {
		// Terminal: no agent call, no persistence, no synthesis
		s.advance(turn, entities.TurnStateEmptyTranscript)
		return &TurnResult{
			Response: noSpeechResponse,
			Error:    noSpeechError,
		}, nil
	}
	turn.Transcript = transcript
	s.advance(turn, entities.TurnStateTranscribed)

	// Stage 3: memory retrieval, a soft-fail enhancement
	fragments := s.searchMemory(ctx, transcript.Text, userID)

	// Stage 4: context assembly
	turn.Context = BuildContext(fragments, expressionLabel)
	prompt := BuildPrompt(turn.Context, transcript.Text)
	s.advance(turn, entities.TurnStateContextAssembled)

	// Stage 5: response generation with canned fallback
	response, fellBack := s.generateResponse(ctx, prompt)
	turn.Response = response
	if fellBack {
		s.advance(turn, entities.TurnStateResponseFallback)
	} else {
		s.advance(turn, entities.TurnStateResponseGenerated)
	}

	// Stage 6: fire-and-forget persistence. The reply never waits on it and
	// never sees its failures.
	go s.persistTurn(userID, turn.ConversationText())
	s.advance(turn, entities.TurnStatePersistenceScheduled)

	// Stage 7: synchronous speech synthesis
	responseAudio, err := s.tts.Synthesize(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	filename, err := s.audioStore.Save(responseAudio)
	if err != nil {
		return nil, err
	}
	turn.AudioFilename = filename
	s.advance(turn, entities.TurnStateSynthesized)

	s.advance(turn, entities.TurnStateDelivered)
	return &TurnResult{
		Transcript:           transcript.Text,
		Response:             response,
		AudioURL:             "/audio/" + filename,
		Expression:           expressionLabel,
		ExpressionConfidence: expressionConfidence,
	}, nil
}

func (s *DialogueService) advance(turn *entities.DialogueTurn, state entities.TurnState) {
	turn.Advance(state)
	s.logger.Debug("Turn state",
		zap.String("userID", turn.UserID),
		zap.String("state", string(state)))
}

func (s *DialogueService) searchMemory(ctx context.Context, query, userID string) []string {
	fragments, err := s.memory.Search(ctx, query, userID)
	if err != nil {
		s.logger.Warn("Memory search failed, continuing without memory",
			zap.String("userID", userID),
			zap.Error(err))
		return nil
	}
	s.logger.Info("Memory retrieved",
		zap.String("userID", userID),
		zap.Int("fragments", len(fragments)))
	return fragments
}

// generateResponse consumes the agent's snapshot stream, keeping the last
// assistant-authored message. Any failure or an empty stream substitutes the
// canned response; this path never returns an error.
func (s *DialogueService) generateResponse(ctx context.Context, prompt string) (string, bool) {
	snapshots, err := s.agent.StreamTurn(ctx, []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: prompt},
	})
	if err != nil {
		s.logger.Warn("Agent invocation failed, using fallback", zap.Error(err))
		return fallbackErrorResponse, true
	}

	var response string
	for snapshot := range snapshots {
		if snapshot.Err != nil {
			s.logger.Warn("Agent stream failed, using fallback", zap.Error(snapshot.Err))
			return fallbackErrorResponse, true
		}
		if len(snapshot.Messages) == 0 {
			continue
		}
		if last := snapshot.Messages[len(snapshot.Messages)-1]; last.Role == repositories.AssistantRole {
			response = last.Content
		}
	}

	if response == "" {
		s.logger.Warn("Agent produced no response, using fallback")
		return fallbackEmptyResponse, true
	}
	return response, false
}

// persistTurn appends the exchange to the memory service from a detached
// goroutine with its own error boundary. It shares nothing with the request
// path beyond the read-only inputs.
func (s *DialogueService) persistTurn(userID, conversation string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Background memory store panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.memory.Add(ctx, conversation, userID); err != nil {
		s.logger.Error("Background memory store failed",
			zap.String("userID", userID),
			zap.Error(err))
		return
	}
	s.logger.Info("Background memory store complete", zap.String("userID", userID))
}
