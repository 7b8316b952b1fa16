package agent

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/avacare/server/domain/repositories"
)

const (
	defaultModel           = "gemini-2.0-flash"
	defaultTemperature     = 0.7
	defaultMaxOutputTokens = 1024
	defaultTimeoutSeconds  = 30
)

const systemPrompt = "You are Ava, a warm and attentive voice companion. " +
	"Listen carefully, acknowledge what the user shares, and answer in short " +
	"spoken-style sentences. Use any provided conversation context and the " +
	"noted user expression to respond with empathy. Never mention that you " +
	"received context or expression annotations."

// GeminiConfig holds configuration for the Gemini agent adapter
// Required fields:
// - APIKey: Google AI API key
// Optional fields with defaults:
// - Model: the model ID to use (default: "gemini-2.0-flash")
// - Temperature: sampling temperature between 0 and 1 (default: 0.7)
// - MaxOutputTokens: response length cap (default: 1024)
// - TimeoutSeconds: per-turn deadline (default: 30)
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// NewGeminiConfigFromEnv creates a GeminiConfig from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
	if tempStr := os.Getenv("GEMINI_TEMPERATURE"); tempStr != "" {
		if temp, err := strconv.ParseFloat(tempStr, 32); err == nil && temp >= 0 && temp <= 1 {
			config.Temperature = float32(temp)
		}
	}
	if tokensStr := os.Getenv("GEMINI_MAX_OUTPUT_TOKENS"); tokensStr != "" {
		if tokens, err := strconv.Atoi(tokensStr); err == nil && tokens > 0 {
			config.MaxOutputTokens = tokens
		}
	}
	if timeoutStr := os.Getenv("GEMINI_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}
	return config
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// GeminiAgent implements the ConversationalAgent interface using Google's
// Gemini API, surfacing generation as a stream of message-list snapshots.
type GeminiAgent struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	timeoutSeconds  int
}

var _ repositories.ConversationalAgent = (*GeminiAgent)(nil)

// NewGeminiAgent creates a new Gemini agent adapter
func NewGeminiAgent(config GeminiConfig, logger *zap.Logger) (*GeminiAgent, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}
	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &GeminiAgent{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		timeoutSeconds:  timeoutSeconds,
	}, nil
}

// StreamTurn sends the message list to Gemini and emits a snapshot per chunk.
// Each snapshot carries the full message list with the assistant message
// accumulated so far; the last assistant-authored message is the canonical
// response.
func (g *GeminiAgent) StreamTurn(ctx context.Context, messages []repositories.ChatMessage) (<-chan repositories.TurnSnapshot, error) {
	contents := []*genai.Content{genai.NewContentFromText(systemPrompt, genai.RoleUser)}
	contents = append(contents, convertToGeminiFormat(messages)...)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}

	snapshots := make(chan repositories.TurnSnapshot, 4)

	go func() {
		defer close(snapshots)

		ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeoutSeconds)*time.Second)
		defer cancel()

		var accumulated string
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				g.logger.Error("Gemini stream failed", zap.Error(err))
				snapshots <- repositories.TurnSnapshot{Err: err}
				return
			}
			chunk := extractText(resp)
			if chunk == "" {
				continue
			}
			accumulated += chunk

			state := make([]repositories.ChatMessage, 0, len(messages)+1)
			state = append(state, messages...)
			state = append(state, repositories.ChatMessage{
				Role:    repositories.AssistantRole,
				Content: accumulated,
			})
			snapshots <- repositories.TurnSnapshot{Messages: state}
		}

		g.logger.Info("Gemini turn completed", zap.Int("responseLength", len(accumulated)))
	}()

	return snapshots, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// convertToGeminiFormat converts repository messages to Gemini contents
func convertToGeminiFormat(messages []repositories.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case repositories.AssistantRole:
			role = genai.RoleModel
		default:
			// System messages ride along as user messages in Gemini
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}
