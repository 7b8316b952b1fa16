package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/avacare/server/adapters/agent"
	"github.com/avacare/server/adapters/memory"
	"github.com/avacare/server/adapters/stt"
	"github.com/avacare/server/adapters/tts"
	"github.com/avacare/server/adapters/vision"
	"github.com/avacare/server/domain/repositories"
	"github.com/avacare/server/internal/api"
	"github.com/avacare/server/internal/audio"
	"github.com/avacare/server/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters, falling back to mocks when credentials are absent
	speechToText := buildSpeechToText(logger)
	conversationalAgent := buildAgent(logger)
	textToSpeech := buildTextToSpeech(logger)

	memoryStore, err := memory.Shared(logger)
	if err != nil {
		logger.Fatal("Failed to initialize memory client", zap.Error(err))
	}

	faceDetector := vision.NewCascadeDetector(vision.NewConfigFromEnv(), logger)

	preprocessor := audio.NewPreprocessor(logger)
	cascade := stt.NewCascade(speechToText, stt.DefaultLanguages, logger)
	audioStore := audio.NewStore(os.Getenv("AUDIO_STORE_DIR"), logger)

	// Initialize usecase services
	dialogueService := usecase.NewDialogueService(
		preprocessor,
		cascade,
		memoryStore,
		conversationalAgent,
		textToSpeech,
		audioStore,
		logger,
	)

	// Initialize API routes
	api.InitRoutes(e, api.NewHandler(dialogueService, faceDetector, memoryStore, audioStore, logger))

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func buildSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock speech recognition")
		return stt.NewMockSpeechToText(logger)
	}
	return stt.NewGoogleSpeechToText(logger)
}

func buildAgent(logger *zap.Logger) repositories.ConversationalAgent {
	config := agent.NewGeminiConfigFromEnv()
	if err := agent.ValidateGeminiConfig(config); err != nil {
		logger.Warn("Gemini not configured, using mock agent", zap.Error(err))
		return agent.NewMockAgent()
	}
	geminiAgent, err := agent.NewGeminiAgent(config, logger)
	if err != nil {
		logger.Warn("Failed to initialize Gemini, using mock agent", zap.Error(err))
		return agent.NewMockAgent()
	}
	return geminiAgent
}

func buildTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	config := tts.NewElevenLabsConfigFromEnv()
	if err := tts.ValidateElevenLabsConfig(config); err != nil {
		logger.Warn("ElevenLabs not configured, using mock synthesis", zap.Error(err))
		return tts.NewMockTextToSpeech(logger)
	}
	elevenLabs, err := tts.NewElevenLabsTTS(config, logger)
	if err != nil {
		logger.Warn("Failed to initialize ElevenLabs, using mock synthesis", zap.Error(err))
		return tts.NewMockTextToSpeech(logger)
	}
	return elevenLabs
}
