package api

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avacare/server/domain/repositories"
	"github.com/avacare/server/internal/audio"
	"github.com/avacare/server/internal/auth"
	"github.com/avacare/server/internal/expression"
	"github.com/avacare/server/usecase"
)

const userIDContextKey = "userID"

// TurnProcessor runs one full dialogue turn
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, userID string, audioData []byte, expressionLabel string, expressionConfidence float64) (*usecase.TurnResult, error)
}

// Handler carries the collaborators behind the HTTP surface
type Handler struct {
	dialogue   TurnProcessor
	detector   repositories.FaceDetector
	memory     repositories.MemoryStore
	audioStore *audio.Store
	logger     *zap.Logger
}

// NewHandler creates the HTTP handler set
func NewHandler(
	dialogue TurnProcessor,
	detector repositories.FaceDetector,
	memory repositories.MemoryStore,
	audioStore *audio.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		dialogue:   dialogue,
		detector:   detector,
		memory:     memory,
		audioStore: audioStore,
		logger:     logger,
	}
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "avacare-server",
		})
	})

	e.POST("/process-audio", h.processAudio, userAuth(h.logger))
	e.POST("/detect-face", h.detectFace)
	e.GET("/audio/:filename", h.getAudio)
	e.GET("/memories", h.getMemories, userAuth(h.logger))
}

// userAuth validates the Bearer token and stores the caller's user ID on the
// request context
func userAuth(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := auth.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			c.Set(userIDContextKey, claims.UserID)
			return next(c)
		}
	}
}

// processAudio handles one dialogue turn: multipart audio plus an optional
// expression observation from the client
func (h *Handler) processAudio(c echo.Context) error {
	userID, _ := c.Get(userIDContextKey).(string)

	audioData, err := readUpload(c, "file")
	if err != nil {
		h.logger.Error("Failed to read audio upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "An audio file upload named 'file' is required",
		})
	}

	expressionLabel := c.FormValue("expression")
	confidence, err := strconv.ParseFloat(c.FormValue("expression_confidence"), 64)
	if err != nil {
		confidence = 0
	}

	result, err := h.dialogue.ProcessTurn(c.Request().Context(), userID, audioData, expressionLabel, confidence)
	if err != nil {
		if errors.Is(err, usecase.ErrSpeechService) {
			h.logger.Error("Speech service failure", zap.String("user_id", userID), zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "speech_service_unavailable",
				Message: "Speech recognition service is unavailable",
			})
		}
		h.logger.Error("Dialogue turn failed", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "processing_failed",
			Message: "Failed to process the audio turn",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// detectFace classifies the expression on an uploaded image. It never fails:
// every error path degrades to a neutral no-face observation.
func (h *Handler) detectFace(c echo.Context) error {
	imageData, err := readUpload(c, "file")
	if err != nil {
		h.logger.Warn("Face detection upload unreadable", zap.Error(err))
		return c.JSON(http.StatusOK, expression.Observe(nil))
	}

	detection, err := h.detector.DetectFace(c.Request().Context(), imageData)
	if err != nil {
		h.logger.Warn("Face detection failed", zap.Error(err))
		return c.JSON(http.StatusOK, expression.Observe(nil))
	}

	observation := expression.Observe(detection)
	observation.Confidence = math.Round(observation.Confidence*100) / 100
	return c.JSON(http.StatusOK, observation)
}

// getAudio serves a synthesized response file
func (h *Handler) getAudio(c echo.Context) error {
	path, err := h.audioStore.Path(c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "audio_not_found",
			Message: "Audio file not found",
		})
	}
	return c.File(path)
}

// getMemories returns every stored fragment for the caller
func (h *Handler) getMemories(c echo.Context) error {
	userID, _ := c.Get(userIDContextKey).(string)

	memories, err := h.memory.GetAll(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Memory listing failed", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "memory_service_error",
			Message: "Memory service is unavailable",
		})
	}

	return c.JSON(http.StatusOK, MemoriesResponse{
		Memories: memories,
		Count:    len(memories),
	})
}

func readUpload(c echo.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
