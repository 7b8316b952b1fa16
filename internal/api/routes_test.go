package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/avacare/server/adapters/vision"
	"github.com/avacare/server/internal/audio"
	"github.com/avacare/server/internal/auth"
	"github.com/avacare/server/usecase"
)

type fakeTurnProcessor struct {
	result *usecase.TurnResult
	err    error
	userID string
	label  string
}

func (f *fakeTurnProcessor) ProcessTurn(ctx context.Context, userID string, audioData []byte, expressionLabel string, expressionConfidence float64) (*usecase.TurnResult, error) {
	f.userID = userID
	f.label = expressionLabel
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeMemoryStore struct {
	memories []string
	err      error
}

func (f *fakeMemoryStore) Search(ctx context.Context, query, userID string) ([]string, error) {
	return f.memories, f.err
}

func (f *fakeMemoryStore) Add(ctx context.Context, text, userID string) error {
	return f.err
}

func (f *fakeMemoryStore) GetAll(ctx context.Context, userID string) ([]string, error) {
	return f.memories, f.err
}

type apiFixture struct {
	echo     *echo.Echo
	dialogue *fakeTurnProcessor
	detector *vision.MockDetector
	memory   *fakeMemoryStore
	store    *audio.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &apiFixture{
		echo: echo.New(),
		dialogue: &fakeTurnProcessor{result: &usecase.TurnResult{
			Transcript: "hello",
			Response:   "hi there",
			AudioURL:   "/audio/response_x.mp3",
		}},
		detector: vision.NewMockDetector(),
		memory:   &fakeMemoryStore{},
		store:    audio.NewStore(t.TempDir(), logger),
	}
	InitRoutes(f.echo, NewHandler(f.dialogue, f.detector, f.memory, f.store, logger))
	return f
}

func multipartUpload(t *testing.T, field string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateUserToken(userID)
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}
	return "Bearer " + token
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
}

func TestProcessAudioRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	body, contentType := multipartUpload(t, "file", []byte("audio"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if resp.Error != "missing_token" {
		t.Errorf("Expected missing_token, got %q", resp.Error)
	}
}

func TestProcessAudioSuccess(t *testing.T) {
	f := newAPIFixture(t)
	body, contentType := multipartUpload(t, "file", []byte("audio"), map[string]string{
		"expression":            "Happy",
		"expression_confidence": "0.75",
	})
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-9"))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result usecase.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Transcript != "hello" || result.Response != "hi there" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if f.dialogue.userID != "user-9" {
		t.Errorf("Expected user ID from token, got %q", f.dialogue.userID)
	}
	if f.dialogue.label != "Happy" {
		t.Errorf("Expected expression passthrough, got %q", f.dialogue.label)
	}
}

func TestProcessAudioMissingUpload(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/process-audio", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-9"))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestProcessAudioSpeechServiceFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.dialogue.err = usecase.ErrSpeechService

	body, contentType := multipartUpload(t, "file", []byte("audio"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", bearerToken(t, "user-9"))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if resp.Error != "speech_service_unavailable" {
		t.Errorf("Expected speech_service_unavailable, got %q", resp.Error)
	}
}

func TestDetectFaceReturnsObservation(t *testing.T) {
	f := newAPIFixture(t)
	body, contentType := multipartUpload(t, "file", []byte("jpeg-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/detect-face", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode observation: %v", err)
	}
	if resp["face_detected"] != true {
		t.Errorf("Expected a detected face: %v", resp)
	}
	// 200x200 box in a 640x480 frame: 0.13020...*5 rounded to 0.65
	if resp["confidence"] != 0.65 {
		t.Errorf("Expected confidence 0.65, got %v", resp["confidence"])
	}
	if _, ok := resp["face_dimensions"]; !ok {
		t.Error("Expected face_dimensions in payload")
	}
}

func TestDetectFaceNeverRaises(t *testing.T) {
	f := newAPIFixture(t)
	f.detector.Err = errors.New("sidecar down")

	body, contentType := multipartUpload(t, "file", []byte("jpeg-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/detect-face", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Detector failure must degrade, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode observation: %v", err)
	}
	if resp["face_detected"] != false {
		t.Errorf("Expected neutral no-face degradation: %v", resp)
	}
}

func TestDetectFaceMissingUploadDegrades(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/detect-face", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Missing upload must degrade, got %d", rec.Code)
	}
}

func TestGetAudioServesStoredFile(t *testing.T) {
	f := newAPIFixture(t)
	filename, err := f.store.Save([]byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/audio/"+filename, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}

func TestGetAudioUnknownFile(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/audio/response_missing.mp3", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestGetMemories(t *testing.T) {
	f := newAPIFixture(t)
	f.memory.memories = []string{"likes tea", "lives in Pune"}

	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-9"))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp MemoriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode memories: %v", err)
	}
	if resp.Count != 2 || len(resp.Memories) != 2 {
		t.Errorf("Unexpected memories payload: %+v", resp)
	}
}

func TestGetMemoriesServiceFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.memory.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-9"))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
}
