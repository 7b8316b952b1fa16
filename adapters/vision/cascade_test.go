package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func grayPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFaceDecodesSidecarResponse(t *testing.T) {
	crop := grayPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("Unexpected content type %s", ct)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"found":       true,
			"box":         map[string]int{"x": 10, "y": 20, "width": 100, "height": 100},
			"frame":       map[string]int{"width": 640, "height": 480},
			"eyes_strict": 2,
			"smiles_high": 1,
			"gray_png":    crop,
		})
	}))
	defer server.Close()

	detector := NewCascadeDetector(Config{APIBaseURL: server.URL}, zaptest.NewLogger(t))
	detection, err := detector.DetectFace(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("DetectFace failed: %v", err)
	}
	if !detection.Found {
		t.Error("Expected a detected face")
	}
	if detection.Box.Width != 100 || detection.FrameWidth != 640 {
		t.Errorf("Unexpected geometry: %+v", detection)
	}
	if detection.EyesStrict != 2 || detection.SmilesHigh != 1 {
		t.Errorf("Unexpected feature counts: %+v", detection)
	}
	if detection.Gray == nil {
		t.Error("Expected the grayscale crop to be decoded")
	}
}

func TestDetectFaceServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cascade load failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	detector := NewCascadeDetector(Config{APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if _, err := detector.DetectFace(context.Background(), []byte("jpeg-bytes")); err == nil {
		t.Fatal("Expected an error from a failing sidecar")
	}
}
