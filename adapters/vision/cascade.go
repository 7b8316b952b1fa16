package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/avacare/server/domain/entities"
	"github.com/avacare/server/domain/repositories"
)

const (
	defaultAPIBaseURL     = "http://localhost:8630"
	defaultTimeoutSeconds = 5
)

// Config holds configuration for the face detector sidecar client
// Optional fields with defaults:
// - APIBaseURL: base URL of the cascade detector service (default: "http://localhost:8630")
// - TimeoutSeconds: request timeout (default: 5)
type Config struct {
	APIBaseURL     string
	TimeoutSeconds int
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := Config{
		APIBaseURL: os.Getenv("FACE_DETECTOR_URL"),
	}
	if timeoutStr := os.Getenv("FACE_DETECTOR_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}
	return config
}

// CascadeDetector talks to the external face-localization service, which runs
// the Haar cascades and returns match counts plus the cropped grayscale face
// region.
type CascadeDetector struct {
	apiBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.FaceDetector = (*CascadeDetector)(nil)

// NewCascadeDetector creates a new detector client
func NewCascadeDetector(config Config, logger *zap.Logger) *CascadeDetector {
	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default face detector URL", zap.String("apiBaseURL", apiBaseURL))
	}
	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &CascadeDetector{
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:     logger,
	}
}

type detectResponse struct {
	Found bool `json:"found"`
	Box   struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"box"`
	Frame struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"frame"`
	EyesStrict   int    `json:"eyes_strict"`
	EyesLoose    int    `json:"eyes_loose"`
	SmilesHigh   int    `json:"smiles_high"`
	SmilesMedium int    `json:"smiles_medium"`
	SmilesLow    int    `json:"smiles_low"`
	GrayPNG      []byte `json:"gray_png"`
}

// DetectFace sends the frame to the detector service and decodes the result
func (d *CascadeDetector) DetectFace(ctx context.Context, imageData []byte) (*repositories.FaceDetection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBaseURL+"/detect", bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face detector request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face detector returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded detectResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}

	detection := &repositories.FaceDetection{
		Found: decoded.Found,
		Box: entities.FaceBox{
			X:      decoded.Box.X,
			Y:      decoded.Box.Y,
			Width:  decoded.Box.Width,
			Height: decoded.Box.Height,
		},
		FrameWidth:   decoded.Frame.Width,
		FrameHeight:  decoded.Frame.Height,
		EyesStrict:   decoded.EyesStrict,
		EyesLoose:    decoded.EyesLoose,
		SmilesHigh:   decoded.SmilesHigh,
		SmilesMedium: decoded.SmilesMedium,
		SmilesLow:    decoded.SmilesLow,
	}

	if decoded.Found && len(decoded.GrayPNG) > 0 {
		gray, err := decodeGrayPNG(decoded.GrayPNG)
		if err != nil {
			return nil, fmt.Errorf("failed to decode face crop: %w", err)
		}
		detection.Gray = gray
	}

	d.logger.Debug("Face detection completed",
		zap.Bool("found", detection.Found),
		zap.Int("eyesStrict", detection.EyesStrict))

	return detection, nil
}

func decodeGrayPNG(data []byte) (*image.Gray, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray, nil
}
