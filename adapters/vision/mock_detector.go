package vision

import (
	"context"
	"image"

	"github.com/avacare/server/domain/entities"
	"github.com/avacare/server/domain/repositories"
)

// MockDetector is a placeholder face detector for running the server without
// the cascade sidecar
type MockDetector struct {
	// Detection is returned for every frame; nil means "no face"
	Detection *repositories.FaceDetection
	// Err forces a detector failure
	Err error
}

// NewMockDetector creates a mock that always finds a neutral centered face
func NewMockDetector() *MockDetector {
	// A uniform mid-gray crop keeps the photometric rules quiet so the
	// classifier lands on neutral
	gray := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range gray.Pix {
		gray.Pix[i] = 150
	}
	return &MockDetector{
		Detection: &repositories.FaceDetection{
			Found:       true,
			Box:         entities.FaceBox{X: 100, Y: 60, Width: 200, Height: 200},
			FrameWidth:  640,
			FrameHeight: 480,
			EyesStrict:  2,
			EyesLoose:   2,
			Gray:        gray,
		},
	}
}

// DetectFace implements repositories.FaceDetector
func (m *MockDetector) DetectFace(ctx context.Context, imageData []byte) (*repositories.FaceDetection, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Detection == nil {
		return &repositories.FaceDetection{Found: false}, nil
	}
	return m.Detection, nil
}

var _ repositories.FaceDetector = (*MockDetector)(nil)
