package repositories

import (
	"context"
	"image"

	"github.com/avacare/server/domain/entities"
)

// FaceDetection is the raw output of the external face-region detector: the
// located face, the cascade match counts at each parameterization, and the
// cropped grayscale region for photometric analysis.
type FaceDetection struct {
	Found       bool
	Box         entities.FaceBox
	FrameWidth  int
	FrameHeight int

	// Eye cascade counts: strict parameterization and a looser one
	EyesStrict int
	EyesLoose  int

	// Smile cascade counts at three sensitivity tiers
	SmilesHigh   int
	SmilesMedium int
	SmilesLow    int

	// Cropped grayscale face region
	Gray *image.Gray
}

// FaceDetector abstracts the external face localization collaborator
type FaceDetector interface {
	DetectFace(ctx context.Context, imageData []byte) (*FaceDetection, error)
}
