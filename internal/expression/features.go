package expression

import (
	"image"
	"math"

	"github.com/avacare/server/domain/entities"
	"github.com/avacare/server/domain/repositories"
)

// Photometrics computes the brightness and contrast measurements of a
// grayscale face crop: whole-face mean, upper-half mean, middle-band mean
// (rows 30–70%), lower-half mean and the standard deviation of the lower
// third.
func Photometrics(gray *image.Gray) (brightness, upper, middle, lower, lowerContrast float64) {
	if gray == nil {
		return 0, 0, 0, 0, 0
	}
	b := gray.Bounds()
	h := b.Dy()
	if h == 0 || b.Dx() == 0 {
		return 0, 0, 0, 0, 0
	}

	brightness = regionMean(gray, b.Min.Y, b.Max.Y)
	upper = regionMean(gray, b.Min.Y, b.Min.Y+h/2)
	lower = regionMean(gray, b.Min.Y+h/2, b.Max.Y)
	middle = regionMean(gray, b.Min.Y+int(float64(h)*0.3), b.Min.Y+int(float64(h)*0.7))
	lowerContrast = regionStdDev(gray, b.Min.Y+int(float64(h)*0.66), b.Max.Y)
	return
}

func regionMean(gray *image.Gray, y0, y1 int) float64 {
	b := gray.Bounds()
	sum, n := 0.0, 0
	for y := y0; y < y1; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += float64(gray.GrayAt(x, y).Y)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func regionStdDev(gray *image.Gray, y0, y1 int) float64 {
	mean := regionMean(gray, y0, y1)
	b := gray.Bounds()
	sum, n := 0.0, 0
	for y := y0; y < y1; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := float64(gray.GrayAt(x, y).Y) - mean
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// FromDetection assembles classifier features from a detector result
func FromDetection(det *repositories.FaceDetection) Features {
	f := Features{
		EyesStrict:   det.EyesStrict,
		EyesLoose:    det.EyesLoose,
		SmilesHigh:   det.SmilesHigh,
		SmilesMedium: det.SmilesMedium,
		SmilesLow:    det.SmilesLow,
	}
	f.Brightness, f.UpperBrightness, f.MiddleBrightness, f.LowerBrightness, f.LowerContrast = Photometrics(det.Gray)
	return f
}

// FaceConfidence is the face-presence score: bounding-box area as a fraction
// of the full frame, scaled by 5 and clamped to [0,1]. A proxy for how
// centrally the face occupies the frame, not a statistical confidence.
func FaceConfidence(box entities.FaceBox, frameWidth, frameHeight int) float64 {
	if frameWidth <= 0 || frameHeight <= 0 {
		return 0
	}
	c := float64(box.Width*box.Height) / float64(frameWidth*frameHeight) * 5
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// Observe turns a detector result into the per-request observation. A nil or
// faceless detection degrades to the neutral no-face observation.
func Observe(det *repositories.FaceDetection) entities.ExpressionObservation {
	if det == nil || !det.Found {
		return entities.ExpressionObservation{
			FaceDetected: false,
			Label:        LabelNeutral,
			Confidence:   0,
			Color:        ColorNeutral,
		}
	}

	cls := Classify(FromDetection(det))
	box := det.Box
	return entities.ExpressionObservation{
		FaceDetected: true,
		Label:        cls.Label,
		Confidence:   FaceConfidence(box, det.FrameWidth, det.FrameHeight),
		Color:        cls.Color,
		Box:          &box,
	}
}
