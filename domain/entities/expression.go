package entities

import "strings"

// RGB is a display color in red, green, blue order
type RGB [3]int

// FaceBox is the bounding box of a detected face within the full frame
type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ExpressionObservation is the outcome of one face-expression request.
// Computed once per detection request and never persisted.
type ExpressionObservation struct {
	FaceDetected bool     `json:"face_detected"`
	Label        string   `json:"expression"`
	Confidence   float64  `json:"confidence"`
	Color        RGB      `json:"color"`
	Box          *FaceBox `json:"face_dimensions,omitempty"`
}

// ExpressionToken strips the decorative suffix from a label, leaving the bare
// expression name ("Happy 😄" becomes "Happy")
func ExpressionToken(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
