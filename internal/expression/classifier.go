// Package expression derives a discrete emotional label from the detector
// counts and photometric features of a located face region. The heuristic is a
// fixed rule table evaluated in priority order; rule order is part of the
// behavior.
package expression

import (
	"github.com/avacare/server/domain/entities"
)

// Expression labels. The decorative suffix is part of the user-facing label;
// context assembly strips it back to the bare token.
const (
	LabelHappy     = "Happy 😄"
	LabelContent   = "Content 😊"
	LabelSleepy    = "Sleepy 😴"
	LabelSurprised = "Surprised 😮"
	LabelThinking  = "Thinking 🤔"
	LabelSerious   = "Serious 😐"
	LabelSad       = "Sad 😢"
	LabelNeutral   = "Neutral 😊"
)

// Display colors per label, red/green/blue
var (
	ColorHappy     = entities.RGB{0, 255, 0}
	ColorContent   = entities.RGB{100, 255, 50}
	ColorSleepy    = entities.RGB{255, 150, 150}
	ColorSurprised = entities.RGB{0, 200, 255}
	ColorThinking  = entities.RGB{50, 150, 255}
	ColorSerious   = entities.RGB{100, 100, 255}
	ColorSad       = entities.RGB{255, 100, 100}
	ColorNeutral   = entities.RGB{200, 200, 200}
)

// Features are the detector counts and photometric measurements the rule
// table decides on.
type Features struct {
	// Eye detections under the strict and loose cascade parameterizations
	EyesStrict int
	EyesLoose  int

	// Smile detections at three sensitivity tiers
	SmilesHigh   int
	SmilesMedium int
	SmilesLow    int

	// Mean brightness of the whole face and its regions
	Brightness       float64
	UpperBrightness  float64
	MiddleBrightness float64
	LowerBrightness  float64

	// Contrast (standard deviation) of the lower third
	LowerContrast float64
}

// Classification is the label plus its display color
type Classification struct {
	Label string
	Color entities.RGB
}

type rule struct {
	match func(Features) bool
	label string
	color entities.RGB
}

// The table is evaluated strictly top to bottom, first match wins.
var rules = []rule{
	{func(f Features) bool { return f.SmilesHigh > 0 }, LabelHappy, ColorHappy},
	{func(f Features) bool { return f.SmilesMedium > 0 }, LabelHappy, ColorHappy},
	{func(f Features) bool { return f.SmilesLow > 0 && f.EyesStrict >= 1 }, LabelContent, ColorContent},
	{func(f Features) bool { return f.EyesStrict < 2 && f.EyesLoose >= 1 }, LabelSleepy, ColorSleepy},
	{func(f Features) bool { return f.EyesStrict == 0 }, LabelSurprised, ColorSurprised},
	{func(f Features) bool {
		return f.EyesStrict >= 2 && f.UpperBrightness < f.LowerBrightness-15
	}, LabelThinking, ColorThinking},
	{func(f Features) bool {
		return f.EyesStrict >= 2 && (f.Brightness < 75 || f.UpperBrightness < f.MiddleBrightness-12)
	}, LabelSerious, ColorSerious},
	{func(f Features) bool {
		return f.EyesStrict >= 2 && f.LowerContrast < 35 && f.Brightness >= 80 && f.Brightness <= 100
	}, LabelSad, ColorSad},
	{func(f Features) bool {
		return f.EyesStrict >= 2 && f.Brightness < 85 && f.SmilesLow == 0
	}, LabelSad, ColorSad},
}

// Classify runs the rule table over the features. Anything that matches no
// rule is Neutral.
func Classify(f Features) Classification {
	for _, r := range rules {
		if r.match(f) {
			return Classification{Label: r.label, Color: r.color}
		}
	}
	return Classification{Label: LabelNeutral, Color: ColorNeutral}
}
