package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

const (
	// TargetSampleRate is the canonical rate the transcription provider is
	// tuned for
	TargetSampleRate = 16000

	// MinClipDuration is the shortest clip worth sending to transcription
	MinClipDuration = 500 * time.Millisecond

	silenceThresholdDB = -50.0
	minSilenceRun      = 200 * time.Millisecond
)

// ErrTooShort is returned for clips under MinClipDuration. It is an input
// rejection, not a service failure.
var ErrTooShort = errors.New("audio too short")

// CanonicalAudio is the transient file-backed representation handed to the
// transcription stage. Cleanup must be called on every exit path.
type CanonicalAudio struct {
	Path       string
	SampleRate int
	// Raw marks the decode-failure fallback where the uploaded bytes were
	// written through untouched
	Raw bool
}

// Cleanup removes the transient file
func (a *CanonicalAudio) Cleanup() {
	if a.Path != "" {
		os.Remove(a.Path)
	}
}

// Preprocessor normalizes uploaded audio into the canonical waveform:
// peak-normalized, silence-trimmed, 16 kHz mono WAV.
type Preprocessor struct {
	logger *zap.Logger
}

// NewPreprocessor creates a new audio preprocessor
func NewPreprocessor(logger *zap.Logger) *Preprocessor {
	return &Preprocessor{logger: logger}
}

// Prepare decodes, validates and normalizes raw uploaded audio, writing the
// canonical representation to a transient WAV file. Decode failures fall back
// to passing the raw bytes through unchanged; only ErrTooShort and file I/O
// errors are surfaced.
func (p *Preprocessor) Prepare(data []byte) (*CanonicalAudio, error) {
	clip, err := Decode(data)
	if err != nil {
		p.logger.Warn("Audio decode failed, passing raw bytes through",
			zap.Int("size", len(data)),
			zap.Error(err))
		path, werr := p.writeTemp(data)
		if werr != nil {
			return nil, werr
		}
		return &CanonicalAudio{Path: path, SampleRate: TargetSampleRate, Raw: true}, nil
	}

	duration := clip.Duration()
	p.logger.Info("Decoded audio clip",
		zap.Duration("duration", duration),
		zap.Int("channels", clip.Channels),
		zap.Int("sampleRate", clip.SampleRate))

	if duration < MinClipDuration {
		return nil, ErrTooShort
	}

	mono := downmixInterleaved(clip.Samples, clip.Channels)
	mono = normalizePeak(mono)
	mono = trimSilence(mono, clip.SampleRate)
	mono = resampleLinear(mono, clip.SampleRate, TargetSampleRate)

	path, err := p.writeWAV(mono)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Canonical audio written",
		zap.String("path", path),
		zap.Int("samples", len(mono)))

	return &CanonicalAudio{Path: path, SampleRate: TargetSampleRate}, nil
}

func (p *Preprocessor) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp("", "turn-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create transient audio file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write transient audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (p *Preprocessor) writeWAV(samples []float32) (string, error) {
	f, err := os.CreateTemp("", "turn-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create transient audio file: %w", err)
	}

	enc := wav.NewEncoder(f, TargetSampleRate, 16, 1, 1)
	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(clamp(float64(s), -1.0, 1.0) * 32767.0)
	}
	buf := &gaudio.IntBuffer{
		Data:           ints,
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode canonical wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// normalizePeak scales the waveform so its loudest sample sits at full scale
func normalizePeak(in []float32) []float32 {
	peak := 0.0
	for _, s := range in {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return in
	}
	gain := float32(1.0 / peak)
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = s * gain
	}
	return out
}

// trimSilence removes leading and trailing silence runs of at least 200 ms
// whose envelope stays below -50 dB
func trimSilence(in []float32, sampleRate int) []float32 {
	if len(in) == 0 {
		return in
	}
	threshold := float32(math.Pow(10, silenceThresholdDB/20))
	minRun := int(float64(sampleRate) * minSilenceRun.Seconds())

	start := 0
	for start < len(in) && abs32(in[start]) < threshold {
		start++
	}
	end := len(in)
	for end > start && abs32(in[end-1]) < threshold {
		end--
	}

	// Runs shorter than the policy length stay in place
	if start < minRun {
		start = 0
	}
	if len(in)-end < minRun {
		end = len(in)
	}
	return in[start:end]
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
