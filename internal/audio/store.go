package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAudioNotFound is returned when a response file is missing or expired
var ErrAudioNotFound = errors.New("audio file not found")

// Store holds synthesized response audio under randomly generated filenames
// so it can be served back by the retrieval endpoint.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a response audio store rooted at dir (the system temp
// directory when empty)
func NewStore(dir string, logger *zap.Logger) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir, logger: logger}
}

// Save writes synthesized audio and returns the generated filename
func (s *Store) Save(data []byte) (string, error) {
	filename := fmt.Sprintf("response_%s.mp3", uuid.NewString())
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write response audio: %w", err)
	}
	s.logger.Info("Saved response audio",
		zap.String("filename", filename),
		zap.Int("size", len(data)))
	return filename, nil
}

// Path resolves a stored filename to its on-disk path. Returns
// ErrAudioNotFound for unknown names and rejects anything that is not a bare
// filename.
func (s *Store) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrAudioNotFound
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrAudioNotFound
	}
	return path, nil
}
