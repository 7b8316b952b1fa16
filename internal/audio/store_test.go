package audio

import (
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestStoreSaveAndPath(t *testing.T) {
	store := NewStore(t.TempDir(), zaptest.NewLogger(t))

	filename, err := store.Save([]byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(filename, "response_") || !strings.HasSuffix(filename, ".mp3") {
		t.Errorf("Unexpected filename shape: %s", filename)
	}

	path, err := store.Path(filename)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Stored file unreadable: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Error("Stored bytes do not round-trip")
	}
}

func TestStorePathUnknownFile(t *testing.T) {
	store := NewStore(t.TempDir(), zaptest.NewLogger(t))
	if _, err := store.Path("response_nope.mp3"); !errors.Is(err, ErrAudioNotFound) {
		t.Errorf("Expected ErrAudioNotFound, got %v", err)
	}
}

func TestStorePathRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir(), zaptest.NewLogger(t))
	for _, name := range []string{"../etc/passwd", "a/b.mp3", "", ".hidden"} {
		if _, err := store.Path(name); !errors.Is(err, ErrAudioNotFound) {
			t.Errorf("Expected ErrAudioNotFound for %q, got %v", name, err)
		}
	}
}
