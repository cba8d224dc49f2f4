package video

import (
	"path/filepath"
	"testing"

	"retailanalytics/internal/models"
)

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(models.SourceSpec{
		Origin: filepath.Join(t.TempDir(), "missing.mp4"),
		Kind:   models.KindVideo,
		Name:   "Missing",
		Role:   models.RoleSection,
	})
	if err == nil {
		t.Fatal("Expected error for missing video file")
	}
}

func TestSource_UnstartedDefaults(t *testing.T) {
	src, err := Open(models.SourceSpec{Origin: "0", Kind: models.KindWebcam, Name: "Entrance Camera", Role: models.RoleEntrance})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	w, h := src.FrameSize()
	if w != FallbackWidth || h != FallbackHeight {
		t.Errorf("Expected fallback size 640x480, got %dx%d", w, h)
	}

	if _, ok := src.Read(); ok {
		t.Error("Read on an unstarted source should fail")
	}

	if err := src.Rewind(); err == nil {
		t.Error("Rewind on an unstarted source should fail")
	}

	// Stop is idempotent
	src.Stop()
	src.Stop()
}
