package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"retailanalytics/internal/models"
)

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SAVE_INTERVAL", "")
	t.Setenv("FRAME_INTERVAL", "")
	t.Setenv("DB_DRIVER", "")

	cfg := Load()
	if cfg.SaveInterval != 30 {
		t.Errorf("Expected save interval 30, got %d", cfg.SaveInterval)
	}
	if cfg.FrameInterval != 33*time.Millisecond {
		t.Errorf("Expected frame interval 33ms, got %v", cfg.FrameInterval)
	}
	if cfg.DBDriver != "sqlite3" {
		t.Errorf("Expected sqlite3 driver, got %s", cfg.DBDriver)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOP_TIMEOUT", "2")
	t.Setenv("DWELL_DROPOUT", "750ms")
	t.Setenv("DETECT_CLASSES", "1, 44")
	t.Setenv("CASHIER_ROI", "0.1,0.2,0.9,0.8")
	t.Setenv("HEATMAP_OVERLAY", "true")

	cfg := Load()
	if cfg.StopTimeout != 2*time.Second {
		t.Errorf("Expected 2s stop timeout, got %v", cfg.StopTimeout)
	}
	if cfg.DwellDropout != 750*time.Millisecond {
		t.Errorf("Expected 750ms dropout, got %v", cfg.DwellDropout)
	}
	if len(cfg.DetectClasses) != 2 || cfg.DetectClasses[1] != 44 {
		t.Errorf("Unexpected classes %v", cfg.DetectClasses)
	}
	if cfg.CashierROI != [4]float64{0.1, 0.2, 0.9, 0.8} {
		t.Errorf("Unexpected ROI %v", cfg.CashierROI)
	}
	if !cfg.HeatmapOverlay {
		t.Error("Expected overlay on")
	}
}

func TestLoad_InvalidROIFallsBack(t *testing.T) {
	t.Setenv("CASHIER_ROI", "0.8,0.2,0.1,0.9")

	cfg := Load()
	if cfg.CashierROI != [4]float64{0.25, 0.25, 0.75, 0.75} {
		t.Errorf("Expected default ROI, got %v", cfg.CashierROI)
	}
}

// =============================================================================
// SOURCES
// =============================================================================

func TestParseSources(t *testing.T) {
	specs, err := ParseSources("0|webcam|Entrance Camera|entrance; videos/a.mp4|video|Electronics|section;")
	if err != nil {
		t.Fatalf("ParseSources failed: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(specs))
	}
	want := models.SourceSpec{Origin: "videos/a.mp4", Kind: models.KindVideo, Name: "Electronics", Role: models.RoleSection}
	if specs[1] != want {
		t.Errorf("Expected %+v, got %+v", want, specs[1])
	}
}

func TestParseSources_Errors(t *testing.T) {
	bad := []string{
		"0|webcam|Entrance",
		"0|usb|Entrance|entrance",
		"0|webcam|Entrance|door",
		"|webcam|Entrance|entrance",
		"0|webcam|A|entrance;1|webcam|A|cashier",
	}
	for _, s := range bad {
		if _, err := ParseSources(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}

func TestInferRole(t *testing.T) {
	cases := []struct {
		file string
		role models.Role
		name string
	}{
		{"store_entrance.mp4", models.RoleEntrance, "Entrance Video"},
		{"Cashier1.avi", models.RoleCashier, "Cashier Video"},
		{"section_Electronics.mp4", models.RoleSection, "Electronics"},
		{"aisle.mov", models.RoleSection, "Section Video"},
	}
	for _, c := range cases {
		role, name := InferRole(c.file)
		if role != c.role || name != c.name {
			t.Errorf("InferRole(%s) = %s/%s, want %s/%s", c.file, role, name, c.role, c.name)
		}
	}
}

func TestDiscoverVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"section_Grocery.mp4", "cashier_a.avi", "cashier_b.mov", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	specs, err := DiscoverVideos(dir)
	if err != nil {
		t.Fatalf("DiscoverVideos failed: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("Expected 3 videos, got %d", len(specs))
	}
	if specs[0].Name != "Cashier Video" || specs[1].Name != "Cashier Video 2" {
		t.Errorf("Expected unique cashier names, got %s and %s", specs[0].Name, specs[1].Name)
	}
	if specs[2].Name != "Grocery" || specs[2].Kind != models.KindVideo {
		t.Errorf("Unexpected section source %+v", specs[2])
	}
}

func TestDiscoverVideos_MissingDir(t *testing.T) {
	specs, err := DiscoverVideos(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(specs) != 0 {
		t.Errorf("Expected no sources and no error, got %v, %v", specs, err)
	}
}

func TestDefaultSources(t *testing.T) {
	cfg := &Config{WebcamIndex: 2, VideoDir: filepath.Join(t.TempDir(), "none")}
	specs, err := cfg.DefaultSources()
	if err != nil {
		t.Fatalf("DefaultSources failed: %v", err)
	}
	if len(specs) != 1 || specs[0].Origin != "2" || specs[0].Role != models.RoleEntrance {
		t.Errorf("Unexpected default sources %+v", specs)
	}
}
