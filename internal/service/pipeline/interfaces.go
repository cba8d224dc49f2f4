package pipeline

import (
	"errors"

	"retailanalytics/internal/models"
)

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceExists   = errors.New("source already registered")
	ErrSourceOpen     = errors.New("failed to open source")
	ErrAlreadyRunning = errors.New("source is already processing")
	ErrStopTimeout    = errors.New("processing loop did not stop in time")
)

// Frame is one decoded video frame. The loop closes it after use.
type Frame interface {
	Size() (width, height int)
	Close() error
}

// Source is a video capture: a live device or a file that loops.
type Source interface {
	Start() error
	// Read returns false on end of stream (file) or a failed read (device).
	Read() (Frame, bool)
	// Rewind seeks a file source back to its first frame.
	Rewind() error
	// Stop releases the capture; calling it twice is safe.
	Stop()
	// FrameSize falls back to 640x480 when the device does not report it.
	FrameSize() (width, height int)
}

// Opener creates an unstarted Source for a registration request.
type Opener func(spec models.SourceSpec) (Source, error)

// Detector returns the detections of one frame with track ids assigned.
// Each source gets its own Detector so tracker state is never shared.
type Detector interface {
	Detect(frame Frame) ([]models.Detection, error)
}

// TrackResetter is implemented by detectors that carry tracks between frames.
// The loop calls ResetTracks when a file source starts over. Detectors that
// also implement io.Closer are closed when their source is released.
type TrackResetter interface {
	ResetTracks()
}

// DetectorFactory builds the Detector of one source.
type DetectorFactory func(source string) (Detector, error)

// GenderClassifier counts men and women among the person boxes of a frame.
type GenderClassifier interface {
	Classify(frame Frame, boxes []models.BBox) (models.GenderCount, error)
}

// Annotation is everything drawn on top of a published frame.
type Annotation struct {
	Detections []models.Detection
	People     int
	ROI        *models.BBox
	Heat       []uint8 // normalized heatmap, nil when the overlay is off
	HeatWidth  int
	HeatHeight int
	HeatAlpha  float64
}

// Renderer draws the annotation and encodes the frame for streaming.
type Renderer interface {
	Render(frame Frame, a Annotation) ([]byte, error)
}
