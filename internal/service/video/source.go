// Package video wraps gocv captures as pipeline sources.
package video

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"retailanalytics/internal/models"
	"retailanalytics/internal/service/pipeline"

	"gocv.io/x/gocv"
)

const (
	FallbackWidth  = 640
	FallbackHeight = 480
)

// Frame is a decoded frame backed by a gocv.Mat.
type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Size() (int, int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Source is a webcam (device index or stream URL) or a video file.
type Source struct {
	spec    models.SourceSpec
	capture *gocv.VideoCapture
	mutex   sync.Mutex
}

// Open creates an unstarted source. It matches pipeline.Opener.
func Open(spec models.SourceSpec) (pipeline.Source, error) {
	if spec.Kind == models.KindVideo {
		if _, err := os.Stat(spec.Origin); err != nil {
			return nil, fmt.Errorf("video file %s: %w", spec.Origin, err)
		}
	}
	return &Source{spec: spec}, nil
}

// Start opens the capture. Webcam origins that parse as integers are device indexes.
func (s *Source) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.capture != nil {
		return nil
	}

	var device interface{} = s.spec.Origin
	if s.spec.Kind == models.KindWebcam {
		if index, err := strconv.Atoi(s.spec.Origin); err == nil {
			device = index
		}
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("failed to open video capture %s: %w", s.spec.Origin, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video capture %s is not opened", s.spec.Origin)
	}

	s.capture = capture
	return nil
}

// Read grabs the next frame. The caller owns the returned frame.
func (s *Source) Read() (pipeline.Frame, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.capture == nil {
		return nil, false
	}

	mat := gocv.NewMat()
	if !s.capture.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, false
	}
	return &Frame{Mat: mat}, true
}

// Rewind seeks a video file back to frame 0.
func (s *Source) Rewind() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.capture == nil {
		return fmt.Errorf("capture %s is not open", s.spec.Origin)
	}
	if s.spec.Kind != models.KindVideo {
		return fmt.Errorf("capture %s is not a file", s.spec.Origin)
	}
	s.capture.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

// Stop releases the capture; calling it twice is safe.
func (s *Source) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.capture != nil {
		s.capture.Close()
		s.capture = nil
	}
}

// FrameSize reports the capture size, or 640x480 when the device cannot tell.
func (s *Source) FrameSize() (int, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.capture == nil {
		return FallbackWidth, FallbackHeight
	}
	width := int(s.capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(s.capture.Get(gocv.VideoCaptureFrameHeight))
	if width <= 0 || height <= 0 {
		return FallbackWidth, FallbackHeight
	}
	return width, height
}
