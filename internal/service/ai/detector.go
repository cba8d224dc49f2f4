package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/service/pipeline"
	"retailanalytics/internal/service/tracking"
	"retailanalytics/internal/service/video"

	"gocv.io/x/gocv"
)

const (
	// DetectionThreshold is the default minimum confidence for object detections.
	DetectionThreshold = 0.5
	// minTrackIoU is the overlap a detection needs to continue a track.
	minTrackIoU = 0.3
)

var (
	ErrNetNotReady = errors.New("detection network not initialized")
	ErrBadFrame    = errors.New("frame is not a decoded video frame")
)

// DetectorService runs the SSD network for one source and keeps that source's tracks.
type DetectorService struct {
	net        gocv.Net
	ready      bool
	modelPath  string
	configPath string
	threshold  float64
	classes    map[int]bool
	tracker    *tracking.Tracker
	mutex      sync.Mutex
	logger     *logger.Logger
}

// NewDetectorFactory returns a pipeline.DetectorFactory. Every source gets its own
// network, since a gocv.Net must not be shared between goroutines.
func NewDetectorFactory(config *config.Config, logger *logger.Logger) pipeline.DetectorFactory {
	return func(source string) (pipeline.Detector, error) {
		return NewDetectorService(config, logger.With("source", source)), nil
	}
}

// NewDetectorService creates a detector with model/config paths and a logger.
// A network that fails to load is logged; Detect then reports ErrNetNotReady.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	threshold := config.DetectionThreshold
	if threshold <= 0 {
		threshold = DetectionThreshold
	}

	service := &DetectorService{
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		threshold:  threshold,
		classes:    classSet(config.DetectClasses),
		tracker:    tracking.NewTracker(config.TrackerMaxAge, minTrackIoU),
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)

	if net.Empty() {
		net.Close()
		return fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect runs the network on the frame and returns the accepted detections with
// person track ids assigned.
func (s *DetectorService) Detect(frame pipeline.Frame) ([]models.Detection, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.ready {
		return nil, ErrNetNotReady
	}

	f, ok := frame.(*video.Frame)
	if !ok || f.Mat.Empty() {
		return nil, ErrBadFrame
	}
	mat := f.Mat

	//Create blob with parameters that fit ssd coco net input
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	var results []models.Detection

	// Process detections with output: [ batch_id, class_id, confidence, x1, y1, x2, y2 ]
	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()
	for i := 0; i < outputReshaped.Rows(); i++ {
		var row [7]float32
		for j := range row {
			row[j] = outputReshaped.GetFloatAt(i, j)
		}
		if d, ok := s.decode(row, mat.Cols(), mat.Rows()); ok {
			results = append(results, d)
		}
	}

	return s.tracker.Update(results), nil
}

// decode turns one output row into a detection, rejecting low confidence,
// classes outside the allow-list and boxes that vanish after clamping.
func (s *DetectorService) decode(row [7]float32, width, height int) (models.Detection, bool) {
	confidence := float64(row[2])
	if confidence < s.threshold {
		return models.Detection{}, false
	}
	classID := int(row[1])
	if len(s.classes) > 0 && !s.classes[classID] {
		return models.Detection{}, false
	}

	box := clampBox(models.BBox{
		X1: int(row[3] * float32(width)),
		Y1: int(row[4] * float32(height)),
		X2: int(row[5] * float32(width)),
		Y2: int(row[6] * float32(height)),
	}, width, height)
	if box.Width() <= 0 || box.Height() <= 0 {
		return models.Detection{}, false
	}

	return models.Detection{
		BBox:       box,
		ClassID:    classID,
		Label:      getClassLabel(classID),
		TrackID:    models.UntrackedID,
		Confidence: confidence,
	}, true
}

// ResetTracks forgets the tracks of the previous pass over a looping file.
func (s *DetectorService) ResetTracks() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tracker.Reset()
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}

// clampBox keeps the box inside a width x height frame.
func clampBox(b models.BBox, width, height int) models.BBox {
	clamp := func(v, hi int) int { return max(0, min(v, hi)) }
	return models.BBox{
		X1: clamp(b.X1, width),
		Y1: clamp(b.Y1, height),
		X2: clamp(b.X2, width),
		Y2: clamp(b.Y2, height),
	}
}

func classSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// getClassLabel maps COCO class IDs of the SSD model to labels.
func getClassLabel(classID int) string {
	labels := map[int]string{
		1:  models.PersonLabel,
		2:  "bicycle",
		3:  "car",
		27: "backpack",
		31: "handbag",
		33: "suitcase",
		44: "bottle",
		47: "cup",
		62: "chair",
		63: "couch",
		67: "dining table",
		72: "tv",
		73: "laptop",
		77: "cell phone",
		84: "book",
	}

	if label, exists := labels[classID]; exists {
		return label
	}
	return fmt.Sprintf("unknown%d", classID)
}
