package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/service/pipeline"
	"retailanalytics/internal/service/video"

	"gocv.io/x/gocv"
)

// brightnessSplit is the mean intensity above which the heuristic counts a person as male.
const brightnessSplit = 127.0

// GenderService counts men and women among person boxes. With a Caffe gender
// model configured it runs the network per crop, otherwise it falls back to
// a brightness heuristic.
type GenderService struct {
	net    gocv.Net
	ready  bool
	mutex  sync.Mutex
	logger *logger.Logger
}

func NewGenderService(config *config.Config, logger *logger.Logger) *GenderService {
	service := &GenderService{logger: logger}

	if config.GenderModelPath == "" || config.GenderConfigPath == "" {
		logger.Info("Gender classifier initialized (brightness heuristic)")
		return service
	}

	if err := service.initializeNet(config.GenderModelPath, config.GenderConfigPath); err != nil {
		logger.Warning("Could not initialize gender network, using heuristic: %v", err)
	}
	return service
}

func (s *GenderService) initializeNet(modelPath, configPath string) error {
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("gender model not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("gender config not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		net.Close()
		return fmt.Errorf("failed to load gender network")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Gender network initialized successfully")
	return nil
}

// Classify implements pipeline.GenderClassifier. Boxes that are empty after
// clamping are skipped.
func (s *GenderService) Classify(frame pipeline.Frame, boxes []models.BBox) (models.GenderCount, error) {
	f, ok := frame.(*video.Frame)
	if !ok || f.Mat.Empty() {
		return models.GenderCount{}, ErrBadFrame
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var count models.GenderCount
	for _, b := range boxes {
		box := clampBox(b, f.Mat.Cols(), f.Mat.Rows())
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}

		crop := f.Mat.Region(image.Rect(box.X1, box.Y1, box.X2, box.Y2))
		male, err := s.isMale(crop)
		crop.Close()
		if err != nil {
			return models.GenderCount{}, err
		}

		if male {
			count.Male++
		} else {
			count.Female++
		}
	}
	return count, nil
}

func (s *GenderService) isMale(crop gocv.Mat) (bool, error) {
	if !s.ready {
		mean := crop.Mean()
		return isBright(mean.Val1, mean.Val2, mean.Val3), nil
	}

	// Levi & Hassner: wejście 227x227, średnia BGR z ich zbioru treningowego
	blob := gocv.BlobFromImage(crop, 1.0, image.Pt(227, 227), gocv.NewScalar(78.4263377603, 87.7689143744, 114.895847746, 0), false, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	if output.Total() < 2 {
		return false, fmt.Errorf("unexpected gender output size %d", output.Total())
	}
	return output.GetFloatAt(0, 0) >= output.GetFloatAt(0, 1), nil
}

// isBright reports whether the mean of the three channel means is above brightnessSplit.
func isBright(b, g, r float64) bool {
	return (b+g+r)/3 > brightnessSplit
}

// Close releases the network, if any.
func (s *GenderService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}
