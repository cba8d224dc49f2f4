package ai

import (
	"fmt"
	"image"
	"image/color"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/service/pipeline"
	"retailanalytics/internal/service/video"

	"gocv.io/x/gocv"
)

var (
	green  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	blue   = color.RGBA{R: 0, G: 128, B: 255, A: 0}
	yellow = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Renderer draws annotations onto frames and encodes them as JPEG.
type Renderer struct {
	logger *logger.Logger
}

func NewRenderer(logger *logger.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Render draws in place on the frame and returns the encoded JPEG.
func (r *Renderer) Render(frame pipeline.Frame, a pipeline.Annotation) ([]byte, error) {
	f, ok := frame.(*video.Frame)
	if !ok || f.Mat.Empty() {
		return nil, ErrBadFrame
	}
	mat := &f.Mat

	if a.Heat != nil {
		if err := overlayHeat(mat, a); err != nil {
			r.logger.Warning("Failed to draw heatmap overlay: %v", err)
		}
	}

	if a.ROI != nil {
		rect := image.Rect(a.ROI.X1, a.ROI.Y1, a.ROI.X2, a.ROI.Y2)
		if err := gocv.Rectangle(mat, rect, yellow, 2); err != nil {
			return nil, fmt.Errorf("failed to draw cashier area: %v", err)
		}
		if err := gocv.PutText(mat, "Cashier Area", image.Pt(a.ROI.X1, a.ROI.Y1-10), gocv.FontHersheySimplex, 0.6, yellow, 2); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	for _, detection := range a.Detections {
		c := blue
		if detection.IsPerson() {
			c = green
		}
		b := detection.BBox
		if err := gocv.Rectangle(mat, image.Rect(b.X1, b.Y1, b.X2, b.Y2), c, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}
		if err := gocv.PutText(mat, detectionLabel(detection), image.Pt(b.X1, b.Y1-5), gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	banner := fmt.Sprintf("People: %d", a.People)
	if err := gocv.PutText(mat, banner, image.Pt(10, 30), gocv.FontHersheySimplex, 1.0, white, 2); err != nil {
		return nil, fmt.Errorf("failed to draw text: %v", err)
	}

	buf, err := gocv.IMEncode(".jpg", *mat)
	if err != nil {
		r.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	defer buf.Close()
	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())

	return finalImage, nil
}

// overlayHeat blends a JET-colored heatmap over the frame.
func overlayHeat(mat *gocv.Mat, a pipeline.Annotation) error {
	if a.HeatWidth*a.HeatHeight != len(a.Heat) || len(a.Heat) == 0 {
		return fmt.Errorf("heatmap of %d bytes does not match %dx%d", len(a.Heat), a.HeatWidth, a.HeatHeight)
	}

	gray, err := gocv.NewMatFromBytes(a.HeatHeight, a.HeatWidth, gocv.MatTypeCV8U, a.Heat)
	if err != nil {
		return err
	}
	defer gray.Close()

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(gray, &colored, gocv.ColormapJet)

	if colored.Cols() != mat.Cols() || colored.Rows() != mat.Rows() {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(colored, &resized, image.Pt(mat.Cols(), mat.Rows()), 0, 0, gocv.InterpolationLinear)
		gocv.AddWeighted(*mat, 1-a.HeatAlpha, resized, a.HeatAlpha, 0, mat)
		return nil
	}

	gocv.AddWeighted(*mat, 1-a.HeatAlpha, colored, a.HeatAlpha, 0, mat)
	return nil
}

// detectionLabel is "Person #id" for tracked people and the class label otherwise.
func detectionLabel(d models.Detection) string {
	if d.IsPerson() && d.TrackID != models.UntrackedID {
		return fmt.Sprintf("Person #%d", d.TrackID)
	}
	return fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
}
