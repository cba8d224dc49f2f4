package models

// PersonLabel is the label every detector adapter uses for people.
const PersonLabel = "person"

// UntrackedID marks a detection the tracker could not associate.
const UntrackedID = -1

// BBox is an axis-aligned box in frame pixels (x1,y1 top-left; x2,y2 bottom-right).
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Center returns the integer center of the box.
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width of the box.
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height of the box.
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is a single detected object in one frame.
type Detection struct {
	BBox       BBox    `json:"bbox"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	TrackID    int     `json:"track_id"`
	Confidence float64 `json:"confidence"`
}

// IsPerson reports whether the detection denotes a person.
func (d Detection) IsPerson() bool {
	return d.Label == PersonLabel
}

// GenderCount holds binary gender counts for one frame.
type GenderCount struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

// PersonBoxes filters detections down to person boxes.
func PersonBoxes(detections []Detection) []BBox {
	boxes := make([]BBox, 0, len(detections))
	for _, d := range detections {
		if d.IsPerson() {
			boxes = append(boxes, d.BBox)
		}
	}
	return boxes
}

// Centers returns the center of each box.
func Centers(boxes []BBox) []Point {
	centers := make([]Point, 0, len(boxes))
	for _, b := range boxes {
		centers = append(centers, b.Center())
	}
	return centers
}
