// Package tracking assigns persistent integer ids to person detections across frames.
package tracking

import (
	"sort"

	"retailanalytics/internal/models"
)

const (
	// DefaultMaxAge is how many frames a track survives without a match.
	DefaultMaxAge = 15
	// DefaultMinIoU is the minimum overlap for a detection to continue a track.
	DefaultMinIoU = 0.3
)

type track struct {
	id              int
	box             models.BBox
	hits            int
	timeSinceUpdate int
}

// Tracker is a greedy IoU tracker. One instance per source; not safe for concurrent use.
type Tracker struct {
	tracks []*track
	nextID int
	maxAge int
	minIoU float64
}

// NewTracker creates a tracker; non-positive values fall back to defaults.
func NewTracker(maxAge int, minIoU float64) *Tracker {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if minIoU <= 0 {
		minIoU = DefaultMinIoU
	}
	return &Tracker{maxAge: maxAge, minIoU: minIoU}
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int { return len(t.tracks) }

// Update stamps TrackID on every person detection and returns the slice.
// Non-person detections keep UntrackedID.
func (t *Tracker) Update(detections []models.Detection) []models.Detection {
	for _, tr := range t.tracks {
		tr.timeSinceUpdate++
	}

	matched := make(map[int]bool, len(t.tracks))
	var unmatched []int

	for i := range detections {
		d := &detections[i]
		if !d.IsPerson() {
			d.TrackID = models.UntrackedID
			continue
		}

		best := -1
		bestIoU := t.minIoU
		for j, tr := range t.tracks {
			if matched[j] {
				continue
			}
			if v := IoU(d.BBox, tr.box); v >= bestIoU {
				bestIoU = v
				best = j
			}
		}

		if best < 0 {
			unmatched = append(unmatched, i)
			continue
		}
		tr := t.tracks[best]
		tr.box = d.BBox
		tr.hits++
		tr.timeSinceUpdate = 0
		matched[best] = true
		d.TrackID = tr.id
	}

	for _, i := range unmatched {
		t.nextID++
		t.tracks = append(t.tracks, &track{id: t.nextID, box: detections[i].BBox, hits: 1})
		detections[i].TrackID = t.nextID
	}

	alive := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.timeSinceUpdate <= t.maxAge {
			alive = append(alive, tr)
		}
	}
	t.tracks = alive
	sort.Slice(t.tracks, func(a, b int) bool { return t.tracks[a].id < t.tracks[b].id })

	return detections
}

// Reset drops every track. Ids keep increasing so a new person never reuses an old id.
func (t *Tracker) Reset() {
	t.tracks = nil
}

// IoU is the intersection over union of two boxes.
func IoU(a, b models.BBox) float64 {
	x1, y1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	x2, y2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Width()*a.Height()+b.Width()*b.Height()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
