// Package heatmap accumulates person positions into a decaying per-pixel density grid.
package heatmap

import (
	"fmt"
	"math"
	"sort"

	"retailanalytics/internal/models"
)

const (
	// DefaultDecay is applied to every cell before new positions are stamped.
	DefaultDecay = 0.95
	// DefaultRadius is the disc radius at ReferenceWidth.
	DefaultRadius = 30
	// ReferenceWidth is the frame width the radius is defined for.
	ReferenceWidth = 640
	// DefaultZones is the default zone count (3x3 tiling).
	DefaultZones = 9
)

// Accumulator is a dense width*height grid of float32, row-major.
// It is owned by a single processing loop and is not safe for concurrent use.
type Accumulator struct {
	width  int
	height int
	decay  float32
	radius int
	grid   []float32
	disc   []models.Point // offsets of the stamp, precomputed
}

// New creates an accumulator sized to a frame. Radius is given at ReferenceWidth
// and scaled to the actual width.
func New(width, height int, decay float64, radius int) (*Accumulator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid heatmap size %dx%d", width, height)
	}
	if decay <= 0 || decay >= 1 {
		return nil, fmt.Errorf("decay must be in (0,1), got %v", decay)
	}
	if radius <= 0 {
		radius = DefaultRadius
	}

	scaled := int(math.Round(float64(radius) * float64(width) / ReferenceWidth))
	if scaled < 1 {
		scaled = 1
	}

	a := &Accumulator{
		width:  width,
		height: height,
		decay:  float32(decay),
		radius: scaled,
		grid:   make([]float32, width*height),
	}
	for dy := -scaled; dy <= scaled; dy++ {
		for dx := -scaled; dx <= scaled; dx++ {
			if dx*dx+dy*dy <= scaled*scaled {
				a.disc = append(a.disc, models.Point{X: dx, Y: dy})
			}
		}
	}
	return a, nil
}

// Size returns the grid dimensions.
func (a *Accumulator) Size() (int, int) { return a.width, a.height }

// Radius returns the scaled stamp radius in pixels.
func (a *Accumulator) Radius() int { return a.radius }

// At returns the raw value of a cell.
func (a *Accumulator) At(x, y int) float32 {
	return a.grid[y*a.width+x]
}

// Update decays the whole grid and stamps a disc of weight 1.0 at every
// in-bounds center. Out-of-bounds centers are ignored.
func (a *Accumulator) Update(centers []models.Point) {
	for i := range a.grid {
		a.grid[i] *= a.decay
	}

	for _, c := range centers {
		if c.X < 0 || c.X >= a.width || c.Y < 0 || c.Y >= a.height {
			continue
		}
		for _, off := range a.disc {
			x, y := c.X+off.X, c.Y+off.Y
			if x < 0 || x >= a.width || y < 0 || y >= a.height {
				continue
			}
			a.grid[y*a.width+x] += 1.0
		}
	}
}

// ZoneDensities splits the grid into a sqrt(n) x sqrt(n) tiling and returns the
// mean of each tile times 100, truncated, keyed zone_<row>_<col>.
func (a *Accumulator) ZoneDensities(numZones int) map[string]int {
	side := int(math.Sqrt(float64(numZones)))
	if side < 1 {
		side = 1
	}
	zoneW := a.width / side
	zoneH := a.height / side

	zones := make(map[string]int, side*side)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			name := fmt.Sprintf("zone_%d_%d", i, j)
			if zoneW == 0 || zoneH == 0 {
				zones[name] = 0
				continue
			}

			var sum float64
			for y := i * zoneH; y < (i+1)*zoneH; y++ {
				row := a.grid[y*a.width : (y+1)*a.width]
				for x := j * zoneW; x < (j+1)*zoneW; x++ {
					sum += float64(row[x])
				}
			}
			zones[name] = int(sum / float64(zoneW*zoneH) * 100)
		}
	}
	return zones
}

// minMax returns the grid range.
func (a *Accumulator) minMax() (float32, float32) {
	lo, hi := a.grid[0], a.grid[0]
	for _, v := range a.grid[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Hotspots min-max normalizes the grid and returns every cell above threshold,
// hottest first. Equal cells keep row-major order. A flat grid (including all
// zeros) has no hotspots.
func (a *Accumulator) Hotspots(threshold float64) []models.Point {
	lo, hi := a.minMax()
	if hi-lo <= 0 {
		return nil
	}

	span := float64(hi - lo)
	var cells []int
	for i, v := range a.grid {
		if float64(v-lo)/span > threshold {
			cells = append(cells, i)
		}
	}
	sort.SliceStable(cells, func(i, j int) bool { return a.grid[cells[i]] > a.grid[cells[j]] })

	var points []models.Point
	for _, i := range cells {
		points = append(points, models.Point{X: i % a.width, Y: i / a.width})
	}
	return points
}

// Normalized min-max scales the grid to 0..255, row-major. A flat grid maps to zeros.
func (a *Accumulator) Normalized() []uint8 {
	out := make([]uint8, len(a.grid))
	lo, hi := a.minMax()
	if hi-lo <= 0 {
		return out
	}

	scale := 255 / (hi - lo)
	for i, v := range a.grid {
		out[i] = uint8((v-lo)*scale + 0.5)
	}
	return out
}

// Reset zeroes the grid.
func (a *Accumulator) Reset() {
	for i := range a.grid {
		a.grid[i] = 0
	}
}
