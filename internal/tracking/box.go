package tracking

import (
	"encoding/json"
	"fmt"
)

// iouEpsilon keeps IoU finite for degenerate boxes.
const iouEpsilon = 1e-6

// Box is an axis-aligned rectangle in pixel coordinates (x1, y1, x2, y2).
// It encodes as a four element JSON array.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Area returns the box area, zero for inverted or empty boxes.
func (b Box) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Valid reports whether x1<x2 and y1<y2.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Scale multiplies every coordinate by the given factors.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// FromXYWH converts an origin plus width/height rectangle to corner form.
func FromXYWH(x, y, w, h float64) Box {
	return Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// IoU returns the intersection over union of a and b.
func IoU(a, b Box) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)
	inter := max(0, ix2-ix1) * max(0, iy2-iy1)
	return inter / (a.Area() + b.Area() - inter + iouEpsilon)
}

func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *Box) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("decode box: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("decode box: expected 4 coordinates, got %d", len(coords))
	}
	*b = Box{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	return nil
}
