package creature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// ErrDegenerateOutline is returned for outlines with fewer than two distinct
// points or no perimeter.
var ErrDegenerateOutline = errors.New("degenerate outline")

// Outline yields the ordered boundary of a body shape, relative to its
// centre. It is read once per body to place the anchors.
type Outline interface {
	Boundary() []r2.Vec
}

// Ellipse is an elliptical outline sampled at Samples points.
type Ellipse struct {
	RX, RY  float64
	Samples int
}

// Boundary implements Outline.
func (e Ellipse) Boundary() []r2.Vec {
	if e.Samples < 3 {
		return nil
	}
	pts := make([]r2.Vec, e.Samples)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(e.Samples)
		pts[i] = r2.Vec{X: e.RX * math.Cos(a), Y: e.RY * math.Sin(a)}
	}
	return pts
}

// Polygon is an explicit closed outline.
type Polygon []r2.Vec

// Boundary implements Outline.
func (p Polygon) Boundary() []r2.Vec { return p }

// AnchorOffsets spaces n anchors evenly by arc length around the closed
// boundary, starting at its first point.
func AnchorOffsets(o Outline, n int) ([]r2.Vec, error) {
	if o == nil {
		return nil, fmt.Errorf("anchor offsets: %w: no outline", ErrDegenerateOutline)
	}
	if n < 1 {
		return nil, fmt.Errorf("anchor offsets: need at least one anchor, got %d", n)
	}
	pts := o.Boundary()
	if len(pts) < 2 {
		return nil, fmt.Errorf("anchor offsets: %w: %d points", ErrDegenerateOutline, len(pts))
	}

	// Cumulative length at the start of each closed edge.
	cum := make([]float64, len(pts)+1)
	for i := range pts {
		next := pts[(i+1)%len(pts)]
		cum[i+1] = cum[i] + geom.Distance(pts[i], next)
	}
	perimeter := cum[len(pts)]
	if perimeter < 1e-9 {
		return nil, fmt.Errorf("anchor offsets: %w: zero perimeter", ErrDegenerateOutline)
	}

	offsets := make([]r2.Vec, n)
	edge := 0
	for k := 0; k < n; k++ {
		s := perimeter * float64(k) / float64(n)
		for edge < len(pts)-1 && cum[edge+1] <= s {
			edge++
		}
		l := cum[edge+1] - cum[edge]
		t := 0.0
		if l > 0 {
			t = (s - cum[edge]) / l
		}
		offsets[k] = geom.Lerp(pts[edge], pts[(edge+1)%len(pts)], t)
	}
	return offsets, nil
}
