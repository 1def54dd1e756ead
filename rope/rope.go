// Package rope integrates and constrains the particle chain of one appendage.
//
// A Chain is a fixed-length sequence of verlet points. Index 0 is the anchor,
// which is never free-simulated: Relax pins it to the live anchor position on
// every iteration. The last point is the tip.
package rope

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// Point is one verlet particle. Prev always holds the position from the
// previous step.
type Point struct {
	Pos  r2.Vec
	Prev r2.Vec
}

// Chain is the point sequence of one appendage.
type Chain struct {
	Points        []Point
	SegmentLength float64
	Iterations    int
}

// NewChain allocates a chain of n points laid along +X from the origin.
func NewChain(n int, segmentLength float64, iterations int) *Chain {
	if n < 2 {
		n = 2
	}
	if iterations < 1 {
		iterations = 1
	}
	c := &Chain{
		Points:        make([]Point, n),
		SegmentLength: segmentLength,
		Iterations:    iterations,
	}
	c.Lay(r2.Vec{}, r2.Vec{X: 1})
	return c
}

// Lay places the chain at rest in a straight line from anchor along dir.
func (c *Chain) Lay(anchor, dir r2.Vec) {
	dir = geom.Unit(dir)
	if dir == (r2.Vec{}) {
		dir = r2.Vec{X: 1}
	}
	for i := range c.Points {
		p := r2.Add(anchor, r2.Scale(float64(i)*c.SegmentLength, dir))
		c.Points[i] = Point{Pos: p, Prev: p}
	}
}

// Length returns the rest length of the whole chain.
func (c *Chain) Length() float64 {
	return float64(len(c.Points)-1) * c.SegmentLength
}

// Anchor returns the position of point 0.
func (c *Chain) Anchor() r2.Vec { return c.Points[0].Pos }

// Tip returns the position of the last point.
func (c *Chain) Tip() r2.Vec { return c.Points[len(c.Points)-1].Pos }

// SetTip moves the tip, keeping Prev as the position it had this step.
func (c *Chain) SetTip(p r2.Vec) {
	tip := &c.Points[len(c.Points)-1]
	tip.Pos = p
}

// Integrate applies one verlet step to every point except the anchor.
// When skipTip is set the tip is left for the caller to move directly.
func (c *Chain) Integrate(damping, gravity, dt float64, skipTip bool) {
	keep := 1 - damping
	acc := r2.Vec{Y: gravity * dt * dt}
	last := len(c.Points) - 1
	if skipTip {
		last--
	}
	for i := 1; i <= last; i++ {
		p := &c.Points[i]
		vel := r2.Scale(keep, r2.Sub(p.Pos, p.Prev))
		next := r2.Add(r2.Add(p.Pos, vel), acc)
		p.Prev = p.Pos
		p.Pos = next
	}
}

// Relax runs Iterations passes of distance-constraint relaxation.
//
// Point 0 is pinned to anchor before every pass, so the anchor segment moves
// only its far point. Other pairs split the correction evenly. When pin is
// non-nil the tip is forced onto it after every pass.
func (c *Chain) Relax(anchor r2.Vec, pin *r2.Vec) {
	pts := c.Points
	rest := c.SegmentLength
	last := len(pts) - 1

	pts[0].Prev = pts[0].Pos
	for iter := 0; iter < c.Iterations; iter++ {
		pts[0].Pos = anchor

		for i := 0; i < last; i++ {
			a, b := &pts[i], &pts[i+1]
			d := r2.Sub(b.Pos, a.Pos)
			dist := r2.Norm(d)
			if dist < 1e-12 {
				continue
			}
			diff := (dist - rest) / dist
			if i == 0 {
				b.Pos = r2.Sub(b.Pos, r2.Scale(diff, d))
				continue
			}
			half := r2.Scale(0.5*diff, d)
			a.Pos = r2.Add(a.Pos, half)
			b.Pos = r2.Sub(b.Pos, half)
		}

		if pin != nil {
			pts[last].Pos = *pin
		}
	}
	pts[0].Pos = anchor
}

// MoveTip moves the tip directly toward target by at most speed*budget and
// never farther than maxDist from the anchor. budget is the step time clamped
// to whatever remains of the reach timer. It returns the tip before and
// after the move.
func (c *Chain) MoveTip(target r2.Vec, speed, budget, maxDist float64) (from, to r2.Vec) {
	tip := &c.Points[len(c.Points)-1]
	from = tip.Pos
	budget = math.Max(budget, 0)

	d := r2.Sub(target, from)
	dist := r2.Norm(d)
	step := speed * budget
	if step >= dist {
		to = target
	} else {
		to = r2.Add(from, r2.Scale(step/dist, d))
	}
	to = geom.ClampLength(c.Points[0].Pos, to, maxDist)

	tip.Prev = from
	tip.Pos = to
	return from, to
}

// MaxSegmentError returns the largest relative deviation of any segment from
// the rest length.
func (c *Chain) MaxSegmentError() float64 {
	worst := 0.0
	for i := 0; i+1 < len(c.Points); i++ {
		d := geom.Distance(c.Points[i].Pos, c.Points[i+1].Pos)
		e := math.Abs(d-c.SegmentLength) / c.SegmentLength
		if e > worst {
			worst = e
		}
	}
	return worst
}

// CopyPositions appends the point positions to dst.
func (c *Chain) CopyPositions(dst []r2.Vec) []r2.Vec {
	for _, p := range c.Points {
		dst = append(dst, p.Pos)
	}
	return dst
}
