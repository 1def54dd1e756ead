// Package terrain holds grippable terrain geometry and answers sweep and
// overlap queries against it.
package terrain

import (
	"math"

	"github.com/kvartborg/vector"
	"github.com/solarlune/resolv"
	"gonum.org/v1/gonum/spatial/r2"
)

// Tags used on resolv objects.
const (
	TagSolid    = "solid"
	TagObstacle = "obstacle"
)

// Hit is the nearest solid contact along a sweep.
type Hit struct {
	Point    r2.Vec
	Normal   r2.Vec
	Fraction float64 // 0 at the sweep start, 1 at its end
	Obstacle bool
}

// Query is the terrain surface appendages search against. Implementations
// must be safe for concurrent readers.
type Query interface {
	// Sweep returns the nearest solid hit on the segment from -> to.
	Sweep(from, to r2.Vec) (Hit, bool)
	// OverlapsObstacle reports whether the circle touches an obstacle region.
	OverlapsObstacle(center r2.Vec, radius float64) bool
}

// Rect is an axis-aligned terrain block in world units.
type Rect struct {
	Min, Max r2.Vec
	Obstacle bool
}

// Space is a resolv-backed terrain. Geometry is added during construction
// and never mutated afterwards, so queries only read resolv cells.
type Space struct {
	space  *resolv.Space
	scale  float64 // resolv units per world unit
	width  float64
	height float64
	rects  []Rect
}

// NewSpace creates an empty terrain of the given size in world units.
// resolution is the number of resolv units per world unit; cells are one
// world unit square.
func NewSpace(width, height, resolution float64) *Space {
	if resolution < 1 {
		resolution = 1
	}
	cell := int(math.Max(1, math.Round(resolution)))
	return &Space{
		space:  resolv.NewSpace(int(math.Ceil(width*resolution)), int(math.Ceil(height*resolution)), cell, cell),
		scale:  resolution,
		width:  width,
		height: height,
	}
}

// Bounds returns the world size.
func (s *Space) Bounds() (width, height float64) { return s.width, s.height }

// Rects returns every block for rendering. The slice must not be modified.
func (s *Space) Rects() []Rect { return s.rects }

// AddSolid adds a grippable block.
func (s *Space) AddSolid(x, y, w, h float64) {
	s.add(Rect{Min: r2.Vec{X: x, Y: y}, Max: r2.Vec{X: x + w, Y: y + h}}, TagSolid)
}

// AddObstacle adds a block that can be gripped but is heavily penalised.
func (s *Space) AddObstacle(x, y, w, h float64) {
	s.add(Rect{Min: r2.Vec{X: x, Y: y}, Max: r2.Vec{X: x + w, Y: y + h}, Obstacle: true}, TagSolid, TagObstacle)
}

func (s *Space) add(r Rect, tags ...string) {
	if r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y {
		return
	}
	k := s.scale
	w, h := (r.Max.X-r.Min.X)*k, (r.Max.Y-r.Min.Y)*k
	obj := resolv.NewObject(r.Min.X*k, r.Min.Y*k, w, h, tags...)
	obj.SetShape(resolv.NewRectangle(0, 0, w, h))
	obj.Data = len(s.rects)
	s.rects = append(s.rects, r)
	s.space.Add(obj)
}

// eachObject calls fn for each tagged object in cells overlapping the world
// AABB [min, max]. Objects spanning several cells are visited more than once.
func (s *Space) eachObject(min, max r2.Vec, tag string, fn func(obj *resolv.Object, r Rect) bool) {
	k := s.scale
	cx0, cy0 := s.space.WorldToSpace(min.X*k, min.Y*k)
	cx1, cy1 := s.space.WorldToSpace(max.X*k, max.Y*k)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			cell := s.space.Cell(cx, cy)
			if cell == nil {
				continue
			}
			for _, obj := range cell.Objects {
				if !obj.HasTags(tag) {
					continue
				}
				idx, ok := obj.Data.(int)
				if !ok {
					continue
				}
				if !fn(obj, s.rects[idx]) {
					return
				}
			}
		}
	}
}

// Sweep implements Query. It uses its own slab test rather than resolv line
// intersection, which biases hits by one resolv unit near corners.
func (s *Space) Sweep(from, to r2.Vec) (Hit, bool) {
	min := r2.Vec{X: math.Min(from.X, to.X), Y: math.Min(from.Y, to.Y)}
	max := r2.Vec{X: math.Max(from.X, to.X), Y: math.Max(from.Y, to.Y)}

	best := Hit{Fraction: math.Inf(1)}
	found := false
	s.eachObject(min, max, TagSolid, func(_ *resolv.Object, r Rect) bool {
		t, n, ok := segmentAABB(from, to, r.Min, r.Max)
		if ok && t < best.Fraction {
			best = Hit{Fraction: t, Normal: n, Obstacle: r.Obstacle}
			found = true
		}
		return true
	})
	if !found {
		return Hit{}, false
	}
	best.Point = r2.Add(from, r2.Scale(best.Fraction, r2.Sub(to, from)))
	return best, true
}

// OverlapsObstacle implements Query. The circle is tested against each
// obstacle's resolv rectangle in resolv units.
func (s *Space) OverlapsObstacle(center r2.Vec, radius float64) bool {
	ext := r2.Vec{X: radius, Y: radius}
	k := s.scale
	circle := resolv.NewCircle(center.X*k, center.Y*k, radius*k)
	hit := false
	s.eachObject(r2.Sub(center, ext), r2.Add(center, ext), TagObstacle, func(obj *resolv.Object, _ Rect) bool {
		rect, ok := obj.Shape.(*resolv.ConvexPolygon)
		if ok && circleTouches(circle, rect) {
			hit = true
			return false
		}
		return true
	})
	return hit
}

// circleTouches reports whether circle overlaps rect: an edge crosses the
// circle, the centre is inside rect, or rect lies wholly inside the circle.
// It only reads both shapes, unlike Shape.Intersection, which moves them
// temporarily and so is unsafe for concurrent queries.
func circleTouches(circle *resolv.Circle, rect *resolv.ConvexPolygon) bool {
	for _, edge := range rect.Lines() {
		if len(edge.IntersectionPointsCircle(circle)) > 0 {
			return true
		}
	}
	if rect.PointInside(vector.Vector{circle.X, circle.Y}) {
		return true
	}
	verts := rect.Transformed()
	return len(verts) > 0 && circle.PointInside(verts[0])
}

// Contains reports whether p lies inside any solid block.
func (s *Space) Contains(p r2.Vec) bool {
	in := false
	s.eachObject(p, p, TagSolid, func(_ *resolv.Object, r Rect) bool {
		if p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y {
			in = true
			return false
		}
		return true
	})
	return in
}

// segmentAABB is a slab test of segment a->b against the box [min, max].
// A segment starting inside the box hits at t=0 with a zero normal.
func segmentAABB(a, b, min, max r2.Vec) (float64, r2.Vec, bool) {
	d := r2.Sub(b, a)
	tmin, tmax := 0.0, 1.0
	var normal r2.Vec

	axis := func(o, dir, lo, hi float64, n r2.Vec) bool {
		if math.Abs(dir) < 1e-12 {
			return o >= lo && o <= hi
		}
		inv := 1 / dir
		t1, t2 := (lo-o)*inv, (hi-o)*inv
		entry := n
		if t1 > t2 {
			t1, t2 = t2, t1
			entry = r2.Scale(-1, n)
		}
		if t1 > tmin {
			tmin = t1
			normal = entry
		}
		if t2 < tmax {
			tmax = t2
		}
		return tmin <= tmax
	}

	if !axis(a.X, d.X, min.X, max.X, r2.Vec{X: -1}) {
		return 0, r2.Vec{}, false
	}
	if !axis(a.Y, d.Y, min.Y, max.Y, r2.Vec{Y: -1}) {
		return 0, r2.Vec{}, false
	}
	return tmin, normal, true
}
