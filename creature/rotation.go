package creature

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// travelDirection returns the unit direction of intended travel, falling
// back to the heading when the body has nowhere to go.
func (b *Body) travelDirection() r2.Vec {
	if b.moving() {
		if d := geom.Unit(r2.Sub(b.active, b.pos)); d != (r2.Vec{}) {
			return d
		}
	}
	return geom.FromAngle(b.heading)
}

// rotateGrip asks one appendage for a fresh grip. An idle appendage is
// preferred; otherwise, when above the stability minimum, the gripping
// appendage with the highest release score lets go.
func (b *Body) rotateGrip() {
	moving := b.moving()

	for i, a := range b.apps {
		if !a.IsIdle() {
			continue
		}
		dir, forward := b.chooseDirection(i)
		if a.RequestNewGrip(dir, !moving) {
			a.SetForwardSeeking(forward)
		}
		return
	}

	if b.gripCount <= b.params.MinGrips {
		return
	}
	i := b.releaseCandidate()
	if i < 0 {
		return
	}
	a := b.apps[i]
	a.ForceRelease()
	dir, forward := b.chooseDirection(i)
	if a.RequestNewGrip(dir, !moving) {
		a.SetForwardSeeking(forward)
	}
}

// releaseCandidate returns the index of the gripping appendage with the
// highest release score, or -1.
func (b *Body) releaseCandidate() int {
	ref := b.pos
	if b.hasTarget && !b.givingUp {
		ref = b.active
	}
	travel := b.travelDirection()

	b.scratch = b.scratch[:0]
	idx := make([]int, 0, len(b.apps))
	for i, a := range b.apps {
		if !a.IsGripping() || a.IsAttacking() {
			continue
		}
		g, _ := a.GripTarget()
		b.scratch = append(b.scratch, g)
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return -1
	}

	scores := ReleaseScores(b.scratch, b.pos, ref, travel, b.params.ReleasePriorityWeight)
	best, bestScore := -1, math.Inf(-1)
	for k, s := range scores {
		if s > bestScore {
			best, bestScore = idx[k], s
		}
	}
	return best
}

// ReleaseScores rates grips for release; higher releases first. Each score
// blends a normalized distance from ref with how far behind the body the
// grip lies relative to travel:
//
//	score = w*distNorm + (1-w)*rearward
//
// distNorm spans [0, 1] over the given grips. When every grip is the same
// distance from ref it is 1.0 for all of them.
func ReleaseScores(grips []r2.Vec, body, ref, travel r2.Vec, w float64) []float64 {
	scores := make([]float64, len(grips))
	if len(grips) == 0 {
		return scores
	}

	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, g := range grips {
		d := geom.Distance(g, ref)
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}
	span := maxD - minD

	for i, g := range grips {
		distNorm := 1.0
		if span > 1e-9 {
			distNorm = (geom.Distance(g, ref) - minD) / span
		}
		rearward := 0.0
		if rel := geom.Unit(r2.Sub(g, body)); rel != (r2.Vec{}) {
			rearward = (1 - r2.Dot(rel, travel)) / 2
		}
		scores[i] = w*distNorm + (1-w)*rearward
	}
	return scores
}

// chooseDirection picks a search direction for appendage i and reports
// whether it is a forward grip. Moving bodies bias into the forward cone
// while fewer than MaxForwardSeekers are already seeking forward; otherwise
// the direction points outward from the anchor. Candidates too close in
// angle to another appendage's search are rotated and retried, and after
// DirectionRetries a random direction is accepted.
func (b *Body) chooseDirection(i int) (r2.Vec, bool) {
	p := &b.params
	anchor := b.AnchorPosition(i)
	outward := geom.Unit(r2.Sub(anchor, b.pos))
	if outward == (r2.Vec{}) {
		outward = geom.FromAngle(b.heading + 2*math.Pi*float64(i)/float64(len(b.apps)))
	}

	forward := false
	var dir r2.Vec
	if b.moving() && b.forwardSeekers(i) < p.MaxForwardSeekers {
		forward = true
		dir = geom.Rotate(b.travelDirection(), (b.rng.Float64()*2-1)*p.ForwardCone)
	} else {
		dir = geom.Rotate(outward, (b.rng.Float64()*2-1)*math.Pi/4)
	}

	for try := 0; try < p.DirectionRetries; try++ {
		if !b.congested(i, dir) {
			return dir, forward
		}
		// Alternate sides with a growing step: +1, -2, +3 ...
		step := float64(try+1) * p.MinSearchAngle
		if try%2 == 1 {
			step = -step
		}
		dir = geom.Rotate(dir, step)
	}
	if !b.congested(i, dir) {
		return dir, forward
	}
	return geom.FromAngle(b.rng.Float64() * 2 * math.Pi), false
}

func (b *Body) forwardSeekers(exclude int) int {
	n := 0
	for i, a := range b.apps {
		if i != exclude && a.ForwardSeeking() {
			n++
		}
	}
	return n
}

// congested reports whether dir lies within MinSearchAngle of another
// appendage's active search direction.
func (b *Body) congested(i int, dir r2.Vec) bool {
	for j, a := range b.apps {
		if j == i || !a.Seeking() {
			continue
		}
		if geom.AngleBetween(dir, a.SearchDirection()) < b.params.MinSearchAngle {
			return true
		}
	}
	return false
}
