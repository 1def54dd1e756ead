package rope

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// Contact is a strikeable target touched by a swept tip.
type Contact struct {
	ID    uint32
	T     float64 // parameter along the sweep, 0 at from
	Point r2.Vec
}

// Striker answers swept-circle queries against strikeable targets.
// Implementations must be safe for concurrent readers.
type Striker interface {
	SweepTargets(from, to r2.Vec, radius float64, dst []Contact) []Contact
}

// Strike is a hit produced by an attacking tip. Impulse is applied by the
// owner of the target registry after all physics work has joined.
type Strike struct {
	TargetID uint32
	Point    r2.Vec
	Impulse  r2.Vec
}

// StrikeParams scales strike impulses.
type StrikeParams struct {
	Radius     float64
	Scale      float64
	MaxImpulse float64
}

// SweepStrikes tests the tip path from -> to against s and appends one
// Strike per newly struck target. struck records targets already hit during
// the current attack; each is struck at most once.
func SweepStrikes(s Striker, from, to r2.Vec, dt float64, p StrikeParams,
	struck map[uint32]struct{}, scratch []Contact, dst []Strike) ([]Contact, []Strike) {

	if s == nil || dt <= 0 {
		return scratch, dst
	}
	scratch = s.SweepTargets(from, to, p.Radius, scratch[:0])
	if len(scratch) == 0 {
		return scratch, dst
	}

	path := r2.Sub(to, from)
	speed := r2.Norm(path) / dt
	mag := speed * p.Scale
	if p.MaxImpulse > 0 && mag > p.MaxImpulse {
		mag = p.MaxImpulse
	}
	dir := geom.Unit(path)

	for _, c := range scratch {
		if _, done := struck[c.ID]; done {
			continue
		}
		struck[c.ID] = struct{}{}
		dst = append(dst, Strike{
			TargetID: c.ID,
			Point:    c.Point,
			Impulse:  r2.Scale(mag, dir),
		})
	}
	return scratch, dst
}
