// Package scene drives what the bodies pursue: a patrolling movement target
// and a spawner for strikeable targets.
package scene

import (
	"math/rand"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// EaseFunc maps the config spelling to an easing function. Unknown names
// ease linearly.
func EaseFunc(name string) ease.TweenFunc {
	switch name {
	case "sine":
		return ease.InOutSine
	case "quad":
		return ease.InOutQuad
	case "cubic":
		return ease.InOutCubic
	default:
		return ease.Linear
	}
}

// Patrol moves a point around a closed loop of waypoints, one tweened leg
// at a time.
type Patrol struct {
	waypoints []r2.Vec
	legTime   float32
	easing    ease.TweenFunc
	notify    float64

	leg      int
	tx, ty   *gween.Tween
	pos      r2.Vec
	notified r2.Vec
}

// NewPatrol starts at the first waypoint. notifyDist is how far the point
// must travel before Update reports it moved. A single waypoint holds still.
func NewPatrol(waypoints []r2.Vec, legDuration float64, easing ease.TweenFunc, notifyDist float64) *Patrol {
	if easing == nil {
		easing = ease.Linear
	}
	p := &Patrol{
		waypoints: waypoints,
		legTime:   float32(max(legDuration, 1e-3)),
		easing:    easing,
		notify:    notifyDist,
	}
	if len(waypoints) > 0 {
		p.pos = waypoints[0]
		p.notified = p.pos
	}
	p.startLeg(0)
	return p
}

func (p *Patrol) startLeg(i int) {
	if len(p.waypoints) < 2 {
		return
	}
	p.leg = i % len(p.waypoints)
	from := p.waypoints[p.leg]
	to := p.waypoints[(p.leg+1)%len(p.waypoints)]
	p.tx = gween.New(float32(from.X), float32(to.X), p.legTime, p.easing)
	p.ty = gween.New(float32(from.Y), float32(to.Y), p.legTime, p.easing)
}

// Update advances the patrol by dt seconds. moved reports that the point
// has travelled at least the notify distance since it last reported.
func (p *Patrol) Update(dt float64) (pos r2.Vec, moved bool) {
	if p.tx == nil {
		return p.pos, false
	}
	x, done := p.tx.Update(float32(dt))
	y, _ := p.ty.Update(float32(dt))
	p.pos = r2.Vec{X: float64(x), Y: float64(y)}
	if done {
		p.startLeg(p.leg + 1)
	}

	if geom.Distance(p.pos, p.notified) >= p.notify {
		p.notified = p.pos
		return p.pos, true
	}
	return p.pos, false
}

// TargetPosition implements creature.TargetSource.
func (p *Patrol) TargetPosition() (r2.Vec, bool) {
	return p.pos, len(p.waypoints) > 0
}

// Leg returns the index of the waypoint the current leg started from.
func (p *Patrol) Leg() int { return p.leg }

// Waypoints returns the loop.
func (p *Patrol) Waypoints() []r2.Vec { return p.waypoints }

// Jump moves the patrol to pos and restarts from the nearest waypoint.
func (p *Patrol) Jump(pos r2.Vec) {
	p.pos = pos
	p.notified = pos
	best, bestD := 0, -1.0
	for i, w := range p.waypoints {
		if d := geom.Distance(w, pos); bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if len(p.waypoints) >= 2 {
		to := p.waypoints[best]
		p.tx = gween.New(float32(pos.X), float32(to.X), p.legTime, p.easing)
		p.ty = gween.New(float32(pos.Y), float32(to.Y), p.legTime, p.easing)
		// The leg toward best ends at best, so the next leg starts there.
		p.leg = (best - 1 + len(p.waypoints)) % len(p.waypoints)
	}
}

// Spawner emits strikeable target positions at a fixed cadence up to a cap.
type Spawner struct {
	interval float64
	limit    int
	timer    float64
	rng      *rand.Rand
	width    float64
	height   float64
	margin   float64
	free     func(r2.Vec) bool
}

// NewSpawner creates a spawner over a width x height world. free rejects
// positions inside terrain; nil accepts everything.
func NewSpawner(interval float64, limit int, width, height, margin float64, free func(r2.Vec) bool, rng *rand.Rand) *Spawner {
	if free == nil {
		free = func(r2.Vec) bool { return true }
	}
	return &Spawner{
		interval: interval,
		limit:    limit,
		rng:      rng,
		width:    width,
		height:   height,
		margin:   margin,
		free:     free,
	}
}

// spawnAttempts bounds rejection sampling of a free position.
const spawnAttempts = 32

// Update advances the cadence. It returns a position when a target should
// be spawned given that count targets already exist.
func (s *Spawner) Update(dt float64, count int) (r2.Vec, bool) {
	if s.interval <= 0 || count >= s.limit {
		s.timer = 0
		return r2.Vec{}, false
	}
	s.timer += dt
	if s.timer < s.interval {
		return r2.Vec{}, false
	}
	s.timer = 0
	for i := 0; i < spawnAttempts; i++ {
		p := r2.Vec{
			X: s.margin + s.rng.Float64()*(s.width-2*s.margin),
			Y: s.margin + s.rng.Float64()*(s.height-2*s.margin),
		}
		if s.free(p) {
			return p, true
		}
	}
	return r2.Vec{}, false
}
