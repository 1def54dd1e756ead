package creature

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
)

// bodySkin keeps the body centre this far off terrain it runs into.
const bodySkin = 0.05

// RequiredGrips returns the grip count needed to move from the current
// position: the stability minimum, or the stricter far minimum when the
// target is beyond FarDistance.
func (b *Body) RequiredGrips() int {
	if b.hasTarget && geom.Distance(b.pos, b.active) > b.params.FarDistance {
		return b.params.FarMinGrips
	}
	return b.params.MinGrips
}

// UpdateMovement gates and integrates body motion for one fixed step.
func (b *Body) UpdateMovement(dt float64) {
	p := &b.params

	switch {
	case b.retreating:
		b.updateRetreat(dt)

	case !b.hasTarget || b.givingUp:
		b.decay(dt)
		b.failTimer = 0

	default:
		toTarget := r2.Sub(b.active, b.pos)
		dist := r2.Norm(toTarget)
		if dist <= p.ArriveDistance {
			b.decay(dt)
			b.failTimer = 0
			b.moveFailures = 0
			break
		}
		dir := r2.Scale(1/dist, toTarget)

		if b.gripCount < b.RequiredGrips() {
			b.gated(dir, dt)
			break
		}

		b.failTimer = 0
		b.okTimer += dt
		if b.okTimer >= p.MoveFailureTimeout {
			b.moveFailures = 0
		}
		desired := r2.Scale(p.MoveSpeed, dir)
		b.vel = r2.Add(b.vel, geom.ClampLength(r2.Vec{}, r2.Sub(desired, b.vel), p.Acceleration*dt))
	}

	b.integrate(dt)
}

// gated holds the body while it lacks grips. Any velocity toward the target
// is removed so the body cannot advance, and a timer runs toward a movement
// failure.
func (b *Body) gated(dir r2.Vec, dt float64) {
	p := &b.params
	if along := r2.Dot(b.vel, dir); along > 0 {
		b.vel = r2.Sub(b.vel, r2.Scale(along, dir))
	}
	b.decay(dt)
	b.okTimer = 0

	b.failTimer += dt
	if b.failTimer < p.MoveFailureTimeout {
		return
	}
	b.failTimer = 0
	b.moveFailures++
	b.emit(Event{Kind: EventMoveFailure, Pos: b.pos})

	if b.moveFailures >= p.MaxMoveFailures {
		b.givingUp = true
		b.vel = r2.Vec{}
		b.logger.Info("giving up on target", "failures", b.moveFailures, "target", b.active)
		b.emit(Event{Kind: EventGaveUp, Pos: b.active})
		return
	}

	// Back off along the approach and try again from there.
	b.retreating = true
	b.retreatTimer = p.RetreatDuration
	b.active = r2.Sub(b.pos, r2.Scale(p.RetreatDistance, dir))
	b.vel = r2.Scale(-p.RetreatSpeed, dir)
}

func (b *Body) updateRetreat(dt float64) {
	b.retreatTimer -= dt
	away := geom.Unit(r2.Sub(b.active, b.pos))
	if b.retreatTimer <= 0 || away == (r2.Vec{}) || geom.Distance(b.pos, b.active) <= b.params.ArriveDistance {
		b.retreating = false
		b.active = b.tracked
		b.decay(dt)
		return
	}
	b.vel = r2.Scale(b.params.RetreatSpeed, away)
}

func (b *Body) decay(dt float64) {
	k := math.Max(0, 1-b.params.VelocityDecay*dt)
	b.vel = r2.Scale(k, b.vel)
}

// integrate moves the body, stopping short of solid terrain, and turns the
// heading toward the velocity.
func (b *Body) integrate(dt float64) {
	step := r2.Scale(dt, b.vel)
	if r2.Norm2(step) < 1e-18 {
		return
	}
	next := r2.Add(b.pos, step)
	if hit, ok := b.terrain.Sweep(b.pos, next); ok {
		back := geom.ClampLength(r2.Vec{}, step, bodySkin)
		next = r2.Sub(hit.Point, back)
		if hit.Fraction == 0 {
			next = b.pos
		}
		b.vel = r2.Vec{}
	}
	b.pos = next

	speed := r2.Norm(b.vel)
	if speed > 0.1 && b.params.TurnRate > 0 {
		want := geom.Angle(b.vel)
		diff := geom.NormalizeAngle(want - b.heading)
		maxTurn := b.params.TurnRate * dt
		b.heading = geom.NormalizeAngle(b.heading + geom.Clamp(diff, -maxTurn, maxTurn))
	}
}
