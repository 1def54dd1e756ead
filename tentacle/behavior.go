package tentacle

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/grip"
)

// Update advances the mode machine by one fixed step. It must run serially
// with respect to the other appendages of the same body and before the
// step's physics is scheduled.
func (a *Appendage) Update(dt float64) {
	a.Complete()
	a.anchor = a.host.AnchorPosition(a.index)

	switch a.mode {
	case ModeIdle:
		if a.gripping {
			a.checkOverstretch()
			return
		}
		a.idleTimer += dt
		if a.idleTimer >= a.params.IdleTimeout {
			a.idleTimer = 0
			a.RequestNewGrip(a.randomDirection(), true)
		}

	case ModeSearching, ModeSearchingPostAttack:
		a.stepSearch()

	case ModeReaching:
		a.stepReach(dt)

	case ModeHanging:
		a.timer -= dt
		if a.timer <= 0 {
			a.failures = 0
			a.enterIdle()
		}
	}
}

func (a *Appendage) stepSearch() {
	a.otherGrips = a.host.OtherGrips(a.index, a.otherGrips[:0])
	env := grip.Env{
		Terrain:    a.terrain,
		Anchor:     a.anchor,
		OtherGrips: a.otherGrips,
	}
	if !a.search.Step(env, a.rng) {
		return
	}

	if best, ok := a.search.Result(); ok {
		a.startReach(best, a.params.ReachTimeout)
		return
	}

	a.emit(EventSearchExhausted, a.search.LastIdeal())
	if a.mode == ModeSearchingPostAttack {
		a.enterHang()
		return
	}

	// Retry along a fresh direction. Idle searches pick at random; searches
	// on behalf of a moving body ask the host for a congestion-aware one.
	dir := a.randomDirection()
	if !a.idleCaller {
		dir = a.host.SuggestDirection(a.index)
	}
	a.startSearch(dir, a.idleCaller)
}

func (a *Appendage) stepReach(dt float64) {
	tip := a.chain.Tip()
	if geom.Distance(tip, a.target) <= a.params.ArriveEpsilon {
		if a.attacking {
			a.finishAttack()
			return
		}
		a.attach()
		return
	}

	a.timer -= dt
	if a.timer > 0 {
		return
	}
	if a.attacking {
		a.finishAttack()
		return
	}
	a.reachFailed()
}

// attach completes a reach. The tip is snapped onto the target so that it
// equals the grip point at the moment gripping becomes true.
func (a *Appendage) attach() {
	a.chain.SetTip(a.target)
	a.mode = ModeIdle
	a.idleTimer = 0
	a.failures = 0
	a.forward = false
	a.setGripping(true)
}

func (a *Appendage) reachFailed() {
	a.failures++
	a.emit(EventReachFailed, a.target)
	if a.failures >= a.params.MaxReachFailures {
		a.enterHang()
		return
	}
	a.startSearch(a.randomDirection(), a.idleCaller)
}

func (a *Appendage) finishAttack() {
	a.setAttacking(false)
	tip := a.chain.Tip()
	a.emit(EventAttackFinished, tip)

	if a.hadGrip {
		a.hadGrip = false
		d := geom.Distance(a.anchor, a.preAttack)
		if d <= a.params.MaxReach() && d <= a.params.OperatingRadius {
			a.startReach(a.preAttack, a.params.ReachTimeout)
			return
		}
	}

	if a.searchAfter {
		a.mode = ModeSearchingPostAttack
		a.searchDir = geom.Unit(r2.Sub(tip, a.anchor))
		if a.searchDir == (r2.Vec{}) {
			a.searchDir = a.outward
		}
		a.search.BeginPostAttack(a.searchDir, tip)
		return
	}
	a.enterHang()
}

// checkOverstretch releases a grip that has drifted out of range, but only
// while the body holds more than its stability minimum.
func (a *Appendage) checkOverstretch() {
	if a.host.GripCount() <= a.host.MinStableGrips() {
		return
	}
	d := geom.Distance(a.anchor, a.target)
	if d <= a.params.OperatingRadius && d <= a.params.MaxReach() {
		return
	}

	a.emit(EventOverstretch, a.target)
	a.ForceRelease()
	if tgt, moving := a.host.MovementTarget(); moving {
		a.RequestNewGrip(r2.Sub(tgt, a.anchor), false)
		return
	}
	a.RequestNewGrip(a.randomDirection(), true)
}
