package tentacle

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/rope"
)

// Executor runs physics jobs, possibly on other goroutines.
type Executor interface {
	Submit(job func())
}

// task is the outstanding physics work of one appendage. Complete is the
// join; it is cheap when nothing is pending.
type task struct {
	wg sync.WaitGroup
}

// Complete waits for any scheduled physics step of this appendage to finish.
// Every reader of point data calls it before reading.
func (a *Appendage) Complete() {
	a.task.wg.Wait()
}

// SchedulePhysics snapshots the anchor and submits one physics step. With a
// nil executor the step runs inline. Behavior state must not be mutated until
// Complete returns.
func (a *Appendage) SchedulePhysics(ex Executor, dt float64, striker rope.Striker) {
	a.Complete()
	a.anchor = a.host.AnchorPosition(a.index)
	a.striker = striker

	if ex == nil {
		a.StepPhysics(dt)
		return
	}
	a.task.wg.Add(1)
	ex.Submit(func() {
		defer a.task.wg.Done()
		a.StepPhysics(dt)
	})
}

// StepPhysics integrates and relaxes the chain for one fixed step. It reads
// behavior state but only writes point data and pending strikes, so steps of
// different appendages may run concurrently.
func (a *Appendage) StepPhysics(dt float64) {
	p := &a.params
	reaching := a.mode == ModeReaching

	damping := p.DampingIdle
	switch {
	case reaching:
		damping = p.DampingReach
	case a.gripping:
		damping = p.DampingGrip
	case a.mode == ModeHanging:
		damping = p.DampingHang
	}

	a.chain.Integrate(damping, p.Gravity, dt, reaching)

	var pin *r2.Vec
	switch {
	case reaching:
		speed := p.ReachSpeed
		if a.attacking {
			speed = p.AttackSpeed
		}
		budget := math.Min(dt, math.Max(a.timer, 0))
		a.chain.Points[0].Pos = a.anchor
		from, to := a.chain.MoveTip(a.target, speed, budget, p.RopeLength()*a.stretch)
		if a.attacking {
			a.contacts, a.strikes = rope.SweepStrikes(a.striker, from, to, dt, p.Strike, a.struck, a.contacts, a.strikes)
		}
		pin = &to
	case a.gripping:
		pin = &a.target
	}

	a.chain.Relax(a.anchor, pin)
}

// DrainStrikes joins, then appends and clears the strikes produced since the
// last call.
func (a *Appendage) DrainStrikes(dst []rope.Strike) []rope.Strike {
	a.Complete()
	dst = append(dst, a.strikes...)
	a.strikes = a.strikes[:0]
	return dst
}
