package game

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/targets"
	"github.com/pthm-cable/grapple/tentacle"
	"github.com/pthm-cable/grapple/telemetry"
)

// Advance runs frame-rate bookkeeping for frameDT seconds and then as many
// fixed steps as the accumulator holds, capped per frame.
func (g *Game) Advance(frameDT float64) {
	if g.paused {
		return
	}
	g.bookkeeping(frameDT)

	dt := g.cfg.Physics.DT
	g.accumulator += frameDT
	steps := 0
	for g.accumulator >= dt && steps < g.cfg.Physics.MaxStepsFrame {
		g.Step()
		g.accumulator -= dt
		steps++
	}
	// Drop the backlog rather than spiral when the step cannot keep up.
	if steps == g.cfg.Physics.MaxStepsFrame && g.accumulator >= dt {
		g.accumulator = 0
	}
}

// UpdateHeadless runs StepsPerUpdate fixed steps, each with one step's worth
// of bookkeeping.
func (g *Game) UpdateHeadless() {
	if g.paused {
		return
	}
	dt := g.cfg.Physics.DT
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.bookkeeping(dt)
		g.Step()
	}
}

// bookkeeping advances timers and the patrol. It never touches point data.
func (g *Game) bookkeeping(frameDT float64) {
	if _, moved := g.patrol.Update(frameDT); moved && g.following {
		for _, b := range g.bodies {
			b.NotifyTargetMoved()
		}
	}
	for _, b := range g.bodies {
		b.Tick(frameDT)
	}

	live := g.flashes[:0]
	for _, f := range g.flashes {
		if f.ttl -= frameDT; f.ttl > 0 {
			live = append(live, f)
		}
	}
	g.flashes = live
}

// executor picks the worker pool once there are enough appendages to
// amortise the handoff; nil runs physics inline.
func (g *Game) executor() tentacle.Executor {
	n := 0
	for _, b := range g.bodies {
		n += len(b.Appendages())
	}
	if n < g.parallelThresh {
		return nil
	}
	return g.workers
}

// Step runs one fixed physics step.
func (g *Game) Step() {
	dt := g.cfg.Physics.DT
	g.perf.StartTick()

	// 1. Read-only target snapshot for strike sweeps
	g.perf.StartPhase(telemetry.PhaseSnapshot)
	idx := g.targets.Snapshot()

	// 2. Appendage mode machines and grip rotation
	g.perf.StartPhase(telemetry.PhaseBehavior)
	for _, b := range g.bodies {
		b.UpdateBehavior(dt)
	}

	// 3. One physics job per appendage
	g.perf.StartPhase(telemetry.PhaseSchedule)
	ex := g.executor()
	for _, b := range g.bodies {
		b.SchedulePhysics(ex, dt, idx)
	}

	// 4. Join
	g.perf.StartPhase(telemetry.PhaseJoin)
	for _, b := range g.bodies {
		b.Complete()
	}

	// 5. Strike impulses, applied serially
	g.perf.StartPhase(telemetry.PhaseStrikes)
	g.applyStrikes()

	// 6. Movement gating, retreat and failure handling
	g.perf.StartPhase(telemetry.PhaseMovement)
	for _, b := range g.bodies {
		b.UpdateMovement(dt)
	}
	g.syncEntities()
	g.autoAttack(idx)

	// 7. Targets
	g.perf.StartPhase(telemetry.PhaseTargets)
	g.targets.Update(dt)
	if pos, ok := g.spawner.Update(dt, g.targets.Count()); ok {
		g.SpawnTarget(pos)
	}

	g.tick++

	// 8. Telemetry
	g.perf.StartPhase(telemetry.PhaseTelemetry)
	if g.collector.ShouldFlush(g.tick) {
		g.flushTelemetry()
	}

	g.perf.EndTick()
}

func (g *Game) applyStrikes() {
	g.strikes = g.strikes[:0]
	for _, b := range g.bodies {
		g.strikes = b.DrainStrikes(g.strikes)
	}
	for _, s := range g.strikes {
		if !g.targets.ApplyImpulse(s.TargetID, s.Impulse) {
			continue
		}
		g.collector.RecordStrike(r2.Norm(s.Impulse))
		g.flashes = append(g.flashes, strikeFlash{pos: s.Point, ttl: flashDuration})
	}
}

// syncEntities mirrors body state into the ECS components.
func (g *Game) syncEntities() {
	query := g.bodyFilter.Query()
	for query.Next() {
		pos, vel, c := query.Get()
		p, v := c.Body.Position(), c.Body.Velocity()
		*pos = components.Position{X: p.X, Y: p.Y}
		*vel = components.Velocity{X: v.X, Y: v.Y}
	}
}

// autoAttack lashes out at the nearest target within auto range of a body.
// TriggerAttack itself enforces the cooldown.
func (g *Game) autoAttack(idx *targets.Index) {
	r := g.cfg.Attack.AutoRange
	if r <= 0 || idx.Len() == 0 {
		return
	}
	for _, b := range g.bodies {
		if b.AttackCooldown() > 0 {
			continue
		}
		if e, ok := idx.Nearest(b.Position(), r); ok {
			b.TriggerAttack(e.Pos)
		}
	}
}

// spans returns anchor-to-grip distances of every gripping appendage.
func (g *Game) spans() []float64 {
	var out []float64
	for _, b := range g.bodies {
		for _, a := range b.Appendages() {
			if p, ok := a.GripTarget(); ok && a.IsGripping() {
				out = append(out, r2.Norm(r2.Sub(p, a.Anchor())))
			}
		}
	}
	return out
}

// snapshots returns the public state of every body.
func (g *Game) snapshots() []creature.Snapshot {
	out := make([]creature.Snapshot, len(g.bodies))
	for i, b := range g.bodies {
		out[i] = b.Snapshot()
	}
	return out
}
