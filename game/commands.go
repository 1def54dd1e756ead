package game

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/creature"
)

// SpawnBody adds a body at pos, reusing a retired one when available. The
// new body pursues whatever the others pursue.
func (g *Game) SpawnBody(pos r2.Vec) uint32 {
	id := g.nextBodyID
	g.nextBodyID++

	b := g.pool.Acquire(id, pos)
	b.SetObserver(g.collector)
	if g.following {
		b.SetTarget(g.patrol)
	} else if len(g.bodies) > 0 {
		if s := g.bodies[0].Snapshot(); s.HasTarget {
			b.SetTarget(creature.Point(s.Target))
		}
	}

	p := components.Position{X: pos.X, Y: pos.Y}
	v := components.Velocity{}
	c := components.Creature{Body: b}
	g.entities[id] = g.bodyMapper.NewEntity(&p, &v, &c)
	g.bodies = append(g.bodies, b)

	g.logger.Debug("body spawned", "body", id, "pos", pos)
	return id
}

// RetireBody removes a body and parks it in the pool. It reports whether
// the id was live.
func (g *Game) RetireBody(id uint32) bool {
	e, ok := g.entities[id]
	if !ok {
		return false
	}
	delete(g.entities, id)
	g.world.RemoveEntity(e)

	for i, b := range g.bodies {
		if b.ID() == id {
			g.bodies = append(g.bodies[:i], g.bodies[i+1:]...)
			g.pool.Release(b)
			break
		}
	}
	g.logger.Debug("body retired", "body", id)
	return true
}

// SetTarget makes every body pursue a fixed point instead of the patrol.
func (g *Game) SetTarget(pos r2.Vec) {
	g.following = false
	for _, b := range g.bodies {
		b.SetTarget(creature.Point(pos))
	}
}

// FollowPatrol makes every body pursue the patrol again.
func (g *Game) FollowPatrol() {
	g.following = true
	for _, b := range g.bodies {
		b.SetTarget(g.patrol)
	}
}

// ClearTarget stops pursuit for every body.
func (g *Game) ClearTarget() {
	g.following = false
	for _, b := range g.bodies {
		b.ClearTarget()
	}
}

// TriggerAttack asks every body to strike at pos and returns the number of
// appendages assigned.
func (g *Game) TriggerAttack(pos r2.Vec) int {
	n := 0
	for _, b := range g.bodies {
		n += b.TriggerAttack(pos)
	}
	return n
}

// ResetAll resets every body and removes all targets.
func (g *Game) ResetAll() {
	for _, b := range g.bodies {
		b.Complete()
		b.ResetState()
	}
	g.targets.Clear()
	g.flashes = g.flashes[:0]
	g.logger.Info("simulation reset", "tick", g.tick)
}

// Resync re-reads every body's target immediately.
func (g *Game) Resync() {
	for _, b := range g.bodies {
		b.ResyncTarget()
	}
}

// SpawnTarget adds a strikeable target at pos.
func (g *Game) SpawnTarget(pos r2.Vec) uint32 {
	id := g.targets.Spawn(pos)
	g.logger.Debug("target spawned", "target", id, "pos", pos)
	return id
}

// spawnNearCentre spawns a body at a jittered point of the spawn clearing.
func (g *Game) spawnNearCentre() uint32 {
	r := g.cfg.Terrain.ClearRadius / 2
	pos := r2.Vec{
		X: g.worldWidth/2 + (g.rng.Float64()*2-1)*r,
		Y: g.worldHeight/2 + (g.rng.Float64()*2-1)*r,
	}
	return g.SpawnBody(pos)
}
