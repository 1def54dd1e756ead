// Package targets keeps the strikeable targets of the world as ECS entities
// and publishes per-step snapshots that attacking appendages sweep against.
package targets

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/config"
)

// Params are the physical properties given to spawned targets.
type Params struct {
	Radius float64
	Mass   float64
	Drag   float64
}

// ParamsFromConfig reads target properties from the scene config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Radius: cfg.Scene.TargetRadius,
		Mass:   cfg.Scene.TargetMass,
		Drag:   cfg.Scene.TargetDrag,
	}
}

// Target is the public state of one target.
type Target struct {
	ID     uint32
	Pos    r2.Vec
	Vel    r2.Vec
	Radius float64
	Hits   int
}

// Registry owns the target entities. It is not safe for concurrent use;
// concurrent readers use the Index returned by Snapshot.
type Registry struct {
	world  *ecs.World
	params Params
	logger *slog.Logger

	mapper    *ecs.Map3[components.Position, components.Velocity, components.Strikeable]
	filter    *ecs.Filter3[components.Position, components.Velocity, components.Strikeable]
	velMap    *ecs.Map1[components.Velocity]
	strikeMap *ecs.Map1[components.Strikeable]

	byID   map[uint32]ecs.Entity
	nextID uint32

	width, height float64
	index         *Index
}

// NewRegistry creates a registry in world. Targets are confined to
// width x height.
func NewRegistry(world *ecs.World, p Params, width, height float64, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if p.Mass <= 0 {
		p.Mass = 1
	}
	return &Registry{
		world:     world,
		params:    p,
		logger:    logger,
		mapper:    ecs.NewMap3[components.Position, components.Velocity, components.Strikeable](world),
		filter:    ecs.NewFilter3[components.Position, components.Velocity, components.Strikeable](world),
		velMap:    ecs.NewMap1[components.Velocity](world),
		strikeMap: ecs.NewMap1[components.Strikeable](world),
		byID:      make(map[uint32]ecs.Entity),
		nextID:    1,
		width:     width,
		height:    height,
		index:     NewIndex(width, height, math.Max(2, 4*p.Radius)),
	}
}

// Spawn adds a target at pos and returns its id. Ids are never reused.
func (r *Registry) Spawn(pos r2.Vec) uint32 {
	id := r.nextID
	r.nextID++
	p := components.Position{X: pos.X, Y: pos.Y}
	v := components.Velocity{}
	s := components.Strikeable{ID: id, Radius: r.params.Radius, Mass: r.params.Mass}
	r.byID[id] = r.mapper.NewEntity(&p, &v, &s)
	return id
}

// Remove deletes a target. It reports whether the id was known.
func (r *Registry) Remove(id uint32) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if r.world.Alive(e) {
		r.world.RemoveEntity(e)
	}
	return true
}

// Count returns the number of live targets.
func (r *Registry) Count() int { return len(r.byID) }

// Each calls fn for every target.
func (r *Registry) Each(fn func(Target)) {
	query := r.filter.Query()
	for query.Next() {
		pos, vel, s := query.Get()
		fn(Target{
			ID:     s.ID,
			Pos:    r2.Vec{X: pos.X, Y: pos.Y},
			Vel:    r2.Vec{X: vel.X, Y: vel.Y},
			Radius: s.Radius,
			Hits:   s.Hits,
		})
	}
}

// ApplyImpulse adds impulse/mass to the target's velocity and counts a hit.
func (r *Registry) ApplyImpulse(id uint32, impulse r2.Vec) bool {
	e, ok := r.byID[id]
	if !ok || !r.world.Alive(e) {
		return false
	}
	s := r.strikeMap.Get(e)
	v := r.velMap.Get(e)
	v.X += impulse.X / s.Mass
	v.Y += impulse.Y / s.Mass
	s.Hits++
	return true
}

// Update integrates target motion with linear drag and bounces targets off
// the world bounds.
func (r *Registry) Update(dt float64) {
	k := math.Max(0, 1-r.params.Drag*dt)
	query := r.filter.Query()
	for query.Next() {
		pos, vel, s := query.Get()
		vel.X *= k
		vel.Y *= k
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		bounce(&pos.X, &vel.X, s.Radius, r.width-s.Radius)
		bounce(&pos.Y, &vel.Y, s.Radius, r.height-s.Radius)
	}
}

func bounce(p, v *float64, lo, hi float64) {
	switch {
	case *p < lo:
		*p = lo
		*v = math.Abs(*v)
	case *p > hi:
		*p = hi
		*v = -math.Abs(*v)
	}
}

// Snapshot rebuilds and returns the strike index. The returned index is
// reused and stays valid until the next call.
func (r *Registry) Snapshot() *Index {
	r.index.reset()
	query := r.filter.Query()
	for query.Next() {
		pos, _, s := query.Get()
		r.index.insert(Entry{ID: s.ID, Pos: r2.Vec{X: pos.X, Y: pos.Y}, Radius: s.Radius})
	}
	return r.index
}

// Clear removes every target.
func (r *Registry) Clear() {
	for id := range r.byID {
		r.Remove(id)
	}
	r.logger.Debug("targets cleared")
}
