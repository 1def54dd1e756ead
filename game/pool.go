package game

import (
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/terrain"
)

// Pool hands out bodies and takes retired ones back.
type Pool interface {
	Acquire(id uint32, pos r2.Vec) *creature.Body
	Release(b *creature.Body)
}

// BodyPool recycles retired bodies. A reused body keeps its appendages and
// chains; Reinit moves it and clears all behavior state.
type BodyPool struct {
	params  creature.Params
	outline creature.Outline
	terrain terrain.Query
	rng     *rand.Rand
	logger  *slog.Logger

	free    []*creature.Body
	created int
}

var _ Pool = (*BodyPool)(nil)

// NewBodyPool creates an empty pool building bodies from p and outline.
func NewBodyPool(p creature.Params, outline creature.Outline, q terrain.Query, rng *rand.Rand, logger *slog.Logger) *BodyPool {
	return &BodyPool{params: p, outline: outline, terrain: q, rng: rng, logger: logger}
}

// Acquire returns a retired body reinitialised at pos, or a new one.
func (bp *BodyPool) Acquire(id uint32, pos r2.Vec) *creature.Body {
	if n := len(bp.free); n > 0 {
		b := bp.free[n-1]
		bp.free[n-1] = nil
		bp.free = bp.free[:n-1]
		b.Reinit(id, pos)
		return b
	}
	bp.created++
	rng := rand.New(rand.NewSource(bp.rng.Int63()))
	return creature.New(id, bp.params, pos, bp.outline, bp.terrain, rng, bp.logger)
}

// Release parks b for reuse. Outstanding physics is joined first.
func (bp *BodyPool) Release(b *creature.Body) {
	if b == nil {
		return
	}
	b.Complete()
	b.ClearTarget()
	b.SetObserver(nil)
	bp.free = append(bp.free, b)
}

// Free returns the number of parked bodies.
func (bp *BodyPool) Free() int { return len(bp.free) }

// Created returns how many bodies the pool has built.
func (bp *BodyPool) Created() int { return bp.created }
