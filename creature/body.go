// Package creature coordinates the appendages of one body: it keeps the grip
// counter, gates body movement on grip stability, rotates grips and assigns
// attackers.
package creature

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/rope"
	"github.com/pthm-cable/grapple/tentacle"
	"github.com/pthm-cable/grapple/terrain"
)

// TargetSource is a movable target reference a body pursues.
type TargetSource interface {
	TargetPosition() (r2.Vec, bool)
}

// Point is a fixed target.
type Point r2.Vec

// TargetPosition implements TargetSource.
func (p Point) TargetPosition() (r2.Vec, bool) { return r2.Vec(p), true }

// EventKind classifies body events.
type EventKind uint8

const (
	EventGripAcquired EventKind = iota
	EventGripReleased
	EventMoveFailure
	EventGaveUp
	EventResumed
	EventAttackAssigned
	EventAppendage // see Event.Appendage
)

// Event is reported to the body's observer.
type Event struct {
	Kind      EventKind
	Body      uint32
	Index     int
	Pos       r2.Vec
	Appendage tentacle.Event
}

// Observer receives body events. It is called synchronously from the fixed
// step and must not call back into the body.
type Observer interface {
	OnBodyEvent(Event)
}

// Snapshot is the public per-body state for rendering and telemetry.
type Snapshot struct {
	ID           uint32
	Pos          r2.Vec
	Vel          r2.Vec
	Heading      float64
	GripCount    int
	MoveFailures int
	GivingUp     bool
	Retreating   bool
	Target       r2.Vec
	HasTarget    bool
}

// Body owns a fixed set of appendages for its whole life.
type Body struct {
	id       uint32
	params   Params
	base     *slog.Logger
	logger   *slog.Logger
	rng      *rand.Rand
	terrain  terrain.Query
	observer Observer

	pos     r2.Vec
	vel     r2.Vec
	heading float64
	offsets []r2.Vec
	apps    []*tentacle.Appendage

	gripCount int

	source    TargetSource
	tracked   r2.Vec // latest polled position of source
	lastKnown r2.Vec // reference for meaningful target movement
	active    r2.Vec // pursued point; differs from tracked while retreating
	hasTarget bool

	retreating   bool
	retreatTimer float64
	failTimer    float64
	okTimer      float64
	moveFailures int
	givingUp     bool

	regripTimer float64
	regripDue   bool
	cooldown    float64

	scratch []r2.Vec
}

// New creates a body at pos with its appendages. Configuration errors are
// logged and never fatal: a missing or malformed outline collapses every
// anchor onto the body centre, and a missing terrain leaves nothing to grip.
func New(id uint32, p Params, pos r2.Vec, outline Outline, q terrain.Query, rng *rand.Rand, logger *slog.Logger) *Body {
	if logger == nil {
		logger = slog.Default()
	}
	base := logger
	logger = base.With("body", id)
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(id)))
	}
	if q == nil {
		logger.Error("body created without terrain query; appendages cannot grip")
		q = noTerrain{}
	}
	n := max(p.Appendages, 1)

	offsets, err := AnchorOffsets(outline, n)
	if err != nil {
		logger.Warn("falling back to single-point anchor", "error", err)
		offsets = make([]r2.Vec, n)
	}

	b := &Body{
		id:      id,
		params:  p,
		base:    base,
		logger:  logger,
		rng:     rng,
		terrain: q,
		pos:     pos,
		offsets: offsets,
	}
	b.apps = make([]*tentacle.Appendage, n)
	for i := range b.apps {
		a := tentacle.New(i, p.Appendage, b, q, rng, logger)
		a.SetOutward(offsets[i])
		a.Reset()
		b.apps[i] = a
	}
	return b
}

// SetObserver installs the event observer.
func (b *Body) SetObserver(o Observer) { b.observer = o }

func (b *Body) ID() uint32 { return b.id }
func (b *Body) Params() Params { return b.params }
func (b *Body) Position() r2.Vec { return b.pos }
func (b *Body) Velocity() r2.Vec { return b.vel }
func (b *Body) Appendages() []*tentacle.Appendage { return b.apps }
func (b *Body) GivingUp() bool { return b.givingUp }
func (b *Body) MoveFailures() int { return b.moveFailures }
func (b *Body) Retreating() bool { return b.retreating }

// Snapshot returns the public body state.
func (b *Body) Snapshot() Snapshot {
	return Snapshot{
		ID:           b.id,
		Pos:          b.pos,
		Vel:          b.vel,
		Heading:      b.heading,
		GripCount:    b.gripCount,
		MoveFailures: b.moveFailures,
		GivingUp:     b.givingUp,
		Retreating:   b.retreating,
		Target:       b.active,
		HasTarget:    b.hasTarget,
	}
}

func (b *Body) emit(ev Event) {
	if b.observer == nil {
		return
	}
	ev.Body = b.id
	b.observer.OnBodyEvent(ev)
}

// Host implementation for appendages.

// AnchorPosition implements tentacle.Host.
func (b *Body) AnchorPosition(index int) r2.Vec {
	return r2.Add(b.pos, geom.Rotate(b.offsets[index], b.heading))
}

// NotifyGripChanged implements tentacle.Host. It is the only writer of the
// grip counter.
func (b *Body) NotifyGripChanged(index int, gripping bool) {
	kind := EventGripReleased
	if gripping {
		b.gripCount++
		kind = EventGripAcquired
	} else {
		b.gripCount--
	}
	if b.gripCount < 0 || b.gripCount > len(b.apps) {
		b.logger.Error("grip counter out of range", "count", b.gripCount, "index", index)
		b.gripCount = max(0, min(b.gripCount, len(b.apps)))
	}
	b.emit(Event{Kind: kind, Index: index})
}

// GripCount implements tentacle.Host.
func (b *Body) GripCount() int { return b.gripCount }

// MinStableGrips implements tentacle.Host.
func (b *Body) MinStableGrips() int { return b.params.MinGrips }

// OtherGrips implements tentacle.Host.
func (b *Body) OtherGrips(exclude int, dst []r2.Vec) []r2.Vec {
	for i, a := range b.apps {
		if i == exclude || !a.IsGripping() {
			continue
		}
		if t, ok := a.GripTarget(); ok {
			dst = append(dst, t)
		}
	}
	return dst
}

// MovementTarget implements tentacle.Host.
func (b *Body) MovementTarget() (r2.Vec, bool) {
	return b.active, b.moving()
}

// SuggestDirection implements tentacle.Host.
func (b *Body) SuggestDirection(index int) r2.Vec {
	dir, forward := b.chooseDirection(index)
	b.apps[index].SetForwardSeeking(forward)
	return dir
}

// AppendageEvent implements tentacle.Host.
func (b *Body) AppendageEvent(ev tentacle.Event) {
	b.emit(Event{Kind: EventAppendage, Index: ev.Index, Pos: ev.Pos, Appendage: ev})
}

func (b *Body) moving() bool {
	if !b.hasTarget || b.givingUp {
		return false
	}
	if b.retreating {
		return true
	}
	return geom.Distance(b.pos, b.active) > b.params.ArriveDistance
}

// Commands

// SetTarget sets the target reference and starts pursuing it.
func (b *Body) SetTarget(src TargetSource) {
	b.source = src
	b.hasTarget = false
	b.givingUp = false
	b.moveFailures = 0
	b.failTimer = 0
	b.retreating = false
	b.ResyncTarget()
}

// ClearTarget stops pursuit.
func (b *Body) ClearTarget() {
	b.source = nil
	b.hasTarget = false
	b.retreating = false
}

// ResyncTarget re-reads the target reference immediately and makes it the
// new reference for meaningful movement.
func (b *Body) ResyncTarget() {
	if b.source == nil {
		b.hasTarget = false
		return
	}
	p, ok := b.source.TargetPosition()
	if !ok {
		b.hasTarget = false
		return
	}
	b.hasTarget = true
	b.tracked = p
	b.lastKnown = p
	if !b.retreating {
		b.active = p
	}
}

// NotifyTargetMoved tells the body its target may have moved. Movement
// beyond the threshold since the last reference clears the failure counter
// and ends a giving-up state.
func (b *Body) NotifyTargetMoved() {
	if b.source == nil {
		return
	}
	p, ok := b.source.TargetPosition()
	if !ok {
		return
	}
	b.tracked = p
	if geom.Distance(p, b.lastKnown) < b.params.TargetMovedThreshold {
		return
	}
	b.lastKnown = p
	b.hasTarget = true
	b.moveFailures = 0
	b.failTimer = 0
	if !b.retreating {
		b.active = p
	}
	if b.givingUp {
		b.givingUp = false
		b.logger.Info("target moved, resuming pursuit", "target", p)
		b.emit(Event{Kind: EventResumed, Pos: p})
	}
}

// ResetState releases every grip, re-lays the appendages and clears all
// movement state. The target reference is kept.
func (b *Body) ResetState() {
	for _, a := range b.apps {
		a.Reset()
	}
	b.vel = r2.Vec{}
	b.retreating = false
	b.retreatTimer = 0
	b.failTimer = 0
	b.okTimer = 0
	b.moveFailures = 0
	b.givingUp = false
	b.regripTimer = 0
	b.regripDue = false
	b.cooldown = 0
	b.ResyncTarget()
}

// Reinit moves a retired body to pos and resets it for reuse.
func (b *Body) Reinit(id uint32, pos r2.Vec) {
	b.id = id
	b.logger = b.base.With("body", id)
	b.pos = pos
	b.heading = 0
	b.source = nil
	b.hasTarget = false
	b.ResetState()
}

// Tick advances bookkeeping timers. It runs at frame rate, independent of
// the fixed step, and never touches point data.
func (b *Body) Tick(frameDT float64) {
	if b.cooldown > 0 {
		b.cooldown = math.Max(0, b.cooldown-frameDT)
	}

	interval := b.params.RegripIdleInterval
	if b.moving() {
		interval = b.params.RegripMoveInterval
	}
	b.regripTimer += frameDT
	if b.regripTimer >= interval {
		b.regripTimer = 0
		b.regripDue = true
	}

	if b.source != nil && !b.givingUp {
		if p, ok := b.source.TargetPosition(); ok {
			b.tracked = p
			if !b.retreating {
				b.active = p
			}
		}
	}
}

// UpdateBehavior runs the appendage mode machines and, when due, a grip
// rotation. Part of the fixed step, before physics.
func (b *Body) UpdateBehavior(dt float64) {
	for _, a := range b.apps {
		a.Update(dt)
	}
	if b.regripDue {
		b.regripDue = false
		b.rotateGrip()
	}
}

// SchedulePhysics submits every appendage's physics step.
func (b *Body) SchedulePhysics(ex tentacle.Executor, dt float64, striker rope.Striker) {
	for _, a := range b.apps {
		a.SchedulePhysics(ex, dt, striker)
	}
}

// Complete joins outstanding physics of every appendage.
func (b *Body) Complete() {
	for _, a := range b.apps {
		a.Complete()
	}
}

// DrainStrikes collects strikes from all appendages.
func (b *Body) DrainStrikes(dst []rope.Strike) []rope.Strike {
	for _, a := range b.apps {
		dst = a.DrainStrikes(dst)
	}
	return dst
}

// noTerrain is used when a body is built without a terrain query.
type noTerrain struct{}

func (noTerrain) Sweep(r2.Vec, r2.Vec) (terrain.Hit, bool) { return terrain.Hit{}, false }
func (noTerrain) OverlapsObstacle(r2.Vec, float64) bool { return false }
