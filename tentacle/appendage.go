// Package tentacle implements the behavior of a single rope-like appendage:
// its primary mode machine, its grip and attack facets and its fixed-step
// physics task.
package tentacle

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/grip"
	"github.com/pthm-cable/grapple/rope"
	"github.com/pthm-cable/grapple/terrain"
)

// Mode is the primary behavioral mode. Gripping and attacking are tracked
// separately as facets.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeSearching
	ModeReaching
	ModeSearchingPostAttack
	ModeHanging
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSearching:
		return "searching"
	case ModeReaching:
		return "reaching"
	case ModeSearchingPostAttack:
		return "searching_post_attack"
	case ModeHanging:
		return "hanging"
	default:
		return "unknown"
	}
}

// EventKind classifies appendage events reported to the host.
type EventKind uint8

const (
	EventSearchExhausted EventKind = iota
	EventReachFailed
	EventHang
	EventAttackStarted
	EventAttackFinished
	EventOverstretch
)

// Event is a notable transition, used for telemetry.
type Event struct {
	Kind  EventKind
	Index int
	Pos   r2.Vec
}

// Host is the owning body as seen by an appendage.
type Host interface {
	// AnchorPosition returns the live world position of the anchor.
	AnchorPosition(index int) r2.Vec
	// NotifyGripChanged is the single place the body's grip counter changes.
	NotifyGripChanged(index int, gripping bool)
	GripCount() int
	MinStableGrips() int
	// OtherGrips appends the grip points of every other gripping appendage.
	OtherGrips(exclude int, dst []r2.Vec) []r2.Vec
	// MovementTarget returns the active target and whether the body is moving.
	MovementTarget() (r2.Vec, bool)
	// SuggestDirection picks a congestion-aware search direction.
	SuggestDirection(index int) r2.Vec
	AppendageEvent(ev Event)
}

// Appendage is one simulated tentacle.
type Appendage struct {
	index   int
	params  Params
	host    Host
	terrain terrain.Query
	rng     *rand.Rand
	logger  *slog.Logger

	chain  *rope.Chain
	search *grip.Search

	mode      Mode
	gripping  bool
	attacking bool

	target      r2.Vec // grip or reach target
	timer       float64
	idleTimer   float64
	failures    int
	searchDir   r2.Vec
	idleCaller  bool
	forward     bool
	anchor      r2.Vec
	stretch     float64
	outward     r2.Vec
	otherGrips  []r2.Vec
	preAttack   r2.Vec
	hadGrip     bool
	searchAfter bool
	struck      map[uint32]struct{}

	task     task
	striker  rope.Striker
	contacts []rope.Contact
	strikes  []rope.Strike
}

// New creates an appendage laid straight along outward from its anchor.
func New(index int, p Params, host Host, q terrain.Query, rng *rand.Rand, logger *slog.Logger) *Appendage {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Appendage{
		index:   index,
		params:  p,
		host:    host,
		terrain: q,
		rng:     rng,
		logger:  logger,
		chain:   rope.NewChain(p.Points, p.SegmentLength, p.Iterations),
		search:  grip.New(p.Search),
		stretch: p.MaxStretch,
		outward: r2.Vec{X: 1},
		struck:  make(map[uint32]struct{}),
	}
	a.anchor = host.AnchorPosition(index)
	a.chain.Lay(a.anchor, a.outward)
	return a
}

// SetOutward sets the rest direction used when the chain is re-laid.
func (a *Appendage) SetOutward(dir r2.Vec) {
	if d := geom.Unit(dir); d != (r2.Vec{}) {
		a.outward = d
	}
}

// Accessors. Readers of point data must go through Points or Tip, which
// join any outstanding physics work first.

func (a *Appendage) Index() int { return a.index }
func (a *Appendage) Mode() Mode { return a.mode }
func (a *Appendage) IsGripping() bool { return a.gripping }
func (a *Appendage) IsAttacking() bool { return a.attacking }
func (a *Appendage) Params() Params { return a.params }
func (a *Appendage) ReachFailures() int { return a.failures }
func (a *Appendage) ForwardSeeking() bool { return a.forward && a.Seeking() }

// Seeking reports whether the appendage is searching or reaching for a grip
// rather than attacking.
func (a *Appendage) Seeking() bool {
	switch a.mode {
	case ModeSearching, ModeSearchingPostAttack:
		return true
	case ModeReaching:
		return !a.attacking
	}
	return false
}

// IsIdle reports an appendage with no grip and nothing in progress.
func (a *Appendage) IsIdle() bool {
	return a.mode == ModeIdle && !a.gripping
}

// SearchDirection returns the ideal direction of the current or last search.
func (a *Appendage) SearchDirection() r2.Vec { return a.searchDir }

// GripTarget returns the grip or reach target; ok is false when the
// appendage is neither gripping nor reaching.
func (a *Appendage) GripTarget() (r2.Vec, bool) {
	if a.gripping || a.mode == ModeReaching {
		return a.target, true
	}
	return r2.Vec{}, false
}

// Points joins outstanding physics and returns the point sequence. The
// slice is owned by the appendage and must not be modified.
func (a *Appendage) Points() []rope.Point {
	a.Complete()
	return a.chain.Points
}

// Tip joins outstanding physics and returns the tip position.
func (a *Appendage) Tip() r2.Vec {
	a.Complete()
	return a.chain.Tip()
}

// Anchor returns the anchor position used by the last step.
func (a *Appendage) Anchor() r2.Vec { return a.anchor }

// setGripping is the only mutator of the gripping facet. The host counter
// changes exactly when the flag does.
func (a *Appendage) setGripping(v bool) {
	if a.gripping == v {
		return
	}
	a.gripping = v
	a.host.NotifyGripChanged(a.index, v)
}

// setAttacking is the only mutator of the attacking facet.
func (a *Appendage) setAttacking(v bool) {
	if a.attacking == v {
		return
	}
	a.attacking = v
	if !v {
		a.stretch = a.params.MaxStretch
		clear(a.struck)
	}
}

func (a *Appendage) emit(kind EventKind, pos r2.Vec) {
	a.host.AppendageEvent(Event{Kind: kind, Index: a.index, Pos: pos})
}

func (a *Appendage) randomDirection() r2.Vec {
	return geom.FromAngle(a.rng.Float64() * 2 * math.Pi)
}

// RequestNewGrip asks the appendage to find a new grip along dir. It is a
// no-op while searching, reaching or hanging. A gripping appendage re-reaches
// its current grip point without searching. It reports whether the request
// was accepted.
func (a *Appendage) RequestNewGrip(dir r2.Vec, idleCaller bool) bool {
	a.Complete()
	switch a.mode {
	case ModeSearching, ModeSearchingPostAttack, ModeReaching, ModeHanging:
		return false
	}

	if a.gripping {
		a.setGripping(false)
		a.startReach(a.target, a.params.ReachTimeout)
		return true
	}

	a.startSearch(dir, idleCaller)
	return true
}

// SetForwardSeeking marks the current search as pursuing a forward grip.
func (a *Appendage) SetForwardSeeking(v bool) { a.forward = v }

// InitiateAttack releases any grip and whips the tip through pos. It is
// ignored while hanging. After the strike the appendage restores its old
// grip if still reachable, otherwise searches near the tip when searchAfter
// is set, otherwise hangs.
func (a *Appendage) InitiateAttack(pos r2.Vec, searchAfter bool) bool {
	a.Complete()
	if a.mode == ModeHanging {
		return false
	}

	// A re-issued attack keeps the grip saved by the first one.
	if !a.attacking {
		a.hadGrip = a.gripping
		a.preAttack = a.target
	}
	clear(a.struck)
	a.setGripping(false)
	a.search.Cancel()
	a.forward = false

	anchor := a.host.AnchorPosition(a.index)
	a.anchor = anchor
	toTarget := r2.Sub(pos, anchor)
	dist := r2.Norm(toTarget)
	dir := geom.Unit(toTarget)
	if dir == (r2.Vec{}) {
		dir = a.outward
	}

	a.setAttacking(true)
	a.stretch = geom.Clamp(dist/a.params.RopeLength(), a.params.MaxStretch, a.params.AttackStretchCap)
	a.searchAfter = searchAfter
	a.startReach(r2.Add(pos, r2.Scale(a.params.Overshoot, dir)), a.params.AttackTimeout)
	a.emit(EventAttackStarted, pos)
	return true
}

// Grip attaches the tip to point immediately.
func (a *Appendage) Grip(point r2.Vec) {
	a.Complete()
	a.search.Cancel()
	a.setAttacking(false)
	a.mode = ModeIdle
	a.target = point
	a.chain.SetTip(point)
	a.forward = false
	a.failures = 0
	a.setGripping(true)
}

// ForceRelease drops any grip and cancels whatever is in progress.
func (a *Appendage) ForceRelease() {
	a.Complete()
	a.setGripping(false)
	a.setAttacking(false)
	a.search.Cancel()
	a.forward = false
	a.enterIdle()
}

// Reset releases through the notifier and re-lays the chain at rest.
func (a *Appendage) Reset() {
	a.ForceRelease()
	a.failures = 0
	a.anchor = a.host.AnchorPosition(a.index)
	a.chain.Lay(a.anchor, a.outward)
}

func (a *Appendage) enterIdle() {
	a.mode = ModeIdle
	a.idleTimer = 0
	a.timer = 0
}

func (a *Appendage) startSearch(dir r2.Vec, idleCaller bool) {
	a.mode = ModeSearching
	a.idleCaller = idleCaller
	a.searchDir = geom.Unit(dir)
	if a.searchDir == (r2.Vec{}) {
		a.searchDir = a.randomDirection()
	}
	a.search.Begin(a.searchDir)
}

func (a *Appendage) startReach(target r2.Vec, timeout float64) {
	a.mode = ModeReaching
	a.target = target
	a.timer = timeout
}

func (a *Appendage) enterHang() {
	a.mode = ModeHanging
	a.timer = a.params.HangDuration
	a.forward = false
	a.emit(EventHang, a.chain.Tip())
	a.logger.Debug("appendage hanging", "index", a.index, "failures", a.failures)
}
