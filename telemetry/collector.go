// Package telemetry aggregates simulation events into fixed windows and
// writes them, with step timings, to CSV.
package telemetry

import (
	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/tentacle"
)

// Collector accumulates events within time windows and produces WindowStats.
// It implements creature.Observer and is fed synchronously from the fixed
// step, so it needs no locking.
type Collector struct {
	windowTicks int64
	dt          float64

	windowStart int64

	gripsAcquired    int
	gripsReleased    int
	searchExhausted  int
	reachFailures    int
	hangs            int
	overstretches    int
	attacksAssigned  int
	attacksStarted   int
	attacksFinished  int
	strikes          int
	strikeImpulseSum float64
	moveFailures     int
	giveUps          int
	resumes          int
}

var _ creature.Observer = (*Collector)(nil)

// NewCollector creates a collector with windows of windowSec simulated
// seconds at a fixed step of dt.
func NewCollector(windowSec, dt float64) *Collector {
	ticks := int64(windowSec / dt)
	if ticks < 1 {
		ticks = 1
	}
	return &Collector{windowTicks: ticks, dt: dt}
}

// OnBodyEvent implements creature.Observer.
func (c *Collector) OnBodyEvent(ev creature.Event) {
	switch ev.Kind {
	case creature.EventGripAcquired:
		c.gripsAcquired++
	case creature.EventGripReleased:
		c.gripsReleased++
	case creature.EventMoveFailure:
		c.moveFailures++
	case creature.EventGaveUp:
		c.giveUps++
	case creature.EventResumed:
		c.resumes++
	case creature.EventAttackAssigned:
		c.attacksAssigned++
	case creature.EventAppendage:
		c.recordAppendage(ev.Appendage)
	}
}

func (c *Collector) recordAppendage(ev tentacle.Event) {
	switch ev.Kind {
	case tentacle.EventSearchExhausted:
		c.searchExhausted++
	case tentacle.EventReachFailed:
		c.reachFailures++
	case tentacle.EventHang:
		c.hangs++
	case tentacle.EventOverstretch:
		c.overstretches++
	case tentacle.EventAttackStarted:
		c.attacksStarted++
	case tentacle.EventAttackFinished:
		c.attacksFinished++
	}
}

// RecordStrike records an applied strike impulse of the given magnitude.
func (c *Collector) RecordStrike(impulse float64) {
	c.strikes++
	c.strikeImpulseSum += impulse
}

// ShouldFlush reports whether the window ending at tick is complete.
func (c *Collector) ShouldFlush(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// WindowTicks returns the number of fixed steps per window.
func (c *Collector) WindowTicks() int64 { return c.windowTicks }

// Flush produces a WindowStats and resets counters for the next window.
// bodies are sampled at window end; spans are the anchor-to-grip distances
// of every gripping appendage.
func (c *Collector) Flush(tick int64, bodies []creature.Snapshot, spans []float64, targets int) WindowStats {
	s := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   tick,
		SimTimeSec:      float64(tick) * c.dt,

		Bodies:  len(bodies),
		Targets: targets,

		GripsAcquired:   c.gripsAcquired,
		GripsReleased:   c.gripsReleased,
		SearchExhausted: c.searchExhausted,
		ReachFailures:   c.reachFailures,
		Hangs:           c.hangs,
		Overstretches:   c.overstretches,
		AttacksAssigned: c.attacksAssigned,
		AttacksStarted:  c.attacksStarted,
		AttacksFinished: c.attacksFinished,
		Strikes:         c.strikes,
		MoveFailures:    c.moveFailures,
		GiveUps:         c.giveUps,
		Resumes:         c.resumes,
	}
	if c.strikes > 0 {
		s.StrikeImpulseMean = c.strikeImpulseSum / float64(c.strikes)
	}

	grips := make([]float64, 0, len(bodies))
	speeds := make([]float64, 0, len(bodies))
	for _, b := range bodies {
		grips = append(grips, float64(b.GripCount))
		speeds = append(speeds, norm(b.Vel.X, b.Vel.Y))
		if b.GivingUp {
			s.BodiesGivingUp++
		}
	}
	s.GripsMean, s.GripsP10, s.GripsP50, s.GripsP90 = Distribution(grips)
	s.SpeedMean, s.SpeedP10, s.SpeedP50, s.SpeedP90 = Distribution(speeds)
	s.SpanMean, s.SpanP10, s.SpanP50, s.SpanP90 = Distribution(spans)

	*c = Collector{windowTicks: c.windowTicks, dt: c.dt, windowStart: tick}
	return s
}
