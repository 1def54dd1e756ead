package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one timed section of the fixed step.
type Phase uint8

const (
	PhaseSnapshot Phase = iota
	PhaseBehavior
	PhaseSchedule
	PhaseJoin
	PhaseStrikes
	PhaseMovement
	PhaseTargets
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{
	"snapshot", "behavior", "schedule", "join", "strikes", "movement", "targets", "telemetry",
}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

type perfSample struct {
	tick   time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector tracks step timings over a rolling window.
type PerfCollector struct {
	samples []perfSample
	next    int
	count   int

	current    perfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{samples: make([]perfSample, windowSize)}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = perfSample{}
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.endPhase(now)
	p.phase = phase
	p.phaseStart = now
	p.inPhase = true
}

func (p *PerfCollector) endPhase(now time.Time) {
	if p.inPhase {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// EndTick closes the step and records it.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.endPhase(now)
	p.current.tick = now.Sub(p.tickStart)

	p.samples[p.next] = p.current
	p.next = (p.next + 1) % len(p.samples)
	if p.count < len(p.samples) {
		p.count++
	}
}

// RecordFrame records the time since the previous rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats holds aggregated step timings.
type PerfStats struct {
	AvgTick time.Duration
	MinTick time.Duration
	MaxTick time.Duration

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64

	TicksPerSecond float64
	FrameDuration  time.Duration
	FPS            float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{FrameDuration: p.frame}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.count; i++ {
		smp := p.samples[i]
		total += smp.tick
		if i == 0 || smp.tick < s.MinTick {
			s.MinTick = smp.tick
		}
		s.MaxTick = max(s.MaxTick, smp.tick)
		for ph, d := range smp.phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.count)
	s.AvgTick = total / n
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	return s
}

// LogStats logs the timings, skipping negligible phases.
func (s PerfStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"min_tick_us", s.MinTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	logger.Info("perf", attrs...)
}

// PerfStatsCSV is the flat CSV row for perf.csv.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	SnapshotPct  float64 `csv:"snapshot_pct"`
	BehaviorPct  float64 `csv:"behavior_pct"`
	SchedulePct  float64 `csv:"schedule_pct"`
	JoinPct      float64 `csv:"join_pct"`
	StrikesPct   float64 `csv:"strikes_pct"`
	MovementPct  float64 `csv:"movement_pct"`
	TargetsPct   float64 `csv:"targets_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTick.Microseconds(),
		MinTickUS:    s.MinTick.Microseconds(),
		MaxTickUS:    s.MaxTick.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		SnapshotPct:  s.PhasePct[PhaseSnapshot],
		BehaviorPct:  s.PhasePct[PhaseBehavior],
		SchedulePct:  s.PhasePct[PhaseSchedule],
		JoinPct:      s.PhasePct[PhaseJoin],
		StrikesPct:   s.PhasePct[PhaseStrikes],
		MovementPct:  s.PhasePct[PhaseMovement],
		TargetsPct:   s.PhasePct[PhaseTargets],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
