package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Bodies         int `csv:"bodies"`
	BodiesGivingUp int `csv:"bodies_giving_up"`
	Targets        int `csv:"targets"`

	// Grip lifecycle
	GripsAcquired   int `csv:"grips_acquired"`
	GripsReleased   int `csv:"grips_released"`
	SearchExhausted int `csv:"search_exhausted"`
	ReachFailures   int `csv:"reach_failures"`
	Hangs           int `csv:"hangs"`
	Overstretches   int `csv:"overstretches"`

	// Attacks
	AttacksAssigned   int     `csv:"attacks_assigned"`
	AttacksStarted    int     `csv:"attacks_started"`
	AttacksFinished   int     `csv:"attacks_finished"`
	Strikes           int     `csv:"strikes"`
	StrikeImpulseMean float64 `csv:"strike_impulse_mean"`

	// Movement
	MoveFailures int `csv:"move_failures"`
	GiveUps      int `csv:"give_ups"`
	Resumes      int `csv:"resumes"`

	// Sampled at window end
	GripsMean float64 `csv:"grips_mean"`
	GripsP10  float64 `csv:"grips_p10"`
	GripsP50  float64 `csv:"grips_p50"`
	GripsP90  float64 `csv:"grips_p90"`

	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	SpanMean float64 `csv:"span_mean"`
	SpanP10  float64 `csv:"span_p10"`
	SpanP50  float64 `csv:"span_p50"`
	SpanP90  float64 `csv:"span_p90"`
}

// Distribution returns the mean and empirical 10th, 50th and 90th
// percentiles of values. Empty input yields zeros.
func Distribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

func norm(x, y float64) float64 { return math.Hypot(x, y) }

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("bodies", s.Bodies),
		slog.Int("targets", s.Targets),
		slog.Int("grips_acquired", s.GripsAcquired),
		slog.Int("grips_released", s.GripsReleased),
		slog.Int("reach_failures", s.ReachFailures),
		slog.Int("hangs", s.Hangs),
		slog.Int("strikes", s.Strikes),
		slog.Int("give_ups", s.GiveUps),
		slog.Float64("grips_mean", s.GripsMean),
		slog.Float64("speed_mean", s.SpeedMean),
	)
}

// LogStats logs the window with slog.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"bodies", s.Bodies,
		"giving_up", s.BodiesGivingUp,
		"targets", s.Targets,
		"grips_acquired", s.GripsAcquired,
		"grips_released", s.GripsReleased,
		"search_exhausted", s.SearchExhausted,
		"reach_failures", s.ReachFailures,
		"hangs", s.Hangs,
		"overstretches", s.Overstretches,
		"attacks", s.AttacksStarted,
		"strikes", s.Strikes,
		"move_failures", s.MoveFailures,
		"give_ups", s.GiveUps,
		"resumes", s.Resumes,
		"grips_mean", s.GripsMean,
		"speed_mean", s.SpeedMean,
		"span_p50", s.SpanP50,
	)
}
