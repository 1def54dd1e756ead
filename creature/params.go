package creature

import (
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/tentacle"
)

// RetractorSide selects which attackers search for a fresh grip after their
// strike. The other side tries to restore its old grip or hangs.
type RetractorSide uint8

const (
	RetractRear RetractorSide = iota
	RetractFront
	RetractNone
)

// ParseRetractorSide maps the config spelling to a RetractorSide. Unknown
// values fall back to RetractRear.
func ParseRetractorSide(s string) RetractorSide {
	switch s {
	case "front":
		return RetractFront
	case "none":
		return RetractNone
	default:
		return RetractRear
	}
}

func (r RetractorSide) String() string {
	switch r {
	case RetractFront:
		return "front"
	case RetractNone:
		return "none"
	default:
		return "rear"
	}
}

// Params holds body coordinator tunables.
type Params struct {
	Appendages int

	MoveSpeed     float64
	Acceleration  float64
	VelocityDecay float64
	TurnRate      float64

	MinGrips       int
	FarMinGrips    int
	FarDistance    float64
	ArriveDistance float64

	RegripIdleInterval    float64
	RegripMoveInterval    float64
	ReleasePriorityWeight float64
	ForwardCone           float64
	MaxForwardSeekers     int
	MinSearchAngle        float64
	DirectionRetries      int

	MoveFailureTimeout   float64
	MaxMoveFailures      int
	RetreatSpeed         float64
	RetreatDuration      float64
	RetreatDistance      float64
	TargetMovedThreshold float64

	AttackCooldown float64
	MaxAttackers   int
	MaxForward     int
	MaxRear        int
	Retractor      RetractorSide
	AttackRange    float64

	Appendage tentacle.Params
}

// ParamsFromConfig builds body parameters from the loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	b, at := cfg.Body, cfg.Attack
	return Params{
		Appendages: b.Appendages,

		MoveSpeed:     b.MoveSpeed,
		Acceleration:  b.Acceleration,
		VelocityDecay: b.VelocityDecay,
		TurnRate:      b.TurnRate,

		MinGrips:       b.MinGrips,
		FarMinGrips:    b.FarMinGrips,
		FarDistance:    b.FarDistance,
		ArriveDistance: b.ArriveDistance,

		RegripIdleInterval:    b.RegripIdleInterval,
		RegripMoveInterval:    b.RegripMoveInterval,
		ReleasePriorityWeight: b.ReleasePriorityWeight,
		ForwardCone:           b.ForwardCone,
		MaxForwardSeekers:     b.MaxForwardSeekers,
		MinSearchAngle:        b.MinSearchAngle,
		DirectionRetries:      b.DirectionRetries,

		MoveFailureTimeout:   b.MoveFailureTimeout,
		MaxMoveFailures:      b.MaxMoveFailures,
		RetreatSpeed:         b.RetreatSpeed,
		RetreatDuration:      b.RetreatDuration,
		RetreatDistance:      b.RetreatDistance,
		TargetMovedThreshold: b.TargetMovedThreshold,

		AttackCooldown: at.Cooldown,
		MaxAttackers:   at.MaxAttackers,
		MaxForward:     at.MaxForward,
		MaxRear:        at.MaxRear,
		Retractor:      ParseRetractorSide(at.RetractorSide),
		AttackRange:    at.Range,

		Appendage: tentacle.ParamsFromConfig(cfg),
	}
}

// OutlineFromConfig returns the ellipse outline described by the config.
func OutlineFromConfig(cfg *config.Config) Outline {
	return Ellipse{RX: cfg.Body.RadiusX, RY: cfg.Body.RadiusY, Samples: cfg.Body.OutlineSamples}
}
