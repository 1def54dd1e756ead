package tentacle

import (
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/grip"
	"github.com/pthm-cable/grapple/rope"
)

// Params holds the physical and behavioral tunables of one appendage.
// Every appendage receives its own copy at construction.
type Params struct {
	Points        int
	SegmentLength float64
	Iterations    int

	DampingIdle  float64
	DampingReach float64
	DampingGrip  float64
	DampingHang  float64
	Gravity      float64

	ReachSpeed    float64
	AttackSpeed   float64
	MaxStretch    float64
	ArriveEpsilon float64
	Strike        rope.StrikeParams

	IdleTimeout      float64
	ReachTimeout     float64
	AttackTimeout    float64
	MaxReachFailures int
	HangDuration     float64
	OperatingRadius  float64
	Overshoot        float64
	AttackStretchCap float64

	Search grip.Params
}

// ParamsFromConfig builds appendage parameters from the loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	r, a := cfg.Rope, cfg.Appendage
	return Params{
		Points:        r.Points,
		SegmentLength: r.SegmentLength,
		Iterations:    r.Iterations,

		DampingIdle:  r.DampingIdle,
		DampingReach: r.DampingReach,
		DampingGrip:  r.DampingGrip,
		DampingHang:  r.DampingHang,
		Gravity:      cfg.Physics.Gravity,

		ReachSpeed:    r.ReachSpeed,
		AttackSpeed:   r.AttackSpeed,
		MaxStretch:    r.MaxStretch,
		ArriveEpsilon: r.ArriveEpsilon,
		Strike: rope.StrikeParams{
			Radius:     r.StrikeRadius,
			Scale:      r.ImpulseScale,
			MaxImpulse: r.MaxImpulse,
		},

		IdleTimeout:      a.IdleTimeout,
		ReachTimeout:     a.ReachTimeout,
		AttackTimeout:    a.AttackTimeout,
		MaxReachFailures: a.MaxReachFailures,
		HangDuration:     a.HangDuration,
		OperatingRadius:  a.OperatingRadius,
		Overshoot:        a.Overshoot,
		AttackStretchCap: cfg.Attack.StretchCap,

		Search: grip.ParamsFromConfig(cfg),
	}
}

// RopeLength is the rest length of the chain.
func (p Params) RopeLength() float64 {
	return float64(p.Points-1) * p.SegmentLength
}

// MaxReach is the longest distance the tip may be from the anchor outside
// of an attack.
func (p Params) MaxReach() float64 {
	return p.RopeLength() * p.MaxStretch
}
