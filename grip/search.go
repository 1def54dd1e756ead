// Package grip finds terrain contact points for an appendage by sampled
// sweeps from its anchor.
package grip

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/terrain"
)

// Params configures a search.
type Params struct {
	Steps             int
	Probes            int
	ConeAngle         float64 // half-angle around the ideal direction
	Radius            float64
	ProbeJitter       float64
	MinAnchorDistance float64
	MinGripSeparation float64
	ObstaclePenalty   float64
	ObstacleRadius    float64
	MaxReach          float64
	PostAttackSteps   int
	PostAttackRadius  float64
}

// ParamsFromConfig extracts search parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	s := cfg.Search
	return Params{
		Steps:             s.Steps,
		Probes:            s.Probes,
		ConeAngle:         s.ConeAngle,
		Radius:            s.Radius,
		ProbeJitter:       s.ProbeJitter,
		MinAnchorDistance: s.MinAnchorDistance,
		MinGripSeparation: s.MinGripSeparation,
		ObstaclePenalty:   s.ObstaclePenalty,
		ObstacleRadius:    s.ObstacleRadius,
		MaxReach:          cfg.Derived.MaxReach,
		PostAttackSteps:   s.PostAttackSteps,
		PostAttackRadius:  s.PostAttackRadius,
	}
}

// Env is the read-only world view for one search step.
type Env struct {
	Terrain    terrain.Query
	Anchor     r2.Vec
	OtherGrips []r2.Vec // current grips of the other appendages on the body
}

// Search accumulates the best candidate over a fixed number of steps.
// The zero value is an inactive search.
type Search struct {
	params     Params
	direction  r2.Vec
	center     r2.Vec
	postAttack bool
	stepsLeft  int
	bestScore  float64
	best       r2.Vec
	lastIdeal  r2.Vec
}

// New returns an inactive search with the given parameters.
func New(p Params) *Search {
	return &Search{params: p, bestScore: math.Inf(1)}
}

// Params returns the search parameters.
func (s *Search) Params() Params { return s.params }

// Begin starts a search along dir from the anchor. The best score resets
// to +Inf.
func (s *Search) Begin(dir r2.Vec) {
	s.direction = geom.Unit(dir)
	if s.direction == (r2.Vec{}) {
		s.direction = r2.Vec{X: 1}
	}
	s.postAttack = false
	s.stepsLeft = max(s.params.Steps, 1)
	s.bestScore = math.Inf(1)
	s.best = r2.Vec{}
}

// BeginPostAttack starts a shorter search centred on the tip with the
// post-attack radius.
func (s *Search) BeginPostAttack(dir, tip r2.Vec) {
	s.Begin(dir)
	s.postAttack = true
	s.center = tip
	s.stepsLeft = max(s.params.PostAttackSteps, 1)
}

// Active reports whether steps remain.
func (s *Search) Active() bool { return s.stepsLeft > 0 }

// PostAttack reports whether the current search is centred on the tip.
func (s *Search) PostAttack() bool { return s.postAttack }

// Direction returns the ideal direction of the current search.
func (s *Search) Direction() r2.Vec { return s.direction }

// LastIdeal returns the ideal point sampled by the most recent step.
func (s *Search) LastIdeal() r2.Vec { return s.lastIdeal }

// BestScore returns the lowest score seen, +Inf if none qualified.
func (s *Search) BestScore() float64 { return s.bestScore }

// Result returns the best candidate and whether one qualified.
func (s *Search) Result() (r2.Vec, bool) {
	return s.best, !math.IsInf(s.bestScore, 1)
}

// Cancel drops any remaining steps.
func (s *Search) Cancel() { s.stepsLeft = 0 }

// Step runs one sampled step and reports whether the search has finished.
func (s *Search) Step(env Env, rng *rand.Rand) bool {
	if s.stepsLeft <= 0 {
		return true
	}
	p := s.params

	ideal := s.sampleIdeal(env.Anchor, rng)
	s.lastIdeal = ideal

	for i := 0; i < p.Probes; i++ {
		aim := ideal
		if p.ProbeJitter > 0 {
			aim = r2.Add(aim, r2.Vec{
				X: (rng.Float64()*2 - 1) * p.ProbeJitter,
				Y: (rng.Float64()*2 - 1) * p.ProbeJitter,
			})
		}
		dir := geom.Unit(r2.Sub(aim, env.Anchor))
		if dir == (r2.Vec{}) {
			continue
		}
		end := r2.Add(env.Anchor, r2.Scale(p.MaxReach, dir))
		hit, ok := env.Terrain.Sweep(env.Anchor, end)
		if !ok {
			continue
		}
		s.Consider(env, hit, ideal)
	}

	s.stepsLeft--
	return s.stepsLeft <= 0
}

// Consider scores hit and keeps it only if strictly better than the best so
// far. The first candidate to reach the lowest score wins.
func (s *Search) Consider(env Env, hit terrain.Hit, ideal r2.Vec) {
	score := Score(s.params, env, hit, ideal)
	if score < s.bestScore {
		s.bestScore = score
		s.best = hit.Point
	}
}

func (s *Search) sampleIdeal(anchor r2.Vec, rng *rand.Rand) r2.Vec {
	p := s.params
	if s.postAttack {
		a := rng.Float64() * 2 * math.Pi
		d := math.Sqrt(rng.Float64()) * p.PostAttackRadius
		return r2.Add(s.center, r2.Scale(d, geom.FromAngle(a)))
	}
	a := (rng.Float64()*2 - 1) * p.ConeAngle
	d := p.Radius * (0.5 + 0.5*rng.Float64())
	return r2.Add(anchor, r2.Scale(d, geom.Rotate(s.direction, a)))
}

// Score rates a terrain hit as a grip candidate; lower is better.
//
// The base score is the distance from the hit to the ideal point. Hits
// closer to the anchor than MinAnchorDistance, or within MinGripSeparation
// of another grip on the same body, are rejected with +Inf. Hits touching an
// obstacle region carry ObstaclePenalty.
func Score(p Params, env Env, hit terrain.Hit, ideal r2.Vec) float64 {
	if geom.Distance(hit.Point, env.Anchor) < p.MinAnchorDistance {
		return math.Inf(1)
	}
	for _, g := range env.OtherGrips {
		if geom.Distance(hit.Point, g) < p.MinGripSeparation {
			return math.Inf(1)
		}
	}

	score := geom.Distance(hit.Point, ideal)
	if hit.Obstacle || env.Terrain.OverlapsObstacle(hit.Point, p.ObstacleRadius) {
		score += p.ObstaclePenalty
	}
	return score
}
