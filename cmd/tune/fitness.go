package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/game"
	"github.com/pthm-cable/grapple/telemetry"
)

// giveUpPenalty is added to fitness per give-up, in world units of lag.
const giveUpPenalty = 2.0

// FitnessEvaluator runs headless simulations and scores how closely bodies
// track the patrol target.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int64
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu       sync.Mutex
	lastLag  float64
	lastGive float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 10.0,
	}
}

// Last returns the mean lag and give-ups of the most recent evaluation.
func (fe *FitnessEvaluator) Last() (lag, giveUps float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLag, fe.lastGive
}

// runResult holds the results of one seed.
type runResult struct {
	meanLag float64
	giveUps int
}

// Evaluate returns the fitness of raw parameters x (lower is better):
// mean distance from body to target plus a penalty per give-up, averaged
// over seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var lag, give float64
	for _, r := range results {
		lag += r.meanLag
		give += float64(r.giveUps)
	}
	n := float64(len(results))
	lag /= n
	give /= n

	fe.mu.Lock()
	fe.lastLag, fe.lastGive = lag, give
	fe.mu.Unlock()

	return lag + giveUpPenalty*give
}

// runSimulation executes a single headless run with x applied.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	var res runResult
	g, err := game.NewGame(game.Options{
		Config:         cfg,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Seed:           seed,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(s telemetry.WindowStats) {
			res.giveUps += s.GiveUps
		},
	})
	if err != nil {
		slog.Error("simulation failed to start", "seed", seed, "error", err)
		return runResult{meanLag: math.Inf(1)}
	}
	defer g.Unload()

	var lagSum float64
	var samples int
	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()

		target, ok := g.Patrol().TargetPosition()
		if !ok {
			continue
		}
		for _, b := range g.Bodies() {
			lagSum += r2.Norm(r2.Sub(target, b.Position()))
			samples++
		}
	}
	if samples > 0 {
		res.meanLag = lagSum / float64(samples)
	}
	return res
}

// copyConfig returns a copy of the base config. Slices are shared and
// treated as read-only.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
