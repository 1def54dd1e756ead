// Command tune searches coordinator and grip search parameters with CMA-ES,
// scoring headless runs by how closely bodies follow the patrol target.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/grapple/config"
)

// evalRow is one line of tune_log.csv. Param columns follow ParamVector
// order.
type evalRow struct {
	Eval                  int     `csv:"eval"`
	Fitness               float64 `csv:"fitness"`
	MeanLag               float64 `csv:"mean_lag"`
	GiveUps               float64 `csv:"give_ups"`
	ReleasePriorityWeight float64 `csv:"release_priority_weight"`
	MinSearchAngle        float64 `csv:"min_search_angle"`
	ForwardCone           float64 `csv:"forward_cone"`
	ReachSpeed            float64 `csv:"reach_speed"`
	SearchRadius          float64 `csv:"search_radius"`
}

func newEvalRow(eval int, fitness, lag, giveUps float64, v []float64) evalRow {
	return evalRow{
		Eval:                  eval,
		Fitness:               fitness,
		MeanLag:               lag,
		GiveUps:               giveUps,
		ReleasePriorityWeight: v[0],
		MinSearchAngle:        v[1],
		ForwardCone:           v[2],
		ReachSpeed:            v[3],
		SearchRadius:          v[4],
	}
}

// formatDuration formats a duration as HhMMmSSs or MmSSs.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int64("max-ticks", 60*120, "Simulation length per run in ticks")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		logger.Error("--output is required")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	params := NewParamVector(baseCfg)
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds already run concurrently
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		logger.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	bestFitness := 1e18
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			lag, giveUps := evaluator.Last()
			rows := []evalRow{newEvalRow(evalCount, fitness, lag, giveUps, clamped)}
			if headerWritten {
				err = gocsv.MarshalWithoutHeaders(rows, logFile)
			} else {
				err = gocsv.Marshal(rows, logFile)
				headerWritten = err == nil
			}
			if err != nil {
				logger.Warn("failed to write log row", "error", err)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			logger.Info("eval",
				"n", evalCount,
				"of", *maxEvals,
				"fitness", fitness,
				"mean_lag", lag,
				"give_ups", giveUps,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	logger.Info("starting CMA-ES",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"ticks", *maxTicks,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		logger.Error("no evaluations completed")
		os.Exit(1)
	}

	attrs := []any{"evals", evalCount, "fitness", bestFitness, "took", formatDuration(time.Since(startTime))}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Path, bestParams[i])
	}
	logger.Info("optimization complete", attrs...)

	bestCfg := *baseCfg
	params.ApplyToConfig(&bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		logger.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	logger.Info("best config saved", "path", configOutPath)
}
