// Package game wires bodies, terrain, targets and telemetry into a running
// simulation with a fixed-step physics loop.
package game

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/renderer"
	"github.com/pthm-cable/grapple/rope"
	"github.com/pthm-cable/grapple/scene"
	"github.com/pthm-cable/grapple/targets"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/terrain"
	"github.com/pthm-cable/grapple/ui"
)

// Options configures a Game.
type Options struct {
	Config         *config.Config // nil = embedded defaults
	Logger         *slog.Logger   // nil = slog.Default()
	Seed           int64
	LogStats       bool
	StatsWindowSec float64 // 0 = config value
	OutputDir      string  // empty = no CSV output
	Headless       bool
	StepsPerUpdate int

	// StatsCallback receives every flushed telemetry window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger
	rng    *rand.Rand

	world       *ecs.World
	bodyMapper  *ecs.Map3[components.Position, components.Velocity, components.Creature]
	bodyFilter  *ecs.Filter3[components.Position, components.Velocity, components.Creature]
	bodies      []*creature.Body
	entities    map[uint32]ecs.Entity
	nextBodyID  uint32
	pool        *BodyPool
	targets     *targets.Registry
	terrain     *terrain.Space
	worldWidth  float64
	worldHeight float64

	patrol    *scene.Patrol
	spawner   *scene.Spawner
	following bool // bodies chase the patrol rather than a fixed point

	workers        *workerPool
	parallelThresh int
	strikes        []rope.Strike
	flashes        []strikeFlash

	// Telemetry
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	logStats  bool
	onWindow  func(telemetry.WindowStats)

	// State
	tick           int64
	accumulator    float64
	paused         bool
	headless       bool
	stepsPerUpdate int

	// Rendering (nil when headless)
	camera       *camera.Camera
	view         *renderer.World
	hud          *ui.HUD
	controls     *ui.ControlPanel
	perfPanel    *ui.PerfPanel
	bodyPanel    *ui.BodyPanel
	followBody   bool
	screenWidth  float32
	screenHeight float32
}

// strikeFlash marks a recent strike for rendering.
type strikeFlash struct {
	pos r2.Vec
	ttl float64
}

const flashDuration = 0.25

// NewGame builds a simulation from opts. The caller must have opened a
// raylib window unless opts.Headless is set.
func NewGame(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	g := &Game{
		cfg:            cfg,
		logger:         logger,
		rng:            rand.New(rand.NewSource(seed)),
		entities:       make(map[uint32]ecs.Entity),
		nextBodyID:     1,
		following:      true,
		parallelThresh: cfg.Physics.ParallelThresh,
		workers:        newWorkerPool(cfg.Physics.Workers),
		logStats:       opts.LogStats,
		onWindow:       opts.StatsCallback,
		headless:       opts.Headless,
		stepsPerUpdate: steps,
	}

	space, err := loadTerrain(cfg, seed)
	if err != nil {
		return nil, err
	}
	g.terrain = space
	g.worldWidth, g.worldHeight = space.Bounds()

	g.world = ecs.NewWorld()
	g.bodyMapper = ecs.NewMap3[components.Position, components.Velocity, components.Creature](g.world)
	g.bodyFilter = ecs.NewFilter3[components.Position, components.Velocity, components.Creature](g.world)
	g.targets = targets.NewRegistry(g.world, targets.ParamsFromConfig(cfg), g.worldWidth, g.worldHeight, logger)

	g.pool = NewBodyPool(creature.ParamsFromConfig(cfg), creature.OutlineFromConfig(cfg), space, g.rng, logger)

	waypoints := make([]r2.Vec, 0, len(cfg.Scene.Waypoints))
	for _, wp := range cfg.Scene.Waypoints {
		waypoints = append(waypoints, r2.Vec{X: wp[0], Y: wp[1]})
	}
	g.patrol = scene.NewPatrol(waypoints, cfg.Scene.LegDuration, scene.EaseFunc(cfg.Scene.Ease), cfg.Body.TargetMovedThreshold)
	margin := cfg.Terrain.WallThickness + cfg.Scene.TargetRadius
	g.spawner = scene.NewSpawner(cfg.Scene.TargetInterval, cfg.Scene.MaxTargets, g.worldWidth, g.worldHeight, margin,
		g.freeAt, g.rng)

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	g.collector = telemetry.NewCollector(statsWindow, cfg.Physics.DT)
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	g.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		logger.Warn("failed to write config snapshot", "error", err)
	}

	g.spawnInitialBodies()

	if !g.headless {
		g.initRendering()
	}

	logger.Info("simulation ready",
		"seed", seed,
		"terrain", cfg.Terrain.Source,
		"world_w", g.worldWidth,
		"world_h", g.worldHeight,
		"bodies", len(g.bodies),
		"output_dir", g.output.Dir(),
	)
	return g, nil
}

// loadTerrain builds the terrain selected by the config.
func loadTerrain(cfg *config.Config, seed int64) (*terrain.Space, error) {
	if cfg.Terrain.Source == "tmx" {
		path := cfg.Terrain.TMXPath
		space, err := terrain.LoadTMX(os.DirFS(filepath.Dir(path)), filepath.Base(path),
			cfg.Terrain.UnitsPerPixel, cfg.Terrain.Resolution)
		if err != nil {
			return nil, fmt.Errorf("loading terrain: %w", err)
		}
		return space, nil
	}
	return terrain.Generate(terrain.GenParamsFromConfig(cfg), seed), nil
}

// spawnInitialBodies places scene.bodies bodies around the world centre.
func (g *Game) spawnInitialBodies() {
	n := g.cfg.Scene.Bodies
	center := r2.Vec{X: g.worldWidth / 2, Y: g.worldHeight / 2}
	spread := g.cfg.Terrain.ClearRadius / 2
	for i := 0; i < n; i++ {
		pos := center
		if n > 1 {
			a := 2 * math.Pi * float64(i) / float64(n)
			pos = r2.Add(center, r2.Vec{X: spread * math.Cos(a), Y: spread * math.Sin(a)})
		}
		g.SpawnBody(pos)
	}
}

// freeAt reports whether a target may be placed at p.
func (g *Game) freeAt(p r2.Vec) bool {
	return !g.terrain.Contains(p) && !g.terrain.OverlapsObstacle(p, g.cfg.Scene.TargetRadius)
}

// Tick returns the number of fixed steps run.
func (g *Game) Tick() int64 { return g.tick }

// Paused reports whether stepping is suspended.
func (g *Game) Paused() bool { return g.paused }

// SetPaused suspends or resumes stepping.
func (g *Game) SetPaused(p bool) { g.paused = p }

// Bodies returns the live bodies in spawn order.
func (g *Game) Bodies() []*creature.Body { return g.bodies }

// Targets returns the strikeable target registry.
func (g *Game) Targets() *targets.Registry { return g.targets }

// Terrain returns the terrain.
func (g *Game) Terrain() *terrain.Space { return g.terrain }

// Patrol returns the scene's moving target.
func (g *Game) Patrol() *scene.Patrol { return g.patrol }

// Unload stops workers and closes output files. It is safe to call twice.
func (g *Game) Unload() {
	for _, b := range g.bodies {
		b.Complete()
	}
	g.workers.stopWorkers()
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
	g.output = nil
	if g.view != nil {
		g.view.Unload()
		g.view = nil
	}
}
