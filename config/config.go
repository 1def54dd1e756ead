// Package config provides configuration loading for the simulation.
//
// There is no package-level configuration. Load returns a value that callers
// pass explicitly into every body, appendage and search they construct.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Rope      RopeConfig      `yaml:"rope"`
	Search    SearchConfig    `yaml:"search"`
	Appendage AppendageConfig `yaml:"appendage"`
	Body      BodyConfig      `yaml:"body"`
	Attack    AttackConfig    `yaml:"attack"`
	Scene     SceneConfig     `yaml:"scene"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     int     `yaml:"target_fps"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
}

// WorldConfig holds world dimensions in simulation units.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// TerrainConfig selects and parameterises the terrain source.
type TerrainConfig struct {
	Source        string  `yaml:"source"`          // "noise" or "tmx"
	TMXPath       string  `yaml:"tmx_path"`        // used when source is "tmx"
	UnitsPerPixel float64 `yaml:"units_per_pixel"` // tmx pixel -> world unit scale
	CellSize      float64 `yaml:"cell_size"`       // rock block size for noise terrain
	NoiseScale    float64 `yaml:"noise_scale"`
	Threshold     float64 `yaml:"threshold"`    // noise value above which a cell is rock
	ClearRadius   float64 `yaml:"clear_radius"` // kept free around the spawn point
	WallThickness float64 `yaml:"wall_thickness"`
	ObstacleRatio float64 `yaml:"obstacle_ratio"` // share of rock cells marked as obstacle
	Resolution    float64 `yaml:"resolution"`     // collision grid cells per unit
}

// PhysicsConfig holds fixed-step physics parameters.
type PhysicsConfig struct {
	DT             float64 `yaml:"dt"`
	Gravity        float64 `yaml:"gravity"`
	MaxStepsFrame  int     `yaml:"max_steps_per_frame"`
	Workers        int     `yaml:"workers"` // 0 = GOMAXPROCS
	ParallelThresh int     `yaml:"parallel_threshold"`
}

// RopeConfig holds per-appendage chain parameters.
type RopeConfig struct {
	Points          int     `yaml:"points"`
	SegmentLength   float64 `yaml:"segment_length"`
	Iterations      int     `yaml:"iterations"`
	DampingIdle     float64 `yaml:"damping_idle"`
	DampingReach    float64 `yaml:"damping_reach"`
	DampingGrip     float64 `yaml:"damping_grip"`
	DampingHang     float64 `yaml:"damping_hang"`
	ReachSpeed      float64 `yaml:"reach_speed"`
	AttackSpeed     float64 `yaml:"attack_speed"`
	MaxStretch      float64 `yaml:"max_stretch"`
	ArriveEpsilon   float64 `yaml:"arrive_epsilon"`
	StrikeRadius    float64 `yaml:"strike_radius"`
	ImpulseScale    float64 `yaml:"impulse_scale"`
	MaxImpulse      float64 `yaml:"max_impulse"`
	TipThickness    float64 `yaml:"tip_thickness"`
	AnchorThickness float64 `yaml:"anchor_thickness"`
}

// SearchConfig holds grip search parameters.
type SearchConfig struct {
	Steps             int     `yaml:"steps"`
	Probes            int     `yaml:"probes"`
	ConeAngle         float64 `yaml:"cone_angle"` // half-angle, radians
	Radius            float64 `yaml:"radius"`
	ProbeJitter       float64 `yaml:"probe_jitter"`
	MinAnchorDistance float64 `yaml:"min_anchor_distance"`
	MinGripSeparation float64 `yaml:"min_grip_separation"`
	ObstaclePenalty   float64 `yaml:"obstacle_penalty"`
	ObstacleRadius    float64 `yaml:"obstacle_radius"`
	PostAttackSteps   int     `yaml:"post_attack_steps"`
	PostAttackRadius  float64 `yaml:"post_attack_radius"`
}

// AppendageConfig holds appendage behavior timers and limits.
type AppendageConfig struct {
	IdleTimeout      float64 `yaml:"idle_timeout"`
	ReachTimeout     float64 `yaml:"reach_timeout"`
	AttackTimeout    float64 `yaml:"attack_timeout"`
	MaxReachFailures int     `yaml:"max_reach_failures"`
	HangDuration     float64 `yaml:"hang_duration"`
	OperatingRadius  float64 `yaml:"operating_radius"`
	Overshoot        float64 `yaml:"overshoot"`
}

// BodyConfig holds body coordinator parameters.
type BodyConfig struct {
	Appendages            int     `yaml:"appendages"`
	RadiusX               float64 `yaml:"radius_x"`
	RadiusY               float64 `yaml:"radius_y"`
	OutlineSamples        int     `yaml:"outline_samples"`
	MoveSpeed             float64 `yaml:"move_speed"`
	Acceleration          float64 `yaml:"acceleration"`
	VelocityDecay         float64 `yaml:"velocity_decay"` // per second while gated
	TurnRate              float64 `yaml:"turn_rate"`
	MinGrips              int     `yaml:"min_grips"`
	FarMinGrips           int     `yaml:"far_min_grips"`
	FarDistance           float64 `yaml:"far_distance"`
	ArriveDistance        float64 `yaml:"arrive_distance"`
	RegripIdleInterval    float64 `yaml:"regrip_idle_interval"`
	RegripMoveInterval    float64 `yaml:"regrip_move_interval"`
	ReleasePriorityWeight float64 `yaml:"release_priority_weight"`
	ForwardCone           float64 `yaml:"forward_cone"` // half-angle, radians
	MaxForwardSeekers     int     `yaml:"max_forward_seekers"`
	MinSearchAngle        float64 `yaml:"min_search_angle"`
	DirectionRetries      int     `yaml:"direction_retries"`
	MoveFailureTimeout    float64 `yaml:"move_failure_timeout"`
	MaxMoveFailures       int     `yaml:"max_move_failures"`
	RetreatSpeed          float64 `yaml:"retreat_speed"`
	RetreatDuration       float64 `yaml:"retreat_duration"`
	RetreatDistance       float64 `yaml:"retreat_distance"`
	TargetMovedThreshold  float64 `yaml:"target_moved_threshold"`
}

// AttackConfig holds attacker assignment parameters.
type AttackConfig struct {
	Cooldown      float64 `yaml:"cooldown"`
	MaxAttackers  int     `yaml:"max_attackers"`
	MaxForward    int     `yaml:"max_forward"`
	MaxRear       int     `yaml:"max_rear"`
	RetractorSide string  `yaml:"retractor_side"` // "rear", "front" or "none"
	Range         float64 `yaml:"range"`
	StretchCap    float64 `yaml:"stretch_cap"`
	AutoRange     float64 `yaml:"auto_range"` // targets inside this trigger an attack
}

// SceneConfig holds scene driver parameters.
type SceneConfig struct {
	Bodies         int          `yaml:"bodies"`
	Waypoints      [][2]float64 `yaml:"waypoints"`
	LegDuration    float64      `yaml:"leg_duration"`
	Ease           string       `yaml:"ease"` // "linear" or "sine"
	TargetInterval float64      `yaml:"target_interval"`
	MaxTargets     int          `yaml:"max_targets"`
	TargetRadius   float64      `yaml:"target_radius"`
	TargetMass     float64      `yaml:"target_mass"`
	TargetDrag     float64      `yaml:"target_drag"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds of sim time per window
	PerfWindow  int     `yaml:"perf_window"`  // ticks per perf window
}

// DerivedConfig holds values computed from other config values.
type DerivedConfig struct {
	DT32         float32
	RopeLength   float64 // physical length of a relaxed chain
	MaxReach     float64 // rope length times max stretch
	ScreenW32    float32
	ScreenH32    float32
	WorldW32     float32
	WorldH32     float32
	PixelsPerU32 float32
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded defaults. It panics if they do not parse,
// which only happens when defaults.yaml itself is broken.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Validate reports every malformed value at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Physics.DT > 0, "physics.dt must be positive, got %v", c.Physics.DT)
	check(c.Rope.Points >= 2, "rope.points must be at least 2, got %d", c.Rope.Points)
	check(c.Rope.SegmentLength > 0, "rope.segment_length must be positive, got %v", c.Rope.SegmentLength)
	check(c.Rope.Iterations >= 1, "rope.iterations must be at least 1, got %d", c.Rope.Iterations)
	check(c.Rope.MaxStretch >= 1, "rope.max_stretch must be >= 1, got %v", c.Rope.MaxStretch)
	check(c.Search.Steps >= 1, "search.steps must be at least 1, got %d", c.Search.Steps)
	check(c.Search.Probes >= 1, "search.probes must be at least 1, got %d", c.Search.Probes)
	check(c.Body.Appendages >= 1, "body.appendages must be at least 1, got %d", c.Body.Appendages)
	check(c.Body.MinGrips >= 0 && c.Body.MinGrips <= c.Body.Appendages,
		"body.min_grips must be within [0, %d], got %d", c.Body.Appendages, c.Body.MinGrips)
	check(c.Body.FarMinGrips >= c.Body.MinGrips && c.Body.FarMinGrips <= c.Body.Appendages,
		"body.far_min_grips must be within [min_grips, %d], got %d", c.Body.Appendages, c.Body.FarMinGrips)
	check(c.Body.MaxMoveFailures >= 1, "body.max_move_failures must be at least 1, got %d", c.Body.MaxMoveFailures)
	check(c.Body.ReleasePriorityWeight >= 0 && c.Body.ReleasePriorityWeight <= 1,
		"body.release_priority_weight must be within [0, 1], got %v", c.Body.ReleasePriorityWeight)
	check(c.Appendage.MaxReachFailures >= 1, "appendage.max_reach_failures must be at least 1, got %d", c.Appendage.MaxReachFailures)
	check(c.Attack.StretchCap >= 1, "attack.stretch_cap must be >= 1, got %v", c.Attack.StretchCap)
	switch c.Attack.RetractorSide {
	case "rear", "front", "none":
	default:
		errs = append(errs, fmt.Errorf("attack.retractor_side must be rear, front or none, got %q", c.Attack.RetractorSide))
	}
	switch c.Terrain.Source {
	case "noise":
	case "tmx":
		check(c.Terrain.TMXPath != "", "terrain.tmx_path is required when terrain.source is tmx")
	default:
		errs = append(errs, fmt.Errorf("terrain.source must be noise or tmx, got %q", c.Terrain.Source))
	}

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.RopeLength = float64(c.Rope.Points-1) * c.Rope.SegmentLength
	c.Derived.MaxReach = c.Derived.RopeLength * c.Rope.MaxStretch
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.PixelsPerU32 = float32(c.Screen.PixelsPerUnit)

	// World dimensions default to the screen size in units.
	if c.World.Width == 0 && c.Screen.PixelsPerUnit > 0 {
		c.World.Width = float64(c.Screen.Width) / c.Screen.PixelsPerUnit
	}
	if c.World.Height == 0 && c.Screen.PixelsPerUnit > 0 {
		c.World.Height = float64(c.Screen.Height) / c.Screen.PixelsPerUnit
	}
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
