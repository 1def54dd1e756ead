package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Rope.Points != 26 {
		t.Errorf("rope.points = %d, want 26", cfg.Rope.Points)
	}
	if cfg.Rope.Iterations != 15 {
		t.Errorf("rope.iterations = %d, want 15", cfg.Rope.Iterations)
	}
	wantLen := 25 * 0.26
	if math.Abs(cfg.Derived.RopeLength-wantLen) > 1e-9 {
		t.Errorf("derived rope length = %v, want %v", cfg.Derived.RopeLength, wantLen)
	}
	if math.Abs(cfg.Derived.MaxReach-wantLen*cfg.Rope.MaxStretch) > 1e-9 {
		t.Errorf("derived max reach = %v", cfg.Derived.MaxReach)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := "body:\n  min_grips: 3\n  far_min_grips: 4\nattack:\n  retractor_side: front\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Body.MinGrips != 3 || cfg.Body.FarMinGrips != 4 {
		t.Errorf("overlay not applied: min=%d far=%d", cfg.Body.MinGrips, cfg.Body.FarMinGrips)
	}
	if cfg.Attack.RetractorSide != "front" {
		t.Errorf("retractor side = %q, want front", cfg.Attack.RetractorSide)
	}
	// Untouched keys keep their defaults.
	if cfg.Rope.Points != 26 {
		t.Errorf("rope.points = %d, want default 26", cfg.Rope.Points)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"min grips above count", func(c *Config) { c.Body.MinGrips = c.Body.Appendages + 1 }, "body.min_grips"},
		{"zero iterations", func(c *Config) { c.Rope.Iterations = 0 }, "rope.iterations"},
		{"bad retractor", func(c *Config) { c.Attack.RetractorSide = "left" }, "retractor_side"},
		{"tmx without path", func(c *Config) { c.Terrain.Source = "tmx"; c.Terrain.TMXPath = "" }, "tmx_path"},
		{"weight out of range", func(c *Config) { c.Body.ReleasePriorityWeight = 1.5 }, "release_priority_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Body.MoveSpeed = 4.25

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Body.MoveSpeed != 4.25 {
		t.Errorf("move speed = %v, want 4.25", got.Body.MoveSpeed)
	}
}
