package game

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHeadless(t *testing.T, mutate func(cfg *config.Config, opts *Options)) *Game {
	t.Helper()
	cfg := config.Default()
	opts := Options{Config: cfg, Logger: quietLogger(), Seed: 7, Headless: true}
	if mutate != nil {
		mutate(cfg, &opts)
	}
	g, err := NewGame(opts)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	p := newWorkerPool(4)
	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		})
	}
	wg.Wait()
	p.stopWorkers()

	if got := n.Load(); got != 200 {
		t.Errorf("ran %d jobs, want 200", got)
	}
	if p.running {
		t.Error("pool still running after stop")
	}
	// Restart on demand
	done := make(chan struct{})
	p.Submit(func() { close(done) })
	<-done
	p.stopWorkers()
}

func TestUpdateHeadlessAdvancesTick(t *testing.T) {
	g := newHeadless(t, func(_ *config.Config, o *Options) { o.StepsPerUpdate = 5 })
	g.UpdateHeadless()
	g.UpdateHeadless()
	if g.Tick() != 10 {
		t.Errorf("tick = %d, want 10", g.Tick())
	}

	g.SetPaused(true)
	g.UpdateHeadless()
	if g.Tick() != 10 {
		t.Errorf("paused game stepped to %d", g.Tick())
	}
}

func TestAdvanceCapsStepsPerFrame(t *testing.T) {
	g := newHeadless(t, nil)
	dt := g.cfg.Physics.DT

	g.Advance(dt * 2.5)
	if g.Tick() != 2 {
		t.Errorf("tick = %d after 2.5 steps of time, want 2", g.Tick())
	}

	// A long stall runs the cap and drops the backlog.
	g.Advance(dt * 100)
	want := int64(2 + g.cfg.Physics.MaxStepsFrame)
	if g.Tick() != want {
		t.Errorf("tick = %d, want %d", g.Tick(), want)
	}
	if g.accumulator != 0 {
		t.Errorf("backlog %v kept after stall", g.accumulator)
	}
}

func TestParallelMatchesInline(t *testing.T) {
	inline := newHeadless(t, func(c *config.Config, _ *Options) {
		c.Physics.ParallelThresh = 1 << 30
		c.Scene.Bodies = 2
	})
	parallel := newHeadless(t, func(c *config.Config, _ *Options) {
		c.Physics.ParallelThresh = 0
		c.Physics.Workers = 4
		c.Scene.Bodies = 2
	})

	for i := 0; i < 90; i++ {
		inline.bookkeeping(inline.cfg.Physics.DT)
		inline.Step()
		parallel.bookkeeping(parallel.cfg.Physics.DT)
		parallel.Step()
	}
	if !parallel.workers.running {
		t.Fatal("worker pool never used")
	}

	for i, b := range inline.Bodies() {
		pb := parallel.Bodies()[i]
		if b.Position() != pb.Position() {
			t.Fatalf("body %d position %v vs %v", i, b.Position(), pb.Position())
		}
		for j, a := range b.Appendages() {
			pa := pb.Appendages()[j].Points()
			for k, p := range a.Points() {
				if p.Pos != pa[k].Pos {
					t.Fatalf("body %d appendage %d point %d: %v vs %v", i, j, k, p.Pos, pa[k].Pos)
				}
			}
		}
	}
}

func TestRetiredBodiesAreReused(t *testing.T) {
	g := newHeadless(t, nil)
	if len(g.Bodies()) != 1 || g.pool.Created() != 1 {
		t.Fatalf("bodies = %d created = %d, want 1 and 1", len(g.Bodies()), g.pool.Created())
	}
	first := g.Bodies()[0]
	oldID := first.ID()

	if !g.RetireBody(oldID) {
		t.Fatal("retire failed")
	}
	if g.RetireBody(oldID) {
		t.Error("retired twice")
	}
	if len(g.Bodies()) != 0 || g.pool.Free() != 1 {
		t.Fatalf("bodies = %d free = %d", len(g.Bodies()), g.pool.Free())
	}

	pos := r2.Vec{X: g.worldWidth / 2, Y: g.worldHeight / 2}
	id := g.SpawnBody(pos)
	if id == oldID {
		t.Error("body id reused")
	}
	if g.pool.Created() != 1 || g.pool.Free() != 0 {
		t.Errorf("created = %d free = %d, want reuse", g.pool.Created(), g.pool.Free())
	}
	b := g.Bodies()[0]
	if b != first || b.ID() != id || b.Position() != pos || b.GripCount() != 0 {
		t.Errorf("reused body not reinitialised: id %d pos %v grips %d", b.ID(), b.Position(), b.GripCount())
	}
}

func TestEntitiesMirrorBodies(t *testing.T) {
	g := newHeadless(t, func(c *config.Config, _ *Options) { c.Scene.Bodies = 3 })
	for i := 0; i < 120; i++ {
		g.UpdateHeadless()
	}

	seen := 0
	query := g.bodyFilter.Query()
	for query.Next() {
		pos, vel, c := query.Get()
		p, v := c.Body.Position(), c.Body.Velocity()
		if pos.X != p.X || pos.Y != p.Y || vel.X != v.X || vel.Y != v.Y {
			t.Errorf("body %d entity (%v,%v) body %v", c.Body.ID(), pos.X, pos.Y, p)
		}
		seen++
	}
	if seen != 3 {
		t.Errorf("queried %d creature entities, want 3", seen)
	}
}

func TestTriggerAttackAndCooldown(t *testing.T) {
	g := newHeadless(t, nil)
	b := g.Bodies()[0]
	pos := r2.Add(b.Position(), r2.Vec{X: 3})

	n := g.TriggerAttack(pos)
	if n < 1 || n > g.cfg.Attack.MaxAttackers {
		t.Fatalf("assigned %d attackers, want 1..%d", n, g.cfg.Attack.MaxAttackers)
	}
	if again := g.TriggerAttack(pos); again != 0 {
		t.Errorf("assigned %d during cooldown", again)
	}
}

func TestTargetCommands(t *testing.T) {
	g := newHeadless(t, func(c *config.Config, _ *Options) { c.Scene.TargetInterval = 0 })
	g.SpawnTarget(r2.Vec{X: 10, Y: 10})
	g.SpawnTarget(r2.Vec{X: 20, Y: 10})
	if g.Targets().Count() != 2 {
		t.Fatalf("targets = %d, want 2", g.Targets().Count())
	}

	g.SetTarget(r2.Vec{X: 40, Y: 20})
	if g.following {
		t.Error("still following patrol after SetTarget")
	}
	for _, b := range g.Bodies() {
		s := b.Snapshot()
		if !s.HasTarget || s.Target != (r2.Vec{X: 40, Y: 20}) {
			t.Errorf("body target = %v (%v)", s.Target, s.HasTarget)
		}
	}

	g.FollowPatrol()
	if !g.following {
		t.Error("not following after FollowPatrol")
	}

	g.ResetAll()
	if g.Targets().Count() != 0 {
		t.Errorf("targets = %d after reset, want 0", g.Targets().Count())
	}
	for _, b := range g.Bodies() {
		if b.GripCount() != 0 {
			t.Errorf("body %d keeps %d grips after reset", b.ID(), b.GripCount())
		}
	}
}

func TestTelemetryOutput(t *testing.T) {
	dir := t.TempDir()
	g := newHeadless(t, func(_ *config.Config, o *Options) {
		o.OutputDir = dir
		o.StatsWindowSec = 0.5
		o.StepsPerUpdate = 10
	})
	for i := 0; i < 7; i++ {
		g.UpdateHeadless()
	}
	g.Unload()

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("telemetry.csv has %d lines, want header and rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("header = %q", lines[0])
	}
	for _, name := range []string{"perf.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}
