package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/targets"
	"github.com/pthm-cable/grapple/terrain"
)

// Frame is everything drawn in one frame.
type Frame struct {
	Terrain   []terrain.Rect
	Bodies    []*creature.Body
	Targets   *targets.Registry
	Waypoints []r2.Vec
	Target    r2.Vec
	HasTarget bool
	Flashes   []Flash
}

// World draws a Frame through a camera.
type World struct {
	cam      *camera.Camera
	terrain  *TerrainRenderer
	tentacle *TentacleRenderer
	flashes  *FlashRenderer

	outline []r2.Vec // body outline relative to its centre
	bg      rl.Color
}

// NewWorld creates the world renderer.
func NewWorld(cfg *config.Config, cam *camera.Camera) *World {
	return &World{
		cam:      cam,
		terrain:  NewTerrainRenderer(),
		tentacle: NewTentacleRenderer(cfg.Rope.AnchorThickness, cfg.Rope.TipThickness),
		flashes:  NewFlashRenderer(),
		outline:  creature.OutlineFromConfig(cfg).Boundary(),
		bg:       rl.Color{R: 16, G: 20, B: 28, A: 255},
	}
}

// Draw renders the frame. It must be called between BeginDrawing and
// EndDrawing.
func (w *World) Draw(f Frame) {
	rl.ClearBackground(w.bg)
	w.drawBounds()
	w.terrain.Draw(f.Terrain, w.cam)
	w.drawWaypoints(f.Waypoints)
	if f.Targets != nil {
		f.Targets.Each(w.drawTarget)
	}
	for _, b := range f.Bodies {
		w.drawBody(b)
	}
	if f.HasTarget {
		w.drawMovementTarget(f.Target)
	}
	w.flashes.Draw(f.Flashes, w.cam)
}

func (w *World) drawBounds() {
	x0, y0 := w.cam.WorldToScreen(0, 0)
	x1, y1 := w.cam.WorldToScreen(w.cam.WorldW, w.cam.WorldH)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1,
		rl.Color{R: 50, G: 60, B: 75, A: 255})
}

func (w *World) drawWaypoints(wps []r2.Vec) {
	if len(wps) < 2 {
		return
	}
	col := rl.Color{R: 80, G: 90, B: 110, A: 160}
	for i := range wps {
		a, b := wps[i], wps[(i+1)%len(wps)]
		ax, ay := w.cam.WorldToScreen(float32(a.X), float32(a.Y))
		bx, by := w.cam.WorldToScreen(float32(b.X), float32(b.Y))
		rl.DrawLineV(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, col)
		rl.DrawCircleV(rl.Vector2{X: ax, Y: ay}, 3, col)
	}
}

func (w *World) drawTarget(t targets.Target) {
	r := float32(t.Radius)
	if !w.cam.IsVisible(float32(t.Pos.X), float32(t.Pos.Y), r) {
		return
	}
	x, y := w.cam.WorldToScreen(float32(t.Pos.X), float32(t.Pos.Y))
	// Targets redden as they take hits.
	heat := uint8(math.Min(float64(t.Hits)*40, 155))
	rl.DrawCircleV(rl.Vector2{X: x, Y: y}, r*w.cam.Scale(), rl.Color{R: 100 + heat, G: 180 - heat, B: 220 - heat, A: 255})
}

func (w *World) drawBody(b *creature.Body) {
	for _, a := range b.Appendages() {
		w.tentacle.Draw(a, w.cam)
	}

	s := b.Snapshot()
	fill := rl.Color{R: 190, G: 110, B: 150, A: 255}
	switch {
	case s.GivingUp:
		fill = rl.Color{R: 110, G: 110, B: 120, A: 255}
	case s.Retreating:
		fill = rl.Color{R: 220, G: 160, B: 90, A: 255}
	}

	cx, cy := w.cam.WorldToScreen(float32(s.Pos.X), float32(s.Pos.Y))
	scale := w.cam.Scale()
	if n := len(w.outline); n >= 3 {
		inner := math.Inf(1)
		for _, p := range w.outline {
			inner = math.Min(inner, r2.Norm(p))
		}
		rl.DrawCircleV(rl.Vector2{X: cx, Y: cy}, float32(inner)*scale, fill)
		for i := range w.outline {
			a := r2.Add(s.Pos, geom.Rotate(w.outline[i], s.Heading))
			c := r2.Add(s.Pos, geom.Rotate(w.outline[(i+1)%n], s.Heading))
			ax, ay := w.cam.WorldToScreen(float32(a.X), float32(a.Y))
			bx, by := w.cam.WorldToScreen(float32(c.X), float32(c.Y))
			rl.DrawLineEx(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, 2, fill)
		}
	} else {
		rl.DrawCircleV(rl.Vector2{X: cx, Y: cy}, max(3, 0.3*scale), fill)
	}

	// Heading tick
	h := r2.Add(s.Pos, geom.FromAngle(s.Heading))
	hx, hy := w.cam.WorldToScreen(float32(h.X), float32(h.Y))
	rl.DrawLineV(rl.Vector2{X: cx, Y: cy}, rl.Vector2{X: hx, Y: hy}, rl.RayWhite)
}

func (w *World) drawMovementTarget(p r2.Vec) {
	x, y := w.cam.WorldToScreen(float32(p.X), float32(p.Y))
	col := rl.Color{R: 250, G: 230, B: 120, A: 220}
	const arm = 8
	rl.DrawLineV(rl.Vector2{X: x - arm, Y: y}, rl.Vector2{X: x + arm, Y: y}, col)
	rl.DrawLineV(rl.Vector2{X: x, Y: y - arm}, rl.Vector2{X: x, Y: y + arm}, col)
	rl.DrawCircleLines(int32(x), int32(y), arm*0.75, col)
}

// Unload frees resources. Everything is immediate-mode today.
func (w *World) Unload() {}
