package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/tentacle"
)

// TentacleRenderer draws appendage chains as polylines tapering from anchor
// to tip.
type TentacleRenderer struct {
	anchorThickness float32 // world units
	tipThickness    float32

	idle      rl.Color
	gripping  rl.Color
	attacking rl.Color
	hanging   rl.Color

	screen []rl.Vector2
}

// NewTentacleRenderer creates a renderer with thicknesses in world units.
func NewTentacleRenderer(anchorThickness, tipThickness float64) *TentacleRenderer {
	return &TentacleRenderer{
		anchorThickness: float32(anchorThickness),
		tipThickness:    float32(tipThickness),
		idle:            rl.Color{R: 170, G: 120, B: 200, A: 255},
		gripping:        rl.Color{R: 120, G: 200, B: 160, A: 255},
		attacking:       rl.Color{R: 240, G: 110, B: 90, A: 255},
		hanging:         rl.Color{R: 130, G: 130, B: 150, A: 255},
	}
}

func (r *TentacleRenderer) color(a *tentacle.Appendage) rl.Color {
	switch {
	case a.IsAttacking():
		return r.attacking
	case a.IsGripping():
		return r.gripping
	case a.Mode() == tentacle.ModeHanging:
		return r.hanging
	default:
		return r.idle
	}
}

// Draw renders one appendage, its grip marker and, while reaching, the
// reach target.
func (r *TentacleRenderer) Draw(a *tentacle.Appendage, cam *camera.Camera) {
	pts := a.Points()
	if len(pts) < 2 {
		return
	}

	r.screen = r.screen[:0]
	for _, p := range pts {
		x, y := cam.WorldToScreen(float32(p.Pos.X), float32(p.Pos.Y))
		r.screen = append(r.screen, rl.Vector2{X: x, Y: y})
	}

	scale := cam.Scale()
	col := r.color(a)
	last := float32(len(r.screen) - 1)
	for i := 1; i < len(r.screen); i++ {
		t := float32(i) / last
		thick := (r.anchorThickness + (r.tipThickness-r.anchorThickness)*t) * scale
		rl.DrawLineEx(r.screen[i-1], r.screen[i], max(1, thick), col)
	}

	tip := r.screen[len(r.screen)-1]
	target, ok := a.GripTarget()
	switch {
	case a.IsGripping() && ok:
		x, y := cam.WorldToScreen(float32(target.X), float32(target.Y))
		rl.DrawCircleV(rl.Vector2{X: x, Y: y}, max(2, 0.12*scale), r.gripping)
	case a.IsAttacking():
		rl.DrawCircleV(tip, max(2, 0.15*scale), r.attacking)
	case ok:
		x, y := cam.WorldToScreen(float32(target.X), float32(target.Y))
		rl.DrawCircleLines(int32(x), int32(y), max(2, 0.1*scale), rl.Fade(col, 0.6))
	}

	if a.Seeking() {
		r.drawSearchHint(a, cam, col)
	}
}

// drawSearchHint draws a short ray along the search direction.
func (r *TentacleRenderer) drawSearchHint(a *tentacle.Appendage, cam *camera.Camera, col rl.Color) {
	dir := geom.Unit(a.SearchDirection())
	if dir == (r2.Vec{}) {
		return
	}
	from := a.Anchor()
	to := r2.Add(from, r2.Scale(a.Params().RopeLength()*0.5, dir))
	fx, fy := cam.WorldToScreen(float32(from.X), float32(from.Y))
	tx, ty := cam.WorldToScreen(float32(to.X), float32(to.Y))
	rl.DrawLineV(rl.Vector2{X: fx, Y: fy}, rl.Vector2{X: tx, Y: ty}, rl.Fade(col, 0.3))
}
