// Package renderer draws the simulation with raylib. It reads public state
// only and never advances the simulation.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/terrain"
)

// TerrainRenderer draws terrain blocks with a lit top edge and a shaded
// bottom edge.
type TerrainRenderer struct {
	rock     rl.Color
	obstacle rl.Color
}

// NewTerrainRenderer creates a terrain renderer with the default palette.
func NewTerrainRenderer() *TerrainRenderer {
	return &TerrainRenderer{
		rock:     rl.Color{R: 58, G: 62, B: 70, A: 255},
		obstacle: rl.Color{R: 150, G: 70, B: 60, A: 255},
	}
}

// Draw renders every visible block.
func (r *TerrainRenderer) Draw(rects []terrain.Rect, cam *camera.Camera) {
	scale := cam.Scale()
	for _, b := range rects {
		w := float32(b.Max.X - b.Min.X)
		h := float32(b.Max.Y - b.Min.Y)
		cx := float32(b.Min.X) + w/2
		cy := float32(b.Min.Y) + h/2
		if !cam.IsVisible(cx, cy, max(w, h)) {
			continue
		}

		x, y := cam.WorldToScreen(float32(b.Min.X), float32(b.Min.Y))
		sw, sh := w*scale, h*scale

		base := r.rock
		if b.Obstacle {
			base = r.obstacle
		}
		rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y, Width: sw, Height: sh}, base)

		// Edges stay thin relative to the block, at least one pixel.
		edge := float32(math.Max(1, float64(min(sw, sh)*0.12)))
		rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y, Width: sw, Height: edge}, lighten(base, 40, 200))
		rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y + sh - edge, Width: sw, Height: edge}, darken(base, 0.6, 200))
	}
}

func lighten(c rl.Color, by float64, alpha uint8) rl.Color {
	return rl.Color{
		R: uint8(math.Min(float64(c.R)+by, 255)),
		G: uint8(math.Min(float64(c.G)+by, 255)),
		B: uint8(math.Min(float64(c.B)+by+5, 255)),
		A: alpha,
	}
}

func darken(c rl.Color, f float32, alpha uint8) rl.Color {
	return rl.Color{
		R: uint8(float32(c.R) * f),
		G: uint8(float32(c.G) * f),
		B: uint8(float32(c.B) * f),
		A: alpha,
	}
}
