package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/camera"
)

// Flash is a short-lived strike marker.
type Flash struct {
	X, Y    float64
	Life    float64 // remaining seconds
	MaxLife float64
}

// FlashRenderer draws strike flashes as expanding, fading rings.
type FlashRenderer struct {
	color rl.Color
}

// NewFlashRenderer creates a flash renderer.
func NewFlashRenderer() *FlashRenderer {
	return &FlashRenderer{color: rl.Color{R: 255, G: 210, B: 90, A: 255}}
}

// Draw renders all flashes.
func (r *FlashRenderer) Draw(flashes []Flash, cam *camera.Camera) {
	for i := range flashes {
		f := &flashes[i]
		if f.MaxLife <= 0 {
			continue
		}
		lifeRatio := float32(f.Life / f.MaxLife)
		x, y := cam.WorldToScreen(float32(f.X), float32(f.Y))

		c := r.color
		c.A = uint8(lifeRatio * 220)
		radius := (0.2 + 0.6*(1-lifeRatio)) * cam.Scale()
		rl.DrawCircleLines(int32(x), int32(y), radius, c)
		rl.DrawCircleV(rl.Vector2{X: x, Y: y}, max(1, radius*0.3*lifeRatio), c)
	}
}
