package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"
)

// maxStepsPerUpdate bounds the speed control.
const maxStepsPerUpdate = 10

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < maxStepsPerUpdate {
		g.stepsPerUpdate++
	}

	if rl.IsKeyPressed(rl.KeyR) {
		g.ResetAll()
	}
	if rl.IsKeyPressed(rl.KeyY) {
		g.Resync()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.FollowPatrol()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		g.ClearTarget()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		g.followBody = !g.followBody
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}

	g.handleMouse()
	g.handleCameraInput()
}

// handleMouse maps clicks to world commands: left sets the target, right
// attacks, middle spawns a strikeable target.
func (g *Game) handleMouse() {
	m := rl.GetMousePosition()
	if g.controls.Contains(m.X, m.Y) {
		return
	}
	wx, wy := g.camera.ScreenToWorld(m.X, m.Y)
	pos := r2.Vec{X: float64(wx), Y: float64(wy)}

	switch {
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft):
		if rl.IsKeyDown(rl.KeyLeftShift) {
			g.SpawnBody(pos)
		} else {
			g.SetTarget(pos)
		}
	case rl.IsMouseButtonPressed(rl.MouseButtonRight):
		n := g.TriggerAttack(pos)
		g.logger.Debug("attack requested", "pos", pos, "assigned", n)
	case rl.IsMouseButtonPressed(rl.MouseButtonMiddle):
		if g.freeAt(pos) {
			g.SpawnTarget(pos)
		}
	}
}

// handleResize propagates window resizes to the camera and panels.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(w, h)
	g.layoutPanels()
}

// handleCameraInput processes camera pan and zoom controls.
func (g *Game) handleCameraInput() {
	// Pan speed scales inversely with zoom for natural feel
	panSpeed := float32(8.0) / g.camera.Zoom

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.followBody = false
		g.camera.Reset()
	}
}
