package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/renderer"
	"github.com/pthm-cable/grapple/ui"
)

const controlsLegend = "LMB: target | Shift+LMB: body | RMB: attack | MMB: target orb | " +
	"Space: pause | </>: speed | R: reset | Y: resync | P: patrol | C: clear | F: follow | Tab: panel"

// initRendering creates the camera and draw helpers. Requires an open
// raylib window.
func (g *Game) initRendering() {
	g.screenWidth = float32(rl.GetScreenWidth())
	g.screenHeight = float32(rl.GetScreenHeight())

	g.camera = camera.New(g.screenWidth, g.screenHeight,
		float32(g.worldWidth), float32(g.worldHeight), g.cfg.Derived.PixelsPerU32)
	g.view = renderer.NewWorld(g.cfg, g.camera)
	g.hud = ui.NewHUD()
	g.controls = ui.NewControlPanel(0, 0, 220)
	g.perfPanel = ui.NewPerfPanel(0, 0)
	g.bodyPanel = ui.NewBodyPanel(0, 0, 220)
	g.layoutPanels()
}

// layoutPanels anchors panels to the screen edges.
func (g *Game) layoutPanels() {
	w := int32(g.screenWidth)
	g.controls.SetPosition(w-230, 10)
	g.bodyPanel.SetPosition(w-230, 230)
	g.perfPanel.SetPosition(10, 105)
}

// Update runs one frame: input, bookkeeping and fixed steps. The speed
// control repeats the frame's simulation work.
func (g *Game) Update() {
	g.handleInput()

	frameDT := float64(rl.GetFrameTime())
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Advance(frameDT)
	}

	if g.followBody && len(g.bodies) > 0 {
		p := g.bodies[0].Position()
		g.camera.Follow(float32(p.X), float32(p.Y), float32(frameDT))
	}
	g.perf.RecordFrame()
}

// Draw renders the world and panels.
func (g *Game) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	frame := renderer.Frame{
		Terrain:   g.terrain.Rects(),
		Bodies:    g.bodies,
		Targets:   g.targets,
		Waypoints: g.patrol.Waypoints(),
		Flashes:   g.flashFrames(),
	}
	if len(g.bodies) > 0 {
		if s := g.bodies[0].Snapshot(); s.HasTarget {
			frame.Target, frame.HasTarget = s.Target, true
		}
	}
	g.view.Draw(frame)

	g.hud.Draw(ui.HUDData{
		Title:     "Grapple",
		Bodies:    len(g.bodies),
		Targets:   g.targets.Count(),
		Tick:      g.tick,
		Speed:     g.stepsPerUpdate,
		FPS:       rl.GetFPS(),
		Paused:    g.paused,
		Following: g.following,
	})
	g.perfPanel.Draw(g.perf.Stats())
	if len(g.bodies) > 0 {
		g.bodyPanel.Draw(g.bodies[0])
	}

	act := g.controls.Draw(ui.ControlState{
		Paused:    g.paused,
		Speed:     g.stepsPerUpdate,
		MaxSpeed:  maxStepsPerUpdate,
		Following: g.following,
	})
	g.applyActions(act)

	g.hud.DrawControls(int32(g.screenHeight), controlsLegend)
}

// applyActions runs the commands chosen on the control panel.
func (g *Game) applyActions(act ui.Actions) {
	if act.TogglePause {
		g.paused = !g.paused
	}
	g.stepsPerUpdate = act.Speed
	if act.Attack && len(g.bodies) > 0 {
		// Strike toward the nearest target, else straight ahead.
		b := g.bodies[0]
		if e, ok := g.targets.Snapshot().Nearest(b.Position(), g.cfg.Attack.Range); ok {
			g.TriggerAttack(e.Pos)
		} else if s := b.Snapshot(); s.HasTarget {
			g.TriggerAttack(s.Target)
		}
	}
	if act.Resync {
		g.Resync()
	}
	if act.Reset {
		g.ResetAll()
	}
	if act.FollowPatrol {
		g.FollowPatrol()
	}
	if act.SpawnBody {
		g.spawnNearCentre()
	}
}

func (g *Game) flashFrames() []renderer.Flash {
	out := make([]renderer.Flash, len(g.flashes))
	for i, f := range g.flashes {
		out[i] = renderer.Flash{X: f.pos.X, Y: f.pos.Y, Life: f.ttl, MaxLife: flashDuration}
	}
	return out
}
