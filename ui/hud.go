package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/creature"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/tentacle"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Bodies    int
	Targets   int
	Tick      int64
	Speed     int
	FPS       int32
	Paused    bool
	Following bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(fmt.Sprintf("Bodies: %d | Targets: %d", data.Bodies, data.Targets), 10, 35, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.Speed, data.FPS), 10, 55, 16, rl.LightGray)

	status := "Running"
	if data.Paused {
		status = "PAUSED"
	}
	if !data.Following {
		status += " | fixed target"
	}
	rl.DrawText(status, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders step timings by phase.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s | Max: %s", stats.AvgTick.Round(time.Microsecond), stats.MaxTick.Round(time.Microsecond)),
		x, y, 14, rl.Yellow)
	y += 16

	for ph := telemetry.PhaseSnapshot; ph <= telemetry.PhaseTelemetry; ph++ {
		pct := stats.PhasePct[ph]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(fmt.Sprintf("%-10s %8s %5.1f%%", ph, stats.PhaseAvg[ph].Round(time.Microsecond), pct), x, y, 12, color)
		y += 14
	}
}

// BodyPanel shows the state of one body and its appendages.
type BodyPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewBodyPanel creates a body inspector panel.
func NewBodyPanel(x, y, width int32) *BodyPanel {
	return &BodyPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (b *BodyPanel) SetPosition(x, y int32) {
	b.x = x
	b.y = y
}

// Draw renders the panel for body.
func (b *BodyPanel) Draw(body *creature.Body) {
	if body == nil {
		return
	}
	r := b.renderer
	pad := r.Theme.Padding
	apps := body.Appendages()
	height := pad*2 + r.Theme.LineHeight*int32(7+len(apps))
	r.DrawPanel(b.x, b.y, b.width, height)

	s := body.Snapshot()
	x := b.x + pad
	y := r.DrawSectionHeader(x, b.y+pad, fmt.Sprintf("Body %d", s.ID))
	y = r.DrawRatioBar(x, y, "Grips", s.GripCount, len(apps), body.RequiredGrips(), b.width-2*pad)
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.2f", norm(s.Vel.X, s.Vel.Y)))
	y = r.DrawLabelValue(x, y, "Failures", fmt.Sprintf("%d", s.MoveFailures))

	state := "pursuing"
	switch {
	case !s.HasTarget:
		state = "no target"
	case s.GivingUp:
		state = "giving up"
	case s.Retreating:
		state = "retreating"
	}
	y = r.DrawLabelValue(x, y, "State", state)
	y = r.DrawLabelValue(x, y, "Cooldown", fmt.Sprintf("%.1fs", body.AttackCooldown()))

	for _, a := range apps {
		y = r.DrawLabelValue(x, y, fmt.Sprintf("#%d", a.Index()), appendageLabel(a))
	}
}

func appendageLabel(a *tentacle.Appendage) string {
	label := a.Mode().String()
	if a.IsGripping() {
		label += " +grip"
	}
	if a.IsAttacking() {
		label += " +attack"
	}
	if a.ForwardSeeking() {
		label += " fwd"
	}
	return label
}
