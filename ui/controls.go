package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlState is the simulation state shown by the control panel.
type ControlState struct {
	Paused    bool
	Speed     int
	MaxSpeed  int
	Following bool
}

// Actions are the controls activated during one frame.
type Actions struct {
	TogglePause  bool
	Speed        int
	Attack       bool
	Reset        bool
	Resync       bool
	FollowPatrol bool
	SpawnBody    bool
}

// ControlPanel is a raygui panel of simulation controls.
type ControlPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlPanel creates a control panel at (x, y).
func NewControlPanel(x, y, width int32) *ControlPanel {
	return &ControlPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// Toggle switches panel visibility.
func (c *ControlPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// SetPosition moves the panel.
func (c *ControlPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

const (
	controlRows   = 6
	controlRowH   = 30
	controlHeader = 26
)

func (c *ControlPanel) height() int32 {
	return controlHeader + controlRows*controlRowH + c.renderer.Theme.Padding
}

// Contains reports whether a screen point is over the visible panel, so
// clicks there are not treated as world clicks.
func (c *ControlPanel) Contains(x, y float32) bool {
	if !c.visible {
		return false
	}
	return x >= float32(c.x) && x <= float32(c.x+c.width) &&
		y >= float32(c.y) && y <= float32(c.y+c.height())
}

// Draw renders the panel and returns the activated controls.
func (c *ControlPanel) Draw(s ControlState) Actions {
	act := Actions{Speed: s.Speed}
	if !c.visible {
		return act
	}

	r := c.renderer
	pad := r.Theme.Padding
	r.DrawPanel(c.x, c.y, c.width, c.height())
	y := float32(r.DrawSectionHeader(c.x+pad, c.y+pad/2, "Controls"))

	x := float32(c.x + pad)
	w := float32(c.width - 2*pad)
	half := (w - 8) / 2
	row := func(h float32) rl.Rectangle { return rl.Rectangle{X: x, Y: y, Width: w, Height: h} }

	pause := "Pause"
	if s.Paused {
		pause = "Resume"
	}
	act.TogglePause = gui.Button(row(24), pause)
	y += controlRowH

	speed := gui.SliderBar(rl.Rectangle{X: x + 40, Y: y + 4, Width: w - 80, Height: 16},
		"Speed", fmt.Sprintf("%dx", s.Speed), float32(s.Speed), 1, float32(max(s.MaxSpeed, 1)))
	act.Speed = max(1, int(speed+0.5))
	y += controlRowH

	act.Attack = gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "Attack")
	act.Resync = gui.Button(rl.Rectangle{X: x + half + 8, Y: y, Width: half, Height: 24}, "Resync")
	y += controlRowH

	act.Reset = gui.Button(row(24), "Reset")
	y += controlRowH

	follow := "Follow patrol"
	if s.Following {
		follow = "Following patrol"
	}
	act.FollowPatrol = gui.Button(row(24), follow) && !s.Following
	y += controlRowH

	act.SpawnBody = gui.Button(row(24), "Spawn body")
	return act
}
