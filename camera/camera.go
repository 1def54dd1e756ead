// Package camera provides a 2D camera over a bounded world.
package camera

import "math"

// Camera maps world units to screen pixels. The view never leaves the world
// once the world is larger than the viewport.
type Camera struct {
	// Position is the camera center in world units.
	X, Y float32

	// Zoom multiplies PixelsPerUnit.
	Zoom          float32
	PixelsPerUnit float32

	ViewportW, ViewportH float32
	WorldW, WorldH       float32

	MinZoom, MaxZoom float32

	// Smoothing is the follow rate per second; 0 snaps.
	Smoothing float32
}

// New creates a camera centered on the world at zoom 1.
func New(viewportW, viewportH, worldW, worldH, pixelsPerUnit float32) *Camera {
	c := &Camera{
		X:             worldW / 2,
		Y:             worldH / 2,
		Zoom:          1,
		PixelsPerUnit: pixelsPerUnit,
		ViewportW:     viewportW,
		ViewportH:     viewportH,
		WorldW:        worldW,
		WorldH:        worldH,
		MaxZoom:       6,
		Smoothing:     4,
	}
	c.updateMinZoom()
	return c
}

// Scale returns pixels per world unit at the current zoom.
func (c *Camera) Scale() float32 { return c.PixelsPerUnit * c.Zoom }

func (c *Camera) updateMinZoom() {
	// Smallest zoom at which the viewport still fits inside the world.
	c.MinZoom = float32(math.Min(
		float64(c.ViewportW/(c.WorldW*c.PixelsPerUnit)),
		float64(c.ViewportH/(c.WorldH*c.PixelsPerUnit)),
	))
	c.MinZoom = min(c.MinZoom, 1)
	c.Zoom = clamp(c.Zoom, c.MinZoom, c.MaxZoom)
}

// WorldToScreen converts world units to screen pixels.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	s := c.Scale()
	return c.ViewportW/2 + (wx-c.X)*s, c.ViewportH/2 + (wy-c.Y)*s
}

// ScreenToWorld converts screen pixels to world units.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	s := c.Scale()
	return c.X + (sx-c.ViewportW/2)/s, c.Y + (sy-c.ViewportH/2)/s
}

// IsVisible reports whether a circle could be on screen.
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return wx+radius >= minX && wx-radius <= maxX && wy+radius >= minY && wy-radius <= maxY
}

// Resize updates the viewport and zoom limits.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.updateMinZoom()
	c.clampPosition()
}

// Pan moves the camera by a delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	s := c.Scale()
	c.X += dx / s
	c.Y += dy / s
	c.clampPosition()
}

// Follow eases the camera toward (wx, wy).
func (c *Camera) Follow(wx, wy, dt float32) {
	k := float32(1)
	if c.Smoothing > 0 {
		k = min(1, c.Smoothing*dt)
	}
	c.X += (wx - c.X) * k
	c.Y += (wy - c.Y) * k
	c.clampPosition()
}

// SetZoom sets the zoom, clamped to limits.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampPosition()
}

// ZoomBy multiplies the zoom by factor.
func (c *Camera) ZoomBy(factor float32) { c.SetZoom(c.Zoom * factor) }

// Reset centers the camera at zoom 1.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.SetZoom(1)
}

// VisibleWorldBounds returns the visible area in world units.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.Scale()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampPosition keeps the view inside the world, or centered on an axis
// where the world is smaller than the view.
func (c *Camera) clampPosition() {
	s := c.Scale()
	c.X = clampAxis(c.X, c.ViewportW/(2*s), c.WorldW)
	c.Y = clampAxis(c.Y, c.ViewportH/(2*s), c.WorldH)
}

func clampAxis(v, half, size float32) float32 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(v, half, size-half)
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
