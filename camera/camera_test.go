package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 0.01 }

func newTest() *Camera {
	// 64x36 world at 20 px/unit is exactly the 1280x720 viewport at zoom 1.
	return New(1280, 720, 64, 36, 20)
}

func TestNewCentered(t *testing.T) {
	cam := newTest()
	if cam.X != 32 || cam.Y != 18 || cam.Zoom != 1 {
		t.Errorf("camera = (%v, %v) zoom %v", cam.X, cam.Y, cam.Zoom)
	}
	sx, sy := cam.WorldToScreen(32, 18)
	if !near(sx, 640) || !near(sy, 360) {
		t.Errorf("center maps to (%v, %v)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := newTest()
	cam.SetZoom(2)
	cam.Pan(100, -40)

	for _, tc := range []struct{ sx, sy float32 }{{640, 360}, {100, 100}, {1200, 600}} {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip (%v,%v) -> (%v,%v) -> (%v,%v)", tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestClampedToWorld(t *testing.T) {
	cam := newTest()
	cam.SetZoom(2)
	cam.Pan(-1e6, -1e6)

	minX, minY, _, _ := cam.VisibleWorldBounds()
	if !near(minX, 0) || !near(minY, 0) {
		t.Errorf("view escaped world: min (%v, %v)", minX, minY)
	}

	// At zoom 1 the view covers the world, so panning is a no-op.
	cam.SetZoom(1)
	cam.Pan(500, 500)
	if !near(cam.X, 32) || !near(cam.Y, 18) {
		t.Errorf("camera moved to (%v, %v) with the whole world in view", cam.X, cam.Y)
	}
}

func TestZoomLimits(t *testing.T) {
	cam := newTest()
	cam.ZoomBy(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("zoom = %v, want max %v", cam.Zoom, cam.MaxZoom)
	}
	cam.ZoomBy(0.0001)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("zoom = %v, want min %v", cam.Zoom, cam.MinZoom)
	}
}

func TestFollow(t *testing.T) {
	cam := newTest()
	cam.SetZoom(3)
	cam.Smoothing = 0
	cam.Follow(10, 10, 1.0/60)
	if !near(cam.X, 10) || !near(cam.Y, 10) {
		t.Errorf("snap follow = (%v, %v)", cam.X, cam.Y)
	}

	cam.Smoothing = 6
	cam.Follow(20, 10, 1.0/60)
	if cam.X <= 10 || cam.X >= 20 {
		t.Errorf("smoothed follow x = %v, want between", cam.X)
	}
}

func TestIsVisible(t *testing.T) {
	cam := newTest()
	cam.SetZoom(4)
	cam.Follow(32, 18, 1)
	if !cam.IsVisible(32, 18, 0.1) {
		t.Error("center not visible")
	}
	if cam.IsVisible(2, 2, 0.1) {
		t.Error("far corner visible at zoom 4")
	}
}
