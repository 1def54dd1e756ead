package terrain

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/config"
)

// GenParams controls procedural cave generation.
type GenParams struct {
	Width, Height float64
	CellSize      float64
	NoiseScale    float64
	Threshold     float64
	ClearCenter   r2.Vec
	ClearRadius   float64
	WallThickness float64
	ObstacleRatio float64
	Resolution    float64
}

// GenParamsFromConfig builds generation parameters; the spawn clearing is
// centred on the world.
func GenParamsFromConfig(cfg *config.Config) GenParams {
	return GenParams{
		Width:         cfg.World.Width,
		Height:        cfg.World.Height,
		CellSize:      cfg.Terrain.CellSize,
		NoiseScale:    cfg.Terrain.NoiseScale,
		Threshold:     cfg.Terrain.Threshold,
		ClearCenter:   r2.Vec{X: cfg.World.Width / 2, Y: cfg.World.Height / 2},
		ClearRadius:   cfg.Terrain.ClearRadius,
		WallThickness: cfg.Terrain.WallThickness,
		ObstacleRatio: cfg.Terrain.ObstacleRatio,
		Resolution:    cfg.Terrain.Resolution,
	}
}

// Generate builds a walled cave. The boundary is always solid, interior
// cells become rock where normalized noise exceeds the threshold, and a
// second noise channel marks a share of rock cells as obstacles.
func Generate(p GenParams, seed int64) *Space {
	s := NewSpace(p.Width, p.Height, p.Resolution)

	// 1. Boundary walls
	w := p.WallThickness
	s.AddSolid(0, 0, p.Width, w)
	s.AddSolid(0, p.Height-w, p.Width, w)
	s.AddSolid(0, w, w, p.Height-2*w)
	s.AddSolid(p.Width-w, w, w, p.Height-2*w)

	if p.CellSize <= 0 {
		return s
	}

	rock := opensimplex.NewNormalized(seed)
	kind := opensimplex.NewNormalized(seed + 7919)

	// 2. Interior rock, merged into horizontal runs per row
	cols := int(math.Floor((p.Width - 2*w) / p.CellSize))
	rows := int(math.Floor((p.Height - 2*w) / p.CellSize))
	for row := 0; row < rows; row++ {
		y := w + float64(row)*p.CellSize
		runStart := -1
		runObstacle := false

		flush := func(end int) {
			if runStart < 0 {
				return
			}
			x := w + float64(runStart)*p.CellSize
			width := float64(end-runStart) * p.CellSize
			if runObstacle {
				s.AddObstacle(x, y, width, p.CellSize)
			} else {
				s.AddSolid(x, y, width, p.CellSize)
			}
			runStart = -1
		}

		for col := 0; col < cols; col++ {
			x := w + float64(col)*p.CellSize
			center := r2.Vec{X: x + p.CellSize/2, Y: y + p.CellSize/2}

			solid := rock.Eval2(center.X*p.NoiseScale, center.Y*p.NoiseScale) > p.Threshold
			if r2.Norm(r2.Sub(center, p.ClearCenter)) < p.ClearRadius {
				solid = false
			}
			if !solid {
				flush(col)
				continue
			}

			obstacle := kind.Eval2(center.X*p.NoiseScale*3, center.Y*p.NoiseScale*3) < p.ObstacleRatio
			if runStart >= 0 && obstacle != runObstacle {
				flush(col)
			}
			if runStart < 0 {
				runStart = col
				runObstacle = obstacle
			}
		}
		flush(cols)
	}

	return s
}
