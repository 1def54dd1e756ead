package terrain

import (
	"fmt"
	"io/fs"

	"github.com/lafriks/go-tiled"
)

// Object group names read from Tiled maps.
const (
	GroupSolid    = "solid"
	GroupObstacle = "obstacle"
)

// LoadTMX builds a Space from the rectangle objects of a Tiled map. Objects
// in the "solid" group become grippable blocks and objects in the "obstacle"
// group become penalised blocks. Pixel coordinates are multiplied by
// unitsPerPixel. fsys may be an embed.FS or os.DirFS.
func LoadTMX(fsys fs.FS, path string, unitsPerPixel, resolution float64) (*Space, error) {
	m, err := tiled.LoadFile(path, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", path, err)
	}
	if unitsPerPixel <= 0 {
		return nil, fmt.Errorf("load TMX %s: units per pixel must be positive, got %v", path, unitsPerPixel)
	}

	width := float64(m.Width*m.TileWidth) * unitsPerPixel
	height := float64(m.Height*m.TileHeight) * unitsPerPixel
	s := NewSpace(width, height, resolution)

	found := false
	for _, og := range m.ObjectGroups {
		var add func(x, y, w, h float64)
		switch og.Name {
		case GroupSolid:
			add = s.AddSolid
		case GroupObstacle:
			add = s.AddObstacle
		default:
			continue
		}
		found = true
		for _, o := range og.Objects {
			add(o.X*unitsPerPixel, o.Y*unitsPerPixel, o.Width*unitsPerPixel, o.Height*unitsPerPixel)
		}
	}
	if !found {
		return nil, fmt.Errorf("load TMX %s: no %q or %q object group", path, GroupSolid, GroupObstacle)
	}
	return s, nil
}
