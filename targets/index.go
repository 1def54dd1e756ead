package targets

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/rope"
)

// Entry is one target captured in an Index.
type Entry struct {
	ID     uint32
	Pos    r2.Vec
	Radius float64
}

// Index is a read-only cell grid over a snapshot of target positions. It is
// rebuilt once per fixed step, before physics is scheduled, and answers
// queries from any number of goroutines until the next rebuild.
type Index struct {
	cellSize  float64
	cols      int
	rows      int
	maxRadius float64
	entries   []Entry
	cells     [][]int32
}

var _ rope.Striker = (*Index)(nil)

// NewIndex creates an empty index covering width x height.
func NewIndex(width, height, cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int32, cols*rows)
	for i := range cells {
		cells[i] = make([]int32, 0, 4)
	}
	return &Index{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

func (x *Index) reset() {
	for i := range x.cells {
		x.cells[i] = x.cells[i][:0]
	}
	x.entries = x.entries[:0]
	x.maxRadius = 0
}

func (x *Index) insert(e Entry) {
	i := int32(len(x.entries))
	x.entries = append(x.entries, e)
	x.maxRadius = math.Max(x.maxRadius, e.Radius)
	c := x.cellIndex(e.Pos)
	x.cells[c] = append(x.cells[c], i)
}

// Len returns the number of captured targets.
func (x *Index) Len() int { return len(x.entries) }

// Entries returns the captured targets. The slice must not be modified.
func (x *Index) Entries() []Entry { return x.entries }

func (x *Index) cell(p r2.Vec) (col, row int) {
	col = int(math.Floor(p.X / x.cellSize))
	row = int(math.Floor(p.Y / x.cellSize))
	col = max(0, min(col, x.cols-1))
	row = max(0, min(row, x.rows-1))
	return col, row
}

func (x *Index) cellIndex(p r2.Vec) int {
	col, row := x.cell(p)
	return row*x.cols + col
}

// each calls fn for every entry in cells overlapping the box [lo, hi].
func (x *Index) each(lo, hi r2.Vec, fn func(e *Entry)) {
	c0, r0 := x.cell(lo)
	c1, r1 := x.cell(hi)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, i := range x.cells[row*x.cols+col] {
				fn(&x.entries[i])
			}
		}
	}
}

// SweepTargets implements rope.Striker. Contacts are returned in order
// along the sweep.
func (x *Index) SweepTargets(from, to r2.Vec, radius float64, dst []rope.Contact) []rope.Contact {
	if len(x.entries) == 0 {
		return dst
	}
	pad := radius + x.maxRadius
	lo := r2.Vec{X: math.Min(from.X, to.X) - pad, Y: math.Min(from.Y, to.Y) - pad}
	hi := r2.Vec{X: math.Max(from.X, to.X) + pad, Y: math.Max(from.Y, to.Y) + pad}

	start := len(dst)
	x.each(lo, hi, func(e *Entry) {
		if t, ok := geom.SegmentCircle(from, to, e.Pos, radius+e.Radius); ok {
			dst = append(dst, rope.Contact{ID: e.ID, T: t, Point: geom.Lerp(from, to, t)})
		}
	})
	found := dst[start:]
	sort.Slice(found, func(i, j int) bool { return found[i].T < found[j].T })
	return dst
}

// Nearest returns the closest target whose centre lies within radius of pos.
func (x *Index) Nearest(pos r2.Vec, radius float64) (Entry, bool) {
	var best Entry
	bestD := math.Inf(1)
	pad := r2.Vec{X: radius, Y: radius}
	x.each(r2.Sub(pos, pad), r2.Add(pos, pad), func(e *Entry) {
		if d := geom.Distance(pos, e.Pos); d <= radius && d < bestD {
			best, bestD = *e, d
		}
	})
	return best, !math.IsInf(bestD, 1)
}
