package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// gridPoint is a grid location tagged with its sequence index.
type gridPoint struct {
	X, Y  float64
	Index int
}

func (p gridPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(gridPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p gridPoint) Dims() int { return 2 }

// Distance returns the squared planar distance.
func (p gridPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(gridPoint)
	return pow2(p.X-q.X) + pow2(p.Y-q.Y)
}

type gridPoints []gridPoint

func (p gridPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p gridPoints) Len() int                              { return len(p) }
func (p gridPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p gridPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(gridPlane{gridPoints: p, Dim: d}, kdtree.MedianOfMedians(gridPlane{gridPoints: p, Dim: d}))
}

type gridPlane struct {
	gridPoints
	kdtree.Dim
}

func (p gridPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.gridPoints[i].X < p.gridPoints[j].X
	case 1:
		return p.gridPoints[i].Y < p.gridPoints[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p gridPlane) Slice(start, end int) kdtree.SortSlicer {
	return gridPlane{gridPoints: p.gridPoints[start:end], Dim: p.Dim}
}

func (p gridPlane) Swap(i, j int) {
	p.gridPoints[i], p.gridPoints[j] = p.gridPoints[j], p.gridPoints[i]
}

// Linker answers nearest-grid-point queries in planar space. Among
// equidistant grid points the one generated first wins.
type Linker struct {
	grid *Grid
	tree *kdtree.Tree
}

// NewLinker indexes the grid locations. An empty grid fails with
// ErrEmptySurface.
func NewLinker(grid *Grid) (*Linker, error) {
	if grid == nil || grid.Len() == 0 {
		return nil, eris.Wrap(ErrEmptySurface, "link: no grid points")
	}
	locs := grid.Locations()
	pts := make(gridPoints, len(locs))
	for i, l := range locs {
		pts[i] = gridPoint{X: l[0], Y: l[1], Index: i}
	}
	return &Linker{grid: grid, tree: kdtree.New(pts, false)}, nil
}

// Nearest returns the grid index closest to p, or -1 when p has no
// usable coordinate.
func (l *Linker) Nearest(p vec2d.T) int {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
		return -1
	}
	q := gridPoint{X: p[0], Y: p[1]}
	_, d := l.tree.Nearest(q)

	// collect every point at the minimum distance to apply the tie-break
	keep := kdtree.NewDistKeeper(d)
	l.tree.NearestSet(keep, q)

	best := -1
	for _, c := range keep.Heap {
		if c.Comparable == nil || c.Dist > d {
			continue
		}
		if i := c.Comparable.(gridPoint).Index; best < 0 || i < best {
			best = i
		}
	}
	return best
}

// Link is a target joined to its nearest grid point.
type Link struct {
	Target     int
	GridIndex  int
	Distance   float64
	Prediction Prediction
}

// Link joins every target to the surface. Targets without a usable
// coordinate get GridIndex -1 and an undefined prediction.
func (l *Linker) Link(targets []vec2d.T, s *Surface) ([]Link, error) {
	if s == nil || s.Len() == 0 {
		return nil, eris.Wrap(ErrEmptySurface, "link: no predictions")
	}
	if s.Len() != l.grid.Len() {
		return nil, eris.Errorf("link: surface has %d entries for %d grid points", s.Len(), l.grid.Len())
	}

	locs := l.grid.Locations()
	links := make([]Link, len(targets))
	for i, t := range targets {
		idx := l.Nearest(t)
		links[i] = Link{Target: i, GridIndex: idx, Distance: math.NaN()}
		if idx < 0 {
			continue
		}
		links[i].Distance = planarDistance(t, locs[idx])
		links[i].Prediction = s.At(idx)
	}
	return links, nil
}

// LinkSurface is a convenience for a single join against s.
func LinkSurface(targets []vec2d.T, s *Surface) ([]Link, error) {
	if s == nil {
		return nil, eris.Wrap(ErrEmptySurface, "link: nil surface")
	}
	l, err := NewLinker(s.Grid)
	if err != nil {
		return nil, err
	}
	return l.Link(targets, s)
}
