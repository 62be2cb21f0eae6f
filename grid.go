package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
)

// MaxGridPoints bounds the lattice size BuildGrid will generate.
const MaxGridPoints = 4 << 20

// seq tolerance, so that max is kept when (max-min)/step is integral up to rounding
const stepTolerance = 1e-10

type Coordinates []vec2d.T

func (s Coordinates) Len() int {
	return len(s)
}

// Grid is a prediction lattice. Points are in the coordinates the grid was
// built in; Planar holds the projected locations once the grid has been
// projected. Index i addresses row i/Columns, column i%Columns: X varies
// fastest and Y ascends row by row.
type Grid struct {
	Columns int
	Rows    int
	Step    float64
	Bounds  vec2d.Rect
	Points  Coordinates
	Planar  Coordinates
}

// NewGrid wraps an arbitrary ordered point set as a single-row grid.
func NewGrid(points []vec2d.T) *Grid {
	g := &Grid{Columns: len(points), Rows: 1, Points: append(Coordinates(nil), points...)}
	g.Bounds = boundsOf(g.Points)
	if len(points) == 0 {
		g.Rows = 0
	}
	return g
}

// BuildGrid covers the extent of the sample coordinates with a regular
// lattice of spacing step. It fails with ErrInvalidExtent when fewer than
// two distinct sample locations exist or step is not positive.
func BuildGrid(samples []Sample, step float64) (*Grid, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, eris.Wrapf(ErrInvalidExtent, "grid: step %v", step)
	}

	distinct := make(map[vec2d.T]struct{}, len(samples))
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for _, s := range samples {
		if !s.hasCoordinate() {
			continue
		}
		c := s.Coordinate()
		distinct[c] = struct{}{}
		r.Extend(&c)
	}
	if len(distinct) < 2 {
		return nil, eris.Wrapf(ErrInvalidExtent, "grid: %d distinct sample locations", len(distinct))
	}

	return CalculateGrid(r, step)
}

func axisCount(min, max, step float64) int {
	n := math.Floor((max-min)/step + stepTolerance)
	if math.IsNaN(n) || n < 0 || n >= MaxGridPoints {
		return -1
	}
	return int(n) + 1
}

// CalculateGrid generates the lattice for an explicit bounding rectangle.
func CalculateGrid(bbox vec2d.Rect, step float64) (*Grid, error) {
	cols := axisCount(bbox.Min[0], bbox.Max[0], step)
	rows := axisCount(bbox.Min[1], bbox.Max[1], step)
	if cols <= 0 || rows <= 0 || cols*rows > MaxGridPoints {
		return nil, eris.Wrapf(ErrInvalidExtent, "grid: %dx%d lattice", cols, rows)
	}

	coords := make(Coordinates, 0, cols*rows)
	for y := 0; y < rows; y++ {
		latitude := bbox.Min[1] + step*float64(y)
		for x := 0; x < cols; x++ {
			longitude := bbox.Min[0] + step*float64(x)
			coords = append(coords, vec2d.T{longitude, latitude})
		}
	}

	return &Grid{
		Columns: cols,
		Rows:    rows,
		Step:    step,
		Bounds:  bbox,
		Points:  coords,
	}, nil
}

func boundsOf(points []vec2d.T) vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for i := range points {
		r.Extend(&points[i])
	}
	return r
}

func (g *Grid) Len() int {
	return len(g.Points)
}

// Locations returns the planar locations when the grid has been projected,
// the build coordinates otherwise.
func (g *Grid) Locations() Coordinates {
	if g.Planar != nil {
		return g.Planar
	}
	return g.Points
}

// Index returns the sequence index of a lattice cell.
func (g *Grid) Index(row, column int) int {
	return row*g.Columns + column
}

// withPlanar returns a copy of g carrying the given planar locations.
func (g *Grid) withPlanar(planar Coordinates) *Grid {
	ng := *g
	ng.Planar = planar
	return &ng
}
