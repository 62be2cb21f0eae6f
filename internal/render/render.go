package render

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/export"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
)

const paletteSize = 16

// surfaceGrid exposes a regular surface as plotter.GridXYZ in source
// coordinates. Undefined predictions are NaN.
type surfaceGrid struct {
	s        *soilmap.Surface
	min, max float64
}

func newSurfaceGrid(s *soilmap.Surface) *surfaceGrid {
	g := &surfaceGrid{s: s, min: math.Inf(1), max: math.Inf(-1)}
	for _, p := range s.Predictions {
		if !p.Defined {
			continue
		}
		g.min = math.Min(g.min, p.Value)
		g.max = math.Max(g.max, p.Value)
	}
	if g.min == g.max {
		g.max = g.min + 1
	}
	return g
}

func (g *surfaceGrid) Dims() (c, r int) {
	return g.s.Grid.Columns, g.s.Grid.Rows
}

func (g *surfaceGrid) Z(c, r int) float64 {
	p := g.s.At(g.s.Grid.Index(r, c))
	if !p.Defined {
		return math.NaN()
	}
	return p.Value
}

func (g *surfaceGrid) X(c int) float64 {
	return g.s.Grid.Bounds.Min[0] + g.s.Grid.Step*float64(c)
}

func (g *surfaceGrid) Y(r int) float64 {
	return g.s.Grid.Bounds.Min[1] + g.s.Grid.Step*float64(r)
}

func (g *surfaceGrid) Min() float64 { return g.min }
func (g *surfaceGrid) Max() float64 { return g.max }

// MapOptions decorates a surface map.
type MapOptions struct {
	Title    string
	Boundary ingest.Boundary
	Samples  []soilmap.Sample
}

// SurfaceMap draws the prediction surface as a heat map with the boundary
// outline and sample locations on top.
func SurfaceMap(s *soilmap.Surface, opts MapOptions) (*plot.Plot, error) {
	if s == nil || s.DefinedCount() == 0 {
		return nil, eris.Wrap(soilmap.ErrEmptySurface, "render: nothing to draw")
	}
	if s.Grid.Step <= 0 || s.Grid.Columns < 2 || s.Grid.Rows < 2 {
		return nil, eris.Errorf("render: %dx%d grid is not a lattice", s.Grid.Columns, s.Grid.Rows)
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = "Predicted concentration (" + string(s.Method) + ")"
	}
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	hm := plotter.NewHeatMap(newSurfaceGrid(s), palette.Heat(paletteSize, 1))
	hm.NaN = color.Transparent
	p.Add(hm)

	for _, poly := range opts.Boundary.MultiPolygon {
		for _, ring := range poly {
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
			}
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, eris.Wrap(err, "render: boundary")
			}
			line.Color = color.Black
			line.Width = vg.Points(1)
			p.Add(line)
		}
	}

	var pts plotter.XYs
	for _, smp := range opts.Samples {
		if math.IsNaN(smp.Longitude) || math.IsNaN(smp.Latitude) {
			continue
		}
		pts = append(pts, plotter.XY{X: smp.Longitude, Y: smp.Latitude})
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, eris.Wrap(err, "render: samples")
		}
		sc.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("samples", sc)
	}
	return p, nil
}

// OutcomeScatter plots participant outcome against the linked prediction.
// Rows missing either value are skipped.
func OutcomeScatter(rows []export.JoinedRow, title string) (*plot.Plot, error) {
	var xys plotter.XYs
	for _, r := range rows {
		if r.Predicted.Valid && r.Outcome.Valid {
			xys = append(xys, plotter.XY{X: r.Predicted.Value, Y: r.Outcome.Value})
		}
	}
	if len(xys) == 0 {
		return nil, eris.New("render: no participant with both outcome and prediction")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "predicted concentration"
	p.Y.Label.Text = "outcome"

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, eris.Wrap(err, "render: participants")
	}
	sc.GlyphStyle.Color = color.RGBA{R: 120, G: 120, B: 120, A: 200}
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc, plotter.NewGrid())
	return p, nil
}

// Save writes p as an image; the format follows the file extension.
func Save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "render: create %s", filepath.Dir(path))
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}
