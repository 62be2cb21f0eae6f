package soilmap

import (
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MinTINSamples is the smallest sample set Triangulate accepts.
const MinTINSamples = 3

const (
	// super triangle size, in units of the normalized sample extent
	superScale = 1000
	// barycentric slack for points on shared edges
	baryTolerance = 1e-12
	// hull slack, relative to the sample extent
	hullTolerance = 1e-9
)

// Triangle holds counter-clockwise vertex indices into the TIN vertices.
type Triangle [3]int

// TIN is a Delaunay triangulation of observations with linear interpolation
// inside each triangle. Coordinates are normalized to the unit extent
// internally; inputs and outputs use the caller's coordinates.
type TIN struct {
	vertices  []vec3d.T
	Triangles []Triangle

	hull   *Convex
	origin vec2d.T
	scale  float64
	norm   []vec2d.T
}

// Triangulate builds the Delaunay triangulation of obs. Coincident locations
// are merged by averaging their values. It fails with ErrInsufficientData
// below three observations and ErrDegenerateTriangulation when the
// locations are collinear.
func Triangulate(obs []vec3d.T) (*TIN, error) {
	if len(obs) < MinTINSamples {
		return nil, eris.Wrapf(ErrInsufficientData, "tin: %d samples, need %d", len(obs), MinTINSamples)
	}

	pts := mergeCoincident(obs)
	hull := NewConvex(pts)
	if hull.Degenerate() {
		return nil, eris.Wrapf(ErrDegenerateTriangulation, "tin: %d samples are collinear", len(pts))
	}

	min, max, _ := minMaxVec3(pts)
	scale := max[0] - min[0]
	if h := max[1] - min[1]; h > scale {
		scale = h
	}

	t := &TIN{
		vertices: pts,
		hull:     hull,
		origin:   vec2d.T{min[0], min[1]},
		scale:    scale,
	}
	t.norm = make([]vec2d.T, len(pts))
	for i := range pts {
		t.norm[i] = t.normalize(xy(pts[i]))
	}

	t.Triangles = bowyerWatson(t.norm)
	if len(t.Triangles) == 0 {
		return nil, eris.Wrapf(ErrDegenerateTriangulation, "tin: no triangles from %d samples", len(pts))
	}

	zap.L().Debug("tin: triangulated",
		zap.Int("vertices", len(pts)),
		zap.Int("triangles", len(t.Triangles)),
	)
	return t, nil
}

func (t *TIN) normalize(p vec2d.T) vec2d.T {
	return vec2d.T{(p[0] - t.origin[0]) / t.scale, (p[1] - t.origin[1]) / t.scale}
}

// Hull returns the convex hull of the triangulated locations.
func (t *TIN) Hull() []vec2d.T {
	return t.hull.Hull()
}

func (t *TIN) Vertices() []vec3d.T {
	return t.vertices
}

// Interpolate returns the barycentric interpolation at p, or false when p
// lies outside the convex hull of the observations.
func (t *TIN) Interpolate(p vec2d.T) (float64, bool) {
	if !t.hull.InHull(p, hullTolerance*t.scale) {
		return 0, false
	}
	q := t.normalize(p)

	// exact containment first so that vertices reproduce their value
	for _, tol := range []float64{0, baryTolerance} {
		for _, tri := range t.Triangles {
			if l, ok := barycentric(q, t.norm[tri[0]], t.norm[tri[1]], t.norm[tri[2]], tol); ok {
				return l[0]*t.vertices[tri[0]][2] + l[1]*t.vertices[tri[1]][2] + l[2]*t.vertices[tri[2]][2], true
			}
		}
	}
	return 0, false
}

func barycentric(p, a, b, c vec2d.T, tol float64) ([3]float64, bool) {
	det := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if det == 0 {
		return [3]float64{}, false
	}
	l1 := ((b[1]-c[1])*(p[0]-c[0]) + (c[0]-b[0])*(p[1]-c[1])) / det
	l2 := ((c[1]-a[1])*(p[0]-c[0]) + (a[0]-c[0])*(p[1]-c[1])) / det
	l3 := 1 - l1 - l2
	if l1 < -tol || l2 < -tol || l3 < -tol {
		return [3]float64{}, false
	}
	return [3]float64{l1, l2, l3}, true
}

// InterpolateTIN predicts every grid point from the triangulation of obs.
// Grid points outside the hull are left undefined.
func InterpolateTIN(obs []vec3d.T, grid *Grid) (*Surface, error) {
	t, err := Triangulate(obs)
	if err != nil {
		return nil, err
	}

	locs := grid.Locations()
	preds := make([]Prediction, len(locs))
	for i := range locs {
		if v, ok := t.Interpolate(locs[i]); ok {
			preds[i] = Prediction{Value: v, Defined: true}
		}
	}
	return &Surface{Method: MethodTIN, Grid: grid, Predictions: preds}, nil
}

type edgeKey [2]int

func undirected(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// bowyerWatson triangulates points lying in the unit square. Triangles
// touching the enclosing super triangle are dropped at the end.
func bowyerWatson(points []vec2d.T) []Triangle {
	n := len(points)
	verts := make([]vec2d.T, n, n+3)
	copy(verts, points)
	verts = append(verts,
		vec2d.T{0.5 - 2*superScale, 0.5 - superScale},
		vec2d.T{0.5 + 2*superScale, 0.5 - superScale},
		vec2d.T{0.5, 0.5 + 2*superScale},
	)

	tris := []Triangle{{n, n + 1, n + 2}}
	for i := 0; i < n; i++ {
		p := verts[i]

		var bad []Triangle
		kept := tris[:0:0]
		for _, tri := range tris {
			if inCircumcircle(p, verts[tri[0]], verts[tri[1]], verts[tri[2]]) {
				bad = append(bad, tri)
			} else {
				kept = append(kept, tri)
			}
		}

		shared := make(map[edgeKey]int, 3*len(bad))
		for _, tri := range bad {
			for k := 0; k < 3; k++ {
				shared[undirected(tri[k], tri[(k+1)%3])]++
			}
		}
		for _, tri := range bad {
			for k := 0; k < 3; k++ {
				a, b := tri[k], tri[(k+1)%3]
				if shared[undirected(a, b)] == 1 {
					kept = append(kept, Triangle{a, b, i})
				}
			}
		}
		tris = kept
	}

	ret := make([]Triangle, 0, len(tris))
	for _, tri := range tris {
		if tri[0] >= n || tri[1] >= n || tri[2] >= n {
			continue
		}
		ret = append(ret, tri)
	}
	return ret
}

// inCircumcircle reports whether d lies strictly inside the circumcircle of
// the counter-clockwise triangle abc.
func inCircumcircle(d, a, b, c vec2d.T) bool {
	adx, ady := a[0]-d[0], a[1]-d[1]
	bdx, bdy := b[0]-d[0], b[1]-d[1]
	cdx, cdy := c[0]-d[0], c[1]-d[1]

	det := (adx*adx+ady*ady)*(bdx*cdy-cdx*bdy) -
		(bdx*bdx+bdy*bdy)*(adx*cdy-cdx*ady) +
		(cdx*cdx+cdy*cdy)*(adx*bdy-bdx*ady)
	return det > 0
}
