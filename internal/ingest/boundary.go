package ingest

import (
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Boundary is the study area outline in source coordinates. It is only
// drawn and used to mask output, never interpolated over.
type Boundary struct {
	orb.MultiPolygon
}

// Contains reports whether lon/lat lies inside the boundary. An empty
// boundary contains everything.
func (b Boundary) Contains(lon, lat float64) bool {
	if len(b.MultiPolygon) == 0 {
		return true
	}
	return planar.MultiPolygonContains(b.MultiPolygon, orb.Point{lon, lat})
}

// LoadBoundary reads every polygon record of a shapefile into one
// multipolygon. Clockwise parts start a new polygon; counter-clockwise
// parts are holes of the preceding one.
func LoadBoundary(shpPath string) (Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return Boundary{}, eris.Wrapf(err, "ingest: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	var mp orb.MultiPolygon
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok || p == nil {
			skipped++
			continue
		}
		mp = append(mp, polygonParts(p)...)
	}

	if skipped > 0 {
		zap.L().Debug("ingest: skipped non-polygon boundary records", zap.Int("skipped", skipped))
	}
	if len(mp) == 0 {
		return Boundary{}, eris.Errorf("ingest: no polygons in %s", shpPath)
	}
	return Boundary{MultiPolygon: mp}, nil
}

func polygonParts(p *shp.Polygon) []orb.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []orb.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("ingest: skipping short boundary ring", zap.Int32("part", i))
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}

		if ring.Orientation() == orb.CW || len(polys) == 0 {
			polys = append(polys, orb.Polygon{ring})
		} else {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
		}
	}
	return polys
}
