package export

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
)

// SurfaceFeatures returns one point feature per grid point, in source
// coordinates. Undefined predictions carry a null value.
func SurfaceFeatures(s *soilmap.Surface, b ingest.Boundary) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range SurfaceRows(s, b) {
		f := geojson.NewFeature(orb.Point{r.Longitude, r.Latitude})
		f.Properties["index"] = r.Index
		f.Properties["method"] = r.Method
		f.Properties["inside"] = r.Inside
		f.Properties["value"] = nullable(r.Value)
		if s.Variogram != nil {
			f.Properties["variance"] = nullable(r.Variance)
		}
		fc.Append(f)
	}
	return fc
}

// ParticipantFeatures returns the joined table as point features.
// Participants without a location are left out.
func ParticipantFeatures(rows []JoinedRow) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		if !r.Longitude.Valid || !r.Latitude.Valid {
			continue
		}
		f := geojson.NewFeature(orb.Point{r.Longitude.Value, r.Latitude.Value})
		f.ID = r.ID
		f.Properties["outcome"] = nullable(r.Outcome)
		f.Properties["method"] = r.Method
		f.Properties["grid_index"] = r.GridIndex
		f.Properties["predicted"] = nullable(r.Predicted)
		fc.Append(f)
	}
	return fc
}

// BoundaryFeature wraps the study boundary.
func BoundaryFeature(b ingest.Boundary) *geojson.Feature {
	f := geojson.NewFeature(b.MultiPolygon)
	f.Properties["role"] = "boundary"
	return f
}

func nullable(m ingest.Measure) any {
	if !m.Valid {
		return nil
	}
	return m.Value
}

func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
