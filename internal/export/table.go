package export

import (
	"encoding/csv"
	"io"
	"math"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
	"github.com/dthill196/syracuse-soil-metal-biomarker-study/internal/ingest"
)

// GridRow is one grid point in source and planar coordinates.
type GridRow struct {
	Index     int     `csv:"index"`
	Row       int     `csv:"row"`
	Column    int     `csv:"column"`
	Longitude float64 `csv:"longitude"`
	Latitude  float64 `csv:"latitude"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
	Inside    bool    `csv:"inside"`
}

// SurfaceRow is a grid point with its prediction. Undefined predictions
// are written as NA.
type SurfaceRow struct {
	GridRow
	Method   string         `csv:"method"`
	Value    ingest.Measure `csv:"value"`
	Variance ingest.Measure `csv:"variance"`
}

// JoinedRow is a participant with the prediction of its nearest grid point.
type JoinedRow struct {
	ID        string         `csv:"id"`
	Longitude ingest.Measure `csv:"longitude"`
	Latitude  ingest.Measure `csv:"latitude"`
	Outcome   ingest.Measure `csv:"outcome"`
	Method    string         `csv:"method"`
	GridIndex int            `csv:"grid_index"`
	Distance  ingest.Measure `csv:"distance"`
	Predicted ingest.Measure `csv:"predicted"`
}

func measure(v float64, ok bool) ingest.Measure {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return ingest.Measure{}
	}
	return ingest.Measure{Value: v, Valid: true}
}

// GridRows lists the grid in generation order. Points outside a non-empty
// boundary are flagged, not dropped.
func GridRows(g *soilmap.Grid, b ingest.Boundary) []GridRow {
	locs := g.Locations()
	rows := make([]GridRow, g.Len())
	for i, p := range g.Points {
		rows[i] = GridRow{
			Index:     i,
			Row:       i / g.Columns,
			Column:    i % g.Columns,
			Longitude: p[0],
			Latitude:  p[1],
			X:         locs[i][0],
			Y:         locs[i][1],
			Inside:    b.Contains(p[0], p[1]),
		}
	}
	return rows
}

func SurfaceRows(s *soilmap.Surface, b ingest.Boundary) []SurfaceRow {
	grid := GridRows(s.Grid, b)
	rows := make([]SurfaceRow, len(grid))
	for i, g := range grid {
		p := s.At(i)
		rows[i] = SurfaceRow{
			GridRow:  g,
			Method:   string(s.Method),
			Value:    measure(p.Value, p.Defined),
			Variance: measure(p.Variance, p.Defined && s.Variogram != nil),
		}
	}
	return rows
}

// JoinParticipants pairs participants with their links, which must be in
// participant order.
func JoinParticipants(ps []ingest.Participant, links []soilmap.Link, m soilmap.Method) ([]JoinedRow, error) {
	if len(ps) != len(links) {
		return nil, eris.Errorf("export: %d participants, %d links", len(ps), len(links))
	}
	rows := make([]JoinedRow, len(ps))
	for i, p := range ps {
		l := links[i]
		rows[i] = JoinedRow{
			ID:        p.ID,
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
			Outcome:   p.Outcome,
			Method:    string(m),
			GridIndex: l.GridIndex,
			Distance:  measure(l.Distance, l.GridIndex >= 0),
			Predicted: measure(l.Prediction.Value, l.Prediction.Defined),
		}
	}
	return rows, nil
}

// WriteCSV encodes rows with a header line. An empty slice still writes
// the header.
func WriteCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: encode rows")
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
