package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
)

// ErrMissingColumn is returned when a required column is absent from a table header.
var ErrMissingColumn = eris.New("missing column")

// Columns maps the canonical field names to the header names of an input
// table. Empty entries use the canonical name.
type Columns struct {
	ID        string
	Longitude string
	Latitude  string
	// Value is the measured concentration for samples and the outcome for
	// participants.
	Value string
}

type sampleRow struct {
	ID        string  `csv:"id"`
	Longitude Measure `csv:"longitude"`
	Latitude  Measure `csv:"latitude"`
	Value     Measure `csv:"value"`
}

// Participant is one cohort record. Coordinates are usually the centroid of
// a coarse spatial unit.
type Participant struct {
	ID        string  `csv:"id"`
	Longitude Measure `csv:"longitude"`
	Latitude  Measure `csv:"latitude"`
	Outcome   Measure `csv:"outcome"`
}

// Coordinate returns the lon/lat location, NaN when either is missing.
func (p Participant) Coordinate() vec2d.T {
	return vec2d.T{p.Longitude.Float(), p.Latitude.Float()}
}

// Coordinates returns the participant locations in table order.
func Coordinates(ps []Participant) []vec2d.T {
	ret := make([]vec2d.T, len(ps))
	for i, p := range ps {
		ret[i] = p.Coordinate()
	}
	return ret
}

// newDecoder reads the header and renames configured columns to the
// canonical names expected by the row structs.
func newDecoder(r io.Reader, cols Columns, valueName string, required ...string) (*csvutil.Decoder, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read header")
	}

	rename := map[string]string{
		strings.ToLower(orDefault(cols.ID, "id")):               "id",
		strings.ToLower(orDefault(cols.Longitude, "longitude")): "longitude",
		strings.ToLower(orDefault(cols.Latitude, "latitude")):   "latitude",
		strings.ToLower(orDefault(cols.Value, valueName)):       valueName,
	}
	canonical := make([]string, len(header))
	present := map[string]bool{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if c, ok := rename[strings.ToLower(h)]; ok && !present[c] {
			canonical[i] = c
			present[c] = true
			continue
		}
		if isCanonical(strings.ToLower(h)) {
			// shadowed by a renamed column
			h = "_" + h
		}
		canonical[i] = h
	}
	for _, c := range required {
		if !present[c] {
			return nil, eris.Wrapf(ErrMissingColumn, "ingest: %s", c)
		}
	}

	return csvutil.NewDecoder(cr, canonical...)
}

func isCanonical(h string) bool {
	switch h {
	case "id", "longitude", "latitude", "value", "outcome":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ReadSamples decodes a sample table. Rows keep their order; a missing or
// non-numeric ID column falls back to the 1-based row number.
func ReadSamples(r io.Reader, cols Columns) ([]soilmap.Sample, error) {
	dec, err := newDecoder(r, cols, "value", "longitude", "latitude", "value")
	if err != nil {
		return nil, err
	}

	var samples []soilmap.Sample
	for {
		var row sampleRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: sample row %d", len(samples)+1)
		}

		id, perr := strconv.Atoi(strings.TrimSpace(row.ID))
		if perr != nil {
			id = len(samples) + 1
		}
		samples = append(samples, soilmap.Sample{
			ID:        id,
			Longitude: row.Longitude.Float(),
			Latitude:  row.Latitude.Float(),
			Value:     row.Value.Value,
			Valid:     row.Value.Valid,
		})
	}

	missing := 0
	for _, s := range samples {
		if !s.Valid {
			missing++
		}
	}
	zap.L().Debug("ingest: samples read", zap.Int("rows", len(samples)), zap.Int("missing", missing))
	return samples, nil
}

// LoadSamples reads the sample table at path.
func LoadSamples(path string, cols Columns) ([]soilmap.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadSamples(f, cols)
}

// ReadParticipants decodes a participant table. The outcome column is
// optional; when absent every outcome is missing.
func ReadParticipants(r io.Reader, cols Columns) ([]Participant, error) {
	dec, err := newDecoder(r, cols, "outcome", "longitude", "latitude")
	if err != nil {
		return nil, err
	}

	var ps []Participant
	for {
		var p Participant
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: participant row %d", len(ps)+1)
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(len(ps) + 1)
		}
		ps = append(ps, p)
	}
	zap.L().Debug("ingest: participants read", zap.Int("rows", len(ps)))
	return ps, nil
}

// LoadParticipants reads the participant table at path.
func LoadParticipants(path string, cols Columns) ([]Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadParticipants(f, cols)
}
