package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Measure is a numeric cell that may be missing. Empty cells, NA, NaN and
// NULL all read as missing.
type Measure struct {
	Value float64
	Valid bool
}

func (m *Measure) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NULL", ".":
		*m = Measure{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "ingest: parse number %q", s)
	}
	*m = Measure{Value: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
	return nil
}

func (m Measure) MarshalText() ([]byte, error) {
	if !m.Valid {
		return []byte("NA"), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'g', -1, 64), nil
}

// Float returns the value, or NaN when missing.
func (m Measure) Float() float64 {
	if !m.Valid {
		return math.NaN()
	}
	return m.Value
}
