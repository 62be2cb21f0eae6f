package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// Score is the accuracy of one surface against the observed samples.
// Pairs counts samples that had both an observed and a predicted value; RMSE
// is NaN when there were none.
type Score struct {
	Method Method  `json:"method" yaml:"method"`
	RMSE   float64 `json:"rmse" yaml:"rmse"`
	Pairs  int     `json:"pairs" yaml:"pairs"`
}

// Scored reports whether the score rests on at least one pair.
func (s Score) Scored() bool {
	return s.Pairs > 0 && !math.IsNaN(s.RMSE)
}

// Scorer compares surfaces sharing one grid against samples.
type Scorer struct {
	linker *Linker
}

func NewScorer(grid *Grid) (*Scorer, error) {
	l, err := NewLinker(grid)
	if err != nil {
		return nil, err
	}
	return &Scorer{linker: l}, nil
}

// Score matches each sample to its nearest grid point and computes the root
// mean square of observed minus predicted, skipping samples or predictions
// that are missing. coords are planar and index-aligned with samples.
func (sc *Scorer) Score(samples []Sample, coords []vec2d.T, s *Surface) (Score, error) {
	targets := make([]vec2d.T, len(samples))
	for i, smp := range samples {
		if smp.hasCoordinate() {
			targets[i] = coords[i]
		} else {
			targets[i] = vec2d.T{math.NaN(), math.NaN()}
		}
	}

	links, err := sc.linker.Link(targets, s)
	if err != nil {
		return Score{}, err
	}

	var sum float64
	var n int
	for i, l := range links {
		if !samples[i].Valid || !l.Prediction.Defined {
			continue
		}
		sum += pow2(samples[i].Value - l.Prediction.Value)
		n++
	}

	sco := Score{Method: s.Method, RMSE: math.NaN(), Pairs: n}
	if n > 0 {
		sco.RMSE = math.Sqrt(sum / float64(n))
	}
	return sco, nil
}

// SelectBest returns the method with the lowest RMSE. Equal RMSEs are
// resolved by position in preference; methods absent from preference rank
// after those present. Unscored entries are ignored.
func SelectBest(scores []Score, preference []Method) (Method, bool) {
	rank := func(m Method) int {
		for i, p := range preference {
			if p == m {
				return i
			}
		}
		return len(preference)
	}

	var best Score
	found := false
	for _, s := range scores {
		if !s.Scored() {
			continue
		}
		if !found || s.RMSE < best.RMSE || (s.RMSE == best.RMSE && rank(s.Method) < rank(best.Method)) {
			best = s
			found = true
		}
	}
	return best.Method, found
}
