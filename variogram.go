package soilmap

import (
	"math"
	"sort"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// pair clouds at or below this size are fitted without binning
	maxRawLags = 30
	lagBins    = 15
	// candidate ranges, as fractions of the largest lag
	rangeSteps    = 30
	rangeStepSize = 0.05
)

// Variogram is a fitted isotropic variogram. Range is the practical range:
// exponential and gaussian models reach 95% of the sill there.
type Variogram struct {
	Model       ModelType `json:"model" yaml:"model"`
	Nugget      float64   `json:"nugget" yaml:"nugget"`
	PartialSill float64   `json:"partial_sill" yaml:"partial_sill"`
	Range       float64   `json:"range" yaml:"range"`
	RSS         float64   `json:"rss" yaml:"rss"`
}

func (v Variogram) Sill() float64 {
	return v.Nugget + v.PartialSill
}

func sphericalBasis(x float64) float64 {
	if x >= 1 {
		return 1
	}
	return 1.5*x - 0.5*pow3(x)
}

func exponentialBasis(x float64) float64 {
	return 1.0 - exp(-3*x)
}

func gaussianBasis(x float64) float64 {
	return 1.0 - exp(-3*pow2(x))
}

func basisFor(model ModelType) func(float64) float64 {
	switch model {
	case Spherical:
		return sphericalBasis
	case Exponential:
		return exponentialBasis
	case Gaussian:
		return gaussianBasis
	}
	return nil
}

// Eval returns the semivariance at separation h. It is zero at h == 0 so the
// nugget appears as a discontinuity at the origin.
func (v Variogram) Eval(h float64) float64 {
	if h == 0 {
		return 0
	}
	f := basisFor(v.Model)
	if f == nil || v.Range <= 0 {
		return v.Nugget + v.PartialSill
	}
	return v.Nugget + v.PartialSill*f(h/v.Range)
}

// Lag is one point of the empirical variogram.
type Lag struct {
	Distance     float64 `json:"distance" yaml:"distance"`
	Semivariance float64 `json:"semivariance" yaml:"semivariance"`
	Pairs        int     `json:"pairs" yaml:"pairs"`
}

// EmpiricalVariogram computes half mean squared differences of values as a
// function of separation. Small pair clouds are returned unbinned; larger
// ones are binned into equal-width lags up to a third of the extent
// diagonal. Zero-distance pairs are ignored.
func EmpiricalVariogram(obs []vec3d.T) []Lag {
	n := len(obs)
	pairs := make(DistanceList, 0, (n*n-n)/2)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			h := obsDistance(obs[i], obs[j])
			if h == 0 {
				continue
			}
			pairs = append(pairs, [2]float64{h, 0.5 * pow2(obs[i][2]-obs[j][2])})
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Stable(pairs)

	if len(pairs) <= maxRawLags {
		lags := make([]Lag, len(pairs))
		for i, p := range pairs {
			lags[i] = Lag{Distance: p[0], Semivariance: p[1], Pairs: 1}
		}
		return lags
	}

	min, max, _ := minMaxVec3(obs)
	cutoff := math.Sqrt(pow2(max[0]-min[0])+pow2(max[1]-min[1])) / 3
	lags := binPairs(pairs, cutoff)
	if len(lags) < 3 {
		lags = binPairs(pairs, pairs[len(pairs)-1][0])
	}
	return lags
}

func binPairs(pairs DistanceList, cutoff float64) []Lag {
	width := cutoff / lagBins
	sums := make([]Lag, lagBins)
	for _, p := range pairs {
		if p[0] > cutoff {
			break
		}
		b := int(p[0] / width)
		if b >= lagBins {
			b = lagBins - 1
		}
		sums[b].Distance += p[0]
		sums[b].Semivariance += p[1]
		sums[b].Pairs++
	}

	lags := make([]Lag, 0, lagBins)
	for _, s := range sums {
		if s.Pairs == 0 {
			continue
		}
		lags = append(lags, Lag{
			Distance:     s.Distance / float64(s.Pairs),
			Semivariance: s.Semivariance / float64(s.Pairs),
			Pairs:        s.Pairs,
		})
	}
	return lags
}

// FitVariogram fits nugget and partial sill by weighted least squares
// (weights N/h^2) over a grid of candidate ranges. With Auto every model is
// tried and the lowest residual sum of squares wins.
func FitVariogram(obs []vec3d.T, model ModelType) (Variogram, error) {
	lags := EmpiricalVariogram(obs)
	if len(lags) == 0 {
		return Variogram{}, eris.Wrap(ErrSingularSystem, "variogram: no separated sample pairs")
	}

	models := []ModelType{model}
	if model == Auto || model == "" {
		models = []ModelType{Spherical, Exponential, Gaussian}
	} else if basisFor(model) == nil {
		return Variogram{}, eris.Errorf("variogram: unknown model %q", model)
	}

	best := Variogram{RSS: math.Inf(1)}
	for _, m := range models {
		v, ok := fitModel(lags, m)
		if ok && v.RSS < best.RSS {
			best = v
		}
	}

	if math.IsInf(best.RSS, 1) {
		best = Variogram{Model: models[0], Range: lags[len(lags)-1].Distance, RSS: math.Inf(1)}
	}
	if best.Sill() <= 0 {
		// constant values: any positive sill yields the same predictions
		values := make([]float64, len(obs))
		for i := range obs {
			values[i] = obs[i][2]
		}
		best.PartialSill = stat.Variance(values, nil)
		if !(best.PartialSill > 0) {
			best.PartialSill = 1
		}
	}
	return best, nil
}

func fitModel(lags []Lag, model ModelType) (Variogram, bool) {
	f := basisFor(model)
	maxLag := lags[len(lags)-1].Distance

	best := Variogram{Model: model, RSS: math.Inf(1)}
	for s := 1; s <= rangeSteps; s++ {
		r := maxLag * rangeStepSize * float64(s)
		nugget, psill, rss, ok := fitLinear(lags, f, r)
		if ok && rss < best.RSS {
			best.Nugget, best.PartialSill, best.Range, best.RSS = nugget, psill, r, rss
		}
	}
	return best, !math.IsInf(best.RSS, 1)
}

// fitLinear solves semivariance = nugget + psill*f(h/r) for fixed r,
// keeping both coefficients non-negative.
func fitLinear(lags []Lag, f func(float64) float64, r float64) (nugget, psill, rss float64, ok bool) {
	m := len(lags)
	w := make([]float64, m)
	b := make([]float64, m)
	y := make([]float64, m)
	for i, l := range lags {
		w[i] = float64(l.Pairs) / pow2(l.Distance)
		b[i] = f(l.Distance / r)
		y[i] = l.Semivariance
	}

	if m >= 2 {
		X := mat.NewDense(m, 2, nil)
		Y := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			sw := math.Sqrt(w[i])
			X.Set(i, 0, sw)
			X.Set(i, 1, sw*b[i])
			Y.SetVec(i, sw*y[i])
		}
		var beta mat.VecDense
		if err := beta.SolveVec(X, Y); err == nil {
			nugget, psill = beta.AtVec(0), beta.AtVec(1)
			ok = true
		}
	}

	if !ok || nugget < 0 || psill < 0 {
		var swby, swbb, swy, sw float64
		for i := 0; i < m; i++ {
			swby += w[i] * b[i] * y[i]
			swbb += w[i] * b[i] * b[i]
			swy += w[i] * y[i]
			sw += w[i]
		}
		switch {
		case ok && nugget < 0 && swbb > 0:
			nugget, psill = 0, swby/swbb
		case ok && psill < 0 && sw > 0:
			nugget, psill = swy/sw, 0
		case swbb > 0:
			nugget, psill = 0, swby/swbb
		default:
			return 0, 0, 0, false
		}
		if psill < 0 {
			nugget, psill = swy/sw, 0
		}
	}

	for i := 0; i < m; i++ {
		rss += w[i] * pow2(y[i]-nugget-psill*b[i])
	}
	if math.IsNaN(rss) {
		return 0, 0, 0, false
	}
	return nugget, psill, rss, true
}
