package soilmap

import (
	"math"
	"sort"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultFenceMultiplier is the IQR multiplier used when none is configured.
const DefaultFenceMultiplier = 1.25

// Partition splits samples with a value into a core set inside the IQR
// fence and an outlier set beyond it. Core and Outlier index the sample
// slice the partition was computed from.
type Partition struct {
	Core    []int
	Outlier []int

	K     float64 `json:"k" yaml:"k"`
	Q1    float64 `json:"q1" yaml:"q1"`
	Q3    float64 `json:"q3" yaml:"q3"`
	IQR   float64 `json:"iqr" yaml:"iqr"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// quantile uses linear interpolation between order statistics at
// (n-1)p, the usual default of statistical packages. sorted must be ascending.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// SplitByFence partitions samples by the fence [Q1-k*IQR, Q3+k*IQR].
// Samples without a value belong to neither set.
func SplitByFence(samples []Sample, k float64) Partition {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Valid {
			values = append(values, s.Value)
		}
	}
	sort.Float64s(values)

	p := Partition{K: k, Q1: quantile(values, 0.25), Q3: quantile(values, 0.75)}
	p.IQR = p.Q3 - p.Q1
	p.Lower = p.Q1 - k*p.IQR
	p.Upper = p.Q3 + k*p.IQR

	for i, s := range samples {
		if !s.Valid {
			continue
		}
		if s.Value < p.Lower || s.Value > p.Upper {
			p.Outlier = append(p.Outlier, i)
		} else {
			p.Core = append(p.Core, i)
		}
	}
	return p
}

func subsetObservations(samples []Sample, coords []vec2d.T, idx []int) []vec3d.T {
	sub := make([]Sample, len(idx))
	subCoords := make([]vec2d.T, len(idx))
	for j, i := range idx {
		sub[j] = samples[i]
		subCoords[j] = coords[i]
	}
	return Observations(sub, subCoords)
}

// CombineSkewSplit adds the outlier surface to the core surface point by
// point. Undefined outlier entries contribute zero; the core variance is
// carried through.
func CombineSkewSplit(core, outlier *Surface) (*Surface, error) {
	if core.Len() != outlier.Len() {
		return nil, eris.Errorf("skew-split: surface sizes differ (%d, %d)", core.Len(), outlier.Len())
	}

	preds := make([]Prediction, core.Len())
	for i := range preds {
		c := core.At(i)
		if !c.Defined {
			continue
		}
		v := c.Value
		if o := outlier.At(i); o.Defined {
			v += o.Value
		}
		preds[i] = Prediction{Value: v, Variance: c.Variance, Defined: true}
	}
	return &Surface{Method: MethodCombined, Grid: core.Grid, Predictions: preds, Variogram: core.Variogram}, nil
}

// SkewSplit kriges the core partition, triangulates the outlier partition
// and sums the two surfaces. coords are the planar sample locations,
// index-aligned with samples. A core too small to krige is reported as
// ErrSkewSplitNotApplicable wrapping ErrInsufficientData.
func SkewSplit(samples []Sample, coords []vec2d.T, grid *Grid, k float64, opts KrigingOptions) (*Surface, Partition, error) {
	part := SplitByFence(samples, k)
	zap.L().Debug("skew-split: partitioned",
		zap.Float64("k", k),
		zap.Float64("lower", part.Lower),
		zap.Float64("upper", part.Upper),
		zap.Int("core", len(part.Core)),
		zap.Int("outlier", len(part.Outlier)),
	)

	core, err := Krige(subsetObservations(samples, coords, part.Core), grid, opts)
	if err != nil {
		if eris.Is(err, ErrInsufficientData) {
			return nil, part, &notApplicableError{cause: err}
		}
		return nil, part, eris.Wrap(err, "skew-split: core kriging")
	}

	outlier, err := InterpolateTIN(subsetObservations(samples, coords, part.Outlier), grid)
	if err != nil {
		return nil, part, eris.Wrap(err, "skew-split: outlier triangulation")
	}

	combined, err := CombineSkewSplit(core, outlier)
	if err != nil {
		return nil, part, err
	}
	return combined, part, nil
}
