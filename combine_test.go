package soilmap

import (
	"math"
	"sort"
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valued(values ...float64) []Sample {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{ID: i + 1, Longitude: float64(i), Latitude: float64(i % 3), Value: v, Valid: !math.IsNaN(v)}
	}
	return samples
}

func TestQuantile(t *testing.T) {
	sorted := []float64{9, 10, 11, 12, 200}
	assert.Equal(t, 10.0, quantile(sorted, 0.25))
	assert.Equal(t, 12.0, quantile(sorted, 0.75))
	assert.Equal(t, 9.0, quantile(sorted, 0))
	assert.Equal(t, 200.0, quantile(sorted, 1))

	assert.InDelta(t, 1.75, quantile([]float64{1, 2, 3, 4}, 0.25), 1e-12)
	assert.InDelta(t, 3.25, quantile([]float64{1, 2, 3, 4}, 0.75), 1e-12)
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestSplitByFence(t *testing.T) {
	p := SplitByFence(valued(10, 12, 11, 9, 200), 1.25)

	assert.Equal(t, 10.0, p.Q1)
	assert.Equal(t, 12.0, p.Q3)
	assert.Equal(t, 2.0, p.IQR)
	assert.Equal(t, 7.5, p.Lower)
	assert.Equal(t, 14.5, p.Upper)
	assert.Equal(t, []int{0, 1, 2, 3}, p.Core)
	assert.Equal(t, []int{4}, p.Outlier)
}

func TestSplitByFencePartitions(t *testing.T) {
	samples := valued(3, 8, 1, 42, 7, 7, math.NaN(), 15, 2, 100, 6, 9, 0.5)

	for _, k := range []float64{0, 0.5, 1.25, 1.5, 3} {
		p := SplitByFence(samples, k)

		all := append(append([]int(nil), p.Core...), p.Outlier...)
		sort.Ints(all)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 10, 11, 12}, all, "k=%v", k)

		for _, i := range p.Core {
			assert.GreaterOrEqual(t, samples[i].Value, p.Lower)
			assert.LessOrEqual(t, samples[i].Value, p.Upper)
		}
		for _, i := range p.Outlier {
			assert.True(t, samples[i].Value < p.Lower || samples[i].Value > p.Upper)
		}
	}

	// a wider fence never grows the outlier set
	assert.LessOrEqual(t, len(SplitByFence(samples, 3).Outlier), len(SplitByFence(samples, 0.5).Outlier))
}

func TestSplitByFenceConstant(t *testing.T) {
	p := SplitByFence(valued(4, 4, 4, 4), 1.25)
	assert.Equal(t, 0.0, p.IQR)
	assert.Len(t, p.Core, 4)
	assert.Empty(t, p.Outlier)
}

func TestCombineSkewSplit(t *testing.T) {
	grid := NewGrid([]vec2d.T{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	core := &Surface{Method: MethodOK, Grid: grid, Predictions: []Prediction{
		{Value: 5, Variance: 0.5, Defined: true},
		{Value: 6, Variance: 0.6, Defined: true},
		{Value: 7, Variance: 0.7, Defined: true},
		{},
	}}
	outlier := &Surface{Method: MethodTIN, Grid: grid, Predictions: []Prediction{
		{Value: 100, Defined: true},
		{},
		{Value: -2, Defined: true},
		{Value: 9, Defined: true},
	}}

	s, err := CombineSkewSplit(core, outlier)
	require.NoError(t, err)
	assert.Equal(t, MethodCombined, s.Method)

	assert.Equal(t, Prediction{Value: 105, Variance: 0.5, Defined: true}, s.At(0))
	// undefined outlier entries count as zero
	assert.Equal(t, Prediction{Value: 6, Variance: 0.6, Defined: true}, s.At(1))
	assert.Equal(t, Prediction{Value: 5, Variance: 0.7, Defined: true}, s.At(2))
	assert.False(t, s.At(3).Defined)

	_, err = CombineSkewSplit(core, &Surface{Grid: grid, Predictions: make([]Prediction, 2)})
	assert.Error(t, err)
}

func TestSkewSplit(t *testing.T) {
	var samples []Sample
	for i, v := range []float64{10, 12, 11, 9, 10.5, 11.5, 10, 12, 11} {
		samples = append(samples, Sample{ID: i + 1, Longitude: float64(i%3) * 50, Latitude: float64(i/3) * 50, Value: v, Valid: true})
	}
	samples = append(samples,
		Sample{ID: 10, Longitude: 20, Latitude: 80, Value: 400, Valid: true},
		Sample{ID: 11, Longitude: 80, Latitude: 30, Value: 350, Valid: true},
		Sample{ID: 12, Longitude: 60, Latitude: 90, Value: 380, Valid: true},
	)
	coords := make([]vec2d.T, len(samples))
	for i, s := range samples {
		coords[i] = s.Coordinate()
	}
	grid, err := CalculateGrid(vec2d.Rect{Max: vec2d.T{100, 100}}, 10)
	require.NoError(t, err)

	s, part, err := SkewSplit(samples, coords, grid, 1.5, KrigingOptions{Model: Spherical})
	require.NoError(t, err)
	assert.Equal(t, []int{9, 10, 11}, part.Outlier)
	assert.Len(t, part.Core, 9)
	assert.Equal(t, grid.Len(), s.Len())
	assert.Equal(t, grid.Len(), s.DefinedCount())

	core, err := Krige(subsetObservations(samples, coords, part.Core), grid, KrigingOptions{Model: Spherical})
	require.NoError(t, err)
	outlier, err := InterpolateTIN(subsetObservations(samples, coords, part.Outlier), grid)
	require.NoError(t, err)
	covered := 0
	for i := 0; i < grid.Len(); i++ {
		if !outlier.At(i).Defined {
			// outside the outlier hull the core prediction passes through unchanged
			assert.Equal(t, core.At(i).Value, s.At(i).Value, "grid point %d", i)
			continue
		}
		covered++
		assert.Equal(t, core.At(i).Value+outlier.At(i).Value, s.At(i).Value, "grid point %d", i)
	}
	assert.Greater(t, covered, 0)
	assert.Less(t, covered, grid.Len())
}

func TestSkewSplitNotApplicable(t *testing.T) {
	samples := []Sample{
		{Longitude: 0, Latitude: 0, Value: 1, Valid: true},
		{Longitude: 1, Latitude: 0, Value: 1, Valid: true},
		{Longitude: 0, Latitude: 1, Value: 1, Valid: true},
		{Longitude: 1, Latitude: 1, Value: 1, Valid: false},
	}
	coords := []vec2d.T{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	grid := NewGrid(coords)

	// fence [1, 3] leaves two core samples
	samples[2].Value = 5
	_, _, err := SkewSplit(samples, coords, grid, 0, KrigingOptions{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSkewSplitNotApplicable))
	assert.True(t, eris.Is(err, ErrInsufficientData))
}
