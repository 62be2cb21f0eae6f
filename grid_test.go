package soilmap

import (
	"math"
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridSamples() []Sample {
	return []Sample{
		{ID: 1, Longitude: 0, Latitude: 0, Value: 1, Valid: true},
		{ID: 2, Longitude: 1, Latitude: 0.5, Value: 2, Valid: true},
		{ID: 3, Longitude: 0.25, Latitude: 1, Valid: false},
	}
}

func TestBuildGrid(t *testing.T) {
	g, err := BuildGrid(gridSamples(), 0.25)
	require.NoError(t, err)

	assert.Equal(t, 5, g.Columns)
	assert.Equal(t, 5, g.Rows)
	assert.Equal(t, 25, g.Len())
	assert.Equal(t, vec2d.T{0, 0}, g.Points[0])
	// X varies fastest
	assert.Equal(t, vec2d.T{0.25, 0}, g.Points[1])
	assert.Equal(t, vec2d.T{0, 0.25}, g.Points[g.Index(1, 0)])
	assert.Equal(t, vec2d.T{1, 1}, g.Points[g.Len()-1])
	assert.Nil(t, g.Planar)
	assert.Equal(t, g.Points, g.Locations())
}

func TestBuildGridDeterministic(t *testing.T) {
	a, err := BuildGrid(gridSamples(), 0.1)
	require.NoError(t, err)
	b, err := BuildGrid(gridSamples(), 0.1)
	require.NoError(t, err)

	assert.Equal(t, a.Points, b.Points)
	assert.Equal(t, 11, a.Columns)
	assert.Equal(t, 11, a.Rows)
}

func TestBuildGridSkipsUnusableCoordinates(t *testing.T) {
	samples := append(gridSamples(), Sample{ID: 4, Longitude: math.NaN(), Latitude: 7, Value: 3, Valid: true})
	g, err := BuildGrid(samples, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.Bounds.Max[1])
}

func TestBuildGridInvalidExtent(t *testing.T) {
	single := []Sample{
		{ID: 1, Longitude: 2, Latitude: 3, Value: 1, Valid: true},
		{ID: 2, Longitude: 2, Latitude: 3, Value: 5, Valid: true},
	}
	cases := []struct {
		name    string
		samples []Sample
		step    float64
	}{
		{"no samples", nil, 0.1},
		{"one location", single, 0.1},
		{"zero step", gridSamples(), 0},
		{"negative step", gridSamples(), -1},
		{"nan step", gridSamples(), math.NaN()},
		{"too fine", gridSamples(), 1e-9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := BuildGrid(c.samples, c.step)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidExtent))
		})
	}
}

func TestNewGrid(t *testing.T) {
	g := NewGrid([]vec2d.T{{0, 0}, {10, 0}, {0, 10}})
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, vec2d.T{10, 10}, g.Bounds.Max)

	empty := NewGrid(nil)
	assert.Equal(t, 0, empty.Len())
}
