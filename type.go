package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

type ModelType string

const (
	Gaussian    ModelType = "gaussian"
	Exponential ModelType = "exponential"
	Spherical   ModelType = "spherical"
	// Auto fits every model and keeps the one with the lowest residual.
	Auto ModelType = "auto"
)

// Method names a prediction surface.
type Method string

const (
	MethodOK       Method = "ok"
	MethodTIN      Method = "tin"
	MethodCombined Method = "combined"
)

// DefaultPreference breaks RMSE ties: earlier methods win.
var DefaultPreference = []Method{MethodTIN, MethodOK, MethodCombined}

// Sample is a measured soil location. Valid is false when the
// concentration is missing.
type Sample struct {
	ID        int
	Longitude float64
	Latitude  float64
	Value     float64
	Valid     bool
}

func (s Sample) Coordinate() vec2d.T {
	return vec2d.T{s.Longitude, s.Latitude}
}

func (s Sample) hasCoordinate() bool {
	return !math.IsNaN(s.Longitude) && !math.IsNaN(s.Latitude) &&
		!math.IsInf(s.Longitude, 0) && !math.IsInf(s.Latitude, 0)
}

// Prediction is one surface entry. Defined is false where the method
// produces no value, which is distinct from a zero prediction.
type Prediction struct {
	Value    float64
	Variance float64
	Defined  bool
}

// Surface holds one prediction per grid point, in grid order.
type Surface struct {
	Method      Method
	Grid        *Grid
	Predictions []Prediction
	// Variogram is set for kriged surfaces only.
	Variogram *Variogram
}

func (s *Surface) Len() int {
	return len(s.Predictions)
}

// At returns the prediction at grid index i.
func (s *Surface) At(i int) Prediction {
	return s.Predictions[i]
}

// DefinedCount returns how many grid points carry a prediction.
func (s *Surface) DefinedCount() int {
	n := 0
	for _, p := range s.Predictions {
		if p.Defined {
			n++
		}
	}
	return n
}

// Observations converts samples with a value into (x, y, value) triples
// using the given coordinates, which must be index-aligned with samples.
func Observations(samples []Sample, coords []vec2d.T) []vec3d.T {
	ret := make([]vec3d.T, 0, len(samples))
	for i, s := range samples {
		if !s.Valid || !s.hasCoordinate() {
			continue
		}
		ret = append(ret, vec3d.T{coords[i][0], coords[i][1], s.Value})
	}
	return ret
}

type DistanceList [][2]float64

func (t DistanceList) Len() int {
	return len(t)
}

func (t DistanceList) Less(i, j int) bool {
	return t[i][0] < t[j][0]
}

func (t DistanceList) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}
