package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

func exp(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Exp(x)
}

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

func planarDistance(a, b vec2d.T) float64 {
	return math.Sqrt(pow2(a[0]-b[0]) + pow2(a[1]-b[1]))
}

func obsDistance(a, b vec3d.T) float64 {
	return math.Sqrt(pow2(a[0]-b[0]) + pow2(a[1]-b[1]))
}

func xy(p vec3d.T) vec2d.T {
	return vec2d.T{p[0], p[1]}
}
