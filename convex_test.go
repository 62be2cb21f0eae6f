package soilmap

import (
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/stretchr/testify/assert"
)

func TestNewConvex(t *testing.T) {
	a := assert.New(t)

	vertices := []vec3d.T{{0, 0, 0}, {100, 0, 0}, {100, -10, 0}, {150, 100, 0}, {100, 200, 0}, {0, 210, 0}, {-50, 100, 0}, {30, 30, 0}, {75, 30, 0}}
	hull := []vec2d.T{{-50, 100}, {0, 0}, {100, -10}, {150, 100}, {100, 200}, {0, 210}}

	c := NewConvex(vertices)

	a.Equal(hull, c.Hull())
	a.False(c.Degenerate())
}

func TestEdge(t *testing.T) {
	a := assert.New(t)

	vertices := []vec3d.T{
		{0, 0, 0},
		{100, 0, 0},
		{0, 100, 0},
		{100, 100, 0}}

	c := NewConvex(vertices)

	edges := c.Edges()
	a.Len(edges, 4)
	for i, edge := range edges {
		nextEdge := edges[(i+1)%len(edges)]
		a.Equal(edge.End, nextEdge.Start)
		// counter-clockwise: each next edge turns left
		a.False(OnTheRight(Subtract2(edge.End, edge.Start), Subtract2(nextEdge.End, nextEdge.Start)))
	}
}

func TestInHull(t *testing.T) {
	a := assert.New(t)

	vertices := []vec3d.T{
		{0, 0, 0},
		{100, 0, 0},
		{0, 100, 0},
		{100, 100, 0}}

	c := NewConvex(vertices)

	a.True(c.InHull(vec2d.T{50, 50}, 0))
	a.True(c.InHull(vec2d.T{100, 50}, 0))
	a.True(c.InHull(vec2d.T{0, 0}, 0))
	a.False(c.InHull(vec2d.T{50, -50}, 0))
	a.False(c.InHull(vec2d.T{100.5, 50}, 0.1))
	a.True(c.InHull(vec2d.T{100.05, 50}, 0.1))
}

func TestConvexDegenerate(t *testing.T) {
	cases := map[string][]vec3d.T{
		"collinear":  {{0, 0, 1}, {1, 1, 2}, {2, 2, 3}, {5, 5, 4}},
		"vertical":   {{3, 0, 1}, {3, 1, 2}, {3, 7, 3}},
		"coincident": {{1, 1, 1}, {1, 1, 2}, {1, 1, 3}},
		"two points": {{0, 0, 1}, {1, 0, 2}},
	}
	for name, pts := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewConvex(pts)
			assert.True(t, c.Degenerate())
			assert.False(t, c.InHull(xy(pts[0]), 1))
		})
	}
}
