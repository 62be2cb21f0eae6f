package soilmap

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Convex is the convex hull of a point set, computed lazily by quickhull.
// Hull vertices are ordered counter-clockwise starting at the leftmost point;
// points lying on a hull edge are not vertices.
type Convex struct {
	vertices []vec2d.T
	hull     []vec2d.T
	edges    []Edge
}

type Edge struct {
	Start vec2d.T
	End   vec2d.T
}

func NewConvex(vertices []vec3d.T) *Convex {
	pts := make([]vec2d.T, len(vertices))
	for i := range vertices {
		pts[i] = xy(vertices[i])
	}
	return &Convex{vertices: pts}
}

func (c *Convex) Rect() vec2d.Rect {
	return boundsOf(c.Hull())
}

func (c *Convex) Hull() []vec2d.T {
	if c.hull == nil {
		if len(c.vertices) == 0 {
			return nil
		}
		minX, maxX := c.getExtremePoints()
		c.hull = append(c.quickHull(c.vertices, maxX, minX), c.quickHull(c.vertices, minX, maxX)...)
	}
	return c.hull
}

// Degenerate reports whether the hull encloses no area: fewer than three
// points, all points coincident, or all points collinear.
func (c *Convex) Degenerate() bool {
	distinct := make(map[vec2d.T]struct{}, 3)
	for _, p := range c.Hull() {
		distinct[p] = struct{}{}
	}
	return len(distinct) < 3
}

func (c *Convex) Edges() []Edge {
	if c.edges == nil {
		hull := c.Hull()
		for i, start := range hull {
			end := hull[(i+1)%len(hull)]
			c.edges = append(c.edges, Edge{start, end})
		}
	}
	return c.edges
}

func (c *Convex) quickHull(points []vec2d.T, start, end vec2d.T) []vec2d.T {
	left, indicators := c.lhsPoints(points, start, end)
	if len(left) == 0 {
		return []vec2d.T{end}
	}

	farthestPoint := getFarthestPoint(left, indicators)

	return append(
		c.quickHull(left, farthestPoint, end),
		c.quickHull(left, start, farthestPoint)...)
}

func Subtract2(lhs vec2d.T, rhs vec2d.T) vec2d.T {
	return vec2d.T{lhs[0] - rhs[0], lhs[1] - rhs[1]}
}

func Cross(lhs, rhs vec2d.T) float64 {
	return (lhs[0] * rhs[1]) - (lhs[1] * rhs[0])
}

func OnTheRight(v vec2d.T, o vec2d.T) bool {
	return Cross(v, o) < 0
}

// InHull reports whether point lies inside the hull or within tolerance of
// its boundary. A degenerate hull contains nothing.
func (c *Convex) InHull(point vec2d.T, tolerance float64) bool {
	if c.Degenerate() {
		return false
	}
	for _, edge := range c.Edges() {
		e := Subtract2(edge.End, edge.Start)
		l := math.Hypot(e[0], e[1])
		if l == 0 {
			continue
		}
		// distance to the left of the edge; interior is on the left
		if Cross(e, Subtract2(point, edge.Start))/l < -tolerance {
			return false
		}
	}
	return true
}

func (c *Convex) getExtremePoints() (minX, maxX vec2d.T) {
	minX = c.vertices[0]
	maxX = c.vertices[0]

	for _, p := range c.vertices[1:] {
		if p[0] < minX[0] || (p[0] == minX[0] && p[1] < minX[1]) {
			minX = p
		}
		if maxX[0] < p[0] || (p[0] == maxX[0] && p[1] > maxX[1]) {
			maxX = p
		}
	}

	return minX, maxX
}

func (c *Convex) lhsPoints(points []vec2d.T, start, end vec2d.T) ([]vec2d.T, []float64) {
	var left []vec2d.T
	var indicators []float64
	for _, point := range points {
		d := getDistanceIndicator(point, start, end)
		if d > 0 {
			left = append(left, point)
			indicators = append(indicators, d)
		}
	}
	return left, indicators
}

func getDistanceIndicator(point, start, end vec2d.T) float64 {
	return Cross(Subtract2(end, start), Subtract2(point, start))
}

func getFarthestPoint(points []vec2d.T, indicators []float64) (farthestPoint vec2d.T) {
	maxDistanceIndicator := -math.MaxFloat64
	for i, d := range indicators {
		if maxDistanceIndicator < d {
			maxDistanceIndicator = d
			farthestPoint = points[i]
		}
	}
	return farthestPoint
}
