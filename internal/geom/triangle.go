package geom

import (
	"fmt"
	"math"
)

// Triangle holds three vertices together with their indices into the
// owning mesh's vertex array. The vertex copies track the indices at
// construction time; a deformed mesh keeps the source indices but
// carries the moved vertex positions.
type Triangle struct {
	P [3]Point
	I [3]int
}

// Area returns the unsigned triangle area
func (t Triangle) Area() float64 {
	return math.Abs(t.SignedArea())
}

// SignedArea returns the signed area (positive for counter-clockwise winding)
func (t Triangle) SignedArea() float64 {
	a, b, c := t.P[0], t.P[1], t.P[2]
	return 0.5 * ((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y))
}

// Centroid returns the triangle centroid
func (t Triangle) Centroid() Point {
	return Point{
		X: (t.P[0].X + t.P[1].X + t.P[2].X) / 3,
		Y: (t.P[0].Y + t.P[1].Y + t.P[2].Y) / 3,
	}
}

// Bounds returns the bounding box of the triangle as (min, max) corners
func (t Triangle) Bounds() (Point, Point) {
	return Bounds(t.P[:])
}

// Barycentric computes the barycentric weights (u, v, w) of p with
// respect to t. The weights sum to 1 for any point when the triangle
// is non-degenerate; for a degenerate triangle all weights are -1,
// which fails every containment test.
func (t Triangle) Barycentric(p Point) (float64, float64, float64) {
	a, b, c := t.P[0], t.P[1], t.P[2]
	den := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math.Abs(den) < degenerateEps {
		return -1, -1, -1
	}
	u := ((b.Y-c.Y)*(p.X-c.X) + (c.X-b.X)*(p.Y-c.Y)) / den
	v := ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / den
	return u, v, 1 - u - v
}

// Contains reports whether p lies inside t, with tol loosening the
// test outward so that pixels straddling a shared edge are accepted
// by at least one of the adjacent triangles.
func (t Triangle) Contains(p Point, tol float64) bool {
	u, v, w := t.Barycentric(p)
	return u >= -tol && v >= -tol && w >= -tol
}

// Interpolate maps barycentric weights onto the triangle's vertices
func (t Triangle) Interpolate(u, v, w float64) Point {
	return Point{
		X: u*t.P[0].X + v*t.P[1].X + w*t.P[2].X,
		Y: u*t.P[0].Y + v*t.P[1].Y + w*t.P[2].Y,
	}
}

// TriangleMesh is a vertex list plus the triangles connecting it
type TriangleMesh struct {
	Vertices  []Point
	Triangles []Triangle
}

// NewTriangleMesh builds a mesh and checks that every triangle index
// is unique, in range, and consistent with its vertex copy.
func NewTriangleMesh(vertices []Point, triangles []Triangle) (*TriangleMesh, error) {
	for ti, t := range triangles {
		for k := 0; k < 3; k++ {
			idx := t.I[k]
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("triangle %d: vertex index %d out of range [0,%d)", ti, idx, len(vertices))
			}
			if t.P[k] != vertices[idx] {
				return nil, fmt.Errorf("triangle %d: vertex copy %d diverges from vertices[%d]", ti, k, idx)
			}
		}
		if t.I[0] == t.I[1] || t.I[1] == t.I[2] || t.I[0] == t.I[2] {
			return nil, fmt.Errorf("triangle %d: duplicate vertex indices %v", ti, t.I)
		}
	}
	return &TriangleMesh{Vertices: vertices, Triangles: triangles}, nil
}

// DeformedTrianglePair matches a source triangle with its deformed
// counterpart and the affine map between them. Pairs are built once
// per warp pass and discarded after rasterization.
type DeformedTrianglePair struct {
	Source    Triangle
	Target    Triangle
	Transform AffineTransform
}
