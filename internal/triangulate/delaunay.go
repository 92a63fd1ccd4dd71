// Package triangulate builds Delaunay triangulations over landmark and
// border point sets via incremental Bowyer-Watson insertion.
package triangulate

import (
	"errors"
	"log/slog"
	"math"

	"github.com/dudu/facewarp/internal/geom"
)

// ErrInsufficientPoints is returned when fewer than 3 points are supplied
var ErrInsufficientPoints = errors.New("triangulate: need at least 3 points")

// BorderSpacing is the gap in pixels between synthetic border points
// injected along the image edges by TriangulateFace
const BorderSpacing = 50.0

// lowQualityThreshold flags slivers for diagnostics. Quality is
// area / perimeter^2, which peaks at ~0.048 for an equilateral triangle.
const lowQualityThreshold = 0.005

// circumcircle caches a triangle's circumcenter and squared radius
type circumcircle struct {
	center geom.Point
	r2     float64
}

// workTriangle is a triangle under construction, indexed into the
// extended vertex list (input points followed by the 3 super-triangle
// vertices).
type workTriangle struct {
	i      [3]int
	circle circumcircle
}

// edge is an index pair with i[0] < i[1] so shared edges compare equal
type edge struct {
	a, b int
}

func newEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// circumscribe computes the circumcircle of the triangle spanned by
// a, b, c using the standard determinant formula. Collinear vertices
// get a centroid-centered circle of infinite radius so they swallow
// every insertion point and are immediately retired, instead of
// failing the build.
func circumscribe(a, b, c geom.Point) circumcircle {
	ax, ay := b.X-a.X, b.Y-a.Y
	bx, by := c.X-a.X, c.Y-a.Y
	d := 2 * (ax*by - ay*bx)
	if math.Abs(d) < 1e-12 {
		center := geom.Centroid([]geom.Point{a, b, c})
		return circumcircle{center: center, r2: math.Inf(1)}
	}
	aSq := ax*ax + ay*ay
	bSq := bx*bx + by*by
	ux := (by*aSq - ay*bSq) / d
	uy := (ax*bSq - bx*aSq) / d
	center := geom.Point{X: a.X + ux, Y: a.Y + uy}
	return circumcircle{center: center, r2: ux*ux + uy*uy}
}

func (c circumcircle) contains(p geom.Point) bool {
	if math.IsInf(c.r2, 1) {
		return true
	}
	dx := p.X - c.center.X
	dy := p.Y - c.center.Y
	return dx*dx+dy*dy <= c.r2
}

// Triangulate builds a Delaunay triangulation over the given points.
// The returned mesh references the input points by index; triangle
// vertex copies are snapshots of those points.
func Triangulate(points []geom.Point) (*geom.TriangleMesh, error) {
	if len(points) < 3 {
		return nil, ErrInsufficientPoints
	}

	n := len(points)

	// Super-triangle strictly containing every input point, derived
	// from the bounding box inflated by a large margin.
	lo, hi := geom.Bounds(points)
	span := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	if span == 0 {
		span = 1
	}
	mid := geom.Point{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2}
	margin := span * 20
	super := [3]geom.Point{
		{X: mid.X - margin, Y: mid.Y - span},
		{X: mid.X + margin, Y: mid.Y - span},
		{X: mid.X, Y: mid.Y + margin},
	}

	verts := make([]geom.Point, n+3)
	copy(verts, points)
	copy(verts[n:], super[:])

	work := []workTriangle{{
		i:      [3]int{n, n + 1, n + 2},
		circle: circumscribe(super[0], super[1], super[2]),
	}}

	for pi := 0; pi < n; pi++ {
		p := points[pi]

		// Partition into bad triangles (circumcircle contains p)
		// and survivors.
		var bad []workTriangle
		keep := work[:0]
		for _, t := range work {
			if t.circle.contains(p) {
				bad = append(bad, t)
			} else {
				keep = append(keep, t)
			}
		}
		work = keep

		// Boundary of the bad-triangle union: edges not shared by
		// two bad triangles.
		edgeCount := make(map[edge]int, len(bad)*3)
		for _, t := range bad {
			edgeCount[newEdge(t.i[0], t.i[1])]++
			edgeCount[newEdge(t.i[1], t.i[2])]++
			edgeCount[newEdge(t.i[2], t.i[0])]++
		}
		for _, t := range bad {
			for k := 0; k < 3; k++ {
				e := newEdge(t.i[k], t.i[(k+1)%3])
				if edgeCount[e] != 1 {
					continue
				}
				edgeCount[e] = 0 // each boundary edge spawns one triangle
				work = append(work, workTriangle{
					i:      [3]int{e.a, e.b, pi},
					circle: circumscribe(verts[e.a], verts[e.b], p),
				})
			}
		}
	}

	// Drop everything still attached to the super-triangle.
	triangles := make([]geom.Triangle, 0, len(work))
	lowQuality := 0
	for _, t := range work {
		if t.i[0] >= n || t.i[1] >= n || t.i[2] >= n {
			continue
		}
		tri := geom.Triangle{
			P: [3]geom.Point{verts[t.i[0]], verts[t.i[1]], verts[t.i[2]]},
			I: t.i,
		}
		if quality(tri) < lowQualityThreshold {
			lowQuality++
		}
		triangles = append(triangles, tri)
	}
	if lowQuality > 0 {
		slog.Debug("triangulation contains sliver triangles",
			"count", lowQuality, "total", len(triangles))
	}

	return geom.NewTriangleMesh(points, triangles)
}

// TriangulateFace triangulates landmark points together with a ring of
// evenly spaced border points along the image edges, keeping regions
// far from the face covered and stable under deformation.
func TriangulateFace(landmarks []geom.Point, width, height int) (*geom.TriangleMesh, error) {
	pts := make([]geom.Point, len(landmarks), len(landmarks)+4*int(float64(width+height)/BorderSpacing))
	copy(pts, landmarks)
	pts = append(pts, BorderPoints(width, height)...)
	return Triangulate(pts)
}

// BorderPoints returns points spaced every BorderSpacing pixels along
// the four edges of a width x height image, corners included once.
func BorderPoints(width, height int) []geom.Point {
	w := float64(width - 1)
	h := float64(height - 1)
	var pts []geom.Point
	for x := 0.0; x < w; x += BorderSpacing {
		pts = append(pts, geom.Point{X: x, Y: 0}, geom.Point{X: w - x, Y: h})
	}
	for y := 0.0; y < h; y += BorderSpacing {
		pts = append(pts, geom.Point{X: 0, Y: h - y}, geom.Point{X: w, Y: y})
	}
	return pts
}

// quality is the area to squared-perimeter ratio, a scale-free measure
// of how far the triangle is from equilateral. Diagnostics only.
func quality(t geom.Triangle) float64 {
	p := t.P[0].Dist(t.P[1]) + t.P[1].Dist(t.P[2]) + t.P[2].Dist(t.P[0])
	if p == 0 {
		return 0
	}
	return t.Area() / (p * p)
}
