package triangulate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/dudu/facewarp/internal/geom"
)

func TestTriangulateRejectsTooFewPoints(t *testing.T) {
	for _, pts := range [][]geom.Point{nil, {{X: 1, Y: 1}}, {{X: 1, Y: 1}, {X: 2, Y: 2}}} {
		_, err := Triangulate(pts)
		if !errors.Is(err, ErrInsufficientPoints) {
			t.Errorf("Triangulate(%d points): err = %v, want ErrInsufficientPoints", len(pts), err)
		}
	}
}

func TestTriangulateSingleTriangle(t *testing.T) {
	pts := []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 80}}
	mesh, err := Triangulate(pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != 1 {
		t.Fatalf("got %d triangles, want 1", len(mesh.Triangles))
	}
}

func TestTriangulateTopologyInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts := make([]geom.Point, 60)
	for i := range pts {
		pts[i] = geom.Point{X: rng.Float64() * 640, Y: rng.Float64() * 480}
	}
	mesh, err := Triangulate(pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) == 0 {
		t.Fatal("no triangles produced")
	}
	for ti, tri := range mesh.Triangles {
		for _, idx := range tri.I {
			if idx < 0 || idx >= len(pts) {
				t.Fatalf("triangle %d references index %d outside [0,%d)", ti, idx, len(pts))
			}
		}
	}
}

func TestTriangulateDelaunayProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	pts := make([]geom.Point, 30)
	for i := range pts {
		pts[i] = geom.Point{X: rng.Float64() * 400, Y: rng.Float64() * 400}
	}
	mesh, err := Triangulate(pts)
	if err != nil {
		t.Fatal(err)
	}
	// No input point may lie strictly inside any triangle's circumcircle.
	for ti, tri := range mesh.Triangles {
		c := circumscribe(tri.P[0], tri.P[1], tri.P[2])
		for pi, p := range pts {
			if pi == tri.I[0] || pi == tri.I[1] || pi == tri.I[2] {
				continue
			}
			dx, dy := p.X-c.center.X, p.Y-c.center.Y
			if dx*dx+dy*dy < c.r2-1e-6 {
				t.Fatalf("point %d inside circumcircle of triangle %d", pi, ti)
			}
		}
	}
}

func TestCircumscribeCollinearFallsBackToCentroid(t *testing.T) {
	c := circumscribe(geom.Point{X: 0, Y: 0}, geom.Point{X: 1, Y: 1}, geom.Point{X: 2, Y: 2})
	if !math.IsInf(c.r2, 1) {
		t.Errorf("collinear circumcircle radius = %g, want +Inf", c.r2)
	}
	if !c.contains(geom.Point{X: 1000, Y: -1000}) {
		t.Error("infinite circumcircle should contain everything")
	}
	want := geom.Point{X: 1, Y: 1}
	if c.center != want {
		t.Errorf("centroid fallback center = %v, want %v", c.center, want)
	}
}

func TestBorderPoints(t *testing.T) {
	pts := BorderPoints(200, 100)
	if len(pts) == 0 {
		t.Fatal("no border points")
	}
	seen := map[geom.Point]bool{}
	corners := 0
	for _, p := range pts {
		if p.X < 0 || p.X > 199 || p.Y < 0 || p.Y > 99 {
			t.Fatalf("border point %v outside image", p)
		}
		if p.X != 0 && p.X != 199 && p.Y != 0 && p.Y != 99 {
			t.Fatalf("border point %v not on an edge", p)
		}
		if seen[p] {
			t.Fatalf("duplicate border point %v", p)
		}
		seen[p] = true
		if (p.X == 0 || p.X == 199) && (p.Y == 0 || p.Y == 99) {
			corners++
		}
	}
	if corners != 4 {
		t.Errorf("got %d corner points, want 4", corners)
	}
}

func TestTriangulateFaceCoversImage(t *testing.T) {
	landmarks := []geom.Point{
		{X: 300, Y: 200}, {X: 340, Y: 200}, {X: 320, Y: 230},
		{X: 280, Y: 260}, {X: 360, Y: 260}, {X: 320, Y: 300},
	}
	mesh, err := TriangulateFace(landmarks, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Vertices) != len(landmarks)+len(BorderPoints(640, 480)) {
		t.Errorf("vertex count %d does not include all border points", len(mesh.Vertices))
	}
	// Spot-check coverage: pixels across the image fall inside some triangle.
	for _, probe := range []geom.Point{{X: 10, Y: 10}, {X: 320, Y: 240}, {X: 600, Y: 470}, {X: 320, Y: 20}} {
		found := false
		for _, tri := range mesh.Triangles {
			if tri.Contains(probe, 1e-9) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("probe %v not covered by any triangle", probe)
		}
	}
}
