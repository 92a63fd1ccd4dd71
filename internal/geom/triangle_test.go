package geom

import "testing"

func TestBarycentricInterpolateRoundTrip(t *testing.T) {
	tri := Triangle{P: [3]Point{{0, 0}, {100, 10}, {30, 90}}}
	pts := []Point{{40, 30}, {10, 5}, {60, 40}}
	for _, p := range pts {
		u, v, w := tri.Barycentric(p)
		if !almostEq(u+v+w, 1, 1e-12) {
			t.Fatalf("weights for %v sum to %g", p, u+v+w)
		}
		back := tri.Interpolate(u, v, w)
		if !pointsClose(back, p, 1e-9) {
			t.Errorf("round trip for %v gave %v", p, back)
		}
	}
}

func TestContainsTolerance(t *testing.T) {
	tri := Triangle{P: [3]Point{{0, 0}, {10, 0}, {0, 10}}}
	cases := []struct {
		p    Point
		tol  float64
		want bool
	}{
		{Point{2, 2}, 0, true},
		{Point{5, 5}, 0, true},       // on hypotenuse
		{Point{5.05, 5.05}, 0.01, true}, // just outside, within tolerance
		{Point{8, 8}, 0.01, false},
		{Point{-1, 1}, 0, false},
	}
	for _, c := range cases {
		if got := tri.Contains(c.p, c.tol); got != c.want {
			t.Errorf("Contains(%v, %g) = %v, want %v", c.p, c.tol, got, c.want)
		}
	}
}

func TestDegenerateBarycentricRejectsAll(t *testing.T) {
	tri := Triangle{P: [3]Point{{0, 0}, {1, 1}, {2, 2}}}
	if tri.Contains(Point{1, 1}, 0.01) {
		t.Error("degenerate triangle claimed to contain a point")
	}
}

func TestNewTriangleMeshValidation(t *testing.T) {
	verts := []Point{{0, 0}, {10, 0}, {0, 10}, {10, 10}}
	good := Triangle{P: [3]Point{verts[0], verts[1], verts[2]}, I: [3]int{0, 1, 2}}

	if _, err := NewTriangleMesh(verts, []Triangle{good}); err != nil {
		t.Fatalf("valid mesh rejected: %v", err)
	}

	outOfRange := good
	outOfRange.I[2] = 9
	if _, err := NewTriangleMesh(verts, []Triangle{outOfRange}); err == nil {
		t.Error("out-of-range index accepted")
	}

	duplicate := good
	duplicate.I[1] = 0
	duplicate.P[1] = verts[0]
	if _, err := NewTriangleMesh(verts, []Triangle{duplicate}); err == nil {
		t.Error("duplicate index accepted")
	}

	diverged := good
	diverged.P[0] = Point{99, 99}
	if _, err := NewTriangleMesh(verts, []Triangle{diverged}); err == nil {
		t.Error("dangling vertex copy accepted")
	}
}

func TestTriangleArea(t *testing.T) {
	tri := Triangle{P: [3]Point{{0, 0}, {4, 0}, {0, 3}}}
	if got := tri.Area(); !almostEq(got, 6, 1e-12) {
		t.Errorf("area = %g, want 6", got)
	}
}
