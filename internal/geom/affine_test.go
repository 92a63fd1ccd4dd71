package geom

import (
	"math"
	"testing"
)

func almostEq(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func pointsClose(a, b Point, tol float64) bool {
	return almostEq(a.X, b.X, tol) && almostEq(a.Y, b.Y, tol)
}

func TestSolveAffineRoundTrip(t *testing.T) {
	src := Triangle{P: [3]Point{{10, 20}, {110, 25}, {40, 140}}}
	dst := Triangle{P: [3]Point{{15, 10}, {130, 40}, {20, 160}}}

	m, ok := SolveAffine(src, dst)
	if !ok {
		t.Fatal("non-degenerate source reported degenerate")
	}
	for i := 0; i < 3; i++ {
		got := m.Apply(src.P[i])
		if !pointsClose(got, dst.P[i], 1e-6) {
			t.Errorf("vertex %d: got %v, want %v", i, got, dst.P[i])
		}
	}
}

func TestSolveAffineDegenerate(t *testing.T) {
	src := Triangle{P: [3]Point{{0, 0}, {5, 5}, {10, 10}}} // collinear
	dst := Triangle{P: [3]Point{{0, 0}, {1, 0}, {0, 1}}}

	m, ok := SolveAffine(src, dst)
	if ok {
		t.Fatal("collinear source not reported degenerate")
	}
	if m != Identity() {
		t.Errorf("degenerate solve returned %v, want identity", m)
	}
	p := m.Apply(Point{3, 7})
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		t.Error("degenerate transform produced NaN")
	}
}

func TestInvertComposeIsIdentity(t *testing.T) {
	m := AffineTransform{A: 1.5, B: 0.2, C: -0.3, D: 0.9, TX: 12, TY: -4}
	inv, ok := m.Invert()
	if !ok {
		t.Fatal("invertible transform reported singular")
	}
	id := m.Compose(inv)
	want := Identity()
	for _, pair := range [][2]float64{
		{id.A, want.A}, {id.B, want.B}, {id.C, want.C},
		{id.D, want.D}, {id.TX, want.TX}, {id.TY, want.TY},
	} {
		if !almostEq(pair[0], pair[1], 1e-9) {
			t.Fatalf("m.Compose(m^-1) = %+v, want identity", id)
		}
	}
}

func TestInvertSingular(t *testing.T) {
	m := AffineTransform{A: 1, B: 2, C: 2, D: 4} // rank 1
	inv, ok := m.Invert()
	if ok {
		t.Fatal("singular transform reported invertible")
	}
	if inv != Identity() {
		t.Errorf("singular invert returned %v, want identity", inv)
	}
}

func TestScaleAboutFixesCenter(t *testing.T) {
	c := Point{50, 60}
	m := ScaleAbout(2, 0.5, c)
	if got := m.Apply(c); !pointsClose(got, c, 1e-12) {
		t.Errorf("center moved to %v", got)
	}
	got := m.Apply(Point{60, 80})
	want := Point{70, 70}
	if !pointsClose(got, want, 1e-12) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRotateAboutFixesCenter(t *testing.T) {
	c := Point{10, 10}
	m := RotateAbout(math.Pi/2, c)
	if got := m.Apply(c); !pointsClose(got, c, 1e-9) {
		t.Errorf("center moved to %v", got)
	}
	got := m.Apply(Point{11, 10})
	want := Point{10, 11}
	if !pointsClose(got, want, 1e-9) {
		t.Errorf("quarter turn: got %v, want %v", got, want)
	}
}

func TestComposeOrder(t *testing.T) {
	first := Translate(5, 0)
	second := ScaleAbout(2, 2, Point{})
	m := first.Compose(second)
	got := m.Apply(Point{1, 1})
	want := Point{12, 2} // translate then scale
	if !pointsClose(got, want, 1e-12) {
		t.Errorf("got %v, want %v", got, want)
	}
}
