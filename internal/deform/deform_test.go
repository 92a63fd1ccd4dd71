package deform

import (
	"errors"
	"math"
	"testing"

	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/landmark"
)

// stylizedFace builds a synthetic but anatomically plausible landmark set
func stylizedFace() landmark.FaceLandmarks {
	jaw := make([]geom.Point, 17)
	for i := range jaw {
		t := float64(i) / 16
		// Ear-to-ear arc, deepest at the chin in the middle.
		jaw[i] = geom.Point{X: 100 + 200*t, Y: 180 + 140*math.Sin(t*math.Pi)}
	}
	eye := func(cx, cy float64) []geom.Point {
		return []geom.Point{
			{X: cx - 20, Y: cy}, {X: cx - 10, Y: cy - 7}, {X: cx + 10, Y: cy - 7},
			{X: cx + 20, Y: cy}, {X: cx + 10, Y: cy + 7}, {X: cx - 10, Y: cy + 7},
		}
	}
	brow := func(cx, cy float64) []geom.Point {
		return []geom.Point{{X: cx - 25, Y: cy}, {X: cx, Y: cy - 6}, {X: cx + 25, Y: cy}}
	}
	return landmark.FaceLandmarks{
		Jawline:   jaw,
		LeftEye:   eye(150, 170),
		RightEye:  eye(250, 170),
		LeftBrow:  brow(150, 150),
		RightBrow: brow(250, 150),
		Nose:      []geom.Point{{X: 200, Y: 170}, {X: 200, Y: 195}, {X: 188, Y: 215}, {X: 200, Y: 222}, {X: 212, Y: 215}},
		Mouth: []geom.Point{
			{X: 170, Y: 255}, {X: 200, Y: 246}, {X: 230, Y: 255},
			{X: 200, Y: 268}, {X: 184, Y: 262}, {X: 216, Y: 262},
		},
	}
}

func maxPointDelta(a, b []geom.Point) float64 {
	m := 0.0
	for i := range a {
		if d := a[i].Dist(b[i]); d > m {
			m = d
		}
	}
	return m
}

func TestDeformIdentity(t *testing.T) {
	l := stylizedFace()
	out, err := Deform(&l, Defaults())
	if err != nil {
		t.Fatal(err)
	}
	for p := landmark.Part(0); p < 7; p++ {
		src, got := l.Group(p), out.Group(p)
		if len(src) != len(got) {
			t.Fatalf("%s: length changed %d -> %d", p, len(src), len(got))
		}
		if d := maxPointDelta(src, got); d > 1e-9 {
			t.Errorf("%s: identity deformation moved a point by %g", p, d)
		}
	}
}

func TestDeformPreservesTopology(t *testing.T) {
	l := stylizedFace()
	p := Defaults()
	p.LeftEye.Scale = 1.8
	p.Contour.Shape = 0.6
	p.Contour.Smoothness = 1
	p.Mouth.ScaleX = 1.3

	out, err := Deform(&l, p)
	if err != nil {
		t.Fatal(err)
	}
	if out.NumPoints() != l.NumPoints() {
		t.Fatalf("point count changed %d -> %d", l.NumPoints(), out.NumPoints())
	}
	for part := landmark.Part(0); part < 7; part++ {
		if len(out.Group(part)) != len(l.Group(part)) {
			t.Errorf("%s: length changed", part)
		}
	}
}

func TestEyeScaleGrowsBoundingBox(t *testing.T) {
	l := stylizedFace()
	p := Defaults()
	p.LeftEye.Scale = 1.5

	out, err := Deform(&l, p)
	if err != nil {
		t.Fatal(err)
	}

	lo0, hi0 := geom.Bounds(l.LeftEye)
	lo1, hi1 := geom.Bounds(out.LeftEye)
	ratio := (hi1.X - lo1.X) / (hi0.X - lo0.X)
	if math.Abs(ratio-1.5) > 1e-9 {
		t.Errorf("width ratio %g, want 1.5", ratio)
	}
	// Untouched parts stay put.
	if d := maxPointDelta(l.RightEye, out.RightEye); d > 1e-9 {
		t.Errorf("right eye moved by %g", d)
	}
}

func TestEyeTranslationIsFractionOfFaceSize(t *testing.T) {
	l := stylizedFace()
	ref := l.FaceSize()
	p := Defaults()
	p.LeftEye.TranslateX = 0.1

	out, err := Deform(&l, p)
	if err != nil {
		t.Fatal(err)
	}
	oldC := geom.Centroid(l.LeftEye)
	newC := geom.Centroid(out.LeftEye)
	if got, want := newC.X-oldC.X, 0.1*ref; math.Abs(got-want) > 1e-9 {
		t.Errorf("centroid moved %g px, want %g", got, want)
	}
}

func TestIrisLayerMovesIndependently(t *testing.T) {
	l := stylizedFace()
	p := Defaults()
	p.LeftEye.IrisX = 0.05

	out, err := Deform(&l, p)
	if err != nil {
		t.Fatal(err)
	}
	// Eye corners ((cx±20, cy)) sit outside the iris radius and must
	// not move; the inner lid points follow the iris centroid.
	for _, i := range []int{0, 3} {
		if d := l.LeftEye[i].Dist(out.LeftEye[i]); d > 1e-9 {
			t.Errorf("outer point %d moved by %g", i, d)
		}
	}
	moved := false
	for _, i := range []int{1, 2, 4, 5} {
		if l.LeftEye[i].Dist(out.LeftEye[i]) > 1 {
			moved = true
		}
	}
	if !moved {
		t.Error("no inner point followed the iris offset")
	}
}

func TestMouthAnisotropicScale(t *testing.T) {
	l := stylizedFace()
	p := Defaults()
	p.Mouth.ScaleX = 2
	p.Mouth.ScaleY = 0.5

	out, err := Deform(&l, p)
	if err != nil {
		t.Fatal(err)
	}
	lo0, hi0 := geom.Bounds(l.Mouth)
	lo1, hi1 := geom.Bounds(out.Mouth)
	if rx := (hi1.X - lo1.X) / (hi0.X - lo0.X); math.Abs(rx-2) > 1e-9 {
		t.Errorf("x ratio %g, want 2", rx)
	}
	if ry := (hi1.Y - lo1.Y) / (hi0.Y - lo0.Y); math.Abs(ry-0.5) > 1e-9 {
		t.Errorf("y ratio %g, want 0.5", ry)
	}
}

func TestValidateRejectsBadScale(t *testing.T) {
	l := stylizedFace()
	p := Defaults()
	p.Nose.ScaleX = 0

	if _, err := Deform(&l, p); !errors.Is(err, ErrBadParameters) {
		t.Errorf("err = %v, want ErrBadParameters", err)
	}
}

func TestDeformRejectsMalformedLandmarks(t *testing.T) {
	l := stylizedFace()
	l.Jawline = l.Jawline[:4]
	if _, err := Deform(&l, Defaults()); !errors.Is(err, landmark.ErrMalformedLandmarks) {
		t.Errorf("err = %v, want ErrMalformedLandmarks", err)
	}
}
