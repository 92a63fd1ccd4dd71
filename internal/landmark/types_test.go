package landmark

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/dudu/facewarp/internal/geom"
)

// testLandmarks builds a plausible stylized landmark set
func testLandmarks() FaceLandmarks {
	jaw := make([]geom.Point, 17)
	for i := range jaw {
		t := float64(i) / 16
		jaw[i] = geom.Point{X: 100 + 200*t, Y: 200 + 150*(4*t*(1-t))}
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
	return FaceLandmarks{
		Jawline:   jaw,
		LeftEye:   eye(150, 180),
		RightEye:  eye(250, 180),
		LeftBrow:  brow(150, 160),
		RightBrow: brow(250, 160),
		Nose:      []geom.Point{{X: 200, Y: 180}, {X: 200, Y: 200}, {X: 190, Y: 225}, {X: 200, Y: 230}, {X: 210, Y: 225}},
		Mouth: []geom.Point{
			{X: 170, Y: 270}, {X: 200, Y: 260}, {X: 230, Y: 270},
			{X: 200, Y: 280}, {X: 185, Y: 275}, {X: 215, Y: 275},
		},
	}
}

func TestValidate(t *testing.T) {
	l := testLandmarks()
	if err := l.Validate(); err != nil {
		t.Fatalf("valid landmarks rejected: %v", err)
	}

	l.Jawline = l.Jawline[:3]
	err := l.Validate()
	if !errors.Is(err, ErrMalformedLandmarks) {
		t.Errorf("short jawline: err = %v, want ErrMalformedLandmarks", err)
	}
}

func TestPointsFromPointsRoundTrip(t *testing.T) {
	l := testLandmarks()
	flat := l.Points()
	if len(flat) != l.NumPoints() {
		t.Fatalf("flattened %d points, NumPoints says %d", len(flat), l.NumPoints())
	}

	back, err := l.FromPoints(flat)
	if err != nil {
		t.Fatal(err)
	}
	for p := Part(0); p < numParts; p++ {
		a, b := l.Group(p), back.Group(p)
		if len(a) != len(b) {
			t.Fatalf("%s: length %d -> %d", p, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s[%d]: %v -> %v", p, i, a[i], b[i])
			}
		}
	}

	if _, err := l.FromPoints(flat[:len(flat)-1]); !errors.Is(err, ErrMalformedLandmarks) {
		t.Error("short flat slice accepted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	l := testLandmarks()
	c := l.Clone()
	c.Mouth[0] = geom.Point{X: -1, Y: -1}
	if l.Mouth[0] == c.Mouth[0] {
		t.Error("Clone shares backing storage")
	}
}

func TestGroupConfidence(t *testing.T) {
	tight := []geom.Point{{X: 100, Y: 100}, {X: 101, Y: 100}, {X: 100, Y: 101}, {X: 101, Y: 101}}
	rng := rand.New(rand.NewSource(3))
	loose := make([]geom.Point, 8)
	for i := range loose {
		loose[i] = geom.Point{X: rng.Float64() * 300, Y: rng.Float64() * 300}
	}

	ct, cl := GroupConfidence(tight), GroupConfidence(loose)
	if ct <= cl {
		t.Errorf("tight cluster confidence %.3f not above scattered %.3f", ct, cl)
	}
	if ct < 0 || ct > 1 || cl < 0 || cl > 1 {
		t.Errorf("confidence out of [0,1]: %v, %v", ct, cl)
	}
	if GroupConfidence(tight[:1]) != 0 {
		t.Error("single-point group should score 0")
	}
}

func TestCheckAnatomy(t *testing.T) {
	l := testLandmarks()
	if warnings := CheckAnatomy(&l); len(warnings) != 0 {
		t.Errorf("plausible nose flagged: %v", warnings)
	}

	l.Nose = []geom.Point{{X: 200, Y: 200}, {X: 200, Y: 201}, {X: 200, Y: 202}}
	if warnings := CheckAnatomy(&l); len(warnings) == 0 {
		t.Error("degenerate nose produced no warnings")
	}
}

func TestFaceSize(t *testing.T) {
	l := testLandmarks()
	if s := l.FaceSize(); s < 100 || s > 400 {
		t.Errorf("face size %.1f outside plausible range for test landmarks", s)
	}
}
