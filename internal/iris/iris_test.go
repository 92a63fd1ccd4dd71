package iris

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/geom"
)

// eyeContour builds a lens-shaped 6-point eyelid contour centered at
// (cx,cy)
func eyeContour(cx, cy, halfW, halfH float64) []geom.Point {
	return []geom.Point{
		{X: cx - halfW, Y: cy},
		{X: cx - halfW/2, Y: cy - halfH},
		{X: cx + halfW/2, Y: cy - halfH},
		{X: cx + halfW, Y: cy},
		{X: cx + halfW/2, Y: cy + halfH},
		{X: cx - halfW/2, Y: cy + halfH},
	}
}

func TestShiftRejectsDegenerateContour(t *testing.T) {
	s := NewShifter()
	frame := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8UC3)
	defer frame.Close()

	err := s.Shift(&frame, []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, 3, 0)
	if !errors.Is(err, ErrBadEyeRegion) {
		t.Errorf("err = %v, want ErrBadEyeRegion", err)
	}

	tiny := eyeContour(25, 25, 1, 0.4)
	if err := s.Shift(&frame, tiny, 3, 0); !errors.Is(err, ErrBadEyeRegion) {
		t.Errorf("tiny contour err = %v, want ErrBadEyeRegion", err)
	}
}

func TestShiftZeroOffsetLeavesFrameUntouched(t *testing.T) {
	s := NewShifter()
	frame := gocv.NewMatWithSize(60, 60, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(40, 80, 120, 0))
	before := frame.Clone()
	defer before.Close()

	if err := s.Shift(&frame, eyeContour(30, 30, 14, 6), 0, 0); err != nil {
		t.Fatalf("Shift: %v", err)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(frame, before, &diff)
	if n := gocv.CountNonZero(diff.Reshape(1, frame.Rows())); n != 0 {
		t.Errorf("zero-offset shift changed %d channel values", n)
	}
}

func TestShiftMovesIrisInsideLid(t *testing.T) {
	s := NewShifter()
	const size = 100
	frame := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer frame.Close()
	// White sclera everywhere, dark iris disc at the eye center.
	frame.SetTo(gocv.NewScalar(240, 240, 240, 0))
	gocv.Circle(&frame, image.Pt(50, 50), 8, color.RGBA{R: 20, G: 20, B: 20, A: 255}, -1)

	contour := eyeContour(50, 50, 26, 12)
	if err := s.Shift(&frame, contour, 10, 0); err != nil {
		t.Fatalf("Shift: %v", err)
	}

	darkAt := func(x, y int) bool {
		v := frame.GetVecbAt(y, x)
		return v[0] < 100 && v[1] < 100 && v[2] < 100
	}
	// New iris center carries the dark disc.
	if !darkAt(60, 50) {
		t.Errorf("no iris at shifted position (60,50)")
	}
	// Old center is refilled toward the sclera color.
	if darkAt(44, 50) {
		t.Errorf("old iris position (44,50) not refilled")
	}
	// Nothing painted outside the eyelid contour.
	if darkAt(50, 75) {
		t.Errorf("paint leaked outside eyelid at (50,75)")
	}
}

func TestShiftOffset(t *testing.T) {
	dx, dy := ShiftOffset(0.05, -0.02, 200)
	if dx != 10 || dy != -4 {
		t.Errorf("ShiftOffset = (%g,%g), want (10,-4)", dx, dy)
	}
}
