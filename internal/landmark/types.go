// Package landmark defines the named facial point groups the warping
// engine consumes, together with validation and the detector adapter
// that produces them.
package landmark

import (
	"errors"
	"fmt"

	"github.com/dudu/facewarp/internal/geom"
)

// ErrMalformedLandmarks reports a part with a point count the engine
// cannot work with
var ErrMalformedLandmarks = errors.New("landmark: malformed landmark set")

// Part names the facial regions carried by FaceLandmarks
type Part int

const (
	Jawline Part = iota
	LeftBrow
	RightBrow
	Nose
	LeftEye
	RightEye
	Mouth
	numParts
)

var partNames = [numParts]string{
	"jawline", "left_brow", "right_brow", "nose", "left_eye", "right_eye", "mouth",
}

func (p Part) String() string {
	if p < 0 || p >= numParts {
		return fmt.Sprintf("Part(%d)", int(p))
	}
	return partNames[p]
}

// minPartPoints is the smallest point count per part that keeps the
// deformation rules meaningful (the jawline needs room for chin and
// jaw-corner searches, the others just need a centroid and extent).
var minPartPoints = [numParts]int{
	Jawline:   9,
	LeftBrow:  2,
	RightBrow: 2,
	Nose:      3,
	LeftEye:   4,
	RightEye:  4,
	Mouth:     4,
}

// FaceLandmarks holds the seven named, ordered point sequences supplied
// by the detector. Order within each sequence is significant: jawline
// adjacency drives contour curvature analysis, eye ordering drives the
// iris split.
type FaceLandmarks struct {
	Jawline   []geom.Point
	LeftBrow  []geom.Point
	RightBrow []geom.Point
	Nose      []geom.Point
	LeftEye   []geom.Point
	RightEye  []geom.Point
	Mouth     []geom.Point
}

// Group returns the point sequence for a part
func (l *FaceLandmarks) Group(p Part) []geom.Point {
	switch p {
	case Jawline:
		return l.Jawline
	case LeftBrow:
		return l.LeftBrow
	case RightBrow:
		return l.RightBrow
	case Nose:
		return l.Nose
	case LeftEye:
		return l.LeftEye
	case RightEye:
		return l.RightEye
	case Mouth:
		return l.Mouth
	}
	return nil
}

func (l *FaceLandmarks) setGroup(p Part, pts []geom.Point) {
	switch p {
	case Jawline:
		l.Jawline = pts
	case LeftBrow:
		l.LeftBrow = pts
	case RightBrow:
		l.RightBrow = pts
	case Nose:
		l.Nose = pts
	case LeftEye:
		l.LeftEye = pts
	case RightEye:
		l.RightEye = pts
	case Mouth:
		l.Mouth = pts
	}
}

// Validate checks that every part carries enough ordered points for
// the deformation rules. Wrong counts are a precondition failure the
// engine refuses to repair.
func (l *FaceLandmarks) Validate() error {
	for p := Part(0); p < numParts; p++ {
		if n := len(l.Group(p)); n < minPartPoints[p] {
			return fmt.Errorf("%w: %s has %d points, need at least %d",
				ErrMalformedLandmarks, p, n, minPartPoints[p])
		}
	}
	return nil
}

// Points flattens all parts into one slice in the fixed part order,
// suitable for triangulation. The layout is deterministic so a second
// flatten of a deformed set keeps index topology.
func (l *FaceLandmarks) Points() []geom.Point {
	out := make([]geom.Point, 0, l.NumPoints())
	for p := Part(0); p < numParts; p++ {
		out = append(out, l.Group(p)...)
	}
	return out
}

// NumPoints returns the total point count across parts
func (l *FaceLandmarks) NumPoints() int {
	n := 0
	for p := Part(0); p < numParts; p++ {
		n += len(l.Group(p))
	}
	return n
}

// FromPoints rebuilds a FaceLandmarks from a flat slice produced by
// Points() on a set with the same part lengths as l
func (l *FaceLandmarks) FromPoints(pts []geom.Point) (FaceLandmarks, error) {
	if len(pts) != l.NumPoints() {
		return FaceLandmarks{}, fmt.Errorf("%w: flat slice has %d points, layout expects %d",
			ErrMalformedLandmarks, len(pts), l.NumPoints())
	}
	var out FaceLandmarks
	off := 0
	for p := Part(0); p < numParts; p++ {
		n := len(l.Group(p))
		group := make([]geom.Point, n)
		copy(group, pts[off:off+n])
		out.setGroup(p, group)
		off += n
	}
	return out, nil
}

// Clone deep-copies the landmark set
func (l *FaceLandmarks) Clone() FaceLandmarks {
	var out FaceLandmarks
	for p := Part(0); p < numParts; p++ {
		src := l.Group(p)
		dst := make([]geom.Point, len(src))
		copy(dst, src)
		out.setGroup(p, dst)
	}
	return out
}

// FaceSize returns the reference face-region size: the larger side of
// the bounding box over every landmark. Translation parameters are
// expressed as fractions of this value.
func (l *FaceLandmarks) FaceSize() float64 {
	lo, hi := geom.Bounds(l.Points())
	w := hi.X - lo.X
	h := hi.Y - lo.Y
	if h > w {
		return h
	}
	return w
}
