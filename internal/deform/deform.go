package deform

import (
	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/landmark"
)

// irisRadiusFrac splits eye points into an inner "iris" layer and an
// outer eyelid layer, as a fraction of the eye's width
const irisRadiusFrac = 0.35

// Deform applies the per-part deformation rules and returns a new
// landmark set with identical part lengths and ordering, which keeps
// the source triangulation's topology valid for pair building.
func Deform(l *landmark.FaceLandmarks, p Parameters) (landmark.FaceLandmarks, error) {
	if err := l.Validate(); err != nil {
		return landmark.FaceLandmarks{}, err
	}
	if err := p.Validate(); err != nil {
		return landmark.FaceLandmarks{}, err
	}

	ref := l.FaceSize()
	out := l.Clone()

	deformEye(out.LeftEye, p.LeftEye, ref)
	deformEye(out.RightEye, p.RightEye, ref)
	stretch(out.Mouth, p.Mouth, ref)
	stretch(out.Nose, p.Nose, ref)
	deformContour(out.Jawline, p.Contour, l, ref)

	return out, nil
}

// deformEye remaps eye points about their centroid in two layers:
// points within the iris radius follow an independently offset iris
// centroid (gaze control), points outside follow the eye-level
// centroid, so the iris can move without dragging the eyelid shape.
func deformEye(pts []geom.Point, p EyeParams, ref float64) {
	oldC := geom.Centroid(pts)
	newC := oldC.Add(geom.Point{X: p.TranslateX * ref, Y: p.TranslateY * ref})
	irisC := newC.Add(geom.Point{X: p.IrisX * ref, Y: p.IrisY * ref})

	lo, hi := geom.Bounds(pts)
	irisRadius := irisRadiusFrac * (hi.X - lo.X)

	for i, pt := range pts {
		center := newC
		if pt.Dist(oldC) < irisRadius {
			center = irisC
		}
		pts[i] = center.Add(pt.Sub(oldC).Mul(p.Scale))
	}
}

// stretch is the anisotropic variant of the eye rule used for the
// mouth and nose
func stretch(pts []geom.Point, p StretchParams, ref float64) {
	oldC := geom.Centroid(pts)
	newC := oldC.Add(geom.Point{X: p.TranslateX * ref, Y: p.TranslateY * ref})

	for i, pt := range pts {
		pts[i] = geom.Point{
			X: newC.X + (pt.X-oldC.X)*p.ScaleX,
			Y: newC.Y + (pt.Y-oldC.Y)*p.ScaleY,
		}
	}
}
