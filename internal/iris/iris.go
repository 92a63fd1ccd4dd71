// Package iris redraws the iris inside the eyelid region of a frame.
// Mesh-based warping moves the whole eye as a unit; when only the gaze
// should shift, this layer lifts the iris out, refills the exposed
// sclera, and repaints the iris at an offset, clipped to the eyelid
// contour so it never bleeds onto skin.
package iris

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/geom"
)

// ErrBadEyeRegion is returned when an eye contour cannot produce a
// usable mask
var ErrBadEyeRegion = errors.New("iris: eye region too small or degenerate")

// irisRadiusFrac is the iris radius as a fraction of eye width
const irisRadiusFrac = 0.35

// maskBlurSize softens mask edges so the repaint blends into the eye
const maskBlurSize = 5

// Shifter repaints irises at new positions within their eyelid
// contours
type Shifter struct {
	blurSize int
}

// NewShifter creates an iris shifter
func NewShifter() *Shifter {
	return &Shifter{blurSize: maskBlurSize}
}

// Shift moves the iris inside one eye by the given pixel offset.
// frame is modified in place. eye is the eyelid contour in frame
// coordinates, ordered around the eye.
func (s *Shifter) Shift(frame *gocv.Mat, eye []geom.Point, offsetX, offsetY float64) error {
	if len(eye) < 3 {
		return fmt.Errorf("%w: %d contour points", ErrBadEyeRegion, len(eye))
	}
	if offsetX == 0 && offsetY == 0 {
		return nil
	}

	center := geom.Centroid(eye)
	lo, hi := geom.Bounds(eye)
	width := hi.X - lo.X
	height := hi.Y - lo.Y
	if width < 4 || height < 2 {
		return fmt.Errorf("%w: %gx%g px", ErrBadEyeRegion, width, height)
	}
	radius := width * irisRadiusFrac

	// Eyelid mask from the contour polygon; everything the shifter
	// paints stays inside it.
	lidMask := s.polygonMask(frame.Rows(), frame.Cols(), eye)
	defer lidMask.Close()

	// Iris mask: ellipse around the current iris position, clipped to
	// the lid. The vertical radius follows the eye opening so a
	// narrowed eye keeps a narrowed iris cutout.
	irisMask := gocv.NewMatWithSize(frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
	defer irisMask.Close()
	gocv.Ellipse(&irisMask,
		image.Pt(int(center.X), int(center.Y)),
		image.Pt(int(radius), int(math.Min(radius, height/2+1))),
		0, 0, 360,
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		-1,
	)
	gocv.BitwiseAnd(irisMask, lidMask, &irisMask)

	// Lift the iris pixels before the refill overwrites them.
	irisLayer := gocv.NewMat()
	defer irisLayer.Close()
	frame.CopyToWithMask(&irisLayer, irisMask)

	// Refill the exposed sclera with the mean color of the eye region
	// outside the iris, a close match for the surrounding white.
	scleraMask := gocv.NewMat()
	defer scleraMask.Close()
	gocv.BitwiseNot(irisMask, &scleraMask)
	gocv.BitwiseAnd(scleraMask, lidMask, &scleraMask)
	fill := frame.MeanWithMask(scleraMask)
	fillMat := gocv.NewMatWithSizeFromScalar(fill, frame.Rows(), frame.Cols(), frame.Type())
	defer fillMat.Close()
	fillMat.CopyToWithMask(frame, irisMask)

	// Translate the iris layer and its mask to the new position.
	srcTri := gocv.NewPointVectorFromPoints([]image.Point{
		image.Pt(0, 0), image.Pt(1, 0), image.Pt(0, 1),
	})
	defer srcTri.Close()
	dstTri := gocv.NewPointVectorFromPoints([]image.Point{
		image.Pt(int(offsetX), int(offsetY)),
		image.Pt(1+int(offsetX), int(offsetY)),
		image.Pt(int(offsetX), 1+int(offsetY)),
	})
	defer dstTri.Close()
	shift := gocv.GetAffineTransform(srcTri, dstTri)
	defer shift.Close()

	frameSize := image.Pt(frame.Cols(), frame.Rows())
	shiftedIris := gocv.NewMat()
	defer shiftedIris.Close()
	gocv.WarpAffine(irisLayer, &shiftedIris, shift, frameSize)

	shiftedMask := gocv.NewMat()
	defer shiftedMask.Close()
	gocv.WarpAffine(irisMask, &shiftedMask, shift, frameSize)

	// Clip the repaint to the eyelid so the iris slides under the lid
	// instead of over it, then soften the seam.
	gocv.BitwiseAnd(shiftedMask, lidMask, &shiftedMask)
	gocv.GaussianBlur(shiftedMask, &shiftedMask, image.Pt(s.blurSize, s.blurSize), 0, 0, gocv.BorderDefault)

	shiftedIris.CopyToWithMask(frame, shiftedMask)
	return nil
}

// polygonMask rasterizes a filled contour polygon
func (s *Shifter) polygonMask(height, width int, contour []geom.Point) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	pts := make([]image.Point, len(contour))
	for i, p := range contour {
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}
	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer ptsVec.Close()
	gocv.FillPoly(&mask, ptsVec, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return mask
}

// ShiftOffset computes the pixel offset for an eye from normalized
// iris parameters and the face reference size
func ShiftOffset(irisX, irisY, faceSize float64) (float64, float64) {
	return irisX * faceSize, irisY * faceSize
}
