package warp

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FromMat copies a BGR gocv.Mat into a new RGBA raster buffer
func FromMat(m gocv.Mat) (*RasterBuffer, error) {
	if m.Empty() {
		return nil, fmt.Errorf("%w: empty mat", ErrBadBuffer)
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(m, &rgba, gocv.ColorBGRToRGBA)

	buf := NewRasterBuffer(rgba.Cols(), rgba.Rows())
	data := rgba.ToBytes()
	if len(data) != len(buf.Pix) {
		return nil, fmt.Errorf("%w: mat byte length %d, want %d", ErrBadBuffer, len(data), len(buf.Pix))
	}
	copy(buf.Pix, data)
	return buf, nil
}

// ToMat copies a raster buffer into a new BGR gocv.Mat. The caller owns
// the returned mat and must Close it.
func ToMat(b *RasterBuffer) (gocv.Mat, error) {
	if err := b.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	rgba, err := gocv.NewMatFromBytes(b.Height, b.Width, gocv.MatTypeCV8UC4, b.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrapping pixels in mat: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}
