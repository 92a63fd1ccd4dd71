package warp

import "math"

// Bilinear samples the buffer at fractional coordinates by blending
// the four surrounding pixels per channel. Pixel (i,j) is centered at
// (i+0.5, j+0.5), so sampling a pixel center reads that pixel exactly.
// Coordinates are clamped into the valid range first, so edge samples
// degrade to nearest-edge rather than reading out of bounds.
func Bilinear(b *RasterBuffer, x, y float64) (uint8, uint8, uint8, uint8) {
	x -= 0.5
	y -= 0.5
	maxX := float64(b.Width - 1)
	maxY := float64(b.Height - 1)
	x = math.Min(math.Max(x, 0), maxX)
	y = math.Min(math.Max(y, 0), maxY)

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > b.Width-1 {
		x1 = b.Width - 1
	}
	if y1 > b.Height-1 {
		y1 = b.Height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	o00 := b.offset(x0, y0)
	o10 := b.offset(x1, y0)
	o01 := b.offset(x0, y1)
	o11 := b.offset(x1, y1)

	blend := func(c int) uint8 {
		top := float64(b.Pix[o00+c])*(1-fx) + float64(b.Pix[o10+c])*fx
		bot := float64(b.Pix[o01+c])*(1-fx) + float64(b.Pix[o11+c])*fx
		return uint8(top*(1-fy) + bot*fy + 0.5)
	}
	return blend(0), blend(1), blend(2), blend(3)
}
