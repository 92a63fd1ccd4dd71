// Package warp rasterizes matched triangle pairs from a source pixel
// buffer into a target buffer using forward, backward or hybrid
// resampling.
package warp

import (
	"errors"
	"fmt"
	"image"
)

// ErrBadBuffer reports a nil, empty or inconsistently sized buffer
var ErrBadBuffer = errors.New("warp: bad raster buffer")

// RasterBuffer is a width x height row-major RGBA byte image. The warp
// engine never resizes buffers; source and target are always equal-
// sized and exclusively owned by the caller for the duration of a call.
type RasterBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRasterBuffer allocates a zeroed buffer
func NewRasterBuffer(width, height int) *RasterBuffer {
	return &RasterBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Validate checks dimensions against the pixel slice
func (b *RasterBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrBadBuffer)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadBuffer, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: %dx%d buffer has %d bytes, want %d",
			ErrBadBuffer, b.Width, b.Height, len(b.Pix), b.Width*b.Height*4)
	}
	return nil
}

func (b *RasterBuffer) offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// RGBA reads the pixel at (x, y); the caller keeps coordinates in range
func (b *RasterBuffer) RGBA(x, y int) (uint8, uint8, uint8, uint8) {
	o := b.offset(x, y)
	return b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3]
}

// SetRGBA writes the pixel at (x, y)
func (b *RasterBuffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	o := b.offset(x, y)
	b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3] = r, g, bl, a
}

// Clone deep-copies the buffer
func (b *RasterBuffer) Clone() *RasterBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &RasterBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// CopyFrom overwrites b's pixels with src's; sizes must match
func (b *RasterBuffer) CopyFrom(src *RasterBuffer) error {
	if src.Width != b.Width || src.Height != b.Height {
		return fmt.Errorf("%w: size mismatch %dx%d vs %dx%d",
			ErrBadBuffer, src.Width, src.Height, b.Width, b.Height)
	}
	copy(b.Pix, src.Pix)
	return nil
}

// FromImage converts any image.Image into a RasterBuffer
func FromImage(img image.Image) *RasterBuffer {
	bounds := img.Bounds()
	buf := NewRasterBuffer(bounds.Dx(), bounds.Dy())
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == buf.Width*4 {
		copy(buf.Pix, rgba.Pix)
		return buf
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf.SetRGBA(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}
	return buf
}

// ToImage converts the buffer into a stdlib RGBA image sharing no storage
func (b *RasterBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}
