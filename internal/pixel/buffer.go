package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrInvalidBuffer is returned when a buffer's length does not match its dimensions
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// Buffer is an interleaved 8-bit RGBA pixel array with straight (non-premultiplied) alpha.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (fully transparent) buffer
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Validate checks the length invariant len(Pix) == Width*Height*4
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidBuffer, len(b.Pix), b.Width*b.Height*4)
	}
	return nil
}

// Clone returns a deep copy that shares no storage with b
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Offset returns the index of the red channel for pixel (x, y)
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// Image exposes the buffer as an *image.NRGBA backed by the same storage.
// Writes through the returned image modify b.
func (b *Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Wrap takes ownership of img's storage when it is tightly packed at the origin,
// otherwise copies it.
func Wrap(img *image.NRGBA) *Buffer {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Rect.Min == (image.Point{}) && img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return &Buffer{Width: w, Height: h, Pix: img.Pix}
	}
	buf := New(w, h)
	for y := 0; y < h; y++ {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(buf.Pix[y*w*4:(y+1)*w*4], img.Pix[start:start+w*4])
	}
	return buf
}

// FromImage converts any image into a new straight-alpha buffer
func FromImage(img image.Image) *Buffer {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return Wrap(&image.NRGBA{
			Pix:    append([]uint8(nil), nrgba.Pix...),
			Stride: nrgba.Stride,
			Rect:   nrgba.Rect,
		})
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return Wrap(dst)
}
