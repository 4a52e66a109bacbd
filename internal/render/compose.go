package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	xdraw "golang.org/x/image/draw"
)

// ErrNoSurface is returned when there is no foreground or the surface can't be allocated
var ErrNoSurface = errors.New("render: drawing surface unavailable")

// Mode selects between on-screen preview and export output
type Mode int

const (
	// ModeExport never contains preview-only effects
	ModeExport Mode = iota
	// ModePreview adds the transparency checkerboard and feathering
	ModePreview
)

const checkerCell = 10

var (
	checkerLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	checkerDark  = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

// Artifact is an encoded export
type Artifact struct {
	Data     []byte
	Format   photo.Format
	MIMEType string
	Width    int
	Height   int
}

// Compose draws background, shadow and foreground, bottom to top, onto a new
// surface. fg is never modified.
func Compose(fg *pixel.Buffer, p Params, mode Mode) (*pixel.Buffer, error) {
	if fg == nil {
		return nil, ErrNoSurface
	}
	if err := fg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	w, h := p.Width, p.Height
	if w == 0 {
		w = fg.Width
	}
	if h == 0 {
		h = fg.Height
	}
	if w > photo.MaxPixels || h > photo.MaxPixels || w > photo.MaxPixels/h {
		return nil, fmt.Errorf("%w: %dx%d exceeds limit", ErrNoSurface, w, h)
	}

	rect := image.Rect(0, 0, w, h)
	canvas := image.NewRGBA(rect)
	drawBackground(canvas, p.Background, mode)

	layer := foregroundLayer(fg, rect)
	applyFilters(layer, p.Filters)
	if mode == ModePreview {
		feather(layer, p.Feather)
	}

	if p.Shadow.Enabled() {
		draw.Draw(canvas, rect, dropShadow(layer, p.Shadow), image.Point{}, draw.Over)
	}
	draw.Draw(canvas, rect, layer, image.Point{}, draw.Over)

	out := image.NewNRGBA(rect)
	draw.Draw(out, rect, canvas, image.Point{}, draw.Src)
	return pixel.Wrap(out), nil
}

// Export composes fg for download and encodes it.
func Export(fg *pixel.Buffer, p Params) (*Artifact, error) {
	if p.Format == "" {
		p.Format = photo.FormatPNG
	}
	if err := photo.ValidateQuality(p.Format, p.Quality); err != nil {
		return nil, err
	}

	composed, err := Compose(fg, p, ModeExport)
	if err != nil {
		return nil, err
	}

	data, err := photo.Encode(composed, p.Format, p.Quality)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Data:     data,
		Format:   p.Format,
		MIMEType: p.Format.MIMEType(),
		Width:    composed.Width,
		Height:   composed.Height,
	}, nil
}

// Compare renders a before/after split at after's size. position is the
// fraction of the width showing before, clamped to [0,1].
func Compare(before, after *pixel.Buffer, position float64) (*pixel.Buffer, error) {
	if before == nil || after == nil {
		return nil, ErrNoSurface
	}
	if err := after.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}
	if err := before.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}
	position = min(max(position, 0), 1)

	rect := image.Rect(0, 0, after.Width, after.Height)
	left := foregroundLayer(before, rect)
	out := image.NewNRGBA(rect)
	drawCheckerboard(out)

	split := int(position * float64(after.Width))
	draw.Draw(out, image.Rect(split, 0, after.Width, after.Height), after.Image(), image.Pt(split, 0), draw.Over)
	if split > 0 {
		draw.Draw(out, image.Rect(0, 0, split, after.Height), left, image.Point{}, draw.Over)
	}
	if split > 0 && split < after.Width {
		divider := image.Rect(max(split-1, 0), 0, min(split+1, after.Width), after.Height)
		draw.Draw(out, divider, image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	return pixel.Wrap(out), nil
}

func drawBackground(canvas draw.Image, bg Background, mode Mode) {
	rect := canvas.Bounds()
	switch {
	case bg.Image != nil && bg.Image.Validate() == nil:
		src := bg.Image.Image()
		xdraw.CatmullRom.Scale(canvas, rect, src, src.Bounds(), xdraw.Src, nil)
	case bg.Color != nil:
		draw.Draw(canvas, rect, image.NewUniform(*bg.Color), image.Point{}, draw.Src)
	case mode == ModePreview:
		drawCheckerboard(canvas)
	}
}

func drawCheckerboard(canvas draw.Image) {
	rect := canvas.Bounds()
	for y := rect.Min.Y; y < rect.Max.Y; y += checkerCell {
		for x := rect.Min.X; x < rect.Max.X; x += checkerCell {
			c := checkerLight
			if ((x/checkerCell)+(y/checkerCell))%2 == 1 {
				c = checkerDark
			}
			cell := image.Rect(x, y, x+checkerCell, y+checkerCell).Intersect(rect)
			draw.Draw(canvas, cell, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}

// foregroundLayer returns a private copy of fg at the surface size.
func foregroundLayer(fg *pixel.Buffer, rect image.Rectangle) *image.NRGBA {
	layer := image.NewNRGBA(rect)
	if fg.Width == rect.Dx() && fg.Height == rect.Dy() {
		copy(layer.Pix, fg.Pix)
		return layer
	}
	src := fg.Image()
	xdraw.CatmullRom.Scale(layer, rect, src, src.Bounds(), xdraw.Src, nil)
	return layer
}
