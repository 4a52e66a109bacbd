package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/chai2010/webp"
)

// Quality bounds for lossy export
const (
	MinQuality     = 10
	MaxQuality     = 100
	DefaultQuality = 90
)

// ErrQuality is returned for a lossy quality outside [MinQuality, MaxQuality]
var ErrQuality = errors.New("quality out of range")

// Format is one of the supported export formats
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatJPG  Format = "jpg"
)

// ParseFormat accepts the export formats plus common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: png, webp, jpg)", s)
	}
}

// Lossy reports whether quality applies to the format
func (f Format) Lossy() bool {
	return f == FormatWebP || f == FormatJPG
}

// Ext returns the file extension without the dot
func (f Format) Ext() string {
	return string(f)
}

// MIMEType returns the content type of encoded output
func (f Format) MIMEType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatJPG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// ValidateQuality checks quality for lossy formats; lossless formats accept anything.
func ValidateQuality(f Format, quality int) error {
	if !f.Lossy() {
		return nil
	}
	if quality < MinQuality || quality > MaxQuality {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrQuality, quality, MinQuality, MaxQuality)
	}
	return nil
}

// Encode writes buf in the given format. Quality is ignored for PNG. JPEG has
// no alpha, so transparent areas are flattened onto white.
func Encode(buf *pixel.Buffer, f Format, quality int) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateQuality(f, quality); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	img := buf.Image()

	switch f {
	case FormatPNG:
		if err := png.Encode(&out, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case FormatWebP:
		if err := webp.Encode(&out, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
	case FormatJPG:
		if err := jpeg.Encode(&out, flatten(img, color.White), &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}

	return out.Bytes(), nil
}

func flatten(img image.Image, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	return dst
}
