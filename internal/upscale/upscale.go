package upscale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/disintegration/imaging"
)

// ErrNoSurface is returned when a drawing surface at the target size can't be allocated
var ErrNoSurface = errors.New("upscale: drawing surface unavailable")

// Result is the HD output of Run
type Result struct {
	Buffer *pixel.Buffer
	PNG    []byte
	HD     bool
}

// Run redraws processed at original's exact dimensions with Lanczos-3
// resampling, sharpens the result and encodes it as PNG.
func Run(ctx context.Context, original, processed *pixel.Buffer) (*Result, error) {
	if original == nil || processed == nil {
		return nil, ErrNoSurface
	}
	w, h := original.Width, original.Height
	if w <= 0 || h <= 0 || w*h > photo.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoSurface, w, h)
	}
	if err := processed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processed image: %w", err)
	}

	start := time.Now()
	resized := pixel.Wrap(imaging.Resize(processed.Image(), w, h, imaging.Lanczos))
	if resized.Width != w || resized.Height != h {
		return nil, fmt.Errorf("%w: resample produced %dx%d", ErrNoSurface, resized.Width, resized.Height)
	}

	// let a cancelled request skip the convolution entirely
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sharpened, err := pixel.SharpenContext(ctx, resized)
	if err != nil {
		return nil, fmt.Errorf("failed to sharpen: %w", err)
	}

	encoded, err := photo.Encode(sharpened, photo.FormatPNG, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upscaled image: %w", err)
	}

	slog.Debug("Upscaled image",
		"from", fmt.Sprintf("%dx%d", processed.Width, processed.Height),
		"to", fmt.Sprintf("%dx%d", w, h),
		"duration", time.Since(start))

	return &Result{Buffer: sharpened, PNG: encoded, HD: true}, nil
}
