package upscale

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/arxaplan/cutout/internal/pixel"
)

func gradient(w, h int) *pixel.Buffer {
	buf := pixel.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := buf.Offset(x, y)
			buf.Pix[i] = uint8(x * 255 / w)
			buf.Pix[i+1] = uint8(y * 255 / h)
			buf.Pix[i+2] = 128
			buf.Pix[i+3] = 255
		}
	}
	return buf
}

func TestRunMatchesOriginalDimensions(t *testing.T) {
	tests := []struct {
		name               string
		origW, origH       int
		processW, processH int
	}{
		{name: "half resolution cutout", origW: 80, origH: 60, processW: 40, processH: 30},
		{name: "processed larger than original", origW: 30, origH: 20, processW: 90, processH: 70},
		{name: "different aspect", origW: 50, origH: 50, processW: 20, processH: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), pixel.New(tt.origW, tt.origH), gradient(tt.processW, tt.processH))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if res.Buffer.Width != tt.origW || res.Buffer.Height != tt.origH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.origW, tt.origH, res.Buffer.Width, res.Buffer.Height)
			}
			if err := res.Buffer.Validate(); err != nil {
				t.Errorf("invalid output buffer: %v", err)
			}
			if !res.HD {
				t.Error("Expected HD flag to be set")
			}
			if ct := http.DetectContentType(res.PNG); ct != "image/png" {
				t.Errorf("Expected image/png, got %s", ct)
			}
		})
	}
}

func TestRunPreservesTransparency(t *testing.T) {
	processed := pixel.New(10, 10)
	res, err := Run(context.Background(), pixel.New(20, 20), processed)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i := 3; i < len(res.Buffer.Pix); i += 4 {
		if res.Buffer.Pix[i] != 0 {
			t.Fatalf("Expected fully transparent output, alpha %d at byte %d", res.Buffer.Pix[i], i)
		}
	}
}

func TestRunNoSurface(t *testing.T) {
	tests := []struct {
		name      string
		original  *pixel.Buffer
		processed *pixel.Buffer
	}{
		{name: "nil original", original: nil, processed: gradient(2, 2)},
		{name: "nil processed", original: pixel.New(2, 2), processed: nil},
		{name: "zero sized original", original: &pixel.Buffer{}, processed: gradient(2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(context.Background(), tt.original, tt.processed); !errors.Is(err, ErrNoSurface) {
				t.Errorf("Expected ErrNoSurface, got %v", err)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, pixel.New(8, 8), gradient(4, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
