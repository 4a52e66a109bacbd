package pixel

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

func solid(w, h int, r, g, b, a uint8) *Buffer {
	buf := New(w, h)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = r, g, b, a
	}
	return buf
}

func TestSharpenCenterPixel(t *testing.T) {
	tests := []struct {
		name      string
		center    uint8
		neighbors uint8
		expected  uint8
	}{
		{name: "uniform stays put", center: 100, neighbors: 100, expected: 100},
		{name: "bright center on dark", center: 100, neighbors: 0, expected: 220},
		{name: "overflow clamps high", center: 200, neighbors: 100, expected: 255},
		{name: "underflow clamps low", center: 0, neighbors: 200, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := solid(3, 3, tt.neighbors, tt.neighbors, tt.neighbors, 255)
			i := buf.Offset(1, 1)
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = tt.center, tt.center, tt.center

			out, err := Sharpen(buf)
			if err != nil {
				t.Fatalf("Sharpen returned error: %v", err)
			}
			for c := 0; c < 3; c++ {
				if got := out.Pix[i+c]; got != tt.expected {
					t.Errorf("channel %d: expected %d, got %d", c, tt.expected, got)
				}
			}
		})
	}
}

func TestSharpenPreservesLengthAlphaAndBorders(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	buf := New(37, 150)
	rng.Read(buf.Pix)

	out, err := Sharpen(buf)
	if err != nil {
		t.Fatalf("Sharpen returned error: %v", err)
	}
	if len(out.Pix) != len(buf.Pix) || out.Width != buf.Width || out.Height != buf.Height {
		t.Fatalf("Expected %dx%d with %d bytes, got %dx%d with %d bytes",
			buf.Width, buf.Height, len(buf.Pix), out.Width, out.Height, len(out.Pix))
	}

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			i := buf.Offset(x, y)
			if out.Pix[i+3] != buf.Pix[i+3] {
				t.Fatalf("alpha changed at (%d,%d): %d -> %d", x, y, buf.Pix[i+3], out.Pix[i+3])
			}
			border := x == 0 || y == 0 || x == buf.Width-1 || y == buf.Height-1
			if border {
				for c := 0; c < 3; c++ {
					if out.Pix[i+c] != buf.Pix[i+c] {
						t.Fatalf("border pixel (%d,%d) changed", x, y)
					}
				}
			}
		}
	}
}

func TestSharpenDoesNotMutateInput(t *testing.T) {
	buf := solid(5, 5, 10, 20, 30, 40)
	buf.Pix[buf.Offset(2, 2)] = 250
	before := buf.Clone()

	if _, err := Sharpen(buf); err != nil {
		t.Fatalf("Sharpen returned error: %v", err)
	}
	for i := range buf.Pix {
		if buf.Pix[i] != before.Pix[i] {
			t.Fatalf("input mutated at byte %d", i)
		}
	}
}

func TestSharpenTinyBufferIsCopy(t *testing.T) {
	buf := solid(2, 7, 1, 2, 3, 4)
	out, err := Sharpen(buf)
	if err != nil {
		t.Fatalf("Sharpen returned error: %v", err)
	}
	if &out.Pix[0] == &buf.Pix[0] {
		t.Error("Expected a copy, got the same storage")
	}
	for i := range buf.Pix {
		if out.Pix[i] != buf.Pix[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
}

func TestSharpenRejectsInvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
	}{
		{name: "nil", buf: nil},
		{name: "short", buf: &Buffer{Width: 2, Height: 2, Pix: make([]uint8, 15)}},
		{name: "zero width", buf: &Buffer{Width: 0, Height: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Sharpen(tt.buf); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Expected ErrInvalidBuffer, got %v", err)
			}
		})
	}
}

func TestSharpenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := SharpenContext(ctx, solid(10, 200, 1, 1, 1, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
