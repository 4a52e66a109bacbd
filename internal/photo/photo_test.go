package photo

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 200})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExportName(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		hd       bool
		original string
		format   Format
		expected string
	}{
		{name: "plain png", prefix: "arxaplan", original: "cat.jpg", format: FormatPNG, expected: "arxaplan_cat.png"},
		{name: "hd webp", prefix: "arxaplan", hd: true, original: "cat.jpg", format: FormatWebP, expected: "arxaplan_HD_cat.webp"},
		{name: "default prefix", original: "portrait.final.png", format: FormatJPG, expected: "arxaplan_portrait.final.jpg"},
		{name: "strips directories", prefix: "x", original: `C:\Users\me\shot.png`, format: FormatPNG, expected: "x_shot.png"},
		{name: "empty name", prefix: "x", original: "", format: FormatPNG, expected: "x_image.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExportName(tt.prefix, tt.hd, tt.original, tt.format))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPEG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPG, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = ParseFormat("tiff")
	assert.Error(t, err)
}

func TestEncodeMIMETypes(t *testing.T) {
	buf := pixel.New(16, 12)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i)
	}

	for _, f := range []Format{FormatPNG, FormatWebP, FormatJPG} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Encode(buf, f, 80)
			require.NoError(t, err)
			assert.Equal(t, f.MIMEType(), http.DetectContentType(data))
		})
	}
}

func TestEncodeQuality(t *testing.T) {
	buf := pixel.New(4, 4)

	_, err := Encode(buf, FormatWebP, 5)
	assert.True(t, errors.Is(err, ErrQuality))

	_, err = Encode(buf, FormatJPG, 101)
	assert.True(t, errors.Is(err, ErrQuality))

	// png ignores quality entirely
	_, err = Encode(buf, FormatPNG, 0)
	assert.NoError(t, err)
}

func TestDecode(t *testing.T) {
	h, err := Decode(pngBytes(t, 8, 6), "a.png", KindOriginal)
	require.NoError(t, err)

	w, hh := h.Bounds()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, hh)
	assert.Equal(t, "png", h.Format)
	assert.Equal(t, KindOriginal, h.Kind)
	assert.NotEmpty(t, h.ID)

	_, err = Decode([]byte("definitely not an image"), "notes.txt", KindOriginal)
	assert.True(t, errors.Is(err, ErrNotImage))
}

func TestHandleCloneAndRelease(t *testing.T) {
	h, err := Decode(pngBytes(t, 4, 4), "a.png", KindOriginal)
	require.NoError(t, err)

	c, err := h.Clone()
	require.NoError(t, err)
	assert.Equal(t, KindDerived, c.Kind)
	assert.NotEqual(t, h.ID, c.ID)

	orig, _ := h.Buffer()
	cloned, _ := c.Buffer()
	cloned.Pix[0] = orig.Pix[0] + 1
	assert.NotEqual(t, orig.Pix[0], cloned.Pix[0], "clone must not alias the original")

	h.Release()
	h.Release()
	assert.True(t, h.Released())
	_, err = h.Buffer()
	assert.ErrorIs(t, err, ErrReleased)
	w, hh := h.Bounds()
	assert.Zero(t, w+hh)

	_, err = c.Buffer()
	assert.NoError(t, err, "releasing the source must not affect the clone")
}

func TestDerivedEncodesOnDemand(t *testing.T) {
	h := FromBuffer(pixel.New(3, 3), "x.png", nil)
	data, err := h.Encoded()
	require.NoError(t, err)
	assert.Equal(t, "image/png", http.DetectContentType(data))
	assert.Equal(t, len(data), h.Size)
}
