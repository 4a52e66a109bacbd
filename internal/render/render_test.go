package render

import (
	"errors"
	"image/color"
	"net/http"
	"testing"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func fill(buf *pixel.Buffer, x0, y0, x1, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := buf.Offset(x, y)
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

func at(buf *pixel.Buffer, x, y int) color.NRGBA {
	i := buf.Offset(x, y)
	return color.NRGBA{R: buf.Pix[i], G: buf.Pix[i+1], B: buf.Pix[i+2], A: buf.Pix[i+3]}
}

// near allows for resampling round-off
func near(t *testing.T, want, got color.NRGBA, msg string) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2, msg)
	assert.InDelta(t, want.G, got.G, 2, msg)
	assert.InDelta(t, want.B, got.B, 2, msg)
	assert.InDelta(t, want.A, got.A, 2, msg)
}

// halfRed is opaque red on the left half and transparent on the right
func halfRed() *pixel.Buffer {
	buf := pixel.New(10, 10)
	fill(buf, 0, 0, 5, 10, red)
	return buf
}

func TestComposeBackgroundColorUnderForeground(t *testing.T) {
	p := DefaultParams()
	p.Background.Color = &blue

	out, err := Compose(halfRed(), p, ModeExport)
	require.NoError(t, err)

	assert.Equal(t, red, at(out, 1, 5))
	assert.Equal(t, blue, at(out, 8, 5))
}

func TestComposeBackgroundImageWinsOverColor(t *testing.T) {
	bg := pixel.New(2, 2)
	fill(bg, 0, 0, 2, 2, green)

	p := DefaultParams()
	p.Background = Background{Color: &blue, Image: bg}

	out, err := Compose(halfRed(), p, ModeExport)
	require.NoError(t, err)

	assert.Equal(t, red, at(out, 0, 0))
	near(t, green, at(out, 9, 9), "background image should be stretched to cover")
}

func TestComposeCheckerboardIsPreviewOnly(t *testing.T) {
	fg := halfRed()

	exported, err := Compose(fg, DefaultParams(), ModeExport)
	require.NoError(t, err)
	assert.Zero(t, at(exported, 8, 5).A, "export must keep transparency")

	preview, err := Compose(fg, DefaultParams(), ModePreview)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), at(preview, 8, 5).A, "preview shows a checkerboard")
}

func TestComposeShadowFollowsSilhouette(t *testing.T) {
	fg := pixel.New(20, 20)
	fill(fg, 2, 2, 6, 6, red)

	p := DefaultParams()
	p.Shadow = Shadow{OffsetX: 10, OffsetY: 10, Color: black}

	out, err := Compose(fg, p, ModeExport)
	require.NoError(t, err)

	assert.Equal(t, red, at(out, 3, 3), "foreground is drawn above its shadow")
	assert.Equal(t, black, at(out, 12, 12), "shadow is the offset silhouette")
	assert.Zero(t, at(out, 17, 17).A, "shadow stays inside the silhouette")
	assert.Zero(t, at(out, 8, 8).A)
}

func TestComposeBlurredShadowSpreads(t *testing.T) {
	fg := pixel.New(30, 30)
	fill(fg, 10, 10, 20, 20, red)

	p := DefaultParams()
	p.Shadow = Shadow{OffsetX: 0, OffsetY: 0, Blur: 8, Color: black}

	out, err := Compose(fg, p, ModeExport)
	require.NoError(t, err)

	edge := at(out, 8, 15)
	assert.Greater(t, edge.A, uint8(0), "blur should leak shadow past the silhouette")
	assert.Less(t, edge.A, uint8(255))
}

func TestComposeFilters(t *testing.T) {
	base := color.NRGBA{R: 200, G: 100, B: 50, A: 255}

	tests := []struct {
		name    string
		filters Filters
		check   func(t *testing.T, c color.NRGBA)
	}{
		{
			name:    "identity",
			filters: DefaultFilters(),
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, base, c)
			},
		},
		{
			name:    "half brightness",
			filters: Filters{Brightness: 50, Contrast: 100, Saturation: 100},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, color.NRGBA{R: 100, G: 50, B: 25, A: 255}, c)
			},
		},
		{
			name:    "zero contrast is mid grey",
			filters: Filters{Brightness: 100, Contrast: 0, Saturation: 100},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, c)
			},
		},
		{
			name:    "zero saturation is grey",
			filters: Filters{Brightness: 100, Contrast: 100, Saturation: 0},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, c.R, c.G)
				assert.Equal(t, c.G, c.B)
			},
		},
		{
			name:    "double brightness clamps",
			filters: Filters{Brightness: 200, Contrast: 100, Saturation: 100},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, uint8(255), c.R)
				assert.Equal(t, uint8(200), c.G)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := pixel.New(4, 4)
			fill(fg, 0, 0, 4, 4, base)

			p := DefaultParams()
			p.Filters = tt.filters
			out, err := Compose(fg, p, ModeExport)
			require.NoError(t, err)
			tt.check(t, at(out, 2, 2))
		})
	}
}

func TestFeatherIsPreviewOnly(t *testing.T) {
	fg := pixel.New(40, 40)
	fill(fg, 10, 10, 30, 30, red)

	p := DefaultParams()
	p.Background.Color = &blue
	p.Feather = 10

	preview, err := Compose(fg, p, ModePreview)
	require.NoError(t, err)
	softened := at(preview, 10, 20)
	assert.NotEqual(t, red, softened, "feathered edge blends into the background")

	exported, err := Compose(fg, p, ModeExport)
	require.NoError(t, err)
	assert.Equal(t, red, at(exported, 10, 20))
}

func TestComposeDoesNotMutateForeground(t *testing.T) {
	fg := halfRed()
	before := fg.Clone()

	p := DefaultParams()
	p.Filters.Brightness = 20
	p.Shadow = Shadow{OffsetX: 2, Blur: 3, Color: black}
	_, err := Compose(fg, p, ModePreview)
	require.NoError(t, err)

	assert.Equal(t, before.Pix, fg.Pix)
}

func TestComposeOutputSize(t *testing.T) {
	p := DefaultParams()
	p.Width, p.Height = 40, 30

	out, err := Compose(halfRed(), p, ModeExport)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Width)
	assert.Equal(t, 30, out.Height)
	assert.NoError(t, out.Validate())
}

func TestComposeErrors(t *testing.T) {
	_, err := Compose(nil, DefaultParams(), ModeExport)
	assert.True(t, errors.Is(err, ErrNoSurface))

	p := DefaultParams()
	p.Filters.Contrast = 250
	_, err = Compose(halfRed(), p, ModeExport)
	assert.True(t, errors.Is(err, ErrInvalidParams))

	p = DefaultParams()
	p.Feather = 11
	_, err = Compose(halfRed(), p, ModeExport)
	assert.True(t, errors.Is(err, ErrInvalidParams))

	// products that wrap int must not reach the allocator
	for _, dims := range [][2]int{{1 << 32, 1 << 32}, {1 << 20, 1 << 20}, {photo.MaxPixels, 2}} {
		p = DefaultParams()
		p.Width, p.Height = dims[0], dims[1]
		_, err = Compose(halfRed(), p, ModeExport)
		assert.True(t, errors.Is(err, ErrNoSurface), "%dx%d", dims[0], dims[1])
	}
}

func TestExportFormats(t *testing.T) {
	for _, f := range []photo.Format{photo.FormatPNG, photo.FormatWebP, photo.FormatJPG} {
		t.Run(string(f), func(t *testing.T) {
			p := DefaultParams()
			p.Format = f
			p.Quality = 80

			art, err := Export(halfRed(), p)
			require.NoError(t, err)
			assert.Equal(t, f.MIMEType(), art.MIMEType)
			assert.Equal(t, art.MIMEType, http.DetectContentType(art.Data))
			assert.Equal(t, 10, art.Width)
		})
	}
}

func TestExportQuality(t *testing.T) {
	p := DefaultParams()
	p.Format = photo.FormatWebP
	p.Quality = 9
	_, err := Export(halfRed(), p)
	assert.True(t, errors.Is(err, photo.ErrQuality))

	p.Format = photo.FormatPNG
	_, err = Export(halfRed(), p)
	assert.NoError(t, err, "quality is ignored for png")
}

func TestCompare(t *testing.T) {
	before := pixel.New(5, 5)
	fill(before, 0, 0, 5, 5, green)
	after := halfRed()

	out, err := Compare(before, after, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Width)
	near(t, green, at(out, 1, 1), "left side shows the upscaled original")
	assert.Equal(t, uint8(255), at(out, 8, 1).A, "transparent right side sits on a checkerboard")
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in       string
		expected color.NRGBA
		wantErr  bool
	}{
		{in: "#ffffff", expected: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{in: "#f00", expected: color.NRGBA{R: 255, A: 255}},
		{in: "00ff00", expected: color.NRGBA{G: 255, A: 255}},
		{in: "#00000080", expected: color.NRGBA{A: 128}},
		{in: "#zzzzzz", wantErr: true},
		{in: "#12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}

	assert.Equal(t, "#ff0000", HexColor(red))
	assert.Equal(t, "#00000080", HexColor(color.NRGBA{A: 128}))
}
