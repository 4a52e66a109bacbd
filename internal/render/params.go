package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/lucasb-eyer/go-colorful"
)

// Parameter bounds
const (
	MinFilter     = 0
	MaxFilter     = 200
	MaxShadowBlur = 50
	MaxOffset     = 100
	MaxFeather    = 10
)

// ErrInvalidParams is wrapped by every validation failure
var ErrInvalidParams = errors.New("invalid render parameters")

// Background is the bottom layer. Image wins over Color; both nil means transparent.
type Background struct {
	Color *color.NRGBA
	Image *pixel.Buffer
}

// Filters are percentages; 100 leaves the channel untouched.
type Filters struct {
	Brightness float64 `json:"brightness" yaml:"brightness"`
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Saturation float64 `json:"saturation" yaml:"saturation"`
}

// DefaultFilters returns the identity filter triple
func DefaultFilters() Filters {
	return Filters{Brightness: 100, Contrast: 100, Saturation: 100}
}

// Identity reports whether applying f would change nothing
func (f Filters) Identity() bool {
	return f == DefaultFilters()
}

// Validate checks every percentage is within [MinFilter, MaxFilter]
func (f Filters) Validate() error {
	for name, v := range map[string]float64{
		"brightness": f.Brightness,
		"contrast":   f.Contrast,
		"saturation": f.Saturation,
	} {
		if v < MinFilter || v > MaxFilter {
			return fmt.Errorf("%w: %s %.0f outside %d-%d", ErrInvalidParams, name, v, MinFilter, MaxFilter)
		}
	}
	return nil
}

// Shadow is a drop shadow cast by the foreground's alpha silhouette. A zero
// alpha colour disables it.
type Shadow struct {
	OffsetX float64
	OffsetY float64
	Blur    float64
	Color   color.NRGBA
}

// Enabled reports whether the shadow contributes any pixels
func (s Shadow) Enabled() bool {
	return s.Color.A > 0
}

// Validate checks offsets and blur radius
func (s Shadow) Validate() error {
	if s.Blur < 0 || s.Blur > MaxShadowBlur {
		return fmt.Errorf("%w: shadow blur %.1f outside 0-%d", ErrInvalidParams, s.Blur, MaxShadowBlur)
	}
	if s.OffsetX < -MaxOffset || s.OffsetX > MaxOffset || s.OffsetY < -MaxOffset || s.OffsetY > MaxOffset {
		return fmt.Errorf("%w: shadow offset (%.1f, %.1f) outside +/-%d", ErrInvalidParams, s.OffsetX, s.OffsetY, MaxOffset)
	}
	return nil
}

// Params are the per-render inputs. They are plain values and never stored in history.
type Params struct {
	Background Background
	Filters    Filters
	Shadow     Shadow
	Feather    float64
	// Width and Height select the output surface; zero means the foreground's size.
	Width   int
	Height  int
	Format  photo.Format
	Quality int
}

// DefaultParams renders the foreground as is and exports lossless PNG
func DefaultParams() Params {
	return Params{
		Filters: DefaultFilters(),
		Format:  photo.FormatPNG,
		Quality: photo.DefaultQuality,
	}
}

// Validate checks all ranges. Export-only fields are checked by Export.
func (p Params) Validate() error {
	if err := p.Filters.Validate(); err != nil {
		return err
	}
	if err := p.Shadow.Validate(); err != nil {
		return err
	}
	if p.Feather < 0 || p.Feather > MaxFeather {
		return fmt.Errorf("%w: feather %.1f outside 0-%d", ErrInvalidParams, p.Feather, MaxFeather)
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: negative output size", ErrInvalidParams)
	}
	return nil
}

// ParseHexColor accepts #rgb, #rrggbb and #rrggbbaa
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		alpha = uint8(a)
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// HexColor formats c as #rrggbb, or #rrggbbaa when it is not opaque
func HexColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
