package editor

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/arxaplan/cutout/internal/render"
)

// ViewMode selects how the preview presents the cutout
type ViewMode string

const (
	ViewCompare     ViewMode = "compare"
	ViewTransparent ViewMode = "transparent"
	ViewWhite       ViewMode = "white"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewCompare, ViewTransparent, ViewWhite:
		return m, nil
	}
	return "", fmt.Errorf("%w: view mode %q", ErrInvalidInput, s)
}

// Tool is the adjustment panel currently open
type Tool string

const (
	ToolFeather    Tool = "feather"
	ToolBackground Tool = "background"
	ToolShadow     Tool = "shadow"
	ToolFilters    Tool = "filters"
)

func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case ToolFeather, ToolBackground, ToolShadow, ToolFilters:
		return t, nil
	case "bg":
		return ToolBackground, nil
	}
	return "", fmt.Errorf("%w: tool %q", ErrInvalidInput, s)
}

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// SetViewMode switches the view. white forces a white background colour and
// compare clears the colour; transparent keeps whatever colour is set.
func (s *Session) SetViewMode(mode ViewMode) error {
	mode, err := ParseViewMode(string(mode))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setViewModeLocked(mode)
	return nil
}

func (s *Session) setViewModeLocked(mode ViewMode) {
	switch mode {
	case ViewWhite:
		c := white
		s.color = &c
	case ViewCompare:
		s.color = nil
	}
	s.viewMode = mode
	s.touch()
}

// SetBackgroundColor sets the solid background. "" and "transparent" clear
// it. Choosing a colour while comparing switches to the transparent view.
func (s *Session) SetBackgroundColor(hex string) error {
	c, err := parseColor(hex)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setColorLocked(c)
	return nil
}

func (s *Session) setColorLocked(c *color.NRGBA) {
	s.color = c
	if s.viewMode == ViewCompare {
		s.viewMode = ViewTransparent
	}
	s.touch()
}

func parseColor(hex string) (*color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" || strings.EqualFold(hex, "transparent") {
		return nil, nil
	}
	c, err := render.ParseHexColor(hex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &c, nil
}

func (s *Session) SetFilters(f render.Filters) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
	s.touch()
	return nil
}

func (s *Session) SetShadow(sh render.Shadow) error {
	if err := sh.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadow = sh
	s.touch()
	return nil
}

func (s *Session) SetFeather(radius float64) error {
	if radius < 0 || radius > render.MaxFeather {
		return fmt.Errorf("%w: feather %.1f outside 0-%d", ErrInvalidInput, radius, render.MaxFeather)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feather = radius
	s.touch()
	return nil
}

func (s *Session) SetActiveTool(t Tool) error {
	t, err := ParseTool(string(t))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
	s.touch()
	return nil
}

// SetComparePosition moves the before/after divider, as a fraction of the width
func (s *Session) SetComparePosition(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: compare position %.2f outside 0-1", ErrInvalidInput, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparePosition = p
	s.touch()
	return nil
}

// ResetAdjustments restores identity filters, no shadow and no feather
func (s *Session) ResetAdjustments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = render.DefaultFilters()
	s.shadow = render.Shadow{}
	s.feather = 0
	s.touch()
}

// Settings is a partial update; nil fields are left unchanged.
type Settings struct {
	ViewMode        *ViewMode
	Tool            *Tool
	Color           *string
	Filters         *render.Filters
	Shadow          *render.Shadow
	Feather         *float64
	ComparePosition *float64
}

// Apply validates every field first and then applies them together. The
// view mode is applied before the colour.
func (s *Session) Apply(u Settings) error {
	var mode ViewMode
	if u.ViewMode != nil {
		var err error
		if mode, err = ParseViewMode(string(*u.ViewMode)); err != nil {
			return err
		}
	}
	var tool Tool
	if u.Tool != nil {
		var err error
		if tool, err = ParseTool(string(*u.Tool)); err != nil {
			return err
		}
	}
	var c *color.NRGBA
	if u.Color != nil {
		var err error
		if c, err = parseColor(*u.Color); err != nil {
			return err
		}
	}
	if u.Filters != nil {
		if err := u.Filters.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if u.Shadow != nil {
		if err := u.Shadow.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if u.Feather != nil && (*u.Feather < 0 || *u.Feather > render.MaxFeather) {
		return fmt.Errorf("%w: feather %.1f outside 0-%d", ErrInvalidInput, *u.Feather, render.MaxFeather)
	}
	if u.ComparePosition != nil && (*u.ComparePosition < 0 || *u.ComparePosition > 1) {
		return fmt.Errorf("%w: compare position %.2f outside 0-1", ErrInvalidInput, *u.ComparePosition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ViewMode != nil {
		s.setViewModeLocked(mode)
	}
	if u.Color != nil {
		s.setColorLocked(c)
	}
	if u.Tool != nil {
		s.tool = tool
	}
	if u.Filters != nil {
		s.filters = *u.Filters
	}
	if u.Shadow != nil {
		s.shadow = *u.Shadow
	}
	if u.Feather != nil {
		s.feather = *u.Feather
	}
	if u.ComparePosition != nil {
		s.comparePosition = *u.ComparePosition
	}
	s.touch()
	return nil
}
