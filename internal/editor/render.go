package editor

import (
	"fmt"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/arxaplan/cutout/internal/render"
)

// view is what a render needs, captured under the lock
type view struct {
	original *pixel.Buffer
	fg       *pixel.Buffer
	params   render.Params
	mode     ViewMode
	position float64
	hd       bool
	fileName string
}

func (s *Session) viewLocked() (*view, error) {
	if s.closed {
		return nil, ErrClosed
	}
	cur, ok := s.history.Current()
	if !ok {
		return nil, ErrNotReady
	}

	fg, err := cur.Value.Foreground.Buffer()
	if err != nil {
		return nil, err
	}
	original, err := s.original.Buffer()
	if err != nil {
		return nil, err
	}

	params := render.DefaultParams()
	params.Filters = s.filters
	params.Shadow = s.shadow
	params.Feather = s.feather
	params.Background.Color = s.color
	if cur.Value.Background != nil {
		if params.Background.Image, err = cur.Value.Background.Buffer(); err != nil {
			return nil, err
		}
	}

	return &view{
		original: original,
		fg:       fg,
		params:   params,
		mode:     s.viewMode,
		position: s.comparePosition,
		hd:       cur.Value.HD,
		fileName: s.fileName,
	}, nil
}

// Preview renders what the editor shows: a before/after split in compare
// mode, otherwise the composite over a checkerboard or the chosen background.
func (s *Session) Preview() (*pixel.Buffer, error) {
	s.mu.Lock()
	v, err := s.viewLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	composed, err := render.Compose(v.fg, v.params, render.ModePreview)
	if err != nil {
		return nil, err
	}
	if v.mode != ViewCompare {
		return composed, nil
	}
	return render.Compare(v.original, composed, v.position)
}

// PreviewPNG is Preview encoded as PNG
func (s *Session) PreviewPNG() ([]byte, error) {
	buf, err := s.Preview()
	if err != nil {
		return nil, err
	}
	return photo.Encode(buf, photo.FormatPNG, 0)
}

// ExportOptions select the encoding and output size. Zero Width or Height
// keeps the cutout's size.
type ExportOptions struct {
	Format  photo.Format
	Quality int
	Width   int
	Height  int
}

// Export composes the current entry without preview aids and encodes it.
// The returned name follows the <prefix>_[HD_]<name>.<ext> convention.
func (s *Session) Export(opts ExportOptions) (*render.Artifact, string, error) {
	if opts.Format == "" {
		opts.Format = photo.FormatPNG
	}
	if opts.Quality == 0 {
		opts.Quality = photo.DefaultQuality
	}
	if err := photo.ValidateQuality(opts.Format, opts.Quality); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, "", fmt.Errorf("%w: negative output size", ErrInvalidInput)
	}

	s.mu.Lock()
	v, err := s.viewLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, "", err
	}

	p := v.params
	p.Format = opts.Format
	p.Quality = opts.Quality
	p.Width = opts.Width
	p.Height = opts.Height

	artifact, err := render.Export(v.fg, p)
	if err != nil {
		return nil, "", err
	}
	return artifact, photo.ExportName(photo.DefaultPrefix, v.hd, v.fileName, opts.Format), nil
}
