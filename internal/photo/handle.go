package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds decoded images so a hostile header can't force a huge allocation
const MaxPixels = 64 * 1024 * 1024

var (
	// ErrNotImage is returned when the input is not a decodable image
	ErrNotImage = errors.New("not a supported image")
	// ErrTooLarge is returned when an image exceeds MaxPixels
	ErrTooLarge = errors.New("image too large")
	// ErrReleased is returned when a released handle is used
	ErrReleased = errors.New("image handle released")
)

// Kind distinguishes user uploads from pipeline output
type Kind int

const (
	KindOriginal Kind = iota
	KindDerived
)

func (k Kind) String() string {
	if k == KindOriginal {
		return "original"
	}
	return "derived"
}

// Handle is an opaque reference to decoded bitmap data. Handles are never
// mutated after creation; Release drops the storage.
type Handle struct {
	ID     string
	Kind   Kind
	Name   string
	Format string
	Size   int

	mu       sync.RWMutex
	buffer   *pixel.Buffer
	encoded  []byte
	released bool
}

// Decode validates and decodes data into a new handle.
func Decode(data []byte, name string, kind Kind) (*Handle, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty dimensions", ErrNotImage)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	return &Handle{
		ID:      uuid.NewString(),
		Kind:    kind,
		Name:    name,
		Format:  format,
		Size:    len(data),
		buffer:  pixel.FromImage(img),
		encoded: data,
	}, nil
}

// FromBuffer wraps a pipeline result in a derived handle. The handle takes
// ownership of buf; encoded may be nil.
func FromBuffer(buf *pixel.Buffer, name string, encoded []byte) *Handle {
	return &Handle{
		ID:      uuid.NewString(),
		Kind:    KindDerived,
		Name:    name,
		Format:  "png",
		Size:    len(encoded),
		buffer:  buf,
		encoded: encoded,
	}
}

// Buffer returns the decoded pixels. Callers must not modify them.
func (h *Handle) Buffer() (*pixel.Buffer, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, ErrReleased
	}
	return h.buffer, nil
}

// Encoded returns the bytes the handle was decoded from, or the lossless
// encoding of a derived result. A derived handle without stored bytes is
// encoded as PNG on demand.
func (h *Handle) Encoded() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	if h.encoded == nil {
		data, err := Encode(h.buffer, FormatPNG, 0)
		if err != nil {
			return nil, err
		}
		h.encoded = data
		h.Size = len(data)
	}
	return h.encoded, nil
}

// Bounds returns the decoded dimensions (0x0 once released)
func (h *Handle) Bounds() (int, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released || h.buffer == nil {
		return 0, 0
	}
	return h.buffer.Width, h.buffer.Height
}

// Clone returns a derived handle with its own copy of the pixels
func (h *Handle) Clone() (*Handle, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, ErrReleased
	}
	var encoded []byte
	if h.encoded != nil {
		encoded = append([]byte(nil), h.encoded...)
	}
	return &Handle{
		ID:      uuid.NewString(),
		Kind:    KindDerived,
		Name:    h.Name,
		Format:  h.Format,
		Size:    h.Size,
		buffer:  h.buffer.Clone(),
		encoded: encoded,
	}, nil
}

// Release drops the pixel and encoded storage. Safe to call more than once
// and on a nil handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = nil
	h.encoded = nil
	h.released = true
}

// Released reports whether Release has been called
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}
