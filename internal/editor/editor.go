package editor

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arxaplan/cutout/internal/history"
	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/pixel"
	"github.com/arxaplan/cutout/internal/providers"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/render"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/arxaplan/cutout/internal/upscale"
	"github.com/google/uuid"
)

// History labels, in the order the editor pushes them
const (
	LabelBackgroundRemoved = "background removed"
	LabelUpscale           = "HD upscale"
	LabelAIBackground      = "AI background created"
)

const (
	UpscaleFallbackMessage    = "HD upscale failed"
	BackgroundFallbackMessage = "Failed to generate AI background"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrBusy         = errors.New("another operation is in progress")
	ErrStale        = errors.New("result discarded: superseded by a newer upload")
	ErrNotReady     = errors.New("no processed image")
	ErrAlreadyHD    = errors.New("image is already HD")
	ErrNoGenerator  = errors.New("AI background generation not configured")
	ErrClosed       = errors.New("session closed")
)

type Status string

const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Activity is the transient operation running inside StatusReady
type Activity string

const (
	ActivityNone                 Activity = ""
	ActivityUpscaling            Activity = "upscaling"
	ActivityGeneratingBackground Activity = "generatingBackground"
)

// Frame is the value kept per history entry. Each frame owns its handles.
type Frame struct {
	Foreground *photo.Handle
	Background *photo.Handle
	HD         bool
}

func (f Frame) release() {
	f.Foreground.Release()
	f.Background.Release()
}

// BackgroundGenerator turns a prompt into an encoded image and the
// provider's revised prompt.
type BackgroundGenerator interface {
	GenerateBackground(ctx context.Context, prompt string) ([]byte, string, error)
}

// Recorder receives one record per removal and upscale
type Recorder interface {
	Record(r report.Record)
}

// UpscaleFunc resamples processed to original's size and sharpens it
type UpscaleFunc func(ctx context.Context, original, processed *pixel.Buffer) (*upscale.Result, error)

type Option func(*Session)

func WithGenerator(g BackgroundGenerator) Option {
	return func(s *Session) { s.generator = g }
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithUpscaler(fn UpscaleFunc) Option {
	return func(s *Session) { s.upscaler = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is a single-user editing document. Mutations are serialised by mu;
// remote calls and pixel work run unlocked and are applied only when the
// generation captured at their start is still current.
type Session struct {
	ID        string
	CreatedAt time.Time

	remover   removal.Remover
	generator BackgroundGenerator
	recorder  Recorder
	upscaler  UpscaleFunc
	logger    *slog.Logger

	mu         sync.Mutex
	status     Status
	activity   Activity
	generation uint64
	closed     bool
	updatedAt  time.Time

	fileName string
	errMsg   string
	original *photo.Handle
	history  *history.Store[Frame]

	viewMode        ViewMode
	tool            Tool
	color           *color.NRGBA
	filters         render.Filters
	shadow          render.Shadow
	feather         float64
	comparePosition float64
	revisedPrompt   string
}

// New creates an empty session using remover for background removal
func New(remover removal.Remover, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		remover:   remover,
		upscaler:  upscale.Run,
		logger:    slog.Default(),
		status:    StatusEmpty,
		history:   history.New(Frame.release),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	s.updatedAt = s.CreatedAt
	return s
}

// resetLocked discards the document and every derived setting
func (s *Session) resetLocked() {
	s.original.Release()
	s.original = nil
	s.history.Reset()

	s.activity = ActivityNone
	s.fileName = ""
	s.errMsg = ""
	s.viewMode = ViewTransparent
	s.tool = ToolFeather
	s.color = nil
	s.filters = render.DefaultFilters()
	s.shadow = render.Shadow{}
	s.feather = 0
	s.comparePosition = 0.5
	s.revisedPrompt = ""
}

// Upload replaces the document with data and removes its background.
// Input that does not decode as an image is rejected before any state changes.
func (s *Session) Upload(ctx context.Context, name string, data []byte) error {
	original, err := photo.Decode(data, name, photo.KindOriginal)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		original.Release()
		return ErrClosed
	}
	s.generation++
	gen := s.generation
	s.resetLocked()
	s.original = original
	s.fileName = name
	s.status = StatusLoading
	s.touch()
	s.mu.Unlock()

	s.logger.Info("Removing background", "session", s.ID, "file", name, "bytes", len(data), "generation", gen)
	start := time.Now()

	var fg *photo.Handle
	result, err := s.remover.Remove(ctx, name, data)
	if err == nil {
		fg, err = photo.Decode(result, name, photo.KindDerived)
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		fg.Release()
		s.logger.Debug("Discarding stale removal result", "session", s.ID, "generation", gen)
		return ErrStale
	}

	w, h := original.Bounds()
	rec := report.Record{
		FileName:         name,
		SizeBytes:        int64(len(data)),
		Width:            int32(w),
		Height:           int32(h),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}

	if err != nil {
		s.status = StatusError
		s.errMsg = removal.Message(err, removal.FallbackMessage)
		s.touch()
		s.logger.Error("Background removal failed", "session", s.ID, "file", name, "err", err)
		rec.Status, rec.Error = report.StatusFailed, s.errMsg
		s.record(rec)
		return fmt.Errorf("remove background: %w", err)
	}

	s.history.Push(Frame{Foreground: fg}, LabelBackgroundRemoved)
	s.status = StatusReady
	s.viewMode = ViewCompare
	s.color = nil
	s.touch()
	s.record(rec)

	fw, fh := fg.Bounds()
	s.logger.Info("Background removed", "session", s.ID, "file", name, "width", fw, "height", fh, "duration", elapsed)
	return nil
}

// beginLocked checks the session can start a transient activity
func (s *Session) beginLocked(a Activity) (Frame, uint64, error) {
	if s.closed {
		return Frame{}, 0, ErrClosed
	}
	if s.activity != ActivityNone {
		return Frame{}, 0, ErrBusy
	}
	if s.status != StatusReady {
		return Frame{}, 0, ErrNotReady
	}
	cur, ok := s.history.Current()
	if !ok {
		return Frame{}, 0, ErrNotReady
	}
	if a == ActivityUpscaling && cur.Value.HD {
		return Frame{}, 0, ErrAlreadyHD
	}
	s.activity = a
	s.touch()
	return cur.Value, s.generation, nil
}

// Upscale resamples the current cutout to the original's resolution and
// sharpens it.
func (s *Session) Upscale(ctx context.Context) error {
	s.mu.Lock()
	frame, gen, err := s.beginLocked(ActivityUpscaling)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	originalBuf, err := s.original.Buffer()
	if err != nil {
		s.activity = ActivityNone
		s.mu.Unlock()
		return fmt.Errorf("upscale: %w", err)
	}
	fgBuf, err := frame.Foreground.Buffer()
	if err != nil {
		s.activity = ActivityNone
		s.mu.Unlock()
		return fmt.Errorf("upscale: %w", err)
	}
	name, size := s.fileName, s.original.Size
	s.mu.Unlock()

	start := time.Now()
	res, err := s.upscaler(ctx, originalBuf, fgBuf)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		s.logger.Debug("Discarding stale upscale result", "session", s.ID, "generation", gen)
		return ErrStale
	}
	s.activity = ActivityNone
	s.touch()

	if err != nil {
		s.errMsg = UpscaleFallbackMessage
		s.logger.Error("Upscale failed", "session", s.ID, "err", err)
		return fmt.Errorf("upscale: %w", err)
	}

	var bg *photo.Handle
	if frame.Background != nil {
		if bg, err = frame.Background.Clone(); err != nil {
			return fmt.Errorf("upscale: %w", err)
		}
	}

	s.history.Push(Frame{
		Foreground: photo.FromBuffer(res.Buffer, name, res.PNG),
		Background: bg,
		HD:         true,
	}, LabelUpscale)
	s.errMsg = ""
	s.viewMode = ViewTransparent
	s.color = nil

	s.record(report.Record{
		FileName:         name,
		SizeBytes:        int64(size),
		Width:            int32(res.Buffer.Width),
		Height:           int32(res.Buffer.Height),
		HD:               true,
		ProcessingTimeMS: elapsed.Milliseconds(),
	})
	s.logger.Info("Upscaled", "session", s.ID, "width", res.Buffer.Width, "height", res.Buffer.Height, "duration", elapsed)
	return nil
}

// GenerateBackground asks the generator for a background scene and pushes a
// frame that composes the current cutout over it.
func (s *Session) GenerateBackground(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if s.generator == nil {
		return ErrNoGenerator
	}

	s.mu.Lock()
	frame, gen, err := s.beginLocked(ActivityGeneratingBackground)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("Generating AI background", "session", s.ID, "prompt", prompt)

	var bg *photo.Handle
	data, revised, err := s.generator.GenerateBackground(ctx, prompt)
	if err == nil {
		bg, err = photo.Decode(data, "ai-background.png", photo.KindDerived)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		bg.Release()
		s.logger.Debug("Discarding stale background", "session", s.ID, "generation", gen)
		return ErrStale
	}
	s.activity = ActivityNone
	s.touch()

	if err != nil {
		s.errMsg = generatorMessage(err)
		s.logger.Error("AI background failed", "session", s.ID, "err", err)
		return fmt.Errorf("generate background: %w", err)
	}

	fg, err := frame.Foreground.Clone()
	if err != nil {
		bg.Release()
		return fmt.Errorf("generate background: %w", err)
	}

	s.history.Push(Frame{Foreground: fg, Background: bg, HD: frame.HD}, LabelAIBackground)
	s.errMsg = ""
	s.revisedPrompt = revised
	return nil
}

func generatorMessage(err error) string {
	var apiErr *providers.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, providers.ErrNotConfigured) {
		return err.Error()
	}
	return BackgroundFallbackMessage
}

// Undo moves back one history entry
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activity != ActivityNone {
		return ErrBusy
	}
	if _, err := s.history.Undo(); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Redo moves forward one history entry
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activity != ActivityNone {
		return ErrBusy
	}
	if _, err := s.history.Redo(); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Close releases every handle. Results still in flight are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.resetLocked()
	s.status = StatusEmpty
}

func (s *Session) record(r report.Record) {
	if s.recorder != nil {
		s.recorder.Record(r)
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
