package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxItems is the batch capacity
	MaxItems = 20
	// DefaultStagger separates consecutive downloads
	DefaultStagger = 300 * time.Millisecond
)

var (
	ErrBatchFull         = errors.New("batch is full")
	ErrAlreadyProcessing = errors.New("batch is already processing")
	ErrNotFound          = errors.New("batch item not found")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// File is one upload candidate
type File struct {
	Name string
	Data []byte
}

// Item is a batch entry. Values returned by Items and Item are copies; the
// handles stay owned by the session.
type Item struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Size      int           `json:"size"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Original  *photo.Handle `json:"-"`
	Processed *photo.Handle `json:"-"`
}

func (it *Item) release() {
	it.Original.Release()
	it.Processed.Release()
}

// Counts summarises item statuses
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// AddResult reports what Add did with each file
type AddResult struct {
	Added    []Item   `json:"added"`
	Skipped  []string `json:"skipped,omitempty"`
	Rejected []string `json:"rejected,omitempty"`
}

type Recorder interface {
	Record(r report.Record)
}

type Option func(*Session)

// WithWorkers lets ProcessAll run up to n removals at once
func WithWorkers(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session holds up to MaxItems images and removes their backgrounds
type Session struct {
	ID        string
	CreatedAt time.Time

	remover  removal.Remover
	recorder Recorder
	workers  int
	logger   *slog.Logger

	mu         sync.Mutex
	items      []*Item
	processing bool
}

func New(remover removal.Remover, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		remover:   remover,
		workers:   1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add decodes files into pending items. Non-images are skipped and files
// past capacity are rejected. ErrBatchFull is returned only when the batch
// had no room at all.
func (s *Session) Add(files []File) (*AddResult, error) {
	res := &AddResult{}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(files) > 0 && len(s.items) >= MaxItems {
		return res, ErrBatchFull
	}

	for _, f := range files {
		if len(s.items) >= MaxItems {
			res.Rejected = append(res.Rejected, f.Name)
			continue
		}
		h, err := photo.Decode(f.Data, f.Name, photo.KindOriginal)
		if err != nil {
			s.logger.Warn("Skipping non-image file", "batch", s.ID, "file", f.Name, "err", err)
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		it := &Item{
			ID:       uuid.NewString(),
			Name:     f.Name,
			Size:     len(f.Data),
			Status:   StatusPending,
			Original: h,
		}
		s.items = append(s.items, it)
		res.Added = append(res.Added, *it)
	}

	if len(res.Rejected) > 0 {
		s.logger.Warn("Batch capacity reached", "batch", s.ID, "rejected", len(res.Rejected))
	}
	return res, nil
}

// ProcessAll removes the background of every pending item. Items are handled
// in list order, one at a time unless WithWorkers allows more. A cancelled
// context stops new items from starting; they stay pending.
func (s *Session) ProcessAll(ctx context.Context) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrAlreadyProcessing
	}
	s.processing = true
	var pending []string
	for _, it := range s.items {
		if it.Status == StatusPending {
			pending = append(pending, it.ID)
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	s.logger.Info("Processing batch", "batch", s.ID, "items", len(pending), "workers", s.workers)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, id := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.process(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

func (s *Session) process(ctx context.Context, id string) {
	s.mu.Lock()
	it := s.find(id)
	if it == nil || !advance(it, StatusProcessing) {
		s.mu.Unlock()
		return
	}
	name, size := it.Name, it.Size
	data, err := it.Original.Encoded()
	s.mu.Unlock()

	start := time.Now()
	var processed *photo.Handle
	if err == nil {
		var result []byte
		result, err = s.remover.Remove(ctx, name, data)
		if err == nil {
			processed, err = photo.Decode(result, name, photo.KindDerived)
		}
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	it = s.find(id)
	if it == nil {
		processed.Release()
		s.logger.Debug("Dropping result for removed item", "batch", s.ID, "item", id)
		return
	}

	rec := report.Record{
		FileName:         name,
		SizeBytes:        int64(size),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}
	if err != nil {
		advance(it, StatusError)
		it.Error = removal.Message(err, removal.FallbackMessage)
		rec.Status, rec.Error = report.StatusFailed, it.Error
		s.logger.Error("Batch item failed", "batch", s.ID, "file", name, "err", err)
	} else {
		it.Processed = processed
		advance(it, StatusDone)
		w, h := processed.Bounds()
		rec.Width, rec.Height = int32(w), int32(h)
		s.logger.Info("Batch item done", "batch", s.ID, "file", name, "duration", elapsed)
	}
	if s.recorder != nil {
		s.recorder.Record(rec)
	}
}

// advance moves it forward along pending -> processing -> done|error and
// refuses anything else.
func advance(it *Item, to Status) bool {
	switch {
	case it.Status == StatusPending && to == StatusProcessing,
		it.Status == StatusProcessing && (to == StatusDone || to == StatusError):
		it.Status = to
		return true
	}
	return false
}

func (s *Session) find(id string) *Item {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Remove drops an item at any status and releases its images
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			it.release()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Clear removes every item
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		it.release()
	}
	s.items = nil
}

func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

func (s *Session) itemsLocked() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

func (s *Session) Item(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.find(id); it != nil {
		return *it, true
	}
	return Item{}, false
}

func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

func (s *Session) countsLocked() Counts {
	c := Counts{Total: len(s.items)}
	for _, it := range s.items {
		switch it.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusDone:
			c.Done++
		case StatusError:
			c.Error++
		}
	}
	return c
}

func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// State is a consistent view of a batch taken under one lock
type State struct {
	ID         string `json:"id"`
	Items      []Item `json:"items"`
	Counts     Counts `json:"counts"`
	Processing bool   `json:"processing"`
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:         s.ID,
		Items:      s.itemsLocked(),
		Counts:     s.countsLocked(),
		Processing: s.processing,
	}
}
