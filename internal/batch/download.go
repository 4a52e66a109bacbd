package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/arxaplan/cutout/internal/photo"
)

// Download is one finished item ready to save
type Download struct {
	ItemID string        `json:"item_id"`
	Name   string        `json:"name"`
	Delay  time.Duration `json:"-"`
	Data   []byte        `json:"-"`
}

// DownloadName is the file name a processed item is saved under
func DownloadName(original string) string {
	return photo.ExportName(photo.DefaultPrefix, false, original, photo.FormatPNG)
}

// Downloads lists every done item in order, with the delay each should wait
// after the previous one.
func (s *Session) Downloads(stagger time.Duration) ([]Download, error) {
	if stagger == 0 {
		stagger = DefaultStagger
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Download
	for _, it := range s.items {
		if it.Status != StatusDone {
			continue
		}
		data, err := it.Processed.Encoded()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", it.Name, err)
		}
		d := Download{ItemID: it.ID, Name: DownloadName(it.Name), Data: data}
		if len(out) > 0 {
			d.Delay = stagger
		}
		out = append(out, d)
	}
	return out, nil
}

// DownloadAll calls fn once per done item in list order, waiting stagger
// between calls. Zero stagger means DefaultStagger.
func (s *Session) DownloadAll(ctx context.Context, stagger time.Duration, fn func(name string, data []byte) error) error {
	downloads, err := s.Downloads(stagger)
	if err != nil {
		return err
	}

	for _, d := range downloads {
		if d.Delay > 0 {
			timer := time.NewTimer(d.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := fn(d.Name, d.Data); err != nil {
			return fmt.Errorf("download %s: %w", d.Name, err)
		}
	}
	return nil
}
