package share

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/arxaplan/cutout/internal/utils"
)

// DefaultTTL is how long a shared link stays valid
const DefaultTTL = 24 * time.Hour

var ErrEmpty = errors.New("nothing to share")

// Link is a shareable reference to an exported artifact
type Link struct {
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Inline    bool      `json:"inline"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Service uploads artifacts for sharing and falls back to inline data URLs
// when no store is configured or the upload fails.
type Service struct {
	store ObjectStore
	ttl   time.Duration
}

// NewService returns a Service. store may be nil.
func NewService(store ObjectStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl}
}

func (s *Service) Share(ctx context.Context, name string, data []byte, mimeType string) (*Link, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	if s.store != nil {
		key := path.Join("shares", utils.CalculateDataMD5(data), name)
		link, err := s.upload(ctx, key, data, mimeType)
		if err == nil {
			link.Name = name
			return link, nil
		}
		slog.Warn("Share upload failed, falling back to inline link", "name", name, "err", err)
	}

	return &Link{
		URL:    DataURL(mimeType, data),
		Name:   name,
		Inline: true,
	}, nil
}

func (s *Service) upload(ctx context.Context, key string, data []byte, mimeType string) (*Link, error) {
	if err := s.store.Put(ctx, key, data, mimeType); err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, key, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Link{URL: url, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
