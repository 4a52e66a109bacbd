package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// MaxDownloadSize caps a remote upload
const MaxDownloadSize = 25 << 20

var (
	ErrInvalidURL = errors.New("invalid image URL")
	ErrTooLarge   = errors.New("remote image too large")
)

// Fetcher retrieves source images from remote URLs
type Fetcher struct {
	HTTPClient *http.Client
	MaxSize    int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxSize: MaxDownloadSize,
	}
}

// Download is a fetched remote image
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

// Fetch downloads rawURL. Only http and https URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	slog.Info("Fetching remote image", "url", u.Redacted())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	limit := f.MaxSize
	if limit <= 0 {
		limit = MaxDownloadSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Download{
		Name:        NameFromURL(u),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// NameFromURL derives a file name from the last path segment
func NameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}
