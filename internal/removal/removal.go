package removal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/arxaplan/cutout/internal/utils"
)

const (
	// DefaultEndpoint is the remove.bg v1 API
	DefaultEndpoint = "https://api.remove.bg/v1.0/removebg"
	// FallbackMessage is shown when the service gives no usable error title
	FallbackMessage = "Failed to remove background"

	maxResponseBytes = 50 * 1024 * 1024
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("REMOVEBG_API_KEY environment variable not set")

// Remover strips the background from an encoded image and returns the encoded cutout.
type Remover interface {
	Remove(ctx context.Context, fileName string, data []byte) ([]byte, error)
}

// ServiceError is a failure reported by the removal service. Title is the
// user-facing message.
type ServiceError struct {
	StatusCode int
	Title      string
}

func (e *ServiceError) Error() string {
	return e.Title
}

// Client calls the remove.bg HTTP API
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient reads REMOVEBG_API_KEY and REMOVEBG_ENDPOINT
func NewClient() *Client {
	return &Client{
		Endpoint: utils.GetEnv("REMOVEBG_ENDPOINT", DefaultEndpoint),
		APIKey:   utils.GetEnv("REMOVEBG_API_KEY", ""),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Remove uploads data as image_file with automatic size and format.
func (c *Client) Remove(ctx context.Context, fileName string, data []byte) ([]byte, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image_file", filepath.Base(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	for field, value := range map[string]string{"size": "auto", "format": "auto"} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Api-Key", c.APIKey)

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Background removal failed", "file", fileName, "status", resp.StatusCode)
		return nil, &ServiceError{StatusCode: resp.StatusCode, Title: errorTitle(payload)}
	}

	slog.Info("Background removed", "file", fileName, "bytes", len(payload), "duration", time.Since(start))
	return payload, nil
}

func (c *Client) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// errorTitle extracts errors[0].title from a structured error body
func errorTitle(payload []byte) string {
	var body struct {
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return FallbackMessage
	}
	if len(body.Errors) == 0 || body.Errors[0].Title == "" {
		return FallbackMessage
	}
	return body.Errors[0].Title
}

// Message returns the user-facing text for err: the service title when
// present, otherwise fallback.
func Message(err error, fallback string) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Title != "" {
		return svcErr.Title
	}
	return fallback
}
