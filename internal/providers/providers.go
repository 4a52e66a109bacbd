package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is matched by NotConfiguredError
var ErrNotConfigured = errors.New("provider not configured")

// Config represents one image generation request
type Config struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

// Image is a generated image as returned by a provider
type Image struct {
	Data          []byte
	MIMEType      string
	RevisedPrompt string
}

// ImageProvider defines the interface for a text-to-image provider
type ImageProvider interface {
	Name() string
	GenerateImage(ctx context.Context, config Config) (*Image, error)
}

// NotConfiguredError reports a provider without credentials
type NotConfiguredError struct {
	Provider string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s API key not configured on server", e.Provider)
}

func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Error is a failure returned by the upstream API
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}
