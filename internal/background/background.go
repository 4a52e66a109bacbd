package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arxaplan/cutout/internal/gemini"
	"github.com/arxaplan/cutout/internal/openai"
	"github.com/arxaplan/cutout/internal/providers"
	"github.com/arxaplan/cutout/internal/utils"
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

const (
	// DefaultSize is the only size the editor requests
	DefaultSize = "1024x1024"

	promptTemplate = "Background scene only, no people or main objects in focus: %s. High quality, photorealistic, suitable as a background for product or portrait photography. Empty scene, no text, no watermarks."
)

// Sizes accepted by the proxy
var Sizes = []string{"1024x1024", "1792x1024", "1024x1792"}

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrInvalidSize    = errors.New("unsupported image size")
)

// Request is the proxy request body
type Request struct {
	Prompt string `json:"prompt" validate:"required"`
	Size   string `json:"size,omitempty" validate:"omitempty,oneof=1024x1024 1792x1024 1024x1792"`
}

// Response is the proxy response body. Error is set instead of Image on failure.
type Response struct {
	Image         string `json:"image,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WrapPrompt places the user prompt inside the fixed background-only instructions
func WrapPrompt(prompt string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(prompt))
}

// NewProvider returns the image provider registered under name
func NewProvider(name string) (providers.ImageProvider, error) {
	switch strings.ToLower(name) {
	case "", "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unknown background provider %q", name)
	}
}

// Service generates background images through a provider, optionally caching
// results by size and prompt.
type Service struct {
	provider providers.ImageProvider
	model    string

	cache  *cache.LoadableCache[*providers.Image]
	stored cache.CacheInterface[*providers.Image]
	ttl    time.Duration
}

// NewService creates a service. A ttl of zero disables caching.
func NewService(provider providers.ImageProvider, model string, ttl time.Duration) (*Service, error) {
	s := &Service{
		provider: provider,
		model:    model,
		ttl:      ttl,
	}
	if ttl <= 0 {
		return s, nil
	}

	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 28,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (*providers.Image, []store.Option, error) {
		k, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid key type provided to background cache: expected string, got %T", key)
		}
		size, prompt, _ := strings.Cut(k, "|")

		slog.Debug("Background cache miss", "size", size)
		img, err := s.generate(ctx, prompt, size)
		if err != nil {
			return nil, nil, err
		}
		return img, []store.Option{store.WithExpiration(ttl), store.WithCost(int64(len(img.Data)))}, nil
	}

	s.stored = cache.New[*providers.Image](ristrettoStore)
	s.cache = cache.NewLoadable[*providers.Image](loadFunction, s.stored)
	return s, nil
}

// NewServiceFromEnv wires the provider, model and cache ttl from the environment
func NewServiceFromEnv() (*Service, error) {
	provider, err := NewProvider(utils.GetEnv("BACKGROUND_PROVIDER", "openai"))
	if err != nil {
		return nil, err
	}
	ttl := utils.GetEnvDuration("BACKGROUND_CACHE_TTL", 0)
	return NewService(provider, utils.GetEnv("BACKGROUND_MODEL", ""), ttl)
}

func (s *Service) Provider() string {
	return s.provider.Name()
}

// Generate validates req and returns a generated background
func (s *Service) Generate(ctx context.Context, req Request) (*providers.Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrPromptRequired
	}
	size := req.Size
	if size == "" {
		size = DefaultSize
	}
	if !validSize(size) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}

	if s.cache == nil {
		return s.generate(ctx, req.Prompt, size)
	}
	return s.cache.Get(ctx, size+"|"+req.Prompt)
}

// GenerateBackground returns a square background and the provider's revised prompt
func (s *Service) GenerateBackground(ctx context.Context, prompt string) ([]byte, string, error) {
	img, err := s.Generate(ctx, Request{Prompt: prompt, Size: DefaultSize})
	if err != nil {
		return nil, "", err
	}
	return img.Data, img.RevisedPrompt, nil
}

func (s *Service) generate(ctx context.Context, prompt, size string) (*providers.Image, error) {
	start := time.Now()
	img, err := s.provider.GenerateImage(ctx, providers.Config{
		Model:   s.model,
		Prompt:  WrapPrompt(prompt),
		Size:    size,
		Quality: "standard",
	})
	if err != nil {
		slog.Error("Background generation failed", "provider", s.provider.Name(), "err", err)
		return nil, err
	}
	slog.Info("Generated background", "provider", s.provider.Name(), "size", size, "bytes", len(img.Data), "duration", time.Since(start))
	return img, nil
}

func validSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}
