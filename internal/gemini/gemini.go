package gemini

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arxaplan/cutout/internal/providers"
	"github.com/arxaplan/cutout/internal/utils"
	"google.golang.org/genai"
)

// DefaultModel is the Imagen model used when none is configured
const DefaultModel = "imagen-3.0-generate-002"

// Gemini is an image provider for Imagen through the Gemini API
type Gemini struct {
	APIKey string
}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{APIKey: utils.GetEnv("GEMINI_API_KEY", "")}
}

func (g *Gemini) Name() string {
	return "Gemini"
}

// GenerateImage generates one image with the configured Imagen model
func (g *Gemini) GenerateImage(ctx context.Context, config providers.Config) (*providers.Image, error) {
	if g.APIKey == "" {
		return nil, &providers.NotConfiguredError{Provider: g.Name()}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	resp, err := client.Models.GenerateImages(ctx, model, config.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    AspectRatio(config.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	if len(resp.GeneratedImages) == 0 {
		return nil, &providers.Error{StatusCode: http.StatusBadGateway, Message: "no images returned from Gemini"}
	}

	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		message := "image generation was filtered"
		if generated.RAIFilteredReason != "" {
			message = generated.RAIFilteredReason
		}
		return nil, &providers.Error{StatusCode: http.StatusUnprocessableEntity, Message: message}
	}

	mimeType := generated.Image.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(generated.Image.ImageBytes)
	}

	return &providers.Image{
		Data:          generated.Image.ImageBytes,
		MIMEType:      mimeType,
		RevisedPrompt: generated.EnhancedPrompt,
	}, nil
}

// AspectRatio maps a WxH size onto the closest Imagen aspect ratio
func AspectRatio(size string) string {
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return "1:1"
	}

	ratio := float64(w) / float64(h)
	switch {
	case ratio >= 1.6:
		return "16:9"
	case ratio >= 1.2:
		return "4:3"
	case ratio <= 1/1.6:
		return "9:16"
	case ratio <= 1/1.2:
		return "3:4"
	default:
		return "1:1"
	}
}
