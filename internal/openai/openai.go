package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arxaplan/cutout/internal/providers"
	"github.com/arxaplan/cutout/internal/utils"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "dall-e-3"
	// FallbackMessage is used when the API returns no error message
	FallbackMessage = "DALL-E generation failed"
)

// OpenAI is an image provider backed by the images/generations endpoint
type OpenAI struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a new OpenAI provider configured from the environment
func New() *OpenAI {
	return &OpenAI{
		BaseURL: utils.GetEnv("OPENAI_BASE_URL", DefaultBaseURL),
		APIKey:  utils.GetEnv("OPENAI_API_KEY", ""),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (o *OpenAI) Name() string {
	return "OpenAI"
}

// GenerateImage requests a single base64 encoded image
func (o *OpenAI) GenerateImage(ctx context.Context, config providers.Config) (*providers.Image, error) {
	if o.APIKey == "" {
		return nil, &providers.NotConfiguredError{Provider: o.Name()}
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	quality := config.Quality
	if quality == "" {
		quality = "standard"
	}

	requestBody, err := json.Marshal(map[string]any{
		"model":           model,
		"prompt":          config.Prompt,
		"n":               1,
		"size":            config.Size,
		"quality":         quality,
		"response_format": "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimSuffix(o.BaseURL, "/") + "/images/generations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeErr := json.Unmarshal(body, &response)

	if resp.StatusCode != http.StatusOK {
		message := FallbackMessage
		if decodeErr == nil && response.Error != nil && response.Error.Message != "" {
			message = response.Error.Message
		}
		return nil, &providers.Error{StatusCode: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", decodeErr)
	}

	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, &providers.Error{StatusCode: http.StatusBadGateway, Message: "no image returned from OpenAI"}
	}

	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	return &providers.Image{
		Data:          data,
		MIMEType:      http.DetectContentType(data),
		RevisedPrompt: response.Data[0].RevisedPrompt,
	}, nil
}
