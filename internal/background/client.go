package background

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arxaplan/cutout/internal/providers"
)

// Client speaks the generate-bg proxy contract
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint: endpoint,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// GenerateBackground posts prompt to the proxy and returns the decoded image
func (c *Client) GenerateBackground(ctx context.Context, prompt string) ([]byte, string, error) {
	body, err := json.Marshal(Request{Prompt: prompt, Size: DefaultSize})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("AI generation failed (%d)", resp.StatusCode)
		if decodeErr == nil && out.Error != "" {
			message = out.Error
		}
		return nil, "", &providers.Error{StatusCode: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return nil, "", fmt.Errorf("failed to decode response body: %w", decodeErr)
	}

	data, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image data: %w", err)
	}
	return data, out.RevisedPrompt, nil
}
