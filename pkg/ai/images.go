package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ImageClient talks to an OpenAI-compatible image-generation endpoint and
// returns base64 payloads.
type ImageClient struct {
	config Config
	size   string
	http   Doer
}

func NewImageClient(config Config, size string) *ImageClient {
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}

	if config.Timeout <= 0 {
		config.Timeout = 180 * time.Second
	}

	if size == "" {
		size = "1024x1024"
	}

	return &ImageClient{
		config: config,
		size:   size,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

func (c *ImageClient) SetHTTPClient(client Doer) {
	if client == nil {
		c.http = &http.Client{Timeout: c.config.Timeout}

		return
	}

	c.http = client
}

// Generate produces one image for the prompt and returns its base64 data.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return "", ErrAPIKeyMissing
	}

	body, err := json.Marshal(imageGenerationRequest{
		Model:          c.config.Model,
		Prompt:         prompt,
		N:              1,
		Size:           c.size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode image request: %w", err)
	}

	endpoint := c.config.BaseURL + "/images/generations"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read image response: %w", err)
	}

	var generation imageGenerationResponse
	if err := json.Unmarshal(respBody, &generation); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := strings.TrimSpace(generation.Error.Message)
		if message == "" {
			message = resp.Status
		}

		return "", fmt.Errorf("image endpoint returned an error: %s", message)
	}

	if len(generation.Data) == 0 || generation.Data[0].B64JSON == "" {
		return "", fmt.Errorf("image endpoint returned no image data")
	}

	return generation.Data[0].B64JSON, nil
}
