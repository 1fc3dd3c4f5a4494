// Package ai wraps OpenAI-compatible chat-completions and image-generation
// endpoints behind small domain-level services. Any provider exposing the
// /v1/chat/completions shape works.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrAPIKeyMissing means no credential was configured for the provider.
	ErrAPIKeyMissing = errors.New("ai api key is missing")

	// ErrEmptyCompletion means the provider answered without any choices.
	ErrEmptyCompletion = errors.New("ai provider returned no completion choices")
)

// Doer is the HTTP transport seam; tests inject a stub here.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatRequest is one completion call.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	JSONResponse bool
}

// ChatResponse carries the completion text and token accounting.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatClient talks to one OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	config Config
	http   Doer
}

func NewChatClient(config Config) *ChatClient {
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}

	if config.Timeout <= 0 {
		config.Timeout = 180 * time.Second
	}

	return &ChatClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// SetHTTPClient swaps the transport; nil restores the default client.
func (c *ChatClient) SetHTTPClient(client Doer) {
	if client == nil {
		c.http = &http.Client{Timeout: c.config.Timeout}

		return
	}

	c.http = client
}

// Complete performs one chat completion and returns the trimmed content.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return ChatResponse{}, ErrAPIKeyMissing
	}

	maxTokens := req.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}

	payload := chatCompletionRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	if req.JSONResponse {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to encode completion request: %w", err)
	}

	endpoint := c.config.BaseURL + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create completion request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to read completion response: %w", err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to decode completion response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := strings.TrimSpace(completion.Error.Message)
		if message == "" {
			message = resp.Status
		}

		return ChatResponse{}, fmt.Errorf("completion endpoint returned an error: %s", message)
	}

	if len(completion.Choices) == 0 {
		return ChatResponse{}, ErrEmptyCompletion
	}

	return ChatResponse{
		Content:          strings.TrimSpace(completion.Choices[0].Message.Content),
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// wrap JSON answers in despite instructions.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
