package hosting

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
)

// Doer is the HTTP transport seam; tests inject a stub here.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type WordPressConfig struct {
	SiteURL     string
	Username    string
	AppPassword string
	Timeout     time.Duration
}

// WordPressMediaHost uploads images into a WordPress media library over the
// REST API using an application password.
type WordPressMediaHost struct {
	config WordPressConfig
	http   Doer
}

func NewWordPressMediaHost(config WordPressConfig) *WordPressMediaHost {
	config.SiteURL = strings.TrimRight(strings.TrimSpace(config.SiteURL), "/")

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &WordPressMediaHost{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

func (h *WordPressMediaHost) SetHTTPClient(client Doer) {
	if client == nil {
		h.http = &http.Client{Timeout: h.config.Timeout}

		return
	}

	h.http = client
}

type mediaResponse struct {
	SourceURL string `json:"source_url"`
	Message   string `json:"message"`
}

// Upload posts the image to /wp-json/wp/v2/media and returns its source URL.
func (h *WordPressMediaHost) Upload(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if h.config.SiteURL == "" || h.config.Username == "" || h.config.AppPassword == "" {
		return "", ErrNotConfigured
	}

	endpoint := h.config.SiteURL + "/wp-json/wp/v2/media"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create media upload request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(h.config.Username + ":" + h.config.AppPassword))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read media upload response: %w", err)
	}

	var media mediaResponse
	if err := json.Unmarshal(body, &media); err != nil {
		return "", fmt.Errorf("failed to decode media upload response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := strings.TrimSpace(media.Message)
		if message == "" {
			message = resp.Status
		}

		return "", fmt.Errorf("media endpoint returned an error: %s", message)
	}

	if media.SourceURL == "" {
		return "", fmt.Errorf("media endpoint returned no source URL")
	}

	return media.SourceURL, nil
}
