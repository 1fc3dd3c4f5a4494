// Package hosting turns generated image bytes into publicly reachable URLs.
// The resolution chain tries the media host, then the object store, then
// falls back to data URIs or a placeholder-image service.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotConfigured marks a hosting tier that was not wired; the resolution
// chain skips it and falls through to the next tier.
var ErrNotConfigured = errors.New("hosting tier is not configured")

// MediaHost uploads an image to an external CMS media library.
type MediaHost interface {
	Upload(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// ObjectStore persists image bytes and returns a public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, mimeType string, data []byte) (string, error)
}

// PlaceholderURL builds a placeholder-image-service URL keyed by topic and
// positional index, so broken images still render something identifiable.
func PlaceholderURL(topic string, index int) string {
	label := strings.TrimSpace(topic)
	if label == "" {
		label = "blog image"
	}

	text := url.QueryEscape(fmt.Sprintf("%s %d", label, index+1))

	return fmt.Sprintf("https://placehold.co/1024x576?text=%s", text)
}
