package hosting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileObjectStore writes image bytes under a local directory that is served
// at a public base URL, the simplest self-hosted storage tier.
type FileObjectStore struct {
	root          string
	publicBaseURL string
}

func NewFileObjectStore(root, publicBaseURL string) (*FileObjectStore, error) {
	if root == "" {
		return nil, ErrNotConfigured
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object store root: %w", err)
	}

	return &FileObjectStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Put stores the bytes under the key and returns the public URL.
func (s *FileObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	key = filepath.Base(key) // no traversal

	path := filepath.Join(s.root, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	if s.publicBaseURL == "" {
		return "file://" + path, nil
	}

	return s.publicBaseURL + "/" + key, nil
}
