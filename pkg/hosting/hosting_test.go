package hosting

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	status   int
	body     string
	requests []*http.Request
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)

	status := d.status
	if status == 0 {
		status = http.StatusCreated
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(d.body)),
	}, nil
}

func TestWordPressMediaHost_Upload(t *testing.T) {
	doer := &stubDoer{body: `{"source_url":"https://blog.test/wp-content/uploads/hero.png"}`}
	host := NewWordPressMediaHost(WordPressConfig{
		SiteURL:     "https://blog.test/",
		Username:    "editor",
		AppPassword: "secret",
	})
	host.SetHTTPClient(doer)

	url, err := host.Upload(t.Context(), "hero.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://blog.test/wp-content/uploads/hero.png", url)

	require.Len(t, doer.requests, 1)
	req := doer.requests[0]
	assert.Equal(t, "https://blog.test/wp-json/wp/v2/media", req.URL.String())
	assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
	assert.Contains(t, req.Header.Get("Content-Disposition"), "hero.png")
	assert.Contains(t, req.Header.Get("Authorization"), "Basic ")
}

func TestWordPressMediaHost_Upload_NotConfigured(t *testing.T) {
	host := NewWordPressMediaHost(WordPressConfig{})

	_, err := host.Upload(t.Context(), "hero.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWordPressMediaHost_Upload_Error(t *testing.T) {
	doer := &stubDoer{status: http.StatusUnauthorized, body: `{"message":"bad credentials"}`}
	host := NewWordPressMediaHost(WordPressConfig{
		SiteURL:     "https://blog.test",
		Username:    "editor",
		AppPassword: "wrong",
	})
	host.SetHTTPClient(doer)

	_, err := host.Upload(t.Context(), "hero.png", "image/png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestFileObjectStore_Put(t *testing.T) {
	root := t.TempDir()

	store, err := NewFileObjectStore(root, "https://cdn.test/images/")
	require.NoError(t, err)

	url, err := store.Put(t.Context(), "post-1-image-0.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/images/post-1-image-0.png", url)

	written, err := os.ReadFile(filepath.Join(root, "post-1-image-0.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), written)
}

func TestFileObjectStore_Put_StripsPath(t *testing.T) {
	store, err := NewFileObjectStore(t.TempDir(), "https://cdn.test")
	require.NoError(t, err)

	url, err := store.Put(t.Context(), "../../etc/image.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/image.png", url)
}

func TestPlaceholderURL(t *testing.T) {
	url := PlaceholderURL("Landscape Lighting", 0)
	assert.Equal(t, "https://placehold.co/1024x576?text=Landscape+Lighting+1", url)

	assert.Contains(t, PlaceholderURL("", 2), "blog+image+3")
}
