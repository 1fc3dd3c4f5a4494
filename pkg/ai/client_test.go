package ai

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	status   int
	body     string
	requests []*http.Request
	payloads [][]byte
	err      error
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)

	if req.Body != nil {
		payload, _ := io.ReadAll(req.Body)
		d.payloads = append(d.payloads, payload)
	}

	if d.err != nil {
		return nil, d.err
	}

	status := d.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(d.body)),
	}, nil
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
	})

	return string(body)
}

func newTestChatClient(doer *stubDoer) *ChatClient {
	client := NewChatClient(Config{
		BaseURL: "https://llm.test/v1",
		APIKey:  "test-key",
		Model:   "test-model",
	})
	client.SetHTTPClient(doer)

	return client
}

func TestChatClient_Complete(t *testing.T) {
	doer := &stubDoer{body: completionBody("  <p>hello</p>  ")}
	client := newTestChatClient(doer)

	resp, err := client.Complete(t.Context(), ChatRequest{
		SystemPrompt: "you are a writer",
		UserPrompt:   "write",
	})
	require.NoError(t, err)

	assert.Equal(t, "<p>hello</p>", resp.Content)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 34, resp.CompletionTokens)

	require.Len(t, doer.requests, 1)
	req := doer.requests[0]
	assert.Equal(t, "https://llm.test/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))

	var payload chatCompletionRequest
	require.NoError(t, json.Unmarshal(doer.payloads[0], &payload))
	assert.Equal(t, "test-model", payload.Model)
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, "system", payload.Messages[0].Role)
}

func TestChatClient_Complete_MissingAPIKey(t *testing.T) {
	client := NewChatClient(Config{Model: "test-model"})

	_, err := client.Complete(t.Context(), ChatRequest{UserPrompt: "write"})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestChatClient_Complete_ProviderError(t *testing.T) {
	doer := &stubDoer{
		status: http.StatusTooManyRequests,
		body:   `{"error":{"message":"rate limited"}}`,
	}
	client := newTestChatClient(doer)

	_, err := client.Complete(t.Context(), ChatRequest{UserPrompt: "write"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatClient_Complete_NoChoices(t *testing.T) {
	doer := &stubDoer{body: `{"choices":[]}`}
	client := newTestChatClient(doer)

	_, err := client.Complete(t.Context(), ChatRequest{UserPrompt: "write"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestImageClient_Generate(t *testing.T) {
	doer := &stubDoer{body: `{"data":[{"b64_json":"aGVsbG8="}]}`}
	client := NewImageClient(Config{
		BaseURL: "https://img.test/v1",
		APIKey:  "test-key",
		Model:   "test-image-model",
	}, "")
	client.SetHTTPClient(doer)

	b64, err := client.Generate(t.Context(), "a garden at dusk")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", b64)

	require.Len(t, doer.requests, 1)
	assert.Equal(t, "https://img.test/v1/images/generations", doer.requests[0].URL.String())
}

func TestImageClient_Generate_NoData(t *testing.T) {
	doer := &stubDoer{body: `{"data":[]}`}
	client := NewImageClient(Config{APIKey: "k", Model: "m"}, "")
	client.SetHTTPClient(doer)

	_, err := client.Generate(t.Context(), "anything")
	require.Error(t, err)
}
