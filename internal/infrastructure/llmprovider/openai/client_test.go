package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestGenerateText(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Paint costs about $540."},"finish_reason":"stop"}]}`)
	})

	text, err := c.GenerateText(context.Background(), "how much?", llm.Options{SystemInstruction: "be brief", JSON: true, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Paint costs about $540.", text)

	assert.Equal(t, "test-model", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
}

func TestGenerateTextEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	_, err := c.GenerateText(context.Background(), "hi", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestGenerateTextStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hello", "", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	var chunks []string
	for chunk, err := range c.GenerateTextStream(context.Background(), "hi", llm.Options{}) {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, []string{"Hello", " there"}, chunks)
}

func TestGenerateTextStreamServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	var errs int
	for _, err := range c.GenerateTextStream(context.Background(), "hi", llm.Options{}) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestAnalyzeImageSendsDataURL(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"a kitchen"}}]}`)
	})

	text, err := c.AnalyzeImage(context.Background(), []byte("png-bytes"), "image/png", "describe")
	require.NoError(t, err)
	assert.Equal(t, "a kitchen", text)
	assert.True(t, strings.Contains(body, "data:image/png;base64,"))

	_, err = c.AnalyzeImage(context.Background(), nil, "image/png", "describe")
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`)
	})
	vec, err := c.Embed(context.Background(), "oak floor")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
