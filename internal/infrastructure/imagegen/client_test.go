package imagegen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/agent/design"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"url":"https://img/1.png"},{"url":""},{"url":"https://img/2.png"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	urls, err := c.Generate(context.Background(), "scandinavian kitchen", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, urls)
	assert.Equal(t, "scandinavian kitchen", body["prompt"])
	assert.EqualValues(t, 2, body["n"])
}

func TestTransform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"url":"https://img/after.png"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	urls, err := c.Transform(context.Background(), "https://img/before.png", "make it modern")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/after.png"}, urls)

	_, err = c.Transform(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestNoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), "x", 1)
	assert.ErrorIs(t, err, design.ErrNoImages)
}

func TestServerErrorRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"message":"model overloaded"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	assert.EqualValues(t, 2, calls.Load())
}
