// Package llm defines the generative model contract used by the chat pipeline.
package llm

import (
	"context"
	"errors"
	"iter"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Options tune a single generation call.
type Options struct {
	Temperature       *float32
	MaxTokens         int32
	SystemInstruction string
	// JSON asks the provider for a JSON-only response when it supports it.
	JSON bool
}

// Client is the black-box generative model.
type Client interface {
	// GenerateText returns the full completion for prompt.
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
	// GenerateTextStream yields completion chunks as they arrive. Iteration
	// stops at the first error or when ctx is cancelled.
	GenerateTextStream(ctx context.Context, prompt string, opts Options) iter.Seq2[string, error]
	// AnalyzeImage runs a vision prompt over an image or document.
	AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
	// Model reports the model identifier recorded in turn metadata.
	Model() string
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Float32 returns a pointer to v, for Options.Temperature.
func Float32(v float32) *float32 {
	return &v
}
