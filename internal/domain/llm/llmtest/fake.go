// Package llmtest provides a configurable llm.Client for tests.
package llmtest

import (
	"context"
	"iter"
	"sync"

	"github.com/janhq/reno-server/internal/domain/llm"
)

// Client is a fake llm.Client. Unset funcs return llm.ErrEmptyResponse.
type Client struct {
	GenerateTextFunc       func(ctx context.Context, prompt string, opts llm.Options) (string, error)
	GenerateTextStreamFunc func(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[string, error]
	AnalyzeImageFunc       func(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
	ModelName              string

	mu      sync.Mutex
	prompts []string
}

func (c *Client) GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	c.record(prompt)
	if c.GenerateTextFunc != nil {
		return c.GenerateTextFunc(ctx, prompt, opts)
	}
	return "", llm.ErrEmptyResponse
}

func (c *Client) GenerateTextStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[string, error] {
	c.record(prompt)
	if c.GenerateTextStreamFunc != nil {
		return c.GenerateTextStreamFunc(ctx, prompt, opts)
	}
	return func(yield func(string, error) bool) {
		yield("", llm.ErrEmptyResponse)
	}
}

func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	c.record(prompt)
	if c.AnalyzeImageFunc != nil {
		return c.AnalyzeImageFunc(ctx, data, mimeType, prompt)
	}
	return "", llm.ErrEmptyResponse
}

func (c *Client) Model() string {
	if c.ModelName == "" {
		return "fake-model"
	}
	return c.ModelName
}

// Prompts returns every prompt received so far, in call order.
func (c *Client) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Calls returns the number of calls received so far.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func (c *Client) record(prompt string) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
}

// Chunks returns a stream that yields each chunk in order.
func Chunks(chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

var _ llm.Client = (*Client)(nil)
