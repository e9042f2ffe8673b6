// Package imagegen calls the external image generation service.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/janhq/reno-server/internal/domain/agent/design"
)

// Client implements design.ImageGenerator over an OpenAI-style images API.
type Client struct {
	httpClient *resty.Client
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type editRequest struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
	N        int    `json:"n"`
}

type imagesResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a Resty-backed client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		})
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{httpClient: c}
}

// Generate creates n images from prompt.
func (c *Client) Generate(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	return c.post(ctx, "/v1/images/generations", generateRequest{Prompt: prompt, N: n, Size: "1024x1024"})
}

// Transform restyles the image at imageURL.
func (c *Client) Transform(ctx context.Context, imageURL, prompt string) ([]string, error) {
	if imageURL == "" {
		return nil, errors.New("image url is required")
	}
	return c.post(ctx, "/v1/images/edits", editRequest{ImageURL: imageURL, Prompt: prompt, N: 1})
}

func (c *Client) post(ctx context.Context, path string, body any) ([]string, error) {
	var result imagesResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("image service request: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("image service error: %d %s", resp.StatusCode(), msg)
	}

	urls := make([]string, 0, len(result.Data))
	for _, d := range result.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(urls) == 0 {
		return nil, design.ErrNoImages
	}
	return urls, nil
}

var _ design.ImageGenerator = (*Client)(nil)
