// Package design implements the design idea and design transformation agent.
package design

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
)

// Modes.
const (
	ModeIdea           = "idea"
	ModeTransformation = "transformation"
)

const defaultImageCount = 2

// ErrNoImages is returned when the image service answers without images.
var ErrNoImages = errors.New("image service returned no images")

// ImageGenerator is the external image generation service.
type ImageGenerator interface {
	// Generate creates n images from a text prompt and returns their URLs.
	Generate(ctx context.Context, prompt string, n int) ([]string, error)
	// Transform restyles the image at imageURL and returns the new URLs.
	Transform(ctx context.Context, imageURL, prompt string) ([]string, error)
}

// Scope is the model's reading of the design request.
type Scope struct {
	Style    string   `json:"style,omitempty" jsonschema:"description=Design style such as modern farmhouse"`
	Room     string   `json:"room,omitempty"`
	Palette  []string `json:"palette"`
	Elements []string `json:"elements" jsonschema:"description=Key furniture or finishes to show"`
}

// Design is the agent's output. Images is never empty on success.
type Design struct {
	Mode     string   `json:"mode"`
	Prompt   string   `json:"prompt"`
	Style    string   `json:"style,omitempty"`
	Palette  []string `json:"palette,omitempty"`
	Images   []string `json:"images"`
	Source   string   `json:"source_image,omitempty"`
	Elements []string `json:"elements,omitempty"`
}

type request struct {
	Prompt   string `json:"prompt" validate:"required"`
	Mode     string `json:"mode" validate:"omitempty,oneof=idea transformation"`
	ImageURL string `json:"image_url"`
	Count    int    `json:"count" validate:"omitempty,min=1,max=4"`
}

// Designer is the design agent.
type Designer struct {
	images ImageGenerator
	scopes *agent.ScopeAnalyzer
	log    zerolog.Logger
}

// NewDesigner builds the agent.
func NewDesigner(images ImageGenerator, scopes *agent.ScopeAnalyzer, log zerolog.Logger) *Designer {
	return &Designer{images: images, scopes: scopes, log: log.With().Str("component", "design-agent").Logger()}
}

func (d *Designer) Name() string { return agent.NameDesign }

// Process generates design images. A transformation needs a source image.
func (d *Designer) Process(ctx context.Context, req agent.Request) agent.Result {
	var in request
	missing, err := agent.Bind(req, &in)
	if err != nil {
		return agent.Failure(d.Name(), err)
	}
	if in.Mode == "" {
		in.Mode = ModeIdea
	}
	if in.Mode == ModeTransformation && in.ImageURL == "" {
		missing = append(missing, "image_url")
	}
	if len(missing) > 0 {
		return agent.NeedsInput(d.Name(), missing,
			"Describe the look you want, for example: a warm modern kitchen with walnut cabinets.",
			"Upload a photo of the room if you want it restyled.")
	}
	if d.images == nil {
		return agent.Failure(d.Name(), errors.New("image generation is not configured"))
	}
	if in.Count == 0 {
		in.Count = defaultImageCount
	}

	scope, _ := agent.AnalyzeScope(ctx, d.scopes, "describe a room design", in.Prompt,
		Scope{Palette: []string{}, Elements: []string{}})
	prompt := BuildPrompt(in.Prompt, scope)

	var urls []string
	if in.Mode == ModeTransformation {
		urls, err = d.images.Transform(ctx, in.ImageURL, prompt)
	} else {
		urls, err = d.images.Generate(ctx, prompt, in.Count)
	}
	if err == nil && len(urls) == 0 {
		err = ErrNoImages
	}
	if err != nil {
		d.log.Warn().Err(err).Str("mode", in.Mode).Msg("image generation failed")
		return agent.Failure(d.Name(), fmt.Errorf("generate %s images: %w", in.Mode, err))
	}

	return agent.Success(d.Name(), conversation.AgentResultDesign, Design{
		Mode:     in.Mode,
		Prompt:   prompt,
		Style:    scope.Style,
		Palette:  scope.Palette,
		Images:   urls,
		Source:   in.ImageURL,
		Elements: scope.Elements,
	})
}

// BuildPrompt appends the analyzed style details to the user's prompt.
func BuildPrompt(userPrompt string, scope Scope) string {
	parts := []string{strings.TrimRight(strings.TrimSpace(userPrompt), ". ")}
	if scope.Style != "" {
		parts = append(parts, "Style: "+scope.Style)
	}
	if scope.Room != "" {
		parts = append(parts, "Room: "+scope.Room)
	}
	if len(scope.Palette) > 0 {
		parts = append(parts, "Palette: "+strings.Join(scope.Palette, ", "))
	}
	if len(scope.Elements) > 0 {
		parts = append(parts, "Include: "+strings.Join(scope.Elements, ", "))
	}
	parts = append(parts, "Photorealistic interior photo with natural light")
	return strings.Join(parts, ". ") + "."
}
