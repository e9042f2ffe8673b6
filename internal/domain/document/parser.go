// Package document turns uploaded images and documents into text the chat
// pipeline can use.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/llm"
)

// Analysis is the parsed form of one upload.
type Analysis struct {
	Markdown  string            `json:"markdown,omitempty"`
	Summary   string            `json:"summary"`
	LineItems []LineItem        `json:"line_items,omitempty"`
	Specs     map[string]string `json:"specs,omitempty"`
	IsImage   bool              `json:"is_image"`
}

// Parser converts uploads with the vision model.
type Parser struct {
	client llm.Client
	log    zerolog.Logger
}

// NewParser builds a parser.
func NewParser(client llm.Client, log zerolog.Logger) *Parser {
	return &Parser{client: client, log: log.With().Str("component", "document-parser").Logger()}
}

const (
	imagePrompt = "You are looking at a photo uploaded to a home-renovation assistant. " +
		"Describe in one sentence the room, visible materials, fixtures and their condition."
	documentPrompt = "Convert this document to GitHub-flavored markdown. Keep every table as a markdown table " +
		"and keep specification lines as 'Key: Value'. Output only the markdown."
	summaryRunes = 200
)

// IsImage reports whether mimeType is an image type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// Analyze parses data according to its MIME type.
func (p *Parser) Analyze(ctx context.Context, data []byte, mimeType, filename string) (*Analysis, error) {
	if IsImage(mimeType) {
		desc, err := p.client.AnalyzeImage(ctx, data, mimeType, imagePrompt)
		if err != nil {
			return nil, fmt.Errorf("analyze image %s: %w", filename, err)
		}
		return &Analysis{Summary: oneLine(desc), IsImage: true}, nil
	}

	markdown, err := p.Parse(ctx, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", filename, err)
	}
	items := ExtractLineItems(markdown)
	return &Analysis{
		Markdown:  markdown,
		Summary:   summarize(markdown, items),
		LineItems: items,
		Specs:     ExtractSpecs(markdown),
	}, nil
}

// Parse returns the document as markdown. Text formats pass through.
func (p *Parser) Parse(ctx context.Context, data []byte, mimeType string) (string, error) {
	if strings.HasPrefix(mimeType, "text/") {
		return string(data), nil
	}
	out, err := p.client.AnalyzeImage(ctx, data, mimeType, documentPrompt)
	if err != nil {
		return "", err
	}
	return stripFence(out), nil
}

func summarize(markdown string, items []LineItem) string {
	if len(items) > 0 {
		return fmt.Sprintf("%d line items totaling $%s", len(items), SumLineItems(items).StringFixed(2))
	}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#>-* "))
		if line != "" && !strings.HasPrefix(line, "|") {
			return oneLine(line)
		}
	}
	return "document with no readable text"
}

func oneLine(s string) string {
	return llm.TruncateRunes(strings.Join(strings.Fields(s), " "), summaryRunes)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
