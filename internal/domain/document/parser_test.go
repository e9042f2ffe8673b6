package document

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/llm/llmtest"
)

const quoteMarkdown = "```markdown\n# Contractor Quote\n\n" +
	"**Contractor**: Acme Remodeling\n" +
	"Valid until: 2026-12-01\n\n" +
	"| Item | Qty | Unit | Unit Price | Total |\n" +
	"|------|-----|------|-----------|-------|\n" +
	"| Interior paint | 3 | gal | $45.00 | $135.00 |\n" +
	"| Labor | 8 | hr | $65 | |\n" +
	"| Total | | | | $655.00 |\n\n" +
	"| Spec | Value |\n|---|---|\n| Finish | Eggshell |\n```"

func TestAnalyzeDocumentExtractsItemsAndSpecs(t *testing.T) {
	client := &llmtest.Client{
		AnalyzeImageFunc: func(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
			return quoteMarkdown, nil
		},
	}

	got, err := NewParser(client, zerolog.Nop()).Analyze(context.Background(), []byte("%PDF"), "application/pdf", "quote.pdf")
	require.NoError(t, err)

	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Interior paint", got.LineItems[0].Description)
	assert.Equal(t, "135", got.LineItems[0].Total.String())
	assert.Equal(t, "gal", got.LineItems[0].Unit)
	assert.Equal(t, "520", got.LineItems[1].Total.String(), "total derived from qty x price")
	assert.Equal(t, "2 line items totaling $655.00", got.Summary)

	assert.Equal(t, "Acme Remodeling", got.Specs["contractor"])
	assert.Equal(t, "2026-12-01", got.Specs["valid until"])
	assert.Equal(t, "Eggshell", got.Specs["finish"])
	assert.False(t, got.IsImage)
}

func TestAnalyzeImageUsesVisionSummary(t *testing.T) {
	client := &llmtest.Client{
		AnalyzeImageFunc: func(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
			return "A small   bathroom\nwith white subway tile.", nil
		},
	}

	got, err := NewParser(client, zerolog.Nop()).Analyze(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "bath.jpg")
	require.NoError(t, err)

	assert.True(t, got.IsImage)
	assert.Equal(t, "A small bathroom with white subway tile.", got.Summary)
}

func TestParsePassesTextThrough(t *testing.T) {
	client := &llmtest.Client{}
	out, err := NewParser(client, zerolog.Nop()).Parse(context.Background(), []byte("Model: X200"), "text/plain")

	require.NoError(t, err)
	assert.Equal(t, "Model: X200", out)
	assert.Zero(t, client.Calls())
}

func TestExtractLineItemsIgnoresUnpricedTables(t *testing.T) {
	md := "| Room | Notes |\n|---|---|\n| Kitchen | old cabinets |\n"
	assert.Empty(t, ExtractLineItems(md))
}
