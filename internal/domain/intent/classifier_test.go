package intent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/intent"
	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/llm/llmtest"
	"github.com/janhq/reno-server/internal/domain/retry"
)

func fastPolicy() retry.Policy {
	policy := retry.ClassificationPolicy()
	policy.InitialDelay = time.Millisecond
	policy.JitterFactor = 0
	return policy
}

func TestKeywordFastPath(t *testing.T) {
	client := &llmtest.Client{}
	classifier := intent.NewClassifier(client, zerolog.Nop())

	tests := []struct {
		message string
		want    intent.Intent
	}{
		{"How much would it cost to paint my 12x15 kitchen?", intent.CostEstimate},
		{"show me design ideas", intent.DesignIdea},
		{"Can you export this as a PDF?", intent.PDFRequest},
		{"How do I regrout a shower?", intent.DIYGuide},
		{"My faucet is leaking again", intent.Troubleshooting},
		{"Is it safe to remove this wall?", intent.SafetyCheck},
		{"Where do I start with a full renovation?", intent.RenovationWorkflow},
		{"thank you!", intent.GeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := classifier.Classify(context.Background(), tt.message, nil)
			assert.Equal(t, tt.want, got.Intent)
			assert.Equal(t, intent.SourceKeyword, got.Source)
		})
	}

	assert.Zero(t, client.Calls(), "keyword path must not call the model")
}

func TestFirstRuleWins(t *testing.T) {
	// "show me" (design idea) is listed before "cost".
	got := intent.NewClassifier(nil, zerolog.Nop()).Classify(context.Background(), "show me what the cost would be", nil)
	assert.Equal(t, intent.DesignIdea, got.Intent)
}

func TestModelFallback(t *testing.T) {
	var seenPrompt string
	client := &llmtest.Client{
		GenerateTextFunc: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			seenPrompt = prompt
			return "```json\n{\"intent\": \"product_search\"}\n```", nil
		},
	}
	classifier := intent.NewClassifier(client, zerolog.Nop()).WithPolicy(fastPolicy())

	history := make([]intent.Turn, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, intent.Turn{Role: "user", Content: "turn-" + string(rune('a'+i))})
	}

	got := classifier.Classify(context.Background(), "I need a new vanity", history)

	assert.Equal(t, intent.ProductRecommendation, got.Intent, "legacy label is mapped")
	assert.Equal(t, intent.SourceModel, got.Source)
	assert.NotContains(t, seenPrompt, "turn-d", "only the last six turns are sent")
	assert.Contains(t, seenPrompt, "turn-e")
	assert.Contains(t, seenPrompt, "turn-j")
}

func TestModelOutOfVocabularyDefaults(t *testing.T) {
	client := &llmtest.Client{
		GenerateTextFunc: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			return `{"intent": "world_domination"}`, nil
		},
	}
	classifier := intent.NewClassifier(client, zerolog.Nop()).WithPolicy(fastPolicy())

	got := classifier.Classify(context.Background(), "zzz", nil)

	assert.Equal(t, intent.Question, got.Intent)
	assert.Equal(t, intent.SourceDefault, got.Source)
	assert.Equal(t, 2, client.Calls(), "classification is retried once")
}

func TestModelErrorDefaults(t *testing.T) {
	client := &llmtest.Client{
		GenerateTextFunc: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	classifier := intent.NewClassifier(client, zerolog.Nop()).WithPolicy(fastPolicy())

	got := classifier.Classify(context.Background(), "zzz", nil)
	assert.Equal(t, intent.Question, got.Intent)
}

func TestParseAcceptsPlainLabels(t *testing.T) {
	in, ok := intent.Parse(" Cost-Estimate. ")
	require.True(t, ok)
	assert.Equal(t, intent.CostEstimate, in)

	in, ok = intent.FromLegacy("visual_exploration")
	require.True(t, ok)
	assert.Equal(t, intent.DesignIdea, in)

	_, ok = intent.Parse(strings.Repeat("x", 10))
	assert.False(t, ok)
}
