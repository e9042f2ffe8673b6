package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/retry"
	"github.com/janhq/reno-server/internal/utils/jsonextract"
)

// Source records which path produced a classification.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceModel   Source = "model"
	SourceDefault Source = "default"
)

// maxHistoryTurns bounds the history sent to the model fallback.
const maxHistoryTurns = 6

// Turn is the slice of history the classifier needs.
type Turn struct {
	Role    string
	Content string
}

// Result is a classification outcome.
type Result struct {
	Intent  Intent
	Source  Source
	Keyword string
}

// Classifier maps free text to an Intent. It never fails: every error on the
// model path collapses to Default.
type Classifier struct {
	client llm.Client
	rules  []Rule
	policy retry.Policy
	log    zerolog.Logger
}

// NewClassifier builds a classifier using DefaultRules and the classification retry policy.
func NewClassifier(client llm.Client, log zerolog.Logger) *Classifier {
	policy := retry.ClassificationPolicy()
	policy.RetryIf = func(err error) bool { return !errors.Is(err, context.Canceled) }
	return &Classifier{
		client: client,
		rules:  DefaultRules,
		policy: policy,
		log:    log.With().Str("component", "intent-classifier").Logger(),
	}
}

// WithPolicy overrides the retry policy used on the model path.
func (c *Classifier) WithPolicy(policy retry.Policy) *Classifier {
	c.policy = policy
	return c
}

// Classify runs the keyword fast path, then the model fallback.
func (c *Classifier) Classify(ctx context.Context, message string, history []Turn) Result {
	if in, kw, ok := MatchKeywords(c.rules, message); ok {
		return Result{Intent: in, Source: SourceKeyword, Keyword: kw}
	}

	if c.client == nil {
		return Result{Intent: Default, Source: SourceDefault}
	}

	prompt := buildPrompt(message, lastTurns(history, maxHistoryTurns))
	in, err := retry.ExecuteWithResult(ctx, c.policy, func(ctx context.Context, attempt int) (Intent, error) {
		raw, err := c.client.GenerateText(ctx, prompt, llm.Options{
			Temperature: llm.Float32(0),
			MaxTokens:   64,
			JSON:        true,
		})
		if err != nil {
			return "", err
		}
		return parseModelLabel(raw)
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("model intent classification failed, using default")
		return Result{Intent: Default, Source: SourceDefault}
	}
	return Result{Intent: in, Source: SourceModel}
}

func lastTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func buildPrompt(message string, history []Turn) string {
	var b strings.Builder
	b.WriteString("Classify the user's latest message for a home-renovation assistant.\n")
	b.WriteString("Choose exactly one label from this list:\n")
	for _, in := range All {
		b.WriteString("- ")
		b.WriteString(string(in))
		b.WriteString("\n")
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, llm.TruncateRunes(turn.Content, 400))
		}
	}
	fmt.Fprintf(&b, "\nLatest message: %s\n", message)
	b.WriteString("\nRespond with JSON only: {\"intent\": \"<label>\"}")
	return b.String()
}

func parseModelLabel(raw string) (Intent, error) {
	if decoded, err := jsonextract.Decode[struct {
		Intent string `json:"intent"`
	}](raw); err == nil && decoded.Intent != "" {
		if in, ok := Parse(decoded.Intent); ok {
			return in, nil
		}
		return "", fmt.Errorf("label %q is not in the vocabulary", decoded.Intent)
	}

	if in, ok := Parse(raw); ok {
		return in, nil
	}
	return "", fmt.Errorf("unparseable intent response %q", llm.TruncateRunes(raw, 80))
}
