package conversation

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

// SummaryGenerator condenses a run of messages.
type SummaryGenerator interface {
	Summarize(ctx context.Context, messages []*Message) (text string, topics []string, err error)
}

const maxKeyTopics = 8

// Summarizer produces summaries with two model calls: a narrative and a JSON
// array of topics. A topics failure never fails the summary.
type Summarizer struct {
	client llm.Client
	policy retry.Policy
	log    zerolog.Logger
}

// NewSummarizer builds a model-backed summarizer.
func NewSummarizer(client llm.Client, log zerolog.Logger) *Summarizer {
	policy := retry.ClassificationPolicy()
	policy.RetryIf = func(err error) bool { return !errors.Is(err, context.Canceled) }
	return &Summarizer{
		client: client,
		policy: policy,
		log:    log.With().Str("component", "summarizer").Logger(),
	}
}

// WithPolicy overrides the retry policy for the topics call.
func (s *Summarizer) WithPolicy(policy retry.Policy) *Summarizer {
	s.policy = policy
	return s
}

// Summarize implements SummaryGenerator.
func (s *Summarizer) Summarize(ctx context.Context, messages []*Message) (string, []string, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("no messages to summarize")
	}
	transcript := formatTranscript(messages)

	text, err := s.client.GenerateText(ctx, narrativePrompt(transcript), llm.Options{
		Temperature: llm.Float32(0.3),
		MaxTokens:   512,
	})
	if err != nil {
		return "", nil, fmt.Errorf("generate summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, llm.ErrEmptyResponse
	}

	topics, err := retry.ExecuteWithResult(ctx, s.policy, func(ctx context.Context, attempt int) ([]string, error) {
		raw, err := s.client.GenerateText(ctx, topicsPrompt(transcript), llm.Options{
			Temperature: llm.Float32(0),
			MaxTokens:   128,
			JSON:        true,
		})
		if err != nil {
			return nil, err
		}
		return jsonextract.DecodeArray[string](raw)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("key topic extraction failed, storing summary without topics")
		topics = []string{}
	}

	return text, cleanTopics(topics), nil
}

func formatTranscript(messages []*Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, llm.TruncateRunes(m.Content, 1200))
	}
	return b.String()
}

func narrativePrompt(transcript string) string {
	return "Summarize this home-renovation conversation in one short paragraph. " +
		"Keep decisions, measurements, budgets, rooms and products that were mentioned.\n\n" +
		transcript
}

func topicsPrompt(transcript string) string {
	return "List the key topics of this conversation as a JSON array of short strings, " +
		"for example [\"kitchen painting\", \"budget\"]. Respond with the array only.\n\n" +
		transcript
}

func cleanTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		key := strings.ToLower(topic)
		if topic == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, topic)
		if len(out) == maxKeyTopics {
			break
		}
	}
	return out
}
