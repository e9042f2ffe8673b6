package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/retry"
	"github.com/janhq/reno-server/internal/utils/jsonextract"
)

// ScopeAnalyzer runs the structured scope call each agent makes before its
// deterministic computation.
type ScopeAnalyzer struct {
	client llm.Client
	policy retry.Policy
	log    zerolog.Logger
}

// NewScopeAnalyzer builds an analyzer. A nil client always yields the
// fallback scope.
func NewScopeAnalyzer(client llm.Client, log zerolog.Logger) *ScopeAnalyzer {
	policy := retry.ClassificationPolicy()
	policy.RetryIf = func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return &ScopeAnalyzer{
		client: client,
		policy: policy,
		log:    log.With().Str("component", "scope-analyzer").Logger(),
	}
}

// WithPolicy overrides the retry policy.
func (a *ScopeAnalyzer) WithPolicy(policy retry.Policy) *ScopeAnalyzer {
	a.policy = policy
	return a
}

var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	ExpandedStruct:            true,
	AllowAdditionalProperties: true,
}

// SchemaFor renders the JSON schema of T.
func SchemaFor[T any]() string {
	var zero T
	schema := reflector.Reflect(&zero)
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// AnalyzeScope asks the model to describe the request as T, constrained to
// T's JSON schema. The call is retried under the analyzer's policy. When no
// attempt yields a parseable object, fallback is returned with ok=false.
func AnalyzeScope[T any](ctx context.Context, a *ScopeAnalyzer, task, input string, fallback T) (T, bool) {
	if a == nil || a.client == nil {
		return fallback, false
	}

	prompt := scopePrompt(task, input, SchemaFor[T]())
	scope, err := retry.ExecuteWithResult(ctx, a.policy, func(ctx context.Context, attempt int) (T, error) {
		raw, err := a.client.GenerateText(ctx, prompt, llm.Options{
			Temperature: llm.Float32(0),
			MaxTokens:   1024,
			JSON:        true,
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return jsonextract.Decode[T](raw)
	})
	if err != nil {
		var parseErr *jsonextract.ParseError
		event := a.log.Warn().Err(err).Str("task", task)
		if errors.As(err, &parseErr) {
			event = event.Str("reason", parseErr.Reason)
		}
		event.Msg("scope analysis failed, using default scope")
		return fallback, false
	}
	return scope, true
}

func scopePrompt(task, input, schema string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You analyze home renovation requests. Task: %s.\n", task)
	b.WriteString("Respond with a single JSON object that validates against this JSON schema. No prose.\n")
	b.WriteString(schema)
	b.WriteString("\n\nRequest:\n")
	b.WriteString(strings.TrimSpace(input))
	return b.String()
}
