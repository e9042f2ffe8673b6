// Package generation produces the assistant's reply, either in one call or
// as a token stream.
package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/retry"
)

// FallbackResponse is returned when the model cannot produce a reply.
const FallbackResponse = "I'm sorry, I ran into a problem putting together a response just now. " +
	"Please try asking again in a moment."

// ErrStopped is returned by an emit callback to stop streaming, for example
// when the client has gone away.
var ErrStopped = errors.New("stream stopped by consumer")

// Options tune generation calls.
type Options struct {
	Temperature float32
	MaxTokens   int32
}

// Output is a finished reply.
type Output struct {
	Text string
	// Degraded is set when the fallback text was used or a stream failed
	// part way.
	Degraded bool
	// Partial is set when the stream ended early and Text holds only what
	// was produced before that.
	Partial bool
	Err     error
}

// Generator turns an Input into reply text.
type Generator struct {
	client llm.Client
	opts   Options
	policy retry.Policy
	log    zerolog.Logger
}

// NewGenerator builds a generator. User-facing generation is never retried.
func NewGenerator(client llm.Client, opts Options, log zerolog.Logger) *Generator {
	return &Generator{
		client: client,
		opts:   opts,
		policy: retry.NoRetryPolicy(),
		log:    log.With().Str("component", "response-generator").Logger(),
	}
}

// Model reports the underlying model name.
func (g *Generator) Model() string {
	if g.client == nil {
		return ""
	}
	return g.client.Model()
}

func (g *Generator) llmOptions(in Input) llm.Options {
	return llm.Options{
		Temperature:       llm.Float32(g.opts.Temperature),
		MaxTokens:         g.opts.MaxTokens,
		SystemInstruction: SystemInstruction(in.Persona, in.Scenario),
	}
}

// Generate produces the whole reply in one call. It never fails: a model
// error yields FallbackResponse with Degraded set.
func (g *Generator) Generate(ctx context.Context, in Input) Output {
	if g.client == nil {
		return Output{Text: FallbackResponse, Degraded: true, Err: errors.New("no model configured")}
	}
	prompt := BuildPrompt(in)
	text, err := retry.ExecuteWithResult(ctx, g.policy, func(ctx context.Context, attempt int) (string, error) {
		return g.client.GenerateText(ctx, prompt, g.llmOptions(in))
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("generation failed, using fallback response")
		return Output{Text: FallbackResponse, Degraded: true, Err: err}
	}
	return Output{Text: strings.TrimSpace(text)}
}

// Stream produces the reply chunk by chunk, calling emit for each one. It
// stops when ctx is done, when emit returns an error, or when the model
// fails. Text holds every chunk the consumer accepted. If the
// model fails before producing anything, FallbackResponse is emitted instead.
func (g *Generator) Stream(ctx context.Context, in Input, emit func(chunk string) error) Output {
	if g.client == nil {
		return g.fallback(emit, errors.New("no model configured"))
	}

	var b strings.Builder
	var streamErr error
	for chunk, err := range g.client.GenerateTextStream(ctx, BuildPrompt(in), g.llmOptions(in)) {
		if err != nil {
			streamErr = err
			break
		}
		if chunk == "" {
			continue
		}
		if emitErr := emit(chunk); emitErr != nil {
			streamErr = emitErr
			break
		}
		b.WriteString(chunk)
		if ctx.Err() != nil {
			streamErr = ctx.Err()
			break
		}
	}

	text := b.String()
	if streamErr == nil {
		if strings.TrimSpace(text) == "" {
			return g.fallback(emit, llm.ErrEmptyResponse)
		}
		return Output{Text: text}
	}

	stopped := errors.Is(streamErr, ErrStopped) || errors.Is(streamErr, context.Canceled) || ctx.Err() != nil
	if text == "" && !stopped {
		return g.fallback(emit, streamErr)
	}
	g.log.Warn().Err(streamErr).Int("chars", len(text)).Bool("client_stopped", stopped).Msg("stream ended early")
	return Output{Text: text, Partial: true, Degraded: !stopped, Err: streamErr}
}

func (g *Generator) fallback(emit func(string) error, err error) Output {
	g.log.Warn().Err(err).Msg("stream failed before any output, using fallback response")
	_ = emit(FallbackResponse)
	return Output{Text: FallbackResponse, Degraded: true, Err: err}
}
