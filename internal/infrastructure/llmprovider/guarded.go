package llmprovider

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/janhq/reno-server/internal/domain/llm"
)

// GuardOptions configure the circuit breaker around a model client.
type GuardOptions struct {
	Name        string
	MaxFailures uint32
	Cooldown    time.Duration
	// Timeout bounds each non-streaming call.
	Timeout time.Duration
}

// Guarded wraps an llm.Client with a per-call timeout and a circuit breaker.
// While the breaker is open calls fail fast with gobreaker.ErrOpenState, which
// the turn pipeline treats like any other model failure.
type Guarded struct {
	next    llm.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewGuarded builds the wrapper.
func NewGuarded(next llm.Client, opts GuardOptions, log zerolog.Logger) *Guarded {
	if opts.Name == "" {
		opts.Name = "llm"
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	log = log.With().Str("component", "llm-breaker").Str("breaker", opts.Name).Logger()

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation and empty answers say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, llm.ErrEmptyResponse)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("model circuit breaker state changed")
		},
	}
	return &Guarded{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: opts.Timeout,
	}
}

// Model reports the wrapped model name.
func (g *Guarded) Model() string {
	return g.next.Model()
}

// State exposes the breaker state for readiness reporting.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guarded) GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.GenerateText(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (g *Guarded) AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.AnalyzeImage(ctx, data, mimeType, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GenerateTextStream runs the whole stream inside one breaker execution. A
// consumer that stops early counts as success.
func (g *Guarded) GenerateTextStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_, err := g.breaker.Execute(func() (interface{}, error) {
			for chunk, err := range g.next.GenerateTextStream(ctx, prompt, opts) {
				if err != nil {
					return nil, err
				}
				if !yield(chunk, nil) {
					return nil, nil
				}
			}
			return nil, nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

func (g *Guarded) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

var _ llm.Client = (*Guarded)(nil)
