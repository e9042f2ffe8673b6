package crontab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/conversation"
)

type activeFunc func(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error)

func (f activeFunc) ActiveSince(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error) {
	return f(ctx, since, limit)
}

type fakeSummarizer struct {
	mu    sync.Mutex
	seen  []uint
	fails map[uint]bool
}

func (f *fakeSummarizer) MaybeGenerateSummary(ctx context.Context, conversationID uint, threshold int) (*conversation.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, conversationID)
	if f.fails[conversationID] {
		return nil, errors.New("model unavailable")
	}
	if conversationID%2 == 0 {
		return nil, nil
	}
	return &conversation.Summary{ConversationID: conversationID}, nil
}

func TestSweepSummaries(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	active := activeFunc(func(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error) {
		gotSince = since
		return []*conversation.Conversation{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 5}}, nil
	})
	summarizer := &fakeSummarizer{fails: map[uint]bool{5: true}}

	c := NewCrontab(active, summarizer, Options{Enabled: true, Lookback: 6 * time.Hour, Threshold: 20}, zerolog.Nop())
	c.now = func() time.Time { return now }

	assert.Equal(t, 2, c.SweepSummaries(context.Background()))
	assert.Equal(t, now.Add(-6*time.Hour), gotSince)
	assert.ElementsMatch(t, []uint{1, 2, 3, 5}, summarizer.seen)
}

func TestSweepListFailure(t *testing.T) {
	active := activeFunc(func(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error) {
		return nil, errors.New("connection refused")
	})
	summarizer := &fakeSummarizer{}
	c := NewCrontab(active, summarizer, Options{Enabled: true}, zerolog.Nop())

	assert.Zero(t, c.SweepSummaries(context.Background()))
	assert.Empty(t, summarizer.seen)
}

func TestRunDisabledWaitsForShutdown(t *testing.T) {
	active := activeFunc(func(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error) {
		t.Fatal("sweep must not run when disabled")
		return nil, nil
	})
	c := NewCrontab(active, &fakeSummarizer{}, Options{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
