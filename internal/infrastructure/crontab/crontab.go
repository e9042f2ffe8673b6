// Package crontab schedules background maintenance jobs.
package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

const (
	DefaultSweepInterval = 5 // in minutes
	CronJobTimeout       = 10 * time.Minute
	maxConcurrentSweeps  = 4
	sweepBatch           = 200
)

// ActiveConversations lists recently active conversations.
type ActiveConversations interface {
	ActiveSince(ctx context.Context, since time.Time, limit int) ([]*conversation.Conversation, error)
}

// Summarizer creates summaries that are due.
type Summarizer interface {
	MaybeGenerateSummary(ctx context.Context, conversationID uint, threshold int) (*conversation.Summary, error)
}

// Options configure the summary sweep.
type Options struct {
	Enabled         bool
	IntervalMinutes int
	Lookback        time.Duration
	Threshold       int
}

// Crontab runs the summary sweep, which catches conversations whose
// in-request summary was skipped or failed.
type Crontab struct {
	ctab          *crontab.Crontab
	conversations ActiveConversations
	summarizer    Summarizer
	opts          Options
	now           func() time.Time
	log           zerolog.Logger
}

func NewCrontab(conversations ActiveConversations, summarizer Summarizer, opts Options, log zerolog.Logger) *Crontab {
	if opts.IntervalMinutes <= 0 {
		opts.IntervalMinutes = DefaultSweepInterval
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 24 * time.Hour
	}
	return &Crontab{
		ctab:          crontab.New(),
		conversations: conversations,
		summarizer:    summarizer,
		opts:          opts,
		now:           time.Now,
		log:           log.With().Str("component", "crontab").Logger(),
	}
}

// Run blocks until ctx ends. When the sweep is disabled it only waits.
func (c *Crontab) Run(ctx context.Context) error {
	if !c.opts.Enabled {
		<-ctx.Done()
		return nil
	}

	// execute once on server start
	c.SweepSummaries(ctx)

	cronExpr := fmt.Sprintf("*/%d * * * *", c.opts.IntervalMinutes)
	if err := c.ctab.AddJob(cronExpr, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.SweepSummaries(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add summary sweep job")
	}
	c.log.Info().Int("interval_minutes", c.opts.IntervalMinutes).Msg("summary sweep scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// SweepSummaries generates due summaries for conversations active within the
// lookback and returns how many were created.
func (c *Crontab) SweepSummaries(ctx context.Context) int {
	since := c.now().UTC().Add(-c.opts.Lookback)
	convs, err := c.conversations.ActiveSince(ctx, since, sweepBatch)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to list active conversations for summary sweep")
		return 0
	}
	if len(convs) == 0 {
		return 0
	}

	created := make([]bool, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSweeps)
	for i, conv := range convs {
		g.Go(func() error {
			summary, err := c.summarizer.MaybeGenerateSummary(gctx, conv.ID, c.opts.Threshold)
			if err != nil {
				c.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("summary sweep failed for conversation")
				return nil
			}
			created[i] = summary != nil
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range created {
		if ok {
			n++
		}
	}
	if n > 0 {
		c.log.Info().Int("summaries", n).Int("scanned", len(convs)).Msg("summary sweep complete")
	}
	return n
}
