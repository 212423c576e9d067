// Package poller runs the fetch, ingest, render cycle against the event feed.
//
// Each cycle pulls one batch from the feed, hands the genuinely new events to the
// active view and renders it, then rewinds the feed with a conditional refresh so
// the next cycle only pays for a request when the feed changed. A failed fetch
// counts as an empty batch; the loop never stops on feed errors.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perr "github.com/rewired-gh/hubbub/internal/errors"
	"github.com/rewired-gh/hubbub/internal/logger"
	"github.com/rewired-gh/hubbub/internal/metrics"
	"github.com/rewired-gh/hubbub/internal/models"
	"github.com/rewired-gh/hubbub/internal/render"
	"github.com/rewired-gh/hubbub/internal/storage"
)

const (
	defaultInterval   = 60 * time.Second
	defaultBatchLimit = 100
)

// Feed is a resumable source of events
type Feed interface {
	NextBatch(ctx context.Context, limit int) ([]models.Event, error)
	Refresh(conditional bool)
}

// Notifier is told when fetching starts failing and when it recovers
type Notifier interface {
	SendError(err error) error
	SendRecovery(failures int, downtime time.Duration) error
}

// Options configures a Poller; Notifier and Metrics are optional
type Options struct {
	Interval   time.Duration
	BatchLimit int
	Notifier   Notifier
	Metrics    *metrics.Metrics
}

// Cycle summarizes one poll cycle
type Cycle struct {
	ID        string
	Fetched   int
	Added     int
	FetchErr  error
	RenderErr error
}

// Poller owns the window and view and mutates them from a single goroutine
type Poller struct {
	feed   Feed
	window *storage.Window
	view   render.Strategy
	opts   Options
	log    *zerolog.Logger
	now    func() time.Time

	failures     int
	failingSince time.Time
}

// New creates a poller
func New(feed Feed, window *storage.Window, view render.Strategy, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = defaultBatchLimit
	}
	return &Poller{
		feed:   feed,
		window: window,
		view:   view,
		opts:   opts,
		log:    logger.Named("poller"),
		now:    time.Now,
	}
}

// Failures returns the current consecutive fetch failure count
func (p *Poller) Failures() int { return p.failures }

// RunCycle fetches one batch, ingests it, renders the view and rewinds the feed
func (p *Poller) RunCycle(ctx context.Context) Cycle {
	start := p.now()
	c := Cycle{ID: uuid.NewString()}
	log := p.log.With().Str("cycle", c.ID).Logger()

	batch, err := p.feed.NextBatch(ctx, p.opts.BatchLimit)
	if err != nil && ctx.Err() != nil {
		c.FetchErr = err
		return c
	}
	p.handleFetchResult(&log, err)
	if err != nil {
		c.FetchErr = err
		batch = nil
	}

	added := p.window.Ingest(batch)
	c.Fetched, c.Added = len(batch), len(added)
	if err == nil {
		p.opts.Metrics.Fetched(c.Fetched, c.Added)
	}
	log.Debug().Int("fetched", c.Fetched).Int("added", c.Added).Msg("batch ingested")

	p.view.AddEvents(added)
	c.RenderErr = p.view.Render()
	p.opts.Metrics.Rendered(p.view.Name(), c.RenderErr)
	if c.RenderErr != nil {
		log.Error().Err(c.RenderErr).Str("view", p.view.Name()).Msg("render failed")
	}

	p.feed.Refresh(true)

	p.opts.Metrics.Window(p.window.Len(), p.window.SeenCount())
	p.opts.Metrics.CycleDone(start)
	log.Info().
		Int("added", c.Added).
		Int("window", p.window.Len()).
		Int("shown", len(p.view.Events())).
		Dur("took", p.now().Sub(start)).
		Msg("poll cycle completed")
	return c
}

// handleFetchResult tracks the failure streak and notifies on its edges
func (p *Poller) handleFetchResult(log *zerolog.Logger, err error) {
	if err != nil {
		p.failures++
		code := perr.CodeOf(err)
		p.opts.Metrics.FetchFailed(code.String())

		level := zerolog.ErrorLevel
		if perr.Transient(err) {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Err(err).Str("kind", code.String()).Int("consecutive", p.failures).Msg("feed fetch failed, treating as empty batch")

		if p.failures == 1 {
			p.failingSince = p.now()
			if p.opts.Notifier != nil {
				if sendErr := p.opts.Notifier.SendError(err); sendErr != nil {
					log.Warn().Err(sendErr).Msg("failed to send error notification")
				}
			}
		}
		return
	}

	if p.failures > 0 {
		downtime := p.now().Sub(p.failingSince)
		log.Info().Int("failures", p.failures).Dur("downtime", downtime).Msg("feed recovered")
		if p.opts.Notifier != nil {
			if sendErr := p.opts.Notifier.SendRecovery(p.failures, downtime); sendErr != nil {
				log.Warn().Err(sendErr).Msg("failed to send recovery notification")
			}
		}
	}
	p.failures = 0
}

// Run runs a cycle immediately and then one per interval until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	logger.Info("Starting poll loop (interval: %v, batch_limit: %d, view: %s)",
		p.opts.Interval, p.opts.BatchLimit, p.view.Name())

	p.RunCycle(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Poll loop stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}
