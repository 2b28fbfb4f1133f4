// Package regen runs narrative regeneration in the background. Jobs are
// queued by the ingestion path and processed by a bounded worker pool; a
// full queue drops the job, which only delays convergence because every
// regeneration rebuilds the narrative from the current event window.
package regen

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/retry"
	"github.com/storylinehq/storyline/internal/store"
	"github.com/storylinehq/storyline/internal/story"
)

// EventSource supplies the recent event window for a (project, client) pair.
type EventSource interface {
	RecentEvents(projectID, clientUUID string, limit int) ([]store.Event, error)
}

// Synthesizer regenerates and persists one narrative.
type Synthesizer interface {
	Synthesize(ctx context.Context, projectID, clientUUID string, events []store.Event) (*story.Result, error)
}

type job struct {
	projectID  string
	clientUUID string
}

// Config holds pool sizing and the regeneration window.
type Config struct {
	Workers   int
	QueueSize int
	Window    int
}

// Pool is the background regeneration worker pool.
type Pool struct {
	queue   chan job
	workers int
	window  int
	events  EventSource
	synth   Synthesizer
	metrics *metrics.Metrics
	logger  zerolog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool creates a regeneration pool.
func NewPool(cfg Config, events EventSource, synth Synthesizer, m *metrics.Metrics, logger zerolog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Window <= 0 {
		cfg.Window = 50
	}

	return &Pool{
		queue:   make(chan job, cfg.QueueSize),
		workers: cfg.Workers,
		window:  cfg.Window,
		events:  events,
		synth:   synth,
		metrics: m,
		logger:  logger.With().Str("component", "regen").Logger(),
	}
}

// Start launches worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	if p.running.Swap(true) {
		return // already running
	}

	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.logger.Info().Int("workers", p.workers).Int("window", p.window).Msg("regeneration pool started")
}

// Stop shuts the pool down. In-flight jobs run to completion; queued jobs
// are abandoned.
func (p *Pool) Stop() {
	if !p.running.Swap(false) {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("regeneration pool stopped")
}

// Enqueue schedules a regeneration without blocking. Returns false when the
// queue is full and the job was dropped.
func (p *Pool) Enqueue(projectID, clientUUID string) bool {
	select {
	case p.queue <- job{projectID: projectID, clientUUID: clientUUID}:
		p.metrics.RegenQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		p.metrics.RegenDroppedTotal.Inc()
		return false
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			p.metrics.RegenQueueDepth.Set(float64(len(p.queue)))
			p.process(ctx, j)
		}
	}
}

// process regenerates one narrative. Failures are logged and counted only;
// nothing upstream is waiting on the result.
func (p *Pool) process(ctx context.Context, j job) {
	var events []store.Event

	fetchCfg := retry.DefaultConfig()
	fetchCfg.Retryable = store.IsTransient
	err := retry.Do(ctx, fetchCfg, func(context.Context) error {
		var fetchErr error
		events, fetchErr = p.events.RecentEvents(j.projectID, j.clientUUID, p.window)
		return fetchErr
	})
	if err != nil {
		p.metrics.RegenRunsTotal.WithLabelValues("fetch_error").Inc()
		p.logger.Error().Err(err).
			Str("project_id", j.projectID).
			Str("client_uuid", j.clientUUID).
			Msg("failed to fetch event window")
		return
	}

	if len(events) == 0 {
		p.metrics.RegenRunsTotal.WithLabelValues("empty").Inc()
		return
	}

	result, err := p.synth.Synthesize(ctx, j.projectID, j.clientUUID, events)
	if err != nil {
		p.metrics.RegenRunsTotal.WithLabelValues("error").Inc()
		p.logger.Error().Err(err).
			Str("project_id", j.projectID).
			Str("client_uuid", j.clientUUID).
			Msg("background regeneration failed")
		return
	}

	p.metrics.RegenRunsTotal.WithLabelValues("ok").Inc()
	p.logger.Debug().
		Str("story_id", result.StoryID).
		Bool("used_ai", result.UsedAI).
		Int("window_size", len(events)).
		Msg("narrative regenerated")
}
