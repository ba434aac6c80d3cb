// Package worker provides background dispatch for analytics events so that
// collector latency never blocks the visitor-facing request path.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

const publishTimeout = 15 * time.Second

// Pool fans analytics events out to background workers that forward them to
// the real sink. It implements ports.AnalyticsSink itself, so services can
// stay unaware of the async hop.
type Pool struct {
	sink   ports.AnalyticsSink
	jobs   chan ports.ClickEvent
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// compile-time interface assertion
var _ ports.AnalyticsSink = (*Pool)(nil)

// NewPool creates a dispatch pool in front of sink with the given queue size.
func NewPool(sink ports.AnalyticsSink, queueSize int, logger zerolog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		sink:   sink,
		jobs:   make(chan ports.ClickEvent, queueSize),
		logger: logger.With().Str("component", "worker").Logger(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for ev := range p.jobs {
				p.process(ev)
			}
		}()
	}
}

// Stop waits for workers to drain the queue after closing it.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Publish queues an event without blocking. When the queue is full the
// event is dropped with a warning; analytics are best-effort.
func (p *Pool) Publish(ctx context.Context, ev ports.ClickEvent) error {
	select {
	case p.jobs <- ev:
	default:
		p.logger.Warn().Str("song", ev.SongTitle).Msg("dropping analytics event, queue full")
	}
	return nil
}

func (p *Pool) process(ev ports.ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.sink.Publish(ctx, ev); err != nil {
		p.logger.Warn().Err(err).Str("song", ev.SongTitle).Msg("failed to deliver analytics event")
		return
	}
	p.logger.Debug().Str("song", ev.SongTitle).Msg("analytics event delivered")
}
