package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drains a JobProcessor once on start, then on every poll tick or
// Notify call, whichever comes first.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	wake         chan struct{}
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	logger := log.With().Str("worker", w.name).Logger()
	logger.Info().Dur("poll_interval", w.pollInterval).Msg("worker started")

	run := func() {
		if err := w.processor.ProcessJobs(ctx); err != nil {
			logger.Error().Err(err).Msg("error processing jobs")
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			logger.Info().Msg("worker stopped: stop signal received")
			return
		case <-w.wake:
			run()
		case <-ticker.C:
			run()
		}
	}
}

// Notify asks for an early pass without waiting for the next tick. It never
// blocks; notifications that arrive while one is pending are coalesced.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Info().Str("worker", w.name).Msg("worker shutdown complete")
}
