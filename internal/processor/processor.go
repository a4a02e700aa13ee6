// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package processor drives the per-document pipeline inside a bounded
// background worker pool. One job is one document's full run: load,
// OCR, de-identify, redact, predict, localize. The persisted status
// record is the only shared state; each mutation is one atomic store
// update performed by the owning worker.
package processor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"medscrub/internal/store"
)

// DefaultWorkers is the process-wide pipeline concurrency bound.
const DefaultWorkers = 4

// Job identifies one queued document.
type Job struct {
	DocumentID string
}

// Runner executes one document's pipeline. The processor owns the
// status lifecycle around it; Run only does the work.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// Processor owns the worker pool and the document state machine.
type Processor struct {
	store   *store.Store
	runner  Runner
	workers int
	log     zerolog.Logger

	jobs chan Job
	quit chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a Processor; workers below 1 fall back to DefaultWorkers.
func New(st *store.Store, runner Runner, workers int, log zerolog.Logger) *Processor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Processor{
		store:   st,
		runner:  runner,
		workers: workers,
		log:     log,
		jobs:    make(chan Job, workers*4),
		quit:    make(chan struct{}),
	}
}

// Start launches the worker pool. Safe to call once.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop drains the pool: no new jobs are accepted, queued jobs that
// have not started are abandoned (they stay QUEUED for the next
// start), and running jobs finish. The jobs channel is never closed;
// a concurrent Queue must not be able to hit a closed channel.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

// ErrStopped is returned by Queue after Stop.
var ErrStopped = errors.New("processor: stopped")

// Queue marks a document for processing and hands it to the pool.
// Documents already queued or mid-pipeline are left alone, so
// duplicate queue requests are harmless; terminal documents restart.
func (p *Processor) Queue(id string) (bool, error) {
	select {
	case <-p.quit:
		return false, ErrStopped
	default:
	}
	queued, err := p.store.TryQueue(id)
	if err != nil || !queued {
		return false, err
	}
	// The send must stay cancellable: with a full buffer it would
	// otherwise block forever across Stop. The document stays QUEUED
	// in the store either way and is picked up on the next start.
	select {
	case p.jobs <- Job{DocumentID: id}:
		return true, nil
	case <-p.quit:
		return false, ErrStopped
	}
}

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			// A shutdown between queueing and pickup leaves the
			// document QUEUED; it is not a failure.
			select {
			case <-p.quit:
				return
			default:
			}
			p.process(context.Background(), job)
		}
	}
}

// process owns the document's status from PROCESSING to a terminal
// state. A document is never left in PROCESSING: any pipeline error
// lands it in FAILED with the message recorded.
func (p *Processor) process(ctx context.Context, job Job) {
	id := job.DocumentID
	log := p.log.With().Str("document", id).Logger()

	if err := p.store.UpdateStatus(id, store.StatusProcessing, ""); err != nil {
		log.Error().Err(err).Msg("cannot mark document as processing")
		return
	}

	if err := p.runner.Run(ctx, job); err != nil {
		log.Error().Err(err).Msg("document pipeline failed")
		if serr := p.store.UpdateStatus(id, store.StatusFailed, err.Error()); serr != nil {
			log.Error().Err(serr).Msg("cannot mark document as failed")
		}
		return
	}

	if err := p.store.UpdateStatus(id, store.StatusCompleted, ""); err != nil {
		log.Error().Err(err).Msg("cannot mark document as completed")
		return
	}
	log.Info().Msg("document processed")
}
