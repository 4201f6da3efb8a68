// Package worker drains the batch queue, resolves entries against the live
// document and hands them to the native observer feed.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/logger"
	"github.com/okian/containertiming/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive batches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Batch
}

// Resolver finds live elements by ID.
type Resolver interface {
	Element(id string) (*dom.Element, bool)
}

// Deliverer receives one resolved batch of entries.
type Deliverer interface {
	Deliver(ctx context.Context, entries []model.Entry) error
}

// Worker processes batches until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the batch in flight, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing batches.
type InMemoryWorker struct {
	queue     Queue
	resolver  Resolver
	deliverer Deliverer
	name      string

	shutdown chan struct{}
	done     chan struct{}
	active   *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, resolver Resolver, deliverer Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		resolver:  resolver,
		deliverer: deliverer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		active:    &atomic.Int64{},
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.processBatch(ctx, b); err != nil {
				w.logger.Error(ctx, "error processing batch", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) processBatch(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: batches travel by value over the channel
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	entries := b.Resolve(w.resolver.Element)
	if err := w.deliverer.Deliver(ctx, entries); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "deliver")
		return fmt.Errorf("deliver batch %s: %w", b.BatchID, err)
	}

	metrics.RecordBatchProcessed()
	metrics.RecordBatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	w.logger.Debug(ctx, "batch delivered",
		logger.String("batch_id", b.BatchID),
		logger.Int("entries", len(entries)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A count below one is raised to one.
func NewPool(workerCount int, queue Queue, resolver Resolver, deliverer Deliverer) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	active := &atomic.Int64{}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, resolver, deliverer,
			WithName("worker-"+strconv.Itoa(i)),
			withActiveCounter(active),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, then waits for workers to drain it or for ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	return nil
}
