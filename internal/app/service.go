// Package service wires the container timing pipeline and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/containertiming/internal/adapters/mq/queue"
	"github.com/okian/containertiming/internal/adapters/mq/worker"
	"github.com/okian/containertiming/internal/adapters/observer"
	"github.com/okian/containertiming/internal/adapters/overlay"
	"github.com/okian/containertiming/internal/adapters/repository"
	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/domain/dedupe"
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/logger"
	"github.com/okian/containertiming/pkg/metrics"
)

// Service owns the document, the observer facade and the ingestion pipeline.
//
// Batches flow: API -> queue -> worker (resolve element ids) -> feed observer
// -> container timing observer -> store.
type Service struct {
	mu sync.RWMutex

	// Core components
	document *dom.Document
	engine   *aggregate.Engine
	observer *observer.Observer
	feed     *observer.FeedObserver
	overlay  *overlay.MemoryRenderer
	store    *repository.ShardedStore
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	shardCount    int
	historyLimit  int
	strategy      aggregate.Kind
	debugOverlay  bool
	overlayFade   time.Duration
	overlayRemove time.Duration

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  1,
		queueSize:    10_000,
		dedupeSize:   100_000,
		shardCount:   8,
		historyLimit: 64,
		strategy:     aggregate.Union,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting container timing service...")

	s.document = dom.NewDocument()
	s.engine = aggregate.NewEngine(aggregate.WithKind(s.strategy))
	s.store = repository.NewShardedStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithHistoryLimit(s.historyLimit),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	obsOpts := []observer.Option{
		observer.WithEngine(s.engine),
		observer.WithNative(func(cb observer.Callback) observer.Native {
			s.feed = observer.NewFeedObserver(cb)
			return s.feed
		}),
	}
	if s.debugOverlay {
		s.overlay = overlay.NewMemoryRenderer(
			overlay.WithFade(s.overlayFade),
			overlay.WithRemove(s.overlayRemove),
		)
		obsOpts = append(obsOpts, observer.WithOverlay(s.overlay))
	}
	s.observer = observer.New(s.onBatch, obsOpts...)
	if err := s.observer.Observe(ctx, observer.ObserveOptions{
		EntryTypes: s.observer.SupportedEntryTypes(),
	}); err != nil {
		return err
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, s.document, s.feed)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "container timing service started",
		logger.String("strategy", s.strategy.String()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("debugOverlay", s.debugOverlay),
	)
	return nil
}

// Stop drains the queue and releases every component.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping container timing service...")

	var errs error
	errs = multierr.Append(errs, s.pool.Shutdown(ctx))
	s.observer.Disconnect()
	if s.overlay != nil {
		s.overlay.Clear()
	}
	errs = multierr.Append(errs, s.store.Close())

	s.started = false
	if errs != nil {
		s.logger.Error(ctx, "container timing service stopped with errors", logger.Error(errs))
		return errs
	}
	s.logger.Info(ctx, "container timing service stopped")
	return nil
}

// onBatch receives every intercepted batch and keeps its container entries.
func (s *Service) onBatch(ctx context.Context, list observer.List) {
	var containers []*model.ContainerEntry
	for _, e := range list.GetEntries() {
		if c, ok := e.(*model.ContainerEntry); ok {
			containers = append(containers, c)
		}
	}
	if len(containers) == 0 {
		return
	}
	if err := s.store.Record(ctx, s.strategy.String(), containers); err != nil {
		metrics.RecordErrorByComponent("service", "store")
		s.logger.Warn(ctx, "failed to record container entries",
			logger.Int("containers", len(containers)),
			logger.Error(err),
		)
	}
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ApplyMutations updates the document tree and reruns discovery.
func (s *Service) ApplyMutations(ctx context.Context, muts []dom.Mutation) (dom.ApplyResult, error) {
	if !s.isStarted() {
		return dom.ApplyResult{}, ErrNotStarted
	}
	res, err := s.document.Apply(ctx, muts)
	for i := range muts {
		metrics.RecordDOMMutation(string(muts[i].Op))
	}
	metrics.RecordElementsTagged(dom.Internal.String(), res.Tagged.Internal)
	metrics.RecordElementsTagged(dom.UserSupplied.String(), res.Tagged.UserSupplied)
	if err != nil {
		s.logger.Debug(ctx, "mutations partially applied",
			logger.Int("applied", res.Applied),
			logger.Int("submitted", len(muts)),
			logger.Error(err),
		)
	}
	return res, err
}

// SeenAndRecord atomically checks if a batch id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if !s.isStarted() {
		return false
	}
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a batch id so the batch can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if !s.isStarted() {
		return
	}
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a batch for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: batches travel by value over the channel
	if !s.isStarted() {
		return ErrNotStarted
	}
	s.logger.Debug(ctx, "enqueueing batch",
		logger.String("batchID", b.BatchID),
		logger.Int("entries", len(b.Entries)),
	)
	return s.queue.Enqueue(ctx, b)
}

// List returns the latest report per container.
func (s *Service) List(ctx context.Context, limit int) ([]repository.Report, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, limit)
}

// Latest returns the latest report for identifier.
func (s *Service) Latest(ctx context.Context, identifier string) (repository.Report, error) {
	if !s.isStarted() {
		return repository.Report{}, ErrNotStarted
	}
	return s.store.Latest(ctx, identifier)
}

// History returns recent reports for identifier.
func (s *Service) History(ctx context.Context, identifier string, limit int) ([]repository.Report, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.store.History(ctx, identifier, limit)
}

// Overlays returns the debug overlays on screen, or nil when disabled.
func (s *Service) Overlays() []overlay.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.overlay == nil {
		return nil
	}
	return s.overlay.Active()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"strategy":     s.strategy.String(),
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"debugOverlay": s.debugOverlay,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		es := s.engine.Stats()
		reported := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["documentElements"] = s.document.Len()
		stats["containersTracked"] = es.Tracked
		stats["paintsAccepted"] = es.Accepted
		stats["paintsRejected"] = es.Rejected
		stats["containersReported"] = reported
		stats["passThrough"] = s.observer.PassThrough()
		if s.overlay != nil {
			stats["overlays"] = len(s.overlay.Active())
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateContainersTracked(es.Tracked)
		metrics.UpdateRepositoryReports(reported)
	}

	return stats
}
