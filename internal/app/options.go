package service

import (
	"time"

	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending batches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the batch id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the report store shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithHistoryLimit bounds the reports kept per container.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithStrategy selects the aggregation strategy.
func WithStrategy(k aggregate.Kind) Option {
	return func(s *Service) {
		s.strategy = k
	}
}

// WithDebugOverlay enables the debug overlay with the given fade and
// removal delays.
func WithDebugOverlay(fade, remove time.Duration) Option {
	return func(s *Service) {
		s.debugOverlay = true
		s.overlayFade = fade
		s.overlayRemove = remove
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
