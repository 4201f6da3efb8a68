package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/metrics"
)

const (
	defaultShardCount   = 8
	defaultHistoryLimit = 64
)

// history is a bounded newest-last list of reports for one identifier.
type history struct {
	reports []Report
}

func (h *history) push(r Report, limit int) {
	h.reports = append(h.reports, r)
	if over := len(h.reports) - limit; over > 0 {
		// copy down to keep the backing array bounded
		n := copy(h.reports, h.reports[over:])
		h.reports = h.reports[:n]
	}
}

func (h *history) latest() Report {
	return h.reports[len(h.reports)-1]
}

type shard struct {
	mu   sync.RWMutex
	byID map[string]*history
}

// ShardedStore is an in-memory Store split across FNV-hashed shards.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	historyLimit          int
	metricsUpdateInterval time.Duration
	now                   func() time.Time

	seq    atomic.Uint64
	closed atomic.Bool

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewShardedStore constructs a report store with configuration options.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		historyLimit:          defaultHistoryLimit,
		metricsUpdateInterval: 5 * time.Second,
		now:                   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{byID: make(map[string]*history)}
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	metrics.UpdateRepositoryReports(0)
	return s
}

// Close stops background goroutines. Reads keep working afterwards.
func (s *ShardedStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *ShardedStore) shardFor(identifier string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Record implements Store.Record.
func (s *ShardedStore) Record(ctx context.Context, strategy string, entries []*model.ContainerEntry) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	at := s.now()
	for _, e := range entries {
		if e == nil {
			continue
		}
		r := Report{
			Seq:        s.seq.Add(1),
			Identifier: e.Identifier,
			Strategy:   strategy,
			RecordedAt: at,
			Entry:      e,
		}
		sh := s.shardFor(e.Identifier)
		sh.mu.Lock()
		h, ok := sh.byID[e.Identifier]
		if !ok {
			h = &history{}
			sh.byID[e.Identifier] = h
		}
		h.push(r, s.historyLimit)
		sh.mu.Unlock()
	}
	return nil
}

// Latest implements Store.Latest.
func (s *ShardedStore) Latest(ctx context.Context, identifier string) (Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(identifier)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	h, ok := sh.byID[identifier]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Report{}, ErrNotFound
	}
	return h.latest(), nil
}

// History implements Store.History. The limit is capped at the history limit.
func (s *ShardedStore) History(ctx context.Context, identifier string, limit int) ([]Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	sh := s.shardFor(identifier)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	h, ok := sh.byID[identifier]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}

	n := min(limit, len(h.reports))
	out := make([]Report, 0, n)
	for i := len(h.reports) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.reports[i])
	}
	return out, nil
}

// List implements Store.List. Ties on render time fall back to the most
// recently recorded report, then identifier.
func (s *ShardedStore) List(ctx context.Context, limit int) ([]Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	all := make([]Report, 0, limit)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, h := range sh.byID {
			all = append(all, h.latest())
		}
		sh.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		ri, rj := all[i].RenderTime(), all[j].RenderTime()
		if ri != rj {
			return ri > rj
		}
		if all[i].Seq != all[j].Seq {
			return all[i].Seq > all[j].Seq
		}
		return all[i].Identifier < all[j].Identifier
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Count implements Store.Count.
func (s *ShardedStore) Count(ctx context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.byID)
		sh.mu.RUnlock()
	}
	return n
}

// startMetricsUpdater periodically publishes the tracked container count.
func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateRepositoryReports(s.Count(ctx))
			}
		}
	}()
}
