// Package overlay keeps the debug overlays painted over dirty containers.
// Overlays start fading after a short delay and are removed shortly after.
package overlay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/pkg/logger"
	"github.com/okian/containertiming/pkg/metrics"
)

const (
	defaultFade   = time.Second
	defaultRemove = 2 * time.Second
)

// Phase is the lifecycle stage of one overlay.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseFading  Phase = "fading"
)

// Overlay is one painted rectangle.
type Overlay struct {
	ID         uint64        `json:"id"`
	Identifier string        `json:"identifier"`
	Rect       geometry.Rect `json:"rect"`
	Phase      Phase         `json:"phase"`
	PaintedAt  time.Time     `json:"paintedAt"`
}

// Renderer paints overlays for a batch of container regions.
type Renderer interface {
	Paint(ctx context.Context, regions []aggregate.Region)
}

// MemoryRenderer keeps overlays in memory so they can be listed.
type MemoryRenderer struct {
	fade   time.Duration
	remove time.Duration
	now    func() time.Time
	logger logger.Logger

	mu     sync.Mutex
	nextID uint64
	active map[uint64]*Overlay
	timers map[uint64][]*time.Timer
}

// NewMemoryRenderer creates a renderer with the default 1s fade and 2s
// removal delays.
func NewMemoryRenderer(opts ...Option) *MemoryRenderer {
	r := &MemoryRenderer{
		fade:   defaultFade,
		remove: defaultRemove,
		now:    time.Now,
		logger: logger.Get().Named("overlay"),
		active: make(map[uint64]*Overlay),
		timers: make(map[uint64][]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fade >= r.remove {
		r.fade = r.remove / 2
	}
	return r
}

// Paint adds one overlay per rectangle and schedules its fade and removal.
func (r *MemoryRenderer) Paint(ctx context.Context, regions []aggregate.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()

	painted := 0
	for _, reg := range regions {
		for _, rect := range reg.Rects {
			r.nextID++
			id := r.nextID
			r.active[id] = &Overlay{
				ID:         id,
				Identifier: reg.Identifier,
				Rect:       rect,
				Phase:      PhaseVisible,
				PaintedAt:  r.now(),
			}
			r.timers[id] = []*time.Timer{
				time.AfterFunc(r.fade, func() { r.setPhase(id, PhaseFading) }),
				time.AfterFunc(r.remove, func() { r.drop(id) }),
			}
			painted++
		}
	}
	if painted > 0 {
		r.logger.Debug(ctx, "overlays painted", logger.Int("count", painted))
	}
	metrics.UpdateOverlayRegions(len(r.active))
}

// Active returns the overlays currently shown, oldest first.
func (r *MemoryRenderer) Active() []Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Overlay, 0, len(r.active))
	for _, o := range r.active {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear removes every overlay and cancels pending timers.
func (r *MemoryRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ts := range r.timers {
		for _, t := range ts {
			t.Stop()
		}
		delete(r.timers, id)
	}
	clear(r.active)
	metrics.UpdateOverlayRegions(0)
}

func (r *MemoryRenderer) setPhase(id uint64, p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.active[id]; ok {
		o.Phase = p
	}
}

func (r *MemoryRenderer) drop(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
	delete(r.timers, id)
	metrics.UpdateOverlayRegions(len(r.active))
}
