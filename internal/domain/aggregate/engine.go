package aggregate

import (
	"sync"
	"sync/atomic"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/internal/domain/registry"
	"github.com/okian/containertiming/pkg/metrics"
)

// Contribution pairs a paint entry with the container root it belongs to.
type Contribution struct {
	Entry *model.PaintEntry
	Root  *dom.Element
}

// Region is the debug overlay geometry of one dirty container.
type Region struct {
	Identifier string
	Rects      []geometry.Rect
}

// Stats counts strategy decisions over the engine's life.
type Stats struct {
	Accepted int64
	Rejected int64
	Tracked  int
}

// Engine owns the container registry and the per-batch dirty set. All
// methods are safe for concurrent use; each call is one critical section.
type Engine struct {
	mu       sync.Mutex
	kind     Kind
	strategy Strategy
	registry *registry.Registry
	dirty    []*dom.Element
	dirtySet map[*dom.Element]struct{}

	accepted atomic.Int64
	rejected atomic.Int64
}

// NewEngine creates an engine using the Union strategy unless configured.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		kind:     Union,
		registry: registry.New(),
		dirtySet: make(map[*dom.Element]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategy = NewStrategy(e.kind)
	return e
}

// Kind returns the configured strategy.
func (e *Engine) Kind() Kind { return e.kind }

// BeginBatch starts a new batch: union accumulators are cleared and the
// dirty set emptied.
func (e *Engine) BeginBatch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ResetCoords()
	e.dirty = e.dirty[:0]
	clear(e.dirtySet)
}

// Process folds one entry into root's state. It returns true when the entry
// was accepted.
func (e *Engine) Process(p *model.PaintEntry, root *dom.Element) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process(p, root)
}

// Aggregate processes contributions in order and returns one container
// entry per dirty container, in the order containers became dirty.
func (e *Engine) Aggregate(contribs []Contribution) []*model.ContainerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range contribs {
		e.process(c.Entry, c.Root)
	}
	return e.containerEntries()
}

// ContainerEntries synthesizes entries for the current dirty set.
func (e *Engine) ContainerEntries() []*model.ContainerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.containerEntries()
}

// Dirty returns the containers dirtied in the current batch.
func (e *Engine) Dirty() []*dom.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*dom.Element, len(e.dirty))
	copy(out, e.dirty)
	return out
}

// Regions returns overlay geometry for the dirty containers: the union
// rectangle, or every painted rectangle for the incremental strategy.
func (e *Engine) Regions() []Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Region, 0, len(e.dirty))
	for _, root := range e.dirty {
		d, ok := e.registry.Lookup(root)
		if !ok {
			continue
		}
		reg := Region{Identifier: root.ContainerIdentifier()}
		switch {
		case e.kind == Incremental:
			reg.Rects = append([]geometry.Rect(nil), d.PaintedRects...)
		case d.IntersectionRect != nil:
			reg.Rects = []geometry.Rect{*d.IntersectionRect}
		}
		out = append(out, reg)
	}
	return out
}

// State returns a copy of root's resolved state.
func (e *Engine) State(root *dom.Element) (registry.ResolvedRootData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.registry.Lookup(root)
	if !ok {
		return registry.ResolvedRootData{}, false
	}
	cp := *d
	cp.PaintedRects = append([]geometry.Rect(nil), d.PaintedRects...)
	return cp, true
}

// Stats returns decision counters and the number of tracked containers.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	tracked := e.registry.Len()
	e.mu.Unlock()
	return Stats{Accepted: e.accepted.Load(), Rejected: e.rejected.Load(), Tracked: tracked}
}

// process must be called with e.mu held. Malformed input is ignored.
func (e *Engine) process(p *model.PaintEntry, root *dom.Element) bool {
	if p == nil || root == nil {
		return false
	}
	// State is only registered once a root receives a contributing entry.
	d, known := e.registry.Lookup(root)
	if !known {
		d = &registry.ResolvedRootData{}
	}
	if !e.strategy.Accept(p, root, d) {
		e.rejected.Add(1)
		metrics.RecordStrategyDecision(e.kind.String(), false)
		return false
	}
	if !known {
		e.registry.Insert(root, d)
		metrics.UpdateContainersTracked(e.registry.Len())
	}
	e.accepted.Add(1)
	metrics.RecordStrategyDecision(e.kind.String(), true)
	if _, seen := e.dirtySet[root]; !seen {
		e.dirtySet[root] = struct{}{}
		e.dirty = append(e.dirty, root)
	}
	return true
}

func (e *Engine) containerEntries() []*model.ContainerEntry {
	out := make([]*model.ContainerEntry, 0, len(e.dirty))
	for _, root := range e.dirty {
		d, ok := e.registry.Lookup(root)
		if !ok {
			continue
		}
		out = append(out, e.entryFor(root, d))
	}
	return out
}

func (e *Engine) entryFor(root *dom.Element, d *registry.ResolvedRootData) *model.ContainerEntry {
	ce := &model.ContainerEntry{
		Name:                  d.Name,
		Identifier:            root.ContainerIdentifier(),
		Element:               root,
		URL:                   d.URL,
		StartTime:             d.StartTime,
		Size:                  d.Size,
		LastPaintedSubElement: d.LastPaintedSubElement,
	}
	if e.kind == Incremental {
		ce.VisuallyCompletePaint = &model.VisuallyCompletePaint{
			RenderTime:            d.RenderTime,
			LastPaintedSubElement: d.LastPaintedSubElement,
		}
		ce.LargestContentfulPaint = d.LargestContentfulPaint
		ce.FirstContentfulPaint = d.FirstContentfulPaint
		ce.PaintedRects = append([]geometry.Rect(nil), d.PaintedRects...)
		return ce
	}
	rt := d.RenderTime
	ce.RenderTime = &rt
	if d.IntersectionRect != nil {
		r := *d.IntersectionRect
		ce.IntersectionRect = &r
	}
	return ce
}
