// Package registry holds the per-container resolution state accumulated by
// the aggregation engine.
//
// A Registry is not safe for concurrent use; the owning engine serializes
// access.
package registry

import (
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
)

// ResolvedRootData is the mutable aggregation state of one container root.
type ResolvedRootData struct {
	// PaintedRects holds mutually disjoint rectangles already reported by the
	// incremental strategy. It only grows.
	PaintedRects []geometry.Rect

	// Coords is the union accumulator for the current batch; nil when absent.
	Coords *geometry.Bounds

	// IntersectionRect is the last union rectangle; nil for incremental.
	IntersectionRect *geometry.Rect

	RenderTime            float64
	StartTime             float64
	Name                  string
	URL                   string
	LastPaintedSubElement *dom.Element

	LargestContentfulPaint *model.PaintEntry
	FirstContentfulPaint   *model.PaintEntry

	// Size is the area of IntersectionRect.
	Size float64
}

// SetStartTime records t unless a non-zero start time is already set.
func (d *ResolvedRootData) SetStartTime(t float64) {
	if d.StartTime == 0 && t != 0 {
		d.StartTime = t
	}
}

// Registry maps container roots, by identity, to their resolved state.
type Registry struct {
	data  map[*dom.Element]*ResolvedRootData
	order []*dom.Element
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{data: make(map[*dom.Element]*ResolvedRootData)}
}

// Resolve returns the state for root, creating zeroed state on first use.
func (r *Registry) Resolve(root *dom.Element) *ResolvedRootData {
	if d, ok := r.data[root]; ok {
		return d
	}
	return r.Insert(root, &ResolvedRootData{})
}

// Insert registers d for root unless root already has state. It returns the
// state now stored for root.
func (r *Registry) Insert(root *dom.Element, d *ResolvedRootData) *ResolvedRootData {
	if existing, ok := r.data[root]; ok {
		return existing
	}
	r.data[root] = d
	r.order = append(r.order, root)
	return d
}

// Lookup returns the state for root without creating it.
func (r *Registry) Lookup(root *dom.Element) (*ResolvedRootData, bool) {
	d, ok := r.data[root]
	return d, ok
}

// ResetCoords clears every root's per-batch union accumulator.
func (r *Registry) ResetCoords() {
	for _, d := range r.data {
		d.Coords = nil
	}
}

// Len returns the number of tracked roots.
func (r *Registry) Len() int { return len(r.data) }

// Roots returns tracked roots in first-seen order.
func (r *Registry) Roots() []*dom.Element {
	out := make([]*dom.Element, len(r.order))
	copy(out, r.order)
	return out
}
