// Package aggregate fuses per-element paint entries into container state.
//
// Two strategies exist. Union reports the bounding box of everything painted
// in the current batch. Incremental reports a growing set of disjoint
// rectangles, each one genuinely new painted area, over the container's life.
package aggregate

import (
	"strings"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/internal/domain/registry"
)

// Kind selects an aggregation strategy.
type Kind int

const (
	// Union is the default ("aggregatedPaints").
	Union Kind = iota
	// Incremental is "emitNewAreaPainted".
	Incremental
)

// Wire names of the strategies.
const (
	UnionName       = "aggregatedPaints"
	IncrementalName = "emitNewAreaPainted"
)

func (k Kind) String() string {
	if k == Incremental {
		return IncrementalName
	}
	return UnionName
}

// ParseKind maps a wire name to a Kind. The empty string selects Union.
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSpace(s) {
	case "", UnionName:
		return Union, nil
	case IncrementalName:
		return Incremental, nil
	default:
		return Union, ErrUnknownStrategy
	}
}

// Strategy folds one paint entry into a container's state and reports
// whether the entry contributed (and so marks the container dirty).
type Strategy interface {
	Accept(e *model.PaintEntry, root *dom.Element, data *registry.ResolvedRootData) bool
}

// NewStrategy returns the Strategy for k.
func NewStrategy(k Kind) Strategy {
	if k == Incremental {
		return incrementalStrategy{}
	}
	return unionStrategy{}
}

type unionStrategy struct{}

func (unionStrategy) Accept(e *model.PaintEntry, _ *dom.Element, d *registry.ResolvedRootData) bool {
	r := e.IntersectionRect
	if !r.Valid() || geometry.IsEmpty(r) {
		return false
	}
	if d.Coords == nil {
		d.Coords = geometry.NewBounds()
	}
	d.Coords.Extend(r)

	u := d.Coords.Rect()
	d.IntersectionRect = &u
	d.Size = geometry.Area(u)

	d.Name = e.Name
	d.URL = e.URL
	d.RenderTime = e.RenderTime
	d.LastPaintedSubElement = e.Element
	d.SetStartTime(e.StartTime)
	return true
}

type incrementalStrategy struct{}

func (incrementalStrategy) Accept(e *model.PaintEntry, _ *dom.Element, d *registry.ResolvedRootData) bool {
	r := e.IntersectionRect
	if !r.Valid() || geometry.IsEmpty(r) {
		return false
	}

	area := geometry.Area(r)
	if d.LargestContentfulPaint == nil || area > geometry.Area(d.LargestContentfulPaint.IntersectionRect) {
		d.LargestContentfulPaint = e
	}

	// Any overlap rejects the whole rectangle; no clipping.
	for _, painted := range d.PaintedRects {
		if geometry.Overlaps(painted, r) {
			return false
		}
	}

	d.PaintedRects = append(d.PaintedRects, r)
	d.Size += area
	d.Name = e.Name
	d.URL = e.URL
	d.RenderTime = e.RenderTime
	d.LastPaintedSubElement = e.Element
	d.SetStartTime(e.StartTime)
	if d.FirstContentfulPaint == nil {
		d.FirstContentfulPaint = e
	}
	d.IntersectionRect = nil
	return true
}
