package observer

import (
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/metrics"
)

// Class is the interceptor's decision for one raw entry.
type Class int

const (
	// Passthrough entries are not container business and stay visible.
	Passthrough Class = iota
	// Aggregated entries feed a container and are hidden.
	Aggregated
	// Preserved entries feed a container and stay visible because the
	// developer tagged the element.
	Preserved
	// Dropped entries cannot be attributed to any element.
	Dropped
)

func (c Class) String() string {
	switch c {
	case Aggregated:
		return metrics.ClassAggregated
	case Preserved:
		return metrics.ClassPreserved
	case Dropped:
		return metrics.ClassDropped
	default:
		return metrics.ClassPassthrough
	}
}

// Visible reports whether entries of this class reach the caller.
func (c Class) Visible() bool { return c == Passthrough || c == Preserved }

// Contributes reports whether entries of this class drive aggregation.
func (c Class) Contributes() bool { return c == Aggregated || c == Preserved }

// Classify decides what happens to e. For contributing entries it also
// returns the paint entry and its container root.
func Classify(e model.Entry) (Class, *model.PaintEntry, *dom.Element) {
	p, ok := e.(*model.PaintEntry)
	if !ok {
		return Passthrough, nil, nil
	}
	if p.Element == nil {
		return Dropped, nil, nil
	}
	root := p.Element.ContainerRoot()
	if root == nil {
		return Passthrough, nil, nil
	}
	if p.Element.TagState() == dom.UserSupplied {
		return Preserved, p, root
	}
	return Aggregated, p, root
}
