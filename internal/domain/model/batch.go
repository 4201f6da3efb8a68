package model

import (
	"time"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
)

// RawEntry is the wire shape of one observer entry as submitted by page
// instrumentation. Element entries reference elements by ID.
type RawEntry struct {
	EntryType        string        `json:"entryType"`
	Name             string        `json:"name"`
	ElementID        string        `json:"element,omitempty"`
	Identifier       string        `json:"identifier,omitempty"`
	ID               string        `json:"id,omitempty"`
	IntersectionRect geometry.Rect `json:"intersectionRect"`
	RenderTime       float64       `json:"renderTime"`
	LoadTime         float64       `json:"loadTime"`
	StartTime        float64       `json:"startTime"`
	Duration         float64       `json:"duration"`
	NaturalWidth     int           `json:"naturalWidth"`
	NaturalHeight    int           `json:"naturalHeight"`
	URL              string        `json:"url,omitempty"`
}

// ElementLookup finds a live element by ID.
type ElementLookup func(id string) (*dom.Element, bool)

// Resolve turns the wire entry into a typed Entry. Element entries get their
// element resolved through lookup; an unknown or empty ID leaves Element nil,
// which callers treat as detached.
func (r *RawEntry) Resolve(lookup ElementLookup) Entry {
	if r.EntryType != EntryTypeElement {
		return &GenericEntry{
			Type:      r.EntryType,
			Name:      r.Name,
			StartTime: r.StartTime,
			Duration:  r.Duration,
		}
	}
	p := &PaintEntry{
		Name:             r.Name,
		Identifier:       r.Identifier,
		ID:               r.ID,
		IntersectionRect: r.IntersectionRect,
		RenderTime:       r.RenderTime,
		LoadTime:         r.LoadTime,
		StartTime:        r.StartTime,
		NaturalWidth:     r.NaturalWidth,
		NaturalHeight:    r.NaturalHeight,
		URL:              r.URL,
	}
	if r.ElementID != "" && lookup != nil {
		if el, ok := lookup(r.ElementID); ok {
			p.Element = el
		}
	}
	return p
}

// Batch is one native observer callback worth of entries.
type Batch struct {
	BatchID  string     // unique id for idempotency
	Seq      uint64     // client sequence number, informational
	Entries  []RawEntry // in delivery order
	Received time.Time
}

// Resolve resolves every entry in order.
func (b *Batch) Resolve(lookup ElementLookup) []Entry {
	out := make([]Entry, len(b.Entries))
	for i := range b.Entries {
		out[i] = b.Entries[i].Resolve(lookup)
	}
	return out
}
