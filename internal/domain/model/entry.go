// Package model contains the timing entries passed between the native
// observer, the aggregation engine and callers.
package model

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
)

// Entry types.
const (
	EntryTypeElement   = "element"
	EntryTypeContainer = "container"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is anything a performance observer can report.
type Entry interface {
	EntryType() string
	EntryName() string
}

// GenericEntry is a non paint-timing entry (mark, measure, paint, ...). It
// passes through the engine untouched.
type GenericEntry struct {
	Type      string  `json:"entryType"`
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

func (g *GenericEntry) EntryType() string { return g.Type }
func (g *GenericEntry) EntryName() string { return g.Name }

// PaintEntry is one element timing report from the native observer.
type PaintEntry struct {
	Name             string        `json:"name"`
	Element          *dom.Element  `json:"-"`
	Identifier       string        `json:"identifier"`
	ID               string        `json:"id,omitempty"`
	IntersectionRect geometry.Rect `json:"intersectionRect"`
	RenderTime       float64       `json:"renderTime"`
	LoadTime         float64       `json:"loadTime"`
	StartTime        float64       `json:"startTime"`
	NaturalWidth     int           `json:"naturalWidth"`
	NaturalHeight    int           `json:"naturalHeight"`
	URL              string        `json:"url"`
}

func (p *PaintEntry) EntryType() string { return EntryTypeElement }
func (p *PaintEntry) EntryName() string { return p.Name }

// MarshalJSON renders the element by ID.
func (p PaintEntry) MarshalJSON() ([]byte, error) {
	type plain PaintEntry
	return json.Marshal(struct {
		plain
		EntryType string `json:"entryType"`
		Element   string `json:"element,omitempty"`
	}{plain(p), EntryTypeElement, elementID(p.Element)})
}

// VisuallyCompletePaint replaces the top-level render time of incremental
// container entries: there is no single render time, only the latest sub-paint.
type VisuallyCompletePaint struct {
	RenderTime            float64      `json:"renderTime"`
	LastPaintedSubElement *dom.Element `json:"-"`
}

// MarshalJSON renders the sub-element by ID.
func (v VisuallyCompletePaint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RenderTime            float64 `json:"renderTime"`
		LastPaintedSubElement string  `json:"lastPaintedSubElement,omitempty"`
	}{v.RenderTime, elementID(v.LastPaintedSubElement)})
}

// ContainerEntry is the synthesized record for one container in one batch.
// It is rebuilt from the container's resolved state every batch.
type ContainerEntry struct {
	Name                   string                 `json:"name"`
	Identifier             string                 `json:"identifier"`
	Element                *dom.Element           `json:"-"`
	URL                    string                 `json:"url"`
	StartTime              float64                `json:"startTime"`
	Duration               float64                `json:"duration"`
	RenderTime             *float64               `json:"renderTime,omitempty"`
	NaturalWidth           int                    `json:"naturalWidth"`
	NaturalHeight          int                    `json:"naturalHeight"`
	Size                   float64                `json:"size"`
	IntersectionRect       *geometry.Rect         `json:"intersectionRect,omitempty"`
	LastPaintedSubElement  *dom.Element           `json:"-"`
	VisuallyCompletePaint  *VisuallyCompletePaint `json:"visuallyCompletePaint,omitempty"`
	LargestContentfulPaint *PaintEntry            `json:"largestContentfulPaint,omitempty"`
	FirstContentfulPaint   *PaintEntry            `json:"firstContentfulPaint,omitempty"`
	PaintedRects           []geometry.Rect        `json:"paintedRects,omitempty"`
}

func (c *ContainerEntry) EntryType() string { return EntryTypeContainer }
func (c *ContainerEntry) EntryName() string { return c.Name }

// MarshalJSON renders element references by ID.
func (c ContainerEntry) MarshalJSON() ([]byte, error) {
	type plain ContainerEntry
	return json.Marshal(struct {
		plain
		EntryType             string `json:"entryType"`
		Element               string `json:"element,omitempty"`
		LastPaintedSubElement string `json:"lastPaintedSubElement,omitempty"`
	}{plain(c), EntryTypeContainer, elementID(c.Element), elementID(c.LastPaintedSubElement)})
}

func elementID(el *dom.Element) string {
	if el == nil {
		return ""
	}
	return el.ID()
}
