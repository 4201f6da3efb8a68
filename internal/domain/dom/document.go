package dom

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// RootID is the identifier of the implicit document root.
const RootID = "document"

// Op is the kind of tree mutation reported by page instrumentation.
type Op string

const (
	OpInsert  Op = "insert"   // new element appended under Parent
	OpRemove  Op = "remove"   // element and subtree detached
	OpAttr    Op = "attr"     // attribute Name set to Value
	OpAttrDel Op = "attr_del" // attribute Name removed
)

// Mutation is one tree change. Target names the affected element; for
// inserts it is the new element's ID.
type Mutation struct {
	Op     Op                `json:"op"`
	Target string            `json:"target"`
	Parent string            `json:"parent,omitempty"`
	Tag    string            `json:"tag,omitempty"`
	Name   string            `json:"name,omitempty"`
	Value  string            `json:"value,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// ApplyResult summarizes a mutation batch.
type ApplyResult struct {
	Applied int
	Tagged  TagCounts
}

// Document indexes the element tree by ID and keeps discovery tags current
// as the tree changes.
type Document struct {
	mu     sync.RWMutex
	root   *Element
	byID   map[string]*Element
	tagger *Tagger
}

// NewDocument returns a document containing only the root element.
func NewDocument() *Document {
	root := NewElement(RootID, "html")
	return &Document{
		root:   root,
		byID:   map[string]*Element{RootID: root},
		tagger: NewTagger(),
	}
}

// Root returns the document root element.
func (d *Document) Root() *Element { return d.root }

// Element looks up an element by ID.
func (d *Document) Element(id string) (*Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.byID[id]
	return el, ok
}

// Len returns the number of indexed elements including the root.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Apply applies mutations in order. A failing mutation does not stop the
// rest; all failures are returned combined.
func (d *Document) Apply(ctx context.Context, muts []Mutation) (ApplyResult, error) {
	var (
		res  ApplyResult
		errs error
	)
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range muts {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}
		tagged, err := d.apply(&muts[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mutation %d (%s %q): %w", i, muts[i].Op, muts[i].Target, err))
			continue
		}
		res.Applied++
		res.Tagged.Add(tagged)
	}
	return res, errs
}

// apply must be called with d.mu held.
func (d *Document) apply(m *Mutation) (TagCounts, error) {
	if m.Target == "" {
		return TagCounts{}, ErrInvalidMutation
	}
	switch m.Op {
	case OpInsert:
		return d.insert(m)
	case OpRemove:
		el, ok := d.byID[m.Target]
		if !ok {
			return TagCounts{}, ErrUnknownElement
		}
		if el == d.root {
			return TagCounts{}, ErrInvalidMutation
		}
		el.Detach()
		el.Walk(func(n *Element) { delete(d.byID, n.id) })
		return TagCounts{}, nil
	case OpAttr:
		el, ok := d.byID[m.Target]
		if !ok {
			return TagCounts{}, ErrUnknownElement
		}
		if m.Name == "" {
			return TagCounts{}, ErrInvalidMutation
		}
		el.SetAttr(m.Name, m.Value)
		return d.retagAfterAttr(el, m.Name), nil
	case OpAttrDel:
		el, ok := d.byID[m.Target]
		if !ok {
			return TagCounts{}, ErrUnknownElement
		}
		el.RemoveAttr(m.Name)
		return TagCounts{}, nil
	default:
		return TagCounts{}, ErrInvalidMutation
	}
}

func (d *Document) insert(m *Mutation) (TagCounts, error) {
	if _, exists := d.byID[m.Target]; exists {
		return TagCounts{}, ErrDuplicateElement
	}
	parentID := m.Parent
	if parentID == "" {
		parentID = RootID
	}
	parent, ok := d.byID[parentID]
	if !ok {
		return TagCounts{}, ErrUnknownElement
	}
	el := NewElement(m.Target, m.Tag)
	for k, v := range m.Attrs {
		el.attrs[k] = v
	}
	parent.AppendChild(el)
	d.byID[el.id] = el
	return d.tagger.TagInserted(el), nil
}

func (d *Document) retagAfterAttr(el *Element, name string) TagCounts {
	switch name {
	case ContainerAttr:
		return d.tagger.TagContainer(el)
	case TimingAttr:
		if el.TagState() != Untagged || el.ContainerRoot() != nil {
			return d.tagger.Tag(el)
		}
	}
	return TagCounts{}
}
