// Package dom models the subset of the document tree the container timing
// engine needs: element identity, ancestry, attributes and the timing tag
// state applied by discovery.
package dom

import "sync"

// Attribute names forming the wire contract with page instrumentation.
const (
	// ContainerAttr marks a subtree root whose descendants aggregate into one
	// container timing entry. Its value is reported as the entry identifier.
	ContainerAttr = "containertiming"

	// TimingAttr is the native element timing attribute.
	TimingAttr = "elementtiming"

	// InternalTimingValue is the TimingAttr value discovery writes on elements
	// it tags itself. Developer supplied values never equal it.
	InternalTimingValue = "__container_timing_internal__"
)

// TagState records why an element is observable by the native observer.
type TagState int

const (
	// Untagged elements are never reported by the native observer.
	Untagged TagState = iota
	// Internal elements were tagged by discovery only.
	Internal
	// UserSupplied elements carried a developer timing attribute; their
	// entries stay visible to the caller.
	UserSupplied
)

func (s TagState) String() string {
	switch s {
	case Internal:
		return "internal"
	case UserSupplied:
		return "user"
	default:
		return "untagged"
	}
}

// Element is a node of the document tree. Identity is the pointer.
type Element struct {
	mu       sync.RWMutex
	id       string
	tag      string
	parent   *Element
	children []*Element
	attrs    map[string]string
	state    TagState
}

// NewElement creates a detached element.
func NewElement(id, tag string) *Element {
	return &Element{id: id, tag: tag, attrs: make(map[string]string)}
}

// ID returns the instrumentation-assigned identifier.
func (e *Element) ID() string { return e.id }

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// Parent returns the parent element or nil when detached or the document root.
func (e *Element) Parent() *Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttr sets an attribute. It does not retag; Document.Apply does.
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.mu.Lock()
	delete(e.attrs, name)
	e.mu.Unlock()
}

// TagState returns the discovery tag state.
func (e *Element) TagState() TagState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Element) setState(s TagState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// AppendChild attaches child as the last child of e, detaching it first.
func (e *Element) AppendChild(child *Element) {
	if child == nil || child == e {
		return
	}
	child.Detach()
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	child.mu.Lock()
	child.parent = e
	child.mu.Unlock()
}

// Detach removes e from its parent. The subtree below e stays intact.
func (e *Element) Detach() {
	e.mu.Lock()
	p := e.parent
	e.parent = nil
	e.mu.Unlock()
	if p == nil {
		return
	}
	p.mu.Lock()
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
}

// IsContainer reports whether e carries the container attribute.
func (e *Element) IsContainer() bool {
	_, ok := e.Attr(ContainerAttr)
	return ok
}

// ContainerRoot returns the nearest inclusive ancestor carrying the container
// attribute, or nil. Nested containers are not resolved further.
func (e *Element) ContainerRoot() *Element {
	for cur := e; cur != nil; cur = cur.Parent() {
		if cur.IsContainer() {
			return cur
		}
	}
	return nil
}

// ContainerIdentifier returns the container attribute value.
func (e *Element) ContainerIdentifier() string {
	v, _ := e.Attr(ContainerAttr)
	return v
}

// Walk visits e and its descendants depth first.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children() {
		c.Walk(fn)
	}
}
