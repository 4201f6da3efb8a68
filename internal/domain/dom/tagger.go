package dom

// Tagger makes elements under a container observable by the native
// observer. It is the discovery side of the engine.
type Tagger struct{}

// TagCounts reports how many elements changed state during one tagging pass.
type TagCounts struct {
	Internal     int
	UserSupplied int
}

// Add merges other into c.
func (c *TagCounts) Add(other TagCounts) {
	c.Internal += other.Internal
	c.UserSupplied += other.UserSupplied
}

// NewTagger returns a Tagger.
func NewTagger() *Tagger { return &Tagger{} }

// TagContainer tags root and every element below it.
func (t *Tagger) TagContainer(root *Element) TagCounts {
	var counts TagCounts
	if root == nil {
		return counts
	}
	root.Walk(func(el *Element) {
		counts.Add(t.Tag(el))
	})
	return counts
}

// TagInserted tags a freshly inserted subtree when it lands inside a
// container, or when it carries container roots of its own.
func (t *Tagger) TagInserted(el *Element) TagCounts {
	var counts TagCounts
	if el == nil {
		return counts
	}
	if el.ContainerRoot() != nil {
		return t.TagContainer(el)
	}
	el.Walk(func(n *Element) {
		if n.IsContainer() {
			counts.Add(t.TagContainer(n))
		}
	})
	return counts
}

// Tag applies the tag rules to a single element. Elements with a developer
// timing attribute become UserSupplied and keep their value; everything else
// untagged receives the internal marker.
func (t *Tagger) Tag(el *Element) TagCounts {
	var counts TagCounts
	switch el.TagState() {
	case UserSupplied:
		return counts
	case Internal:
		// A developer may add their own marker after discovery ran.
		if v, ok := el.Attr(TimingAttr); ok && v != InternalTimingValue {
			el.setState(UserSupplied)
			counts.UserSupplied++
		}
		return counts
	}

	if v, ok := el.Attr(TimingAttr); ok && v != InternalTimingValue {
		el.setState(UserSupplied)
		counts.UserSupplied++
		return counts
	}
	el.SetAttr(TimingAttr, InternalTimingValue)
	el.setState(Internal)
	counts.Internal++
	return counts
}
