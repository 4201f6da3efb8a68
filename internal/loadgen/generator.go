package loadgen

import (
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
)

// Layout geometry constants.
const (
	containerWidth  = 400.0
	containerHeight = 300.0
	containerGap    = 20.0
	minChildSide    = 10.0
	maxChildSide    = 120.0
)

// Child is one painted descendant with a fixed on-screen rectangle.
type Child struct {
	ID   string        `json:"id"`
	Rect geometry.Rect `json:"rect"`
}

// Container is a container root and its descendants.
type Container struct {
	ID         string        `json:"id"`
	Identifier string        `json:"identifier"`
	Bounds     geometry.Rect `json:"bounds"`
	Children   []Child       `json:"children"`
}

// Layout is a generated page.
type Layout struct {
	Containers []Container `json:"containers"`
	// Outsiders are painted elements outside every container.
	Outsiders []Child `json:"outsiders"`
}

// Generator builds layouts and batches from a seeded source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// Layout stacks containers vertically, each holding children placed at
// random inside its bounds.
func (g *Generator) Layout(containers, children int) Layout {
	var l Layout
	for c := 0; c < containers; c++ {
		top := float64(c) * (containerHeight + containerGap)
		cont := Container{
			ID:         "c" + strconv.Itoa(c),
			Identifier: "container-" + uuid.NewString()[:8],
			Bounds:     geometry.FromXYWH(0, top, containerWidth, containerHeight),
		}
		for i := 0; i < children; i++ {
			cont.Children = append(cont.Children, Child{
				ID:   cont.ID + "-e" + strconv.Itoa(i),
				Rect: g.rectIn(cont.Bounds),
			})
		}
		l.Containers = append(l.Containers, cont)

		l.Outsiders = append(l.Outsiders, Child{
			ID:   "o" + strconv.Itoa(c),
			Rect: geometry.FromXYWH(containerWidth+containerGap, top, maxChildSide, maxChildSide),
		})
	}
	return l
}

func (g *Generator) rectIn(b geometry.Rect) geometry.Rect {
	w := minChildSide + g.rng.Float64()*(maxChildSide-minChildSide)
	h := minChildSide + g.rng.Float64()*(maxChildSide-minChildSide)
	x := b.Left + g.rng.Float64()*(b.Width()-w)
	y := b.Top + g.rng.Float64()*(b.Height()-h)
	return geometry.FromXYWH(x, y, w, h)
}

// Mutations returns the tree inserts that build l under the document root.
func (l Layout) Mutations() []dom.Mutation {
	var muts []dom.Mutation
	for _, c := range l.Containers {
		muts = append(muts, dom.Mutation{
			Op:     dom.OpInsert,
			Target: c.ID,
			Parent: dom.RootID,
			Tag:    "section",
			Attrs:  map[string]string{dom.ContainerAttr: c.Identifier},
		})
		for _, ch := range c.Children {
			muts = append(muts, dom.Mutation{Op: dom.OpInsert, Target: ch.ID, Parent: c.ID, Tag: "img"})
		}
	}
	for _, o := range l.Outsiders {
		muts = append(muts, dom.Mutation{Op: dom.OpInsert, Target: o.ID, Parent: dom.RootID, Tag: "p"})
	}
	return muts
}

// Batches builds n batches. Each paints a random subset of children and
// occasionally an outsider or a non-element entry. Render times increase
// monotonically across batches.
func (g *Generator) Batches(l Layout, n int) []BatchRequest {
	var all []Child
	for _, c := range l.Containers {
		all = append(all, c.Children...)
	}
	out := make([]BatchRequest, 0, n)
	clock := 0.0
	for i := 0; i < n; i++ {
		b := BatchRequest{BatchID: uuid.NewString(), Seq: uint64(i + 1)}
		count := 1 + g.rng.IntN(4)
		for j := 0; j < count && len(all) > 0; j++ {
			clock += 1 + g.rng.Float64()*10
			b.Entries = append(b.Entries, paintEntry(all[g.rng.IntN(len(all))], clock))
		}
		if len(l.Outsiders) > 0 && g.rng.IntN(4) == 0 {
			clock++
			b.Entries = append(b.Entries, paintEntry(l.Outsiders[g.rng.IntN(len(l.Outsiders))], clock))
		}
		if g.rng.IntN(5) == 0 {
			b.Entries = append(b.Entries, model.RawEntry{EntryType: "mark", Name: "batch-" + strconv.Itoa(i), StartTime: clock})
		}
		out = append(out, b)
	}
	return out
}

func paintEntry(c Child, at float64) model.RawEntry {
	return model.RawEntry{
		EntryType:        model.EntryTypeElement,
		Name:             "image-paint",
		ElementID:        c.ID,
		IntersectionRect: c.Rect,
		RenderTime:       at,
		StartTime:        at,
		NaturalWidth:     int(c.Rect.Width()),
		NaturalHeight:    int(c.Rect.Height()),
	}
}

// Painted returns the identifiers of containers any batch painted into.
func Painted(l Layout, batches []BatchRequest) map[string]Container {
	owner := make(map[string]Container)
	for _, c := range l.Containers {
		for _, ch := range c.Children {
			owner[ch.ID] = c
		}
	}
	out := make(map[string]Container)
	for _, b := range batches {
		for _, e := range b.Entries {
			if c, ok := owner[e.ElementID]; ok {
				out[c.Identifier] = c
			}
		}
	}
	return out
}
