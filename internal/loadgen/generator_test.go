package loadgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
)

func TestGeneratorLayout(t *testing.T) {
	gen := NewGenerator(42)
	l := gen.Layout(3, 4)

	require.Len(t, l.Containers, 3)
	require.Len(t, l.Outsiders, 3)
	for _, c := range l.Containers {
		assert.Len(t, c.Children, 4)
		for _, ch := range c.Children {
			assert.True(t, ch.Rect.Valid())
			assert.False(t, geometry.IsEmpty(ch.Rect))
			assert.GreaterOrEqual(t, ch.Rect.Left, c.Bounds.Left)
			assert.GreaterOrEqual(t, ch.Rect.Top, c.Bounds.Top)
			assert.LessOrEqual(t, ch.Rect.Right, c.Bounds.Right+1e-9)
			assert.LessOrEqual(t, ch.Rect.Bottom, c.Bounds.Bottom+1e-9)
		}
	}
	for _, o := range l.Outsiders {
		for _, c := range l.Containers {
			assert.False(t, geometry.Overlaps(o.Rect, c.Bounds), "outsider %s overlaps %s", o.ID, c.ID)
		}
	}
}

func TestLayoutMutations(t *testing.T) {
	l := NewGenerator(1).Layout(2, 2)
	muts := l.Mutations()

	// 2 containers + 4 children + 2 outsiders
	require.Len(t, muts, 8)
	assert.Equal(t, dom.OpInsert, muts[0].Op)
	assert.Equal(t, dom.RootID, muts[0].Parent)
	assert.Equal(t, l.Containers[0].Identifier, muts[0].Attrs[dom.ContainerAttr])
	assert.Equal(t, l.Containers[0].ID, muts[1].Parent)

	doc := dom.NewDocument()
	res, err := doc.Apply(t.Context(), muts)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Applied)
	assert.Equal(t, 6, res.Tagged.Internal)
}

func TestGeneratorBatches(t *testing.T) {
	gen := NewGenerator(7)
	l := gen.Layout(2, 3)
	batches := gen.Batches(l, 20)

	require.Len(t, batches, 20)
	ids := map[string]bool{}
	last := 0.0
	for i, b := range batches {
		assert.NotEmpty(t, b.BatchID)
		assert.False(t, ids[b.BatchID], "duplicate batch id")
		ids[b.BatchID] = true
		assert.Equal(t, uint64(i+1), b.Seq)
		require.NotEmpty(t, b.Entries)
		for _, e := range b.Entries {
			if e.EntryType != model.EntryTypeElement {
				continue
			}
			assert.Greater(t, e.RenderTime, last)
			last = e.RenderTime
		}
	}

	painted := Painted(l, batches)
	assert.NotEmpty(t, painted)
	for id, c := range painted {
		assert.Equal(t, id, c.Identifier)
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(99).Layout(2, 5)
	b := NewGenerator(99).Layout(2, 5)
	for i := range a.Containers {
		for j := range a.Containers[i].Children {
			assert.Equal(t, a.Containers[i].Children[j].Rect, b.Containers[i].Children[j].Rect)
		}
	}
}
