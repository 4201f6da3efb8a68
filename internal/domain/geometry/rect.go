// Package geometry provides the axis-aligned rectangle helpers used by the
// aggregation engine. Rectangles are opaque boxes; no layout is performed.
package geometry

import "math"

// Rect is an immutable axis-aligned box in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// FromXYWH builds a Rect from an origin and a size.
func FromXYWH(x, y, width, height float64) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

// Width returns Right - Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Bottom - Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Valid reports whether every edge is a finite number and the box is not inverted.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.Left, r.Top, r.Right, r.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Right >= r.Left && r.Bottom >= r.Top
}

// Overlaps reports whether a and b share any point. Touching edges overlap.
func Overlaps(a, b Rect) bool {
	if b.Left > a.Right || b.Right < a.Left || b.Top > a.Bottom || b.Bottom < a.Top {
		return false
	}
	return true
}

// IsEmpty reports a zero-sized rectangle. The native source occasionally
// reports these for elements that have not painted anything.
func IsEmpty(r Rect) bool {
	return r.Width() == 0 && r.Height() == 0
}

// Area returns width*height, clamping negative extents to zero.
func Area(r Rect) float64 {
	return math.Max(0, r.Width()) * math.Max(0, r.Height())
}

// Bounds accumulates the smallest rectangle enclosing every extended Rect.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewBounds returns an accumulator seeded with sentinel extremes.
func NewBounds() *Bounds {
	return &Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// Extend grows the bounds to include r.
func (b *Bounds) Extend(r Rect) {
	b.MinX = math.Min(b.MinX, r.Left)
	b.MinY = math.Min(b.MinY, r.Top)
	b.MaxX = math.Max(b.MaxX, r.Right)
	b.MaxY = math.Max(b.MaxY, r.Bottom)
}

// Valid is false until at least one Rect has been added.
func (b *Bounds) Valid() bool {
	return b.MaxX >= b.MinX && b.MaxY >= b.MinY
}

// Rect returns the accumulated union rectangle.
func (b *Bounds) Rect() Rect {
	return Rect{Left: b.MinX, Top: b.MinY, Right: b.MaxX, Bottom: b.MaxY}
}
