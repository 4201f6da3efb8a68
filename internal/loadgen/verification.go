package loadgen

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/okian/containertiming/internal/domain/geometry"
)

// tolerance absorbs float noise from JSON round trips.
const tolerance = 1e-6

// Verify checks the reports against the layout. It relies only on
// order-independent properties so concurrent submission is fine:
//   - every painted container has a report
//   - union reports stay inside the container's child bounds
//   - incremental reports hold pairwise disjoint rectangles whose areas sum
//     to the reported size
func Verify(strategy string, painted map[string]Container, reports map[string]ContainerReport) error {
	var errs error
	for id, c := range painted {
		r, ok := reports[id]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("container %s: no report", id))
			continue
		}
		if r.Strategy != strategy {
			errs = multierr.Append(errs, fmt.Errorf("container %s: strategy %q, want %q", id, r.Strategy, strategy))
		}
		switch strategy {
		case "emitNewAreaPainted":
			errs = multierr.Append(errs, verifyIncremental(c, r))
		default:
			errs = multierr.Append(errs, verifyUnion(c, r))
		}
	}
	return errs
}

func childBounds(c Container) geometry.Rect {
	b := geometry.NewBounds()
	for _, ch := range c.Children {
		b.Extend(ch.Rect)
	}
	return b.Rect()
}

func verifyUnion(c Container, r ContainerReport) error {
	if r.Entry.IntersectionRect == nil {
		return fmt.Errorf("container %s: union report without intersectionRect", c.Identifier)
	}
	if r.Entry.RenderTime == nil {
		return fmt.Errorf("container %s: union report without renderTime", c.Identifier)
	}
	got, bound := *r.Entry.IntersectionRect, childBounds(c)
	if got.Left < bound.Left-tolerance || got.Top < bound.Top-tolerance ||
		got.Right > bound.Right+tolerance || got.Bottom > bound.Bottom+tolerance {
		return fmt.Errorf("container %s: union %+v escapes child bounds %+v", c.Identifier, got, bound)
	}
	if diff := r.Entry.Size - geometry.Area(got); diff > tolerance || diff < -tolerance {
		return fmt.Errorf("container %s: size %.2f != area %.2f", c.Identifier, r.Entry.Size, geometry.Area(got))
	}
	return nil
}

func verifyIncremental(c Container, r ContainerReport) error {
	if r.Entry.VisuallyCompletePaint == nil {
		return fmt.Errorf("container %s: incremental report without visuallyCompletePaint", c.Identifier)
	}
	rects := r.Entry.PaintedRects
	sum := 0.0
	for i := range rects {
		sum += geometry.Area(rects[i])
		for j := i + 1; j < len(rects); j++ {
			if geometry.Overlaps(rects[i], rects[j]) {
				return fmt.Errorf("container %s: painted rects %d and %d overlap", c.Identifier, i, j)
			}
		}
	}
	if diff := r.Entry.Size - sum; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("container %s: size %.2f != painted area %.2f", c.Identifier, r.Entry.Size, sum)
	}
	return nil
}
