// Package repository stores container timing reports emitted by the observer.
package repository

import (
	"context"
	"time"

	"github.com/okian/containertiming/internal/domain/model"
)

// Report is one container entry as emitted for one batch.
type Report struct {
	Seq        uint64                `json:"seq"`
	Identifier string                `json:"identifier"`
	Strategy   string                `json:"strategy"`
	RecordedAt time.Time             `json:"recordedAt"`
	Entry      *model.ContainerEntry `json:"entry"`
}

// RenderTime returns the latest render time carried by the entry.
// Incremental entries report it through their visually complete paint.
func (r Report) RenderTime() float64 {
	if r.Entry == nil {
		return 0
	}
	if r.Entry.VisuallyCompletePaint != nil {
		return r.Entry.VisuallyCompletePaint.RenderTime
	}
	if r.Entry.RenderTime != nil {
		return *r.Entry.RenderTime
	}
	return 0
}

// Store provides read/write access to container reports.
type Store interface {
	// Record appends one report per container entry.
	Record(ctx context.Context, strategy string, entries []*model.ContainerEntry) error

	// Latest returns the most recent report for an identifier.
	// Returns ErrNotFound if the identifier is unknown.
	Latest(ctx context.Context, identifier string) (Report, error)

	// History returns up to limit reports for an identifier, newest first.
	History(ctx context.Context, identifier string, limit int) ([]Report, error)

	// List returns the latest report of up to limit containers ordered by
	// render time desc.
	List(ctx context.Context, limit int) ([]Report, error)

	// Count returns the number of containers tracked.
	Count(ctx context.Context) int
}
