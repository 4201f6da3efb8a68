package observer

import (
	"context"

	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/logger"
	"github.com/okian/containertiming/pkg/metrics"
)

// EntryList intercepts one native batch. Construction starts a new engine
// batch; every query filters the native result, feeds contributing entries to
// the engine and appends one container entry per dirty container.
//
// Queries are independent: calling two of them appends the dirty container
// entries twice, matching the native list's own re-entrant semantics.
type EntryList struct {
	native List
	engine *aggregate.Engine
	logger logger.Logger
}

// NewEntryList wraps native and begins a new batch on engine.
func NewEntryList(native List, engine *aggregate.Engine, l logger.Logger) *EntryList {
	engine.BeginBatch()
	return &EntryList{native: native, engine: engine, logger: l}
}

// GetEntries returns every visible entry followed by container entries.
func (l *EntryList) GetEntries() []model.Entry {
	return l.intercept(l.native.GetEntries())
}

// GetEntriesByType returns visible entries of entryType followed by
// container entries.
func (l *EntryList) GetEntriesByType(entryType string) []model.Entry {
	return l.intercept(l.native.GetEntriesByType(entryType))
}

// GetEntriesByName returns visible entries named name followed by container
// entries.
func (l *EntryList) GetEntriesByName(name, entryType string) []model.Entry {
	return l.intercept(l.native.GetEntriesByName(name, entryType))
}

// Regions returns the debug overlay geometry of the dirty containers.
func (l *EntryList) Regions() []aggregate.Region {
	return l.engine.Regions()
}

func (l *EntryList) intercept(raw []model.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(raw))
	contribs := make([]aggregate.Contribution, 0, len(raw))
	for _, e := range raw {
		if e == nil {
			continue
		}
		class, paint, root := Classify(e)
		if err := metrics.RecordEntryClassified(class.String()); err != nil && l.logger != nil {
			l.logger.Debug(context.Background(), "classification not recorded", logger.Error(err))
		}
		if class.Contributes() {
			contribs = append(contribs, aggregate.Contribution{Entry: paint, Root: root})
		}
		if class.Visible() {
			out = append(out, e)
		}
	}

	containers := l.engine.Aggregate(contribs)
	for _, c := range containers {
		out = append(out, c)
	}
	metrics.RecordContainerEntries(l.engine.Kind().String(), len(containers))
	return out
}
