// Package observer wraps a native paint timing observer so callers receive
// synthesized container entries in place of the per-element entries
// discovery created internally.
package observer

import (
	"context"

	"github.com/okian/containertiming/internal/domain/model"
)

// List is the query surface of one delivered batch. Every query returns a
// fresh slice.
type List interface {
	GetEntries() []model.Entry
	GetEntriesByType(entryType string) []model.Entry
	GetEntriesByName(name, entryType string) []model.Entry
}

// Callback receives one batch per native observer invocation.
type Callback func(ctx context.Context, list List)

// ObserveOptions selects the entry types a subscription reports. Type and
// EntryTypes are mutually exclusive.
type ObserveOptions struct {
	Type       string   `json:"type,omitempty"`
	EntryTypes []string `json:"entryTypes,omitempty"`
}

// Types returns the requested entry types.
func (o ObserveOptions) Types() []string {
	if o.Type != "" {
		return []string{o.Type}
	}
	return o.EntryTypes
}

// Includes reports whether entryType is requested.
func (o ObserveOptions) Includes(entryType string) bool {
	for _, t := range o.Types() {
		if t == entryType {
			return true
		}
	}
	return false
}

// Native is the underlying paint timing observer.
type Native interface {
	Observe(ctx context.Context, opts ObserveOptions) error
	Disconnect()
	TakeRecords() []model.Entry
	SupportedEntryTypes() []string
}

// NativeFactory builds a native observer that reports to cb.
type NativeFactory func(cb Callback) Native

// entrySlice is a plain List over already materialized entries.
type entrySlice []model.Entry

func (s entrySlice) GetEntries() []model.Entry {
	return append([]model.Entry(nil), s...)
}

func (s entrySlice) GetEntriesByType(entryType string) []model.Entry {
	var out []model.Entry
	for _, e := range s {
		if e.EntryType() == entryType {
			out = append(out, e)
		}
	}
	return out
}

func (s entrySlice) GetEntriesByName(name, entryType string) []model.Entry {
	var out []model.Entry
	for _, e := range s {
		if e.EntryName() != name {
			continue
		}
		if entryType != "" && e.EntryType() != entryType {
			continue
		}
		out = append(out, e)
	}
	return out
}
