package observer

import (
	"context"
	"sync"

	"github.com/okian/containertiming/internal/domain/model"
)

// DefaultSupportedEntryTypes lists what FeedObserver can report.
var DefaultSupportedEntryTypes = []string{
	model.EntryTypeElement,
	"mark",
	"measure",
	"paint",
	"largest-contentful-paint",
}

// FeedObserver is an in-process native observer fed with entries submitted
// by page instrumentation. Record buffers entries; Flush hands the buffer to
// the callback as one batch.
type FeedObserver struct {
	cb        Callback
	supported []string

	mu        sync.Mutex
	observing bool
	types     map[string]struct{}
	buffer    []model.Entry

	// dispatch serializes callback invocations.
	dispatch sync.Mutex
}

// NewFeedObserver creates an idle feed observer.
func NewFeedObserver(cb Callback) *FeedObserver {
	return &FeedObserver{
		cb:        cb,
		supported: DefaultSupportedEntryTypes,
		types:     make(map[string]struct{}),
	}
}

// FeedFactory is a NativeFactory producing FeedObservers.
func FeedFactory(cb Callback) Native { return NewFeedObserver(cb) }

// Observe starts or extends the subscription. Unsupported types are ignored.
func (f *FeedObserver) Observe(_ context.Context, opts ObserveOptions) error {
	if opts.Type != "" && len(opts.EntryTypes) > 0 {
		return ErrConflictingOpts
	}
	var accepted []string
	for _, t := range opts.Types() {
		if f.supports(t) {
			accepted = append(accepted, t)
		}
	}
	if len(accepted) == 0 {
		return ErrNoEntryTypes
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range accepted {
		f.types[t] = struct{}{}
	}
	f.observing = true
	return nil
}

// Disconnect stops reporting and discards buffered entries.
func (f *FeedObserver) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observing = false
	f.buffer = nil
	clear(f.types)
}

// TakeRecords returns and clears the buffered, undelivered entries.
func (f *FeedObserver) TakeRecords() []model.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.buffer
	f.buffer = nil
	return out
}

// SupportedEntryTypes returns the static list of reportable types.
func (f *FeedObserver) SupportedEntryTypes() []string {
	return append([]string(nil), f.supported...)
}

// Observing reports whether a subscription is active.
func (f *FeedObserver) Observing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observing
}

// Record buffers the entries whose type is subscribed. It returns the number
// buffered.
func (f *FeedObserver) Record(entries []model.Entry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.observing {
		return 0, ErrNotObserving
	}
	n := 0
	for _, e := range entries {
		if e == nil {
			continue
		}
		if _, ok := f.types[e.EntryType()]; ok {
			f.buffer = append(f.buffer, e)
			n++
		}
	}
	return n, nil
}

// Flush delivers the buffer as one batch. An empty buffer invokes nothing.
func (f *FeedObserver) Flush(ctx context.Context) {
	f.dispatch.Lock()
	defer f.dispatch.Unlock()

	batch := f.TakeRecords()
	if len(batch) == 0 {
		return
	}
	f.cb(ctx, entrySlice(batch))
}

// Deliver records entries and flushes them as one batch.
func (f *FeedObserver) Deliver(ctx context.Context, entries []model.Entry) error {
	if _, err := f.Record(entries); err != nil {
		return err
	}
	f.Flush(ctx)
	return nil
}

func (f *FeedObserver) supports(t string) bool {
	for _, s := range f.supported {
		if s == t {
			return true
		}
	}
	return false
}
