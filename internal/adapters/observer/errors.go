package observer

import "errors"

// Sentinel kinds for observer errors.
var (
	ErrNotObserving    = errors.New("observer is not observing")
	ErrNoEntryTypes    = errors.New("no supported entry types requested")
	ErrConflictingOpts = errors.New("type and entryTypes are mutually exclusive")
)
