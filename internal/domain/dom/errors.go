package dom

import "errors"

// Sentinel kinds for tree mutation errors.
var (
	ErrUnknownElement   = errors.New("unknown element")
	ErrDuplicateElement = errors.New("element already exists")
	ErrInvalidMutation  = errors.New("invalid mutation")
)
