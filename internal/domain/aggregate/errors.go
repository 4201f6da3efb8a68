package aggregate

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrUnknownStrategy = errors.New("unknown aggregation strategy")
)
