package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownClassification = errors.New("unknown entry classification")
)
