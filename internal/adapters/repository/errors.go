package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound     = errors.New("container not found")
	ErrInvalidLimit = errors.New("invalid report limit")
	ErrStoreClosed  = errors.New("report store closed")
)
