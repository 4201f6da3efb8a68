package overlay

import (
	"time"

	"github.com/okian/containertiming/pkg/logger"
)

// Option applies a configuration option to the MemoryRenderer.
type Option func(*MemoryRenderer)

// WithFade sets the delay before an overlay starts fading.
func WithFade(d time.Duration) Option {
	return func(r *MemoryRenderer) {
		if d > 0 {
			r.fade = d
		}
	}
}

// WithRemove sets the delay before an overlay is removed.
func WithRemove(d time.Duration) Option {
	return func(r *MemoryRenderer) {
		if d > 0 {
			r.remove = d
		}
	}
}

// WithClock overrides the time source used for PaintedAt.
func WithClock(now func() time.Time) Option {
	return func(r *MemoryRenderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *MemoryRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}
