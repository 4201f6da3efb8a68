package observer

import (
	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/pkg/logger"
)

// Option applies a configuration option to the Observer.
type Option func(*Observer)

// WithStrategy selects the aggregation strategy. Ignored when WithEngine is
// also given.
func WithStrategy(k aggregate.Kind) Option {
	return func(o *Observer) {
		o.kind = k
	}
}

// WithEngine injects the aggregation state, e.g. to share it with readers.
func WithEngine(e *aggregate.Engine) Option {
	return func(o *Observer) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithNative sets the factory for the wrapped native observer.
func WithNative(f NativeFactory) Option {
	return func(o *Observer) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithOverlay enables debug overlays.
func WithOverlay(r OverlayRenderer) Option {
	return func(o *Observer) {
		o.overlay = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}
