package aggregate

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKind selects the aggregation strategy.
func WithKind(k Kind) Option {
	return func(e *Engine) {
		e.kind = k
	}
}
