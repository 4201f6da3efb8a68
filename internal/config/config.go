// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over those defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
)

// Strategy names accepted by the strategy field.
const (
	StrategyAggregatedPaints   = "aggregatedPaints"
	StrategyEmitNewAreaPainted = "emitNewAreaPainted"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory batch queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of batch workers. Values above one give up
	// batch ordering.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the number of batch IDs remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the report store.
	ShardCount int `koanf:"shard_count"`

	// HistoryLimit caps the reports kept per container.
	HistoryLimit int `koanf:"history_limit"`

	// MaxListLimit caps GET /v1/containers?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// Strategy selects the aggregation strategy.
	Strategy string `koanf:"strategy"`

	// DebugOverlay enables the debug overlay renderer.
	DebugOverlay bool `koanf:"debug_overlay"`

	// OverlayFadeMS and OverlayRemoveMS control overlay lifetime.
	OverlayFadeMS   int `koanf:"overlay_fade_ms"`
	OverlayRemoveMS int `koanf:"overlay_remove_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		QueueSize:       10_000,
		WorkerCount:     1,
		DedupeSize:      100_000,
		ShardCount:      8,
		HistoryLimit:    64,
		MaxListLimit:    100,
		Strategy:        StrategyAggregatedPaints,
		DebugOverlay:    false,
		OverlayFadeMS:   1000,
		OverlayRemoveMS: 2000,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("%w: history_limit must be positive", ErrInvalidConfig)
	case c.MaxListLimit <= 0:
		return fmt.Errorf("%w: max_list_limit must be positive", ErrInvalidConfig)
	case c.OverlayFadeMS <= 0 || c.OverlayFadeMS >= c.OverlayRemoveMS:
		return fmt.Errorf("%w: overlay_fade_ms must be positive and below overlay_remove_ms", ErrInvalidConfig)
	}
	switch c.Strategy {
	case StrategyAggregatedPaints, StrategyEmitNewAreaPainted:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return nil
}
