package observer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/logger"
)

// OverlayRenderer paints debug overlays for the containers of one batch.
type OverlayRenderer interface {
	Paint(ctx context.Context, regions []aggregate.Region)
}

// Observer stands in for the native observer. Each native batch reaches the
// callback wrapped in an EntryList, unless the subscription did not ask for
// element entries, in which case batches pass through untouched.
type Observer struct {
	callback Callback
	kind     aggregate.Kind
	engine   *aggregate.Engine
	factory  NativeFactory
	native   Native
	overlay  OverlayRenderer
	logger   logger.Logger

	passthrough atomic.Bool

	// batch makes each native batch one critical section.
	batch sync.Mutex
}

// New creates an observer reporting to callback.
func New(callback Callback, opts ...Option) *Observer {
	o := &Observer{
		callback: callback,
		kind:     aggregate.Union,
		factory:  FeedFactory,
		logger:   logger.Get().Named("observer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = aggregate.NewEngine(aggregate.WithKind(o.kind))
	}
	o.kind = o.engine.Kind()
	o.native = o.factory(o.handle)
	return o
}

// Observe subscribes the native observer. A subscription without element
// entries turns this observer into a pass-through for the rest of its life.
func (o *Observer) Observe(ctx context.Context, opts ObserveOptions) error {
	if err := o.native.Observe(ctx, opts); err != nil {
		return err
	}
	if !opts.Includes(model.EntryTypeElement) && !o.passthrough.Swap(true) {
		o.logger.Debug(ctx, "element entries not requested, passing batches through")
	}
	return nil
}

// Disconnect forwards to the native observer.
func (o *Observer) Disconnect() { o.native.Disconnect() }

// TakeRecords forwards to the native observer.
func (o *Observer) TakeRecords() []model.Entry { return o.native.TakeRecords() }

// SupportedEntryTypes forwards to the native observer.
func (o *Observer) SupportedEntryTypes() []string { return o.native.SupportedEntryTypes() }

// Native returns the wrapped native observer.
func (o *Observer) Native() Native { return o.native }

// Engine returns the aggregation engine owned by this observer.
func (o *Observer) Engine() *aggregate.Engine { return o.engine }

// Strategy returns the configured aggregation strategy.
func (o *Observer) Strategy() aggregate.Kind { return o.kind }

// PassThrough reports whether interception is disabled.
func (o *Observer) PassThrough() bool { return o.passthrough.Load() }

func (o *Observer) handle(ctx context.Context, raw List) {
	if o.passthrough.Load() {
		o.callback(ctx, raw)
		return
	}

	o.batch.Lock()
	defer o.batch.Unlock()

	list := NewEntryList(raw, o.engine, o.logger)
	o.callback(ctx, list)
	if o.overlay != nil {
		o.overlay.Paint(ctx, list.Regions())
	}
}
