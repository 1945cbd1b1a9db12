package flow

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

// Emitter is the producer side of a Bridge. Its methods must not be called
// concurrently with each other.
type Emitter[T any] interface {
	// Next pushes v. It returns a BackpressureViolation only when a buffer
	// with the RejectNew policy refuses v; every other overflow outcome is
	// handled by the strategy.
	Next(v T) error
	// Error terminates the stream with a SourceError wrapping err.
	Error(err error)
	// Complete terminates the stream normally.
	Complete()
	// Cancelled reports whether further pushes are pointless because the
	// stream has terminated or the subscriber cancelled.
	Cancelled() bool
	// Requested returns a snapshot of the outstanding downstream demand.
	Requested() int64
}

// Bridge adapts a producer that ignores demand to a single subscriber that
// does not. Values are routed according to the Strategy.
type Bridge[T any] struct {
	strategy   Strategy
	opts       *options
	onOverflow OverflowFunc[T]

	buf    *OverflowBuffer[T]
	latest atomic.Pointer[T]

	link       atomic.Pointer[Link[T]]
	subscribed atomic.Bool
	wip        atomic.Int64

	terminated atomic.Bool
	err        error
	eager      bool
	done       atomic.Bool

	released  atomic.Bool
	onRelease func()
}

// NewBridge creates a hot bridge. Values pushed before a subscriber arrives
// are treated as pushed without demand.
func NewBridge[T any](strategy Strategy, opts ...Option) (*Bridge[T], error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return newBridge[T](strategy, buildOptions("bridge", opts)), nil
}

func newBridge[T any](strategy Strategy, o *options) *Bridge[T] {
	b := &Bridge[T]{
		strategy:   strategy,
		opts:       o,
		onOverflow: overflowFunc[T](o),
	}
	if strategy.Kind == StrategyBuffer {
		// Validated by the caller.
		b.buf, _ = NewOverflowBuffer[T](strategy.Capacity, strategy.Policy, b.overflow)
	}
	return b
}

// Subscribe attaches the only subscriber. Later subscribers receive an
// InvalidConfig error.
func (b *Bridge[T]) Subscribe(sub Subscriber[T]) {
	link := newLink(sub, b.opts)
	if !b.subscribed.CompareAndSwap(false, true) {
		link.start()
		link.fail(errors.InvalidConfig("subscriber", "bridge accepts a single subscriber"))
		return
	}
	link.bind(b.drain, b.drain)
	b.link.Store(link)
	link.start()
	b.drain()
}

// Next implements Emitter.
func (b *Bridge[T]) Next(v T) error {
	if b.terminated.Load() {
		return nil
	}
	link := b.link.Load()
	if link != nil && link.State().Terminal() {
		return nil
	}

	switch b.strategy.Kind {
	case StrategyBuffer:
		_, err := b.buf.Offer(v)
		if err != nil && b.strategy.Policy == ErrorOnOverflow {
			b.terminate(err, true)
			return nil
		}
		b.drain()
		return err
	case StrategyLatest:
		if old := b.latest.Swap(&v); old != nil {
			b.overflow(Overflow[T]{Policy: KeepLatest, Items: []T{*old}, Count: 1})
		}
		b.drain()
	case StrategyDrop:
		if link != nil && link.demand.TryConsume() {
			link.emit(v)
			return nil
		}
		b.overflow(Overflow[T]{Policy: DropNewest, Items: []T{v}, Count: 1})
	case StrategyError:
		if link != nil && link.demand.TryConsume() {
			link.emit(v)
			return nil
		}
		b.overflow(Overflow[T]{Policy: ErrorOnOverflow, Items: []T{v}, Count: 1})
		b.terminate(errors.BackpressureViolation(b.opts.name, "could not emit value due to lack of requests"), true)
	case StrategyMissing:
		if link == nil {
			b.opts.log.Debug("value pushed before subscribe was lost", logger.Fields(logger.FieldStage, b.opts.name))
			return nil
		}
		link.demand.TryConsume()
		link.emit(v)
	}
	return nil
}

// Error implements Emitter. Buffered values are delivered first.
func (b *Bridge[T]) Error(err error) {
	b.terminate(errors.AsSourceError(err), false)
}

// Complete implements Emitter. Buffered values are delivered first.
func (b *Bridge[T]) Complete() {
	b.terminate(nil, false)
}

// Cancelled implements Emitter.
func (b *Bridge[T]) Cancelled() bool {
	if b.terminated.Load() {
		return true
	}
	link := b.link.Load()
	return link != nil && link.State().Terminal()
}

// Requested implements Emitter.
func (b *Bridge[T]) Requested() int64 {
	link := b.link.Load()
	if link == nil || !link.active() {
		return 0
	}
	return link.demand.Remaining()
}

// Pending returns the number of values held for the subscriber.
func (b *Bridge[T]) Pending() int {
	switch {
	case b.buf != nil:
		return b.buf.Len()
	case b.latest.Load() != nil:
		return 1
	default:
		return 0
	}
}

// terminate records the terminal signal once. eager signals discard held
// values and are delivered ahead of them.
func (b *Bridge[T]) terminate(err error, eager bool) {
	if !b.terminated.CompareAndSwap(false, true) {
		return
	}
	b.err = err
	b.eager = eager
	b.done.Store(true)
	b.drain()
}

func (b *Bridge[T]) drain() {
	if b.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		if !b.drainLoop() {
			return
		}
		missed = b.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// drainLoop delivers held values while demand lasts and reports false once
// the link is terminal.
func (b *Bridge[T]) drainLoop() bool {
	link := b.link.Load()
	if link == nil {
		return true
	}
	for {
		switch s := link.State(); {
		case s.Terminal():
			b.release()
			return false
		case s != StateActive:
			return true
		}

		done := b.done.Load()
		if done && b.eager {
			b.release()
			link.fail(b.err)
			return false
		}
		if !b.hasPending() {
			if done {
				b.finish(link)
				return false
			}
			return true
		}
		if !link.demand.TryConsume() {
			return true
		}
		if v, ok := b.take(); ok {
			link.emit(v)
		}
	}
}

func (b *Bridge[T]) hasPending() bool {
	switch b.strategy.Kind {
	case StrategyBuffer:
		return b.buf.Len() > 0
	case StrategyLatest:
		return b.latest.Load() != nil
	default:
		return false
	}
}

func (b *Bridge[T]) take() (T, bool) {
	switch b.strategy.Kind {
	case StrategyBuffer:
		return b.buf.Poll()
	case StrategyLatest:
		if p := b.latest.Swap(nil); p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

func (b *Bridge[T]) finish(link *Link[T]) {
	if b.err != nil {
		link.fail(b.err)
	} else {
		link.complete()
	}
	b.release()
}

// release frees held values and runs the release hook once.
func (b *Bridge[T]) release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	dropped := 0
	if b.buf != nil {
		dropped = b.buf.Clear()
	}
	if b.latest.Swap(nil) != nil {
		dropped++
	}
	if dropped > 0 {
		b.opts.log.Debug("released held values", logger.Fields(
			logger.FieldStage, b.opts.name,
			logger.FieldDropped, dropped,
		))
	}
	if b.onRelease != nil {
		b.onRelease()
	}
}

func (b *Bridge[T]) overflow(ev Overflow[T]) {
	ctx := context.Background()
	if link := b.link.Load(); link != nil {
		ctx = link.Context()
	}
	b.opts.metrics.RecordDropped(ctx, b.opts.name, ev.Policy.String(), ev.Count)
	if b.opts.log.Enabled(logger.DebugLevel) {
		b.opts.log.Debug("overflow", logger.Fields(
			logger.FieldStage, b.opts.name,
			logger.FieldStrategy, b.strategy.String(),
			logger.FieldPolicy, ev.Policy.String(),
			logger.FieldDropped, ev.Count,
		))
	}
	if b.onOverflow != nil {
		b.onOverflow(ev)
	}
}

func (b *Bridge[T]) String() string {
	return fmt.Sprintf("bridge(%s)", b.strategy)
}

// Create returns a cold publisher. For every subscriber a new Bridge is
// built and producer runs synchronously inside Subscribe, after the
// subscriber has received its handle. ctx is cancelled when the link ends.
func Create[T any](producer func(ctx context.Context, e Emitter[T]), strategy Strategy, opts ...Option) (Publisher[T], error) {
	if producer == nil {
		return nil, errors.InvalidConfig("producer", "must not be nil")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return &createPublisher[T]{
		producer: producer,
		strategy: strategy,
		opts:     buildOptions("create", opts),
	}, nil
}

type createPublisher[T any] struct {
	producer func(ctx context.Context, e Emitter[T])
	strategy Strategy
	opts     *options
}

func (c *createPublisher[T]) Subscribe(sub Subscriber[T]) {
	b := newBridge[T](c.strategy, c.opts)
	b.Subscribe(sub)
	link := b.link.Load()

	defer func() {
		if r := recover(); r != nil {
			b.Error(fmt.Errorf("producer panic: %v", r))
		}
	}()
	c.producer(link.Context(), b)
}
