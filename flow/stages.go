package flow

import (
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

// OnBackpressureBuffer buffers up to capacity values of p for a slow
// subscriber and applies policy when the buffer is full.
func OnBackpressureBuffer[T any](p Publisher[T], capacity int, policy OverflowPolicy, opts ...Option) (Publisher[T], error) {
	return newOverflowStage(p, BufferStrategy(capacity, policy), "on-backpressure-buffer", opts)
}

// OnBackpressureDrop discards values of p that arrive while the subscriber
// has no outstanding demand.
func OnBackpressureDrop[T any](p Publisher[T], opts ...Option) (Publisher[T], error) {
	return newOverflowStage(p, DropStrategy(), "on-backpressure-drop", opts)
}

// OnBackpressureLatest keeps only the most recent undelivered value of p.
func OnBackpressureLatest[T any](p Publisher[T], opts ...Option) (Publisher[T], error) {
	return newOverflowStage(p, LatestStrategy(), "on-backpressure-latest", opts)
}

// OnBackpressureError fails the subscriber with BackpressureViolation as
// soon as p emits a value the subscriber has not requested.
func OnBackpressureError[T any](p Publisher[T], opts ...Option) (Publisher[T], error) {
	return newOverflowStage(p, ErrorStrategy(), "on-backpressure-error", opts)
}

// overflowStager marks stages that request unbounded demand upstream.
type overflowStager interface {
	overflowStrategy() Strategy
}

// overflowStage requests unbounded demand from upstream and routes every
// value through a per-subscription Bridge.
type overflowStage[T any] struct {
	upstream Publisher[T]
	strategy Strategy
	opts     *options
}

func newOverflowStage[T any](p Publisher[T], strategy Strategy, name string, opts []Option) (Publisher[T], error) {
	if p == nil {
		return nil, errors.InvalidConfig("upstream", "must not be nil")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	s := &overflowStage[T]{upstream: p, strategy: strategy, opts: buildOptions(name, opts)}
	if inner, ok := p.(overflowStager); ok {
		s.opts.log.Warn("overflow stage wraps another overflow stage; the inner stage never observes exhausted demand",
			logger.Fields(
				logger.FieldStage, s.opts.name,
				logger.FieldStrategy, strategy.String(),
				"inner_strategy", inner.overflowStrategy().String(),
			))
	}
	return s, nil
}

func (s *overflowStage[T]) overflowStrategy() Strategy { return s.strategy }

func (s *overflowStage[T]) Subscribe(sub Subscriber[T]) {
	b := newBridge[T](s.strategy, s.opts)
	up := &stageSubscriber[T]{bridge: b, log: s.opts.log, name: s.opts.name}
	b.onRelease = up.upstream.Cancel
	b.Subscribe(sub)
	s.upstream.Subscribe(up)
}

// stageSubscriber feeds upstream signals into the bridge.
type stageSubscriber[T any] struct {
	bridge   *Bridge[T]
	upstream deferredHandle
	log      *logger.Logger
	name     string
}

func (s *stageSubscriber[T]) OnSubscribe(h Handle) {
	s.upstream.set(h)
	_ = s.upstream.Request(Unbounded)
}

func (s *stageSubscriber[T]) OnNext(v T) {
	if err := s.bridge.Next(v); err != nil {
		s.log.Warn("value rejected by full buffer", logger.MergeWithError(
			logger.Fields(logger.FieldStage, s.name, logger.FieldPolicy, RejectNew.String()), err))
	}
}

func (s *stageSubscriber[T]) OnError(err error) { s.bridge.Error(err) }

func (s *stageSubscriber[T]) OnComplete() { s.bridge.Complete() }
