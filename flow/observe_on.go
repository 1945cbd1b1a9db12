package flow

import (
	"sync/atomic"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
)

// ObserveOn delivers the values of p to the subscriber on exec. It keeps
// prefetch values requested from upstream regardless of the subscriber's
// momentary demand, queues them, and replenishes upstream in batches of
// prefetch - prefetch/4 as the queue drains.
//
// An upstream that emits more than it was asked for overflows the queue;
// the subscriber then fails with BackpressureViolation and upstream is
// cancelled. Upstream errors overtake queued values unless WithDelayError
// is set; completion is delivered after the queue drains.
func ObserveOn[T any](p Publisher[T], exec executor.Executor, prefetch int, opts ...Option) (Publisher[T], error) {
	if p == nil {
		return nil, errors.InvalidConfig("upstream", "must not be nil")
	}
	if exec == nil {
		return nil, errors.InvalidConfig("executor", "must not be nil")
	}
	if prefetch < 1 {
		return nil, errors.InvalidConfig("prefetch", "must be at least 1").
			WithDetail("prefetch", prefetch)
	}
	return &observeOn[T]{
		upstream: p,
		exec:     exec,
		prefetch: prefetch,
		opts:     buildOptions("observe-on", opts),
	}, nil
}

type observeOn[T any] struct {
	upstream Publisher[T]
	exec     executor.Executor
	prefetch int
	opts     *options
}

func (o *observeOn[T]) Subscribe(sub Subscriber[T]) {
	queue, _ := NewOverflowBuffer[T](o.prefetch, ErrorOnOverflow, nil)
	s := &observeOnSubscriber[T]{
		exec:       o.exec,
		queue:      queue,
		prefetch:   int64(o.prefetch),
		limit:      int64(o.prefetch - o.prefetch>>2),
		delayError: o.opts.delayError,
		name:       o.opts.name,
		log:        o.opts.log,
	}
	s.link = newLink(sub, o.opts)
	s.link.bind(s.schedule, s.schedule)
	s.link.start()
	if s.link.active() {
		o.upstream.Subscribe(s)
	}
}

// observeOnSubscriber is the upstream subscriber of an ObserveOn stage and
// the producer of its downstream link. Delivery runs as a single task on
// the executor at a time.
type observeOnSubscriber[T any] struct {
	link     *Link[T]
	upstream deferredHandle
	exec     executor.Executor
	queue    *OverflowBuffer[T]

	prefetch int64
	limit    int64
	consumed int64

	delayError bool
	name       string
	log        *logger.Logger

	wip        atomic.Int64
	terminated atomic.Bool
	err        error
	done       atomic.Bool
}

func (s *observeOnSubscriber[T]) OnSubscribe(h Handle) {
	s.upstream.set(h)
	if s.log.Enabled(logger.DebugLevel) {
		s.log.Debug("prefetching", logger.Fields(
			logger.FieldStage, s.name,
			logger.FieldLinkID, s.link.ID(),
			logger.FieldPrefetch, s.prefetch,
		))
	}
	_ = s.upstream.Request(s.prefetch)
}

func (s *observeOnSubscriber[T]) OnNext(v T) {
	if s.done.Load() {
		return
	}
	if _, err := s.queue.Offer(v); err != nil {
		s.upstream.Cancel()
		s.terminate(errors.BackpressureViolation(s.name, "queue is full, upstream ignored demand").
			WithDetail("prefetch", s.prefetch))
		return
	}
	s.schedule()
}

func (s *observeOnSubscriber[T]) OnError(err error) {
	s.terminate(errors.AsSourceError(err))
}

func (s *observeOnSubscriber[T]) OnComplete() {
	s.terminate(nil)
}

func (s *observeOnSubscriber[T]) terminate(err error) {
	if !s.terminated.CompareAndSwap(false, true) {
		return
	}
	s.err = err
	s.done.Store(true)
	s.schedule()
}

func (s *observeOnSubscriber[T]) schedule() {
	if s.wip.Add(1) == 1 {
		s.exec.Submit(s.run)
	}
}

func (s *observeOnSubscriber[T]) run() {
	missed := int64(1)
	for {
		if !s.deliver() {
			return
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// deliver moves queued values downstream while demand lasts and reports
// false once the link is terminal.
func (s *observeOnSubscriber[T]) deliver() bool {
	for {
		if s.link.State().Terminal() {
			s.queue.Clear()
			s.upstream.Cancel()
			return false
		}

		done := s.done.Load()
		if done && s.err != nil && (!s.delayError || errors.Is(s.err, errors.ErrCodeBackpressureViolation)) {
			s.queue.Clear()
			s.link.fail(s.err)
			return false
		}
		if s.queue.Len() == 0 {
			if done {
				if s.err != nil {
					s.link.fail(s.err)
				} else {
					s.link.complete()
				}
				return false
			}
			return true
		}
		if !s.link.demand.TryConsume() {
			return true
		}

		v, _ := s.queue.Poll()
		s.link.emit(v)

		s.consumed++
		if s.consumed == s.limit {
			s.consumed = 0
			_ = s.upstream.Request(s.limit)
		}
	}
}
