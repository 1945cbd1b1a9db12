package flow

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/demandflow/errors"
)

// Iterator is a pull-based sequence. Next returns ok=false once the
// sequence is exhausted. Close releases resources and is called exactly
// once by the consumer.
type Iterator[T any] interface {
	Next(ctx context.Context) (v T, ok bool, err error)
	Close()
}

// GeneratorFunc produces the next value of a sequence, or ok=false when
// there are no more values.
type GeneratorFunc[T any] func(ctx context.Context) (v T, ok bool, err error)

// pullSource is a cold publisher that emits only in response to demand.
type pullSource[T any] struct {
	open func() (Iterator[T], error)
	opts *options
}

// Range emits count consecutive integers starting at start. A count below
// 1 yields an empty source.
func Range(start, count int, opts ...Option) Publisher[int] {
	return &pullSource[int]{
		open: func() (Iterator[int], error) {
			return &rangeIterator{next: start, end: start + max(count, 0)}, nil
		},
		opts: buildOptions("range", opts),
	}
}

// FromSlice emits the items in order. The slice must not be modified while
// a subscription is active.
func FromSlice[T any](items []T, opts ...Option) Publisher[T] {
	return &pullSource[T]{
		open: func() (Iterator[T], error) {
			return &sliceIterator[T]{items: items}, nil
		},
		opts: buildOptions("slice", opts),
	}
}

// Generate emits the values produced by fn, one call per value plus one
// to observe exhaustion. fn is shared by all subscriptions.
func Generate[T any](fn GeneratorFunc[T], opts ...Option) Publisher[T] {
	return &pullSource[T]{
		open: func() (Iterator[T], error) {
			if fn == nil {
				return nil, errors.InvalidConfig("generator", "must not be nil")
			}
			return funcIterator[T](fn), nil
		},
		opts: buildOptions("generate", opts),
	}
}

// FromIterator emits the values of it. An iterator can be consumed once;
// later subscribers fail with InvalidConfig.
func FromIterator[T any](it Iterator[T], opts ...Option) Publisher[T] {
	var used atomic.Bool
	return &pullSource[T]{
		open: func() (Iterator[T], error) {
			if it == nil {
				return nil, errors.InvalidConfig("iterator", "must not be nil")
			}
			if !used.CompareAndSwap(false, true) {
				return nil, errors.InvalidConfig("iterator", "already consumed")
			}
			return it, nil
		},
		opts: buildOptions("iterator", opts),
	}
}

func (s *pullSource[T]) Subscribe(sub Subscriber[T]) {
	link := newLink(sub, s.opts)
	it, err := s.open()
	if err != nil {
		link.start()
		link.fail(err)
		return
	}

	ps := &pullSubscription[T]{link: link, it: it}
	link.bind(ps.drain, ps.drain)
	link.start()
	ps.drain()
}

// pullSubscription drives one iterator for one link. Only the goroutine
// that wins the wip counter touches the iterator and the look-ahead slot.
type pullSubscription[T any] struct {
	link *Link[T]
	it   Iterator[T]
	wip  atomic.Int64

	next    T
	hasNext bool
	closed  bool
}

func (s *pullSubscription[T]) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		if !s.emitReady() {
			return
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// emitReady emits while demand lasts and reports false once the link is
// terminal. The next value is fetched before demand is checked so that an
// exhausted iterator completes the link without further requests.
func (s *pullSubscription[T]) emitReady() bool {
	for {
		if !s.link.active() {
			s.close()
			return false
		}
		if !s.hasNext {
			v, ok, err := s.it.Next(s.link.Context())
			if err != nil {
				s.close()
				s.link.fail(errors.AsSourceError(err))
				return false
			}
			if !ok {
				s.close()
				s.link.complete()
				return false
			}
			s.next, s.hasNext = v, true
		}
		if !s.link.demand.TryConsume() {
			return true
		}
		v := s.next
		var zero T
		s.next, s.hasNext = zero, false
		s.link.emit(v)
	}
}

func (s *pullSubscription[T]) close() {
	if s.closed {
		return
	}
	s.closed = true
	var zero T
	s.next, s.hasNext = zero, false
	s.it.Close()
}

type rangeIterator struct {
	next, end int
}

func (r *rangeIterator) Next(context.Context) (int, bool, error) {
	if r.next >= r.end {
		return 0, false, nil
	}
	v := r.next
	r.next++
	return v, true, nil
}

func (r *rangeIterator) Close() {}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

func (s *sliceIterator[T]) Next(context.Context) (T, bool, error) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceIterator[T]) Close() {}

type funcIterator[T any] GeneratorFunc[T]

func (f funcIterator[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

func (f funcIterator[T]) Close() {}
