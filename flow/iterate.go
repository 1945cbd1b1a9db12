package flow

import (
	"context"
	"sync"
)

// DefaultBatchSize is the demand Iterate keeps outstanding when no batch
// size is given.
const DefaultBatchSize = 128

// Iterate subscribes to p and returns a blocking iterator over its values.
// At most batch values are requested ahead of the caller; demand is
// replenished in batches as values are pulled. Close cancels the
// subscription, as does cancelling ctx.
func Iterate[T any](ctx context.Context, p Publisher[T], batch int) Iterator[T] {
	if batch < 1 {
		batch = DefaultBatchSize
	}
	it := &blockingIterator[T]{
		ctx:    ctx,
		ch:     make(chan T, batch),
		closed: make(chan struct{}),
		batch:  int64(batch),
		limit:  int64(batch - batch>>2),
	}
	stop := context.AfterFunc(ctx, it.Close)
	it.mu.Lock()
	it.stop = stop
	it.mu.Unlock()
	p.Subscribe(it)
	return it
}

// blockingIterator is both the subscriber feeding the channel and the
// iterator draining it.
type blockingIterator[T any] struct {
	ctx    context.Context
	ch     chan T
	closed chan struct{}

	handle   deferredHandle
	batch    int64
	limit    int64
	consumed int64

	err       error
	termOnce  sync.Once
	closeOnce sync.Once

	mu   sync.Mutex
	stop func() bool
}

func (it *blockingIterator[T]) OnSubscribe(h Handle) {
	it.handle.set(h)
	_ = it.handle.Request(it.batch)
}

func (it *blockingIterator[T]) OnNext(v T) {
	select {
	case it.ch <- v:
	case <-it.closed:
	}
}

func (it *blockingIterator[T]) OnError(err error) {
	it.termOnce.Do(func() {
		it.err = err
		close(it.ch)
	})
}

func (it *blockingIterator[T]) OnComplete() {
	it.termOnce.Do(func() { close(it.ch) })
}

// Next blocks until a value, the end of the stream or cancellation.
func (it *blockingIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case v, ok := <-it.ch:
		if !ok {
			return zero, false, it.err
		}
		it.consumed++
		if it.consumed == it.limit {
			it.consumed = 0
			_ = it.handle.Request(it.limit)
		}
		return v, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case <-it.closed:
		return zero, false, it.ctx.Err()
	}
}

// Close cancels the subscription. It is safe to call more than once.
func (it *blockingIterator[T]) Close() {
	it.closeOnce.Do(func() {
		close(it.closed)
		it.mu.Lock()
		stop := it.stop
		it.mu.Unlock()
		if stop != nil {
			stop()
		}
		it.handle.Cancel()
	})
}

// Collect gathers every value of p. On error the values received so far are
// returned with it.
func Collect[T any](ctx context.Context, p Publisher[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, p, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach calls fn for every value of p on the calling goroutine. It stops
// at the first error returned by fn or by the stream.
func ForEach[T any](ctx context.Context, p Publisher[T], fn func(T) error) error {
	it := Iterate(ctx, p, DefaultBatchSize)
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}
