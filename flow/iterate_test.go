package flow

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
)

func TestCollect(t *testing.T) {
	got, err := Collect(context.Background(), Range(0, 300))
	require.NoError(t, err)
	assert.Equal(t, ints(0, 300), got)
}

func TestCollect_ReturnsPartialValuesOnError(t *testing.T) {
	got, err := Collect(context.Background(), failingAfter(2))
	assert.Equal(t, []int{0, 1}, got)
	assert.True(t, errors.Is(err, errors.ErrCodeSourceError))
}

func TestIterate_BoundedDemand(t *testing.T) {
	spy := &requestSpy[int]{upstream: Range(0, 10)}
	it := Iterate[int](context.Background(), spy, 4)
	defer it.Close()

	ctx := context.Background()
	var got []int
	for {
		v, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}

	assert.Equal(t, ints(0, 10), got)
	assert.Equal(t, []int64{4, 3, 3, 3}, spy.Requests())
}

func TestIterate_CloseCancels(t *testing.T) {
	spy := &requestSpy[int]{upstream: Range(0, 1000)}
	it := Iterate[int](context.Background(), spy, 8)

	v, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	it.Close()
	it.Close()
	assert.Equal(t, 1, spy.Cancels())
}

func TestIterate_ContextCancel(t *testing.T) {
	b, _ := NewBridge[int](DropStrategy())
	ctx, cancel := context.WithCancel(context.Background())
	it := Iterate[int](ctx, b, 4)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, ok, err := it.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, b.Cancelled(), "cancelling the context cancels the link")
}

func TestForEach_StopsOnCallbackError(t *testing.T) {
	stop := stderrors.New("stop")
	spy := &requestSpy[int]{upstream: Range(0, 100)}
	var seen []int
	err := ForEach[int](context.Background(), spy, func(v int) error {
		seen = append(seen, v)
		if v == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, 1, spy.Cancels())
}

func TestIterate_AsyncSource(t *testing.T) {
	pool := executor.NewPool(executor.PoolConfig{Name: "iterate", Workers: 1})
	ctx := context.Background()
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	src, _ := SubscribeOn(Range(0, 1000), pool)
	got, err := Collect(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, ints(0, 1000), got)
}
