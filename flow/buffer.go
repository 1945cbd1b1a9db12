package flow

import (
	"strings"
	"sync"

	"github.com/kbukum/demandflow/errors"
)

// OverflowPolicy decides what a full OverflowBuffer does with a new item.
type OverflowPolicy int

const (
	// RejectNew refuses the item and reports BackpressureViolation to the
	// producer. The buffer's consumer is unaffected.
	RejectNew OverflowPolicy = iota + 1
	// DropNewest silently discards the incoming item.
	DropNewest
	// DropOldest evicts the head and appends the incoming item.
	DropOldest
	// ErrorOnOverflow refuses the item; the owner terminates its link with
	// BackpressureViolation.
	ErrorOnOverflow
	// KeepLatest collapses the buffer to the incoming item alone.
	KeepLatest
)

// String returns the configuration name of p.
func (p OverflowPolicy) String() string {
	switch p {
	case RejectNew:
		return "reject_new"
	case DropNewest:
		return "drop_newest"
	case DropOldest:
		return "drop_oldest"
	case ErrorOnOverflow:
		return "error"
	case KeepLatest:
		return "keep_latest"
	default:
		return "unknown"
	}
}

func (p OverflowPolicy) valid() bool {
	return p >= RejectNew && p <= KeepLatest
}

// ParseOverflowPolicy parses a policy name such as "drop_oldest" or
// "DROP-OLDEST".
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "reject_new", "reject":
		return RejectNew, nil
	case "drop_newest":
		return DropNewest, nil
	case "drop_oldest":
		return DropOldest, nil
	case "error", "error_on_overflow":
		return ErrorOnOverflow, nil
	case "keep_latest", "latest":
		return KeepLatest, nil
	}
	return 0, errors.InvalidConfig("overflow_policy", "unknown policy "+s)
}

// Overflow describes values dropped or rejected by an overflow decision.
type Overflow[T any] struct {
	Policy OverflowPolicy
	Items  []T
	Count  int
}

// OverflowFunc is notified synchronously on the goroutine that detected
// the overflow.
type OverflowFunc[T any] func(Overflow[T])

// OverflowBuffer is a fixed-capacity FIFO with an overflow policy. It is
// safe for one producer calling Offer and one consumer calling
// Poll/Drain concurrently.
type OverflowBuffer[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	size  int

	policy     OverflowPolicy
	onOverflow OverflowFunc[T]
}

// NewOverflowBuffer creates a buffer holding at most capacity items.
// onOverflow may be nil.
func NewOverflowBuffer[T any](capacity int, policy OverflowPolicy, onOverflow OverflowFunc[T]) (*OverflowBuffer[T], error) {
	if capacity < 1 {
		return nil, errors.InvalidConfig("capacity", "must be at least 1").
			WithDetail("capacity", capacity)
	}
	if !policy.valid() {
		return nil, errors.InvalidConfig("overflow_policy", "unknown policy").
			WithDetail("policy", int(policy))
	}
	return &OverflowBuffer[T]{
		items:      make([]T, capacity),
		policy:     policy,
		onOverflow: onOverflow,
	}, nil
}

// Offer inserts v according to the policy. It reports whether v is now
// held by the buffer. A non-nil error is only returned by RejectNew and
// ErrorOnOverflow on a full buffer.
func (b *OverflowBuffer[T]) Offer(v T) (bool, error) {
	b.mu.Lock()
	if b.size < len(b.items) {
		b.push(v)
		b.mu.Unlock()
		return true, nil
	}

	ev := Overflow[T]{Policy: b.policy}
	var (
		retained bool
		err      error
	)
	switch b.policy {
	case RejectNew:
		ev.Items = []T{v}
		err = errors.BackpressureViolation("buffer", "buffer is full, item rejected").
			WithDetail("capacity", len(b.items))
	case DropNewest:
		ev.Items = []T{v}
	case DropOldest:
		ev.Items = []T{b.pop()}
		b.push(v)
		retained = true
	case KeepLatest:
		ev.Items = b.drainLocked(b.size)
		b.push(v)
		retained = true
	case ErrorOnOverflow:
		ev.Items = []T{v}
		err = errors.BackpressureViolation("buffer", "buffer overflow").
			WithDetail("capacity", len(b.items))
	}
	ev.Count = len(ev.Items)
	b.mu.Unlock()

	if b.onOverflow != nil {
		b.onOverflow(ev)
	}
	return retained, err
}

// Poll removes and returns the head.
func (b *OverflowBuffer[T]) Poll() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// Drain removes up to max items in order. A max below 1 drains everything.
func (b *OverflowBuffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if max < 1 || max > b.size {
		max = b.size
	}
	return b.drainLocked(max)
}

// Clear discards all items and returns how many were dropped.
func (b *OverflowBuffer[T]) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.size
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.size = 0, 0
	return n
}

// Len returns the number of buffered items.
func (b *OverflowBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the capacity.
func (b *OverflowBuffer[T]) Cap() int { return len(b.items) }

// Policy returns the overflow policy.
func (b *OverflowBuffer[T]) Policy() OverflowPolicy { return b.policy }

func (b *OverflowBuffer[T]) push(v T) {
	b.items[(b.head+b.size)%len(b.items)] = v
	b.size++
}

func (b *OverflowBuffer[T]) pop() T {
	var zero T
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.size--
	return v
}

func (b *OverflowBuffer[T]) drainLocked(n int) []T {
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.pop())
	}
	return out
}
