package flow

import (
	"math"
	"sync/atomic"

	"github.com/kbukum/demandflow/errors"
)

// Unbounded is the demand sentinel meaning "emit without limit".
const Unbounded int64 = math.MaxInt64

// DemandCounter tracks the outstanding demand of one link. It is lock-free
// and safe to use from the requesting and the emitting goroutine at once.
type DemandCounter struct {
	n atomic.Int64
}

// Request adds n to the outstanding demand. Passing Unbounded, or any
// addition that would overflow, makes the demand unbounded for good.
func (d *DemandCounter) Request(n int64) error {
	if n <= 0 {
		return errors.InvalidDemand(n)
	}
	for {
		cur := d.n.Load()
		if cur == Unbounded {
			return nil
		}
		next := cur + n
		if n == Unbounded || next < cur {
			next = Unbounded
		}
		if d.n.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// TryConsume takes one unit of demand. It reports false when no demand is
// outstanding. Unbounded demand is never decremented.
func (d *DemandCounter) TryConsume() bool {
	for {
		cur := d.n.Load()
		if cur == 0 {
			return false
		}
		if cur == Unbounded {
			return true
		}
		if d.n.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns a snapshot of the outstanding demand. Use it for
// diagnostics only; emission must be gated by TryConsume.
func (d *DemandCounter) Remaining() int64 {
	return d.n.Load()
}

// IsUnbounded reports whether unbounded demand has been granted.
func (d *DemandCounter) IsUnbounded() bool {
	return d.n.Load() == Unbounded
}

// Reset drops all outstanding demand.
func (d *DemandCounter) Reset() {
	d.n.Store(0)
}

// addCap adds two non-negative demands, saturating at Unbounded.
func addCap(a, b int64) int64 {
	if a == Unbounded || b == Unbounded {
		return Unbounded
	}
	if s := a + b; s >= a {
		return s
	}
	return Unbounded
}
