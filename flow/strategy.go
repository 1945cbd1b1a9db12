package flow

import (
	"fmt"
	"strings"

	"github.com/kbukum/demandflow/errors"
)

// StrategyKind selects how a Bridge treats values pushed without demand.
type StrategyKind int

const (
	// StrategyBuffer holds values in an OverflowBuffer until requested.
	StrategyBuffer StrategyKind = iota + 1
	// StrategyDrop discards values pushed while demand is zero.
	StrategyDrop
	// StrategyLatest keeps only the most recent unrequested value.
	StrategyLatest
	// StrategyError fails the link on the first value pushed without demand.
	StrategyError
	// StrategyMissing forwards every value regardless of demand.
	StrategyMissing
)

// String returns the configuration name of k.
func (k StrategyKind) String() string {
	switch k {
	case StrategyBuffer:
		return "buffer"
	case StrategyDrop:
		return "drop"
	case StrategyLatest:
		return "latest"
	case StrategyError:
		return "error"
	case StrategyMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// ParseStrategyKind parses a strategy name such as "buffer" or "LATEST".
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buffer":
		return StrategyBuffer, nil
	case "drop":
		return StrategyDrop, nil
	case "latest":
		return StrategyLatest, nil
	case "error":
		return StrategyError, nil
	case "missing", "none":
		return StrategyMissing, nil
	}
	return 0, errors.InvalidConfig("strategy", "unknown strategy "+s)
}

// Strategy configures a Bridge. Capacity and Policy apply to
// StrategyBuffer only.
type Strategy struct {
	Kind     StrategyKind
	Capacity int
	Policy   OverflowPolicy
}

// BufferStrategy buffers up to capacity values and applies policy when full.
func BufferStrategy(capacity int, policy OverflowPolicy) Strategy {
	return Strategy{Kind: StrategyBuffer, Capacity: capacity, Policy: policy}
}

func DropStrategy() Strategy    { return Strategy{Kind: StrategyDrop} }
func LatestStrategy() Strategy  { return Strategy{Kind: StrategyLatest} }
func ErrorStrategy() Strategy   { return Strategy{Kind: StrategyError} }
func MissingStrategy() Strategy { return Strategy{Kind: StrategyMissing} }

// Validate reports an InvalidConfig error for an unusable strategy.
func (s Strategy) Validate() error {
	switch s.Kind {
	case StrategyBuffer:
		if s.Capacity < 1 {
			return errors.InvalidConfig("capacity", "must be at least 1").
				WithDetail("capacity", s.Capacity)
		}
		if !s.Policy.valid() {
			return errors.InvalidConfig("overflow_policy", "unknown policy")
		}
	case StrategyDrop, StrategyLatest, StrategyError, StrategyMissing:
	default:
		return errors.InvalidConfig("strategy", "unknown strategy")
	}
	return nil
}

func (s Strategy) String() string {
	if s.Kind == StrategyBuffer {
		return fmt.Sprintf("buffer(%d,%s)", s.Capacity, s.Policy)
	}
	return s.Kind.String()
}

// dropPolicy is the policy reported in overflow events of non-buffer kinds.
func (s Strategy) dropPolicy() OverflowPolicy {
	switch s.Kind {
	case StrategyBuffer:
		return s.Policy
	case StrategyLatest:
		return KeepLatest
	case StrategyError:
		return ErrorOnOverflow
	default:
		return DropNewest
	}
}
