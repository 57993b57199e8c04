// Package routing selects which worker serves a request.
package routing

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/atomic"

	"github.com/auria-labs/auria-agent/internal/models"
)

var (
	ErrUnknownStrategy        = errors.New("unknown routing strategy")
	ErrStrategyNotImplemented = errors.New("routing strategy not implemented")
)

// Strategy names a routing policy.
type Strategy string

const (
	// StrategyRoundRobin cycles through nodes in pool order.
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyLatencyAware prefers nodes with the lowest observed latency.
	StrategyLatencyAware Strategy = "latency_aware"

	// StrategyCapacityAware prefers nodes with free capacity for the tier.
	StrategyCapacityAware Strategy = "capacity_aware"

	// StrategyStakeAware weights nodes by stake and reputation.
	StrategyStakeAware Strategy = "stake_aware"
)

// ParseStrategy normalizes a configured strategy name. An empty name
// selects round-robin.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyRoundRobin, nil
	case StrategyRoundRobin, StrategyLatencyAware, StrategyCapacityAware, StrategyStakeAware:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Router picks a raw node index for a request of the given tier. The pool
// reduces the value modulo its size, so implementations may return any
// non-negative value.
type Router interface {
	Pick(tier models.Tier) uint64
}

// RoundRobin hands out consecutive counter values. Concurrent callers each
// observe a distinct value; ordering between them is not guaranteed.
type RoundRobin struct {
	next atomic.Uint64
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Pick ignores the tier and returns the pre-increment counter value.
func (r *RoundRobin) Pick(_ models.Tier) uint64 {
	return r.next.Inc() - 1
}

// New builds the router for a strategy. Only round-robin is available; the
// other strategies are reserved names.
func New(strategy Strategy) (Router, error) {
	switch strategy {
	case StrategyRoundRobin, "":
		return NewRoundRobin(), nil
	case StrategyLatencyAware, StrategyCapacityAware, StrategyStakeAware:
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotImplemented, strategy)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(strategy))
	}
}
