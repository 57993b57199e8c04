// Package policy decides the effective tier and token budget of a request
// and whether it is admitted.
package policy

import (
	"github.com/auria-labs/auria-agent/internal/models"
)

const (
	DefaultMaxTokens = 256
	MaxTokensCeiling = 4096
	minTokens        = 1
)

// Decision is derived per request and never persisted.
type Decision struct {
	Tier       models.Tier `json:"tier"`
	MaxTokens  int         `json:"max_tokens"`
	Allowed    bool        `json:"allowed"`
	DenyReason string      `json:"deny_reason,omitempty"`
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	DefaultTier models.Tier
	// MaxCostMicroUSDC is accepted but not evaluated yet; 0 means unlimited.
	MaxCostMicroUSDC uint64
}

func NewEngine(defaultTier models.Tier, maxCostMicroUSDC uint64) *Engine {
	return &Engine{DefaultTier: defaultTier, MaxCostMicroUSDC: maxCostMicroUSDC}
}

// Decide resolves the tier and clamps the token budget to [1, 4096].
// A nil tier selects the default tier; nil maxTokens selects 256.
func (e *Engine) Decide(requested *models.Tier, maxTokens *int) Decision {
	tier := e.DefaultTier
	if requested != nil {
		tier = *requested
	}

	budget := DefaultMaxTokens
	if maxTokens != nil {
		budget = *maxTokens
	}
	budget = max(min(budget, MaxTokensCeiling), minTokens)

	d := Decision{Tier: tier, MaxTokens: budget, Allowed: true}
	if e.MaxCostMicroUSDC > 0 {
		e.costGuard(&d)
	}
	return d
}

// costGuard is where a fee estimate for (tier, max_tokens) will be compared
// against MaxCostMicroUSDC. There is no fee registry to estimate from, so it
// admits everything.
func (e *Engine) costGuard(d *Decision) {}
