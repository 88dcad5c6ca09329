package evaluator

import "github.com/evoengine/core/pkg/config"

// Estimate is the cost/latency estimate produced before dispatching an
// evaluator call (spec.md §4.5 step 1).
type Estimate struct {
	Tokens        int
	CostUSD       float64
	LatencyMs     float64
	EvaluatorType string
}

// estimateTokens approximates token count from content length, per
// spec.md §4.5 step 1: tokens ≈ len(content)/4.
func estimateTokens(content string) int {
	return len(content) / 4
}

// estimate computes the cost/latency estimate for one evaluator call
// against content, using coefficients from defaults (overridable per
// campaign config in the future; spec.md keeps these system-wide).
func estimate(content string, evaluatorType string, coeffs map[string]config.EvaluatorCoefficients) Estimate {
	tokens := estimateTokens(content)

	if evaluatorType == "ensemble" {
		// Ensemble's own estimate is the sum of its components',
		// computed by the caller (dispatcher.go) which knows the
		// component list; this branch only covers a bare call.
		return Estimate{Tokens: tokens, EvaluatorType: evaluatorType}
	}

	c, ok := coeffs[evaluatorType]
	if !ok {
		c = config.EvaluatorCoefficients{}
	}

	cost := float64(tokens) / 1000.0 * c.CostUSDPer1kTokens
	latency := c.BaseLatencyMs + float64(tokens)*c.LatencyMsPerToken

	return Estimate{Tokens: tokens, CostUSD: cost, LatencyMs: latency, EvaluatorType: evaluatorType}
}

// BudgetConfig mirrors the optional budget fields in an evaluation's
// config (spec.md §4.5).
type BudgetConfig struct {
	MaxCostUSD       *float64
	MaxLatencyMs     *float64
	AllowOverBudget  bool
	FallbackEvaluator string
}

// overBudget reports whether est exceeds either configured ceiling.
// "Budget exactly equal to estimate is not over budget" (spec.md §8).
func overBudget(est Estimate, cfg BudgetConfig) bool {
	if cfg.MaxCostUSD != nil && est.CostUSD > *cfg.MaxCostUSD {
		return true
	}
	if cfg.MaxLatencyMs != nil && est.LatencyMs > *cfg.MaxLatencyMs {
		return true
	}
	return false
}
