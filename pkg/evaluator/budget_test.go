package evaluator

import (
	"testing"

	"github.com/evoengine/core/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testCoeffs() map[string]config.EvaluatorCoefficients {
	return config.NewDefaults().EvaluatorCoefficients
}

func TestEstimateLLMJudge(t *testing.T) {
	content := make([]byte, 4000) // 1000 tokens at len/4
	est := estimate(string(content), "llm_judge", testCoeffs())

	assert.Equal(t, 1000, est.Tokens)
	assert.InDelta(t, 0.002, est.CostUSD, 1e-9)
	assert.InDelta(t, 800+1000*0.4, est.LatencyMs, 1e-9)
}

func TestEstimateUnknownEvaluatorTypeUsesZeroCoefficients(t *testing.T) {
	est := estimate("hello", "mystery", testCoeffs())
	assert.Zero(t, est.CostUSD)
	assert.Zero(t, est.LatencyMs)
}

func TestOverBudgetExactlyEqualIsNotOverBudget(t *testing.T) {
	cost := 0.5
	cfg := BudgetConfig{MaxCostUSD: &cost}
	est := Estimate{CostUSD: 0.5}

	assert.False(t, overBudget(est, cfg), "exact-equal cost must not count as over budget")
}

func TestOverBudgetExceedsCost(t *testing.T) {
	cost := 0.5
	cfg := BudgetConfig{MaxCostUSD: &cost}
	est := Estimate{CostUSD: 0.51}

	assert.True(t, overBudget(est, cfg))
}

func TestOverBudgetExceedsLatency(t *testing.T) {
	lat := 1000.0
	cfg := BudgetConfig{MaxLatencyMs: &lat}
	est := Estimate{LatencyMs: 1000.01}

	assert.True(t, overBudget(est, cfg))
}

func TestOverBudgetNoCeilingsConfigured(t *testing.T) {
	assert.False(t, overBudget(Estimate{CostUSD: 1e9, LatencyMs: 1e9}, BudgetConfig{}))
}
