// Package evaluator implements the Evaluator Dispatcher (C5): estimates
// cost/latency for an evaluator call, enforces budget ceilings, caches
// completed evaluations by config fingerprint, executes a concrete
// Runner, and aggregates ensemble components.
package evaluator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/config"
	"github.com/evoengine/core/pkg/store"
)

// EnsembleComponent is one member of an "ensemble" evaluator_type call.
type EnsembleComponent struct {
	EvaluatorType string
	Weight        float64
}

// Dispatcher ties together budget estimation, caching, execution, and
// ensemble aggregation for a single variant's evaluation (spec.md §4.5).
type Dispatcher struct {
	evaluations *store.EvaluationStore
	runners     map[string]Runner
	coeffs      map[string]config.EvaluatorCoefficients
}

// New builds a Dispatcher. runners maps evaluator_type ("llm_judge",
// "unit_test", "benchmark") to its concrete Runner; "ensemble" is
// handled internally and must not be a key.
func New(s *store.Store, runners map[string]Runner, coeffs map[string]config.EvaluatorCoefficients) *Dispatcher {
	return &Dispatcher{evaluations: s.Evaluations, runners: runners, coeffs: coeffs}
}

// Result is the outcome of evaluating one variant, mirroring the
// evaluation row's observable fields plus dispatcher-only metadata.
type Result struct {
	Evaluation     *ent.Evaluation
	Cached         bool
	Confidence     float64
	Blocked        bool
	FallbackFrom   string
	ComponentScore map[string]float64 // ensemble only: per-component score
}

// Config is the per-call evaluation configuration (spec.md §4.5).
type Config struct {
	EvaluatorType  string
	Budget         BudgetConfig
	Ensemble       []EnsembleComponent
	Raw            map[string]interface{} // full config, used for fingerprinting and criteria_weights
	TimeoutSeconds int
}

// Evaluate runs the full dispatch protocol for one variant (spec.md
// §4.5 steps 1-5).
func (d *Dispatcher) Evaluate(ctx context.Context, roundID, variantID, content string, cfg Config) (Result, error) {
	evaluatorType := cfg.EvaluatorType

	est := d.estimateFor(content, evaluatorType, cfg.Ensemble)

	fallbackFrom := ""
	if overBudget(est, cfg.Budget) {
		if cfg.Budget.FallbackEvaluator != "" {
			fallbackFrom = evaluatorType
			evaluatorType = cfg.Budget.FallbackEvaluator
			est = d.estimateFor(content, evaluatorType, cfg.Ensemble)
		} else if !cfg.Budget.AllowOverBudget {
			return d.blocked(ctx, roundID, variantID, evaluatorType, cfg)
		}
	}

	fp, err := fingerprint(cfg.Raw)
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: fingerprint config: %w", err)
	}

	if cached, err := d.evaluations.FindCached(ctx, variantID, evaluatorType, fp); err != nil {
		return Result{}, fmt.Errorf("evaluator: cache lookup: %w", err)
	} else if cached != nil {
		return Result{Evaluation: cached, Cached: true, Confidence: 0.95, FallbackFrom: fallbackFrom}, nil
	}

	pending, err := d.evaluations.CreatePending(ctx, store.CreatePendingInput{
		VariantID:         variantID,
		RoundID:           roundID,
		EvaluatorType:     evaluatorType,
		EvaluationConfig:  cfg.Raw,
		ConfigFingerprint: fp,
	})
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: create pending evaluation: %w", err)
	}

	var (
		score             float64
		feedback          string
		criteriaScores    map[string]float64
		componentScore    map[string]float64
		ensembleBreakdown []EnsembleComponentResult
	)

	if evaluatorType == "ensemble" {
		score, feedback, componentScore, ensembleBreakdown, err = d.runEnsemble(ctx, content, cfg)
	} else {
		runner, ok := d.runners[evaluatorType]
		if !ok {
			err = fmt.Errorf("evaluator: no runner registered for evaluator_type %q", evaluatorType)
		} else {
			var res RunResult
			res, err = d.runWithTimeout(ctx, runner, content, cfg.Raw, cfg.TimeoutSeconds)
			score, feedback, criteriaScores = res.Score, res.Feedback, res.CriteriaScores
		}
	}

	if err != nil {
		failed, ferr := d.evaluations.Fail(ctx, pending.ID, err.Error())
		if ferr != nil {
			return Result{}, fmt.Errorf("evaluator: mark failed: %w", ferr)
		}
		return Result{Evaluation: failed, FallbackFrom: fallbackFrom}, nil
	}

	resultData := map[string]interface{}{
		"feedback":        feedback,
		"criteria_scores": criteriaScores,
		"execution":       map[string]interface{}{"tokens": est.Tokens},
		"budget":          map[string]interface{}{"cost_usd": est.CostUSD, "latency_ms": est.LatencyMs},
	}
	if componentScore != nil {
		resultData["component_scores"] = componentScore
	}
	if ensembleBreakdown != nil {
		components := make([]map[string]interface{}, len(ensembleBreakdown))
		for i, c := range ensembleBreakdown {
			components[i] = map[string]interface{}{
				"evaluator_type": c.EvaluatorType,
				"weight":         c.Weight,
				"score":          c.Score,
				"feedback":       c.Feedback,
				"failed":         c.Err != "",
			}
			if c.Err != "" {
				components[i]["error"] = c.Err
			}
		}
		resultData["ensemble"] = map[string]interface{}{
			"components":      components,
			"aggregate_score": score,
		}
	}

	completed, err := d.evaluations.Complete(ctx, pending.ID, score, resultData)
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: mark completed: %w", err)
	}

	return Result{Evaluation: completed, FallbackFrom: fallbackFrom, ComponentScore: componentScore}, nil
}

func (d *Dispatcher) blocked(ctx context.Context, roundID, variantID, evaluatorType string, cfg Config) (Result, error) {
	fp, err := fingerprint(cfg.Raw)
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: fingerprint config: %w", err)
	}
	pending, err := d.evaluations.CreatePending(ctx, store.CreatePendingInput{
		VariantID:         variantID,
		RoundID:           roundID,
		EvaluatorType:     evaluatorType,
		EvaluationConfig:  cfg.Raw,
		ConfigFingerprint: fp,
	})
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: create pending evaluation: %w", err)
	}
	failed, err := d.evaluations.FailWithScores(ctx, pending.ID, "Evaluation blocked by budget constraints", map[string]float64{"budget_exceeded": 1.0})
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: mark blocked as failed: %w", err)
	}
	return Result{Evaluation: failed, Blocked: true}, nil
}

func (d *Dispatcher) estimateFor(content, evaluatorType string, components []EnsembleComponent) Estimate {
	if evaluatorType != "ensemble" {
		return estimate(content, evaluatorType, d.coeffs)
	}
	var totalCost, totalLatency float64
	tokens := estimateTokens(content)
	for _, c := range components {
		e := estimate(content, c.EvaluatorType, d.coeffs)
		totalCost += e.CostUSD
		totalLatency += e.LatencyMs
	}
	return Estimate{Tokens: tokens, CostUSD: totalCost, LatencyMs: totalLatency, EvaluatorType: "ensemble"}
}

// EnsembleComponentResult is one component's contribution to an
// ensemble evaluation, used to build result_data.ensemble's per-component
// weight+feedback breakdown (spec.md §3's ensemble data model).
type EnsembleComponentResult struct {
	EvaluatorType string
	Weight        float64
	Score         float64
	Feedback      string
	Err           string // non-empty if this component failed
}

// runEnsemble runs each configured component Runner concurrently and
// aggregates score = Σ(w_i·s_i) / Σw_i (spec.md §4.5 step 5).
func (d *Dispatcher) runEnsemble(ctx context.Context, content string, cfg Config) (float64, string, map[string]float64, []EnsembleComponentResult, error) {
	type outcome struct {
		evaluatorType string
		weight        float64
		res           RunResult
		err           error
	}

	outcomes := make([]outcome, len(cfg.Ensemble))
	var wg sync.WaitGroup
	for i, c := range cfg.Ensemble {
		wg.Add(1)
		go func(i int, c EnsembleComponent) {
			defer wg.Done()
			runner, ok := d.runners[c.EvaluatorType]
			if !ok {
				outcomes[i] = outcome{evaluatorType: c.EvaluatorType, weight: c.Weight, err: fmt.Errorf("no runner registered for %q", c.EvaluatorType)}
				return
			}
			res, err := d.runWithTimeout(ctx, runner, content, cfg.Raw, cfg.TimeoutSeconds)
			outcomes[i] = outcome{evaluatorType: c.EvaluatorType, weight: c.Weight, res: res, err: err}
		}(i, c)
	}
	wg.Wait()

	var sumWeighted, sumWeights float64
	componentScores := make(map[string]float64, len(outcomes))
	breakdown := make([]EnsembleComponentResult, len(outcomes))
	var feedbacks string
	for i, o := range outcomes {
		if o.err != nil {
			// Partial failure: renormalize over surviving components.
			breakdown[i] = EnsembleComponentResult{EvaluatorType: o.evaluatorType, Weight: o.weight, Err: o.err.Error()}
			continue
		}
		sumWeighted += o.weight * o.res.Score
		sumWeights += o.weight
		componentScores[o.evaluatorType] = o.res.Score
		breakdown[i] = EnsembleComponentResult{EvaluatorType: o.evaluatorType, Weight: o.weight, Score: o.res.Score, Feedback: o.res.Feedback}
		if feedbacks != "" {
			feedbacks += "; "
		}
		feedbacks += fmt.Sprintf("%s: %s", o.evaluatorType, o.res.Feedback)
	}

	if sumWeights == 0 {
		return 0, "all ensemble components failed", componentScores, breakdown, fmt.Errorf("ensemble: all components failed")
	}

	return clamp01(sumWeighted / sumWeights), feedbacks, componentScores, breakdown, nil
}

func (d *Dispatcher) runWithTimeout(ctx context.Context, runner Runner, content string, cfg map[string]interface{}, timeoutSeconds int) (RunResult, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 300
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	type result struct {
		res RunResult
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := runner.Run(ctx, content, cfg)
		ch <- result{res, err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-ctx.Done():
		return RunResult{}, fmt.Errorf("evaluator: timed out after %ds", timeoutSeconds)
	}
}
