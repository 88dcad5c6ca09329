// Package scorer implements the Scorer agent (spec.md §4.7.3): a thin
// wrapper over the Evaluator Dispatcher that resolves the evaluator
// type from a round's evaluation_strategy and writes one decision per
// variant.
package scorer

import (
	"context"
	"fmt"

	"github.com/evoengine/core/pkg/agent"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/evaluator"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// Scorer is the agent.
type Scorer struct {
	dispatcher *evaluator.Dispatcher
	audit      *audit.Logger
}

// New builds a Scorer over the given Dispatcher.
func New(s *store.Store, dispatcher *evaluator.Dispatcher) *Scorer {
	return &Scorer{dispatcher: dispatcher, audit: audit.New(s)}
}

// resolveEvaluatorType implements spec.md §4.7.3's strategy inspection:
// ensemble forces evaluator_type=ensemble; otherwise the first entry of
// evaluators is used.
func resolveEvaluatorType(strategy map[string]interface{}) (string, []evaluator.EnsembleComponent) {
	if raw, ok := strategy["ensemble"]; ok {
		if list, ok := raw.([]interface{}); ok && len(list) > 0 {
			components := make([]evaluator.EnsembleComponent, 0, len(list))
			weight := 1.0 / float64(len(list))
			for _, item := range list {
				if name, ok := item.(string); ok {
					components = append(components, evaluator.EnsembleComponent{EvaluatorType: name, Weight: weight})
				}
			}
			return "ensemble", components
		}
		if list, ok := raw.([]string); ok && len(list) > 0 {
			components := make([]evaluator.EnsembleComponent, 0, len(list))
			weight := 1.0 / float64(len(list))
			for _, name := range list {
				components = append(components, evaluator.EnsembleComponent{EvaluatorType: name, Weight: weight})
			}
			return "ensemble", components
		}
	}
	if raw, ok := strategy["evaluators"]; ok {
		if list, ok := raw.([]interface{}); ok && len(list) > 0 {
			if name, ok := list[0].(string); ok {
				return name, nil
			}
		}
		if list, ok := raw.([]string); ok && len(list) > 0 {
			return list[0], nil
		}
	}
	return "llm_judge", nil
}

// EvaluateBatch evaluates variants per the round's evaluation_strategy
// and writes one "evaluate" decision per variant.
func (s *Scorer) EvaluateBatch(ctx context.Context, tc tracecontext.Context, variants []evaluator.VariantInput, evaluationStrategy map[string]interface{}, budget evaluator.BudgetConfig, rawConfig map[string]interface{}) (evaluator.BatchResult, error) {
	evaluatorType, components := resolveEvaluatorType(evaluationStrategy)

	cfg := evaluator.Config{
		EvaluatorType: evaluatorType,
		Budget:        budget,
		Ensemble:      components,
		Raw:           rawConfig,
	}

	var batch evaluator.BatchResult
	err := agent.RunWithTracing(ctx, "scorer", func(ctx context.Context, spanID string) error {
		var err error
		batch, err = s.dispatcher.EvaluateBatch(ctx, variants, cfg, 0)
		if err != nil {
			cause := fmt.Errorf("evaluate batch: %w", err)
			if logErr := s.audit.LogDecision(ctx, tc, audit.Decision{
				AgentType:    "scorer",
				DecisionType: "evaluate",
				SpanID:       spanID,
				InputData:    map[string]interface{}{"evaluator_type": evaluatorType},
				Reasoning:    cause.Error(),
			}); logErr != nil {
				return fmt.Errorf("%w (additionally failed to log failure decision: %v)", cause, logErr)
			}
			return cause
		}

		for i, v := range variants {
			res := batch.Results[i]
			reasoning := fmt.Sprintf("scored variant %s with evaluator_type=%s", v.VariantID, evaluatorType)
			if res.Blocked {
				reasoning = fmt.Sprintf("evaluation of variant %s blocked by budget constraints", v.VariantID)
			}
			if err := s.audit.LogDecision(ctx, tc.WithVariant(v.VariantID), audit.Decision{
				AgentType:    "scorer",
				DecisionType: "evaluate",
				SpanID:       spanID,
				InputData:    map[string]interface{}{"evaluator_type": evaluatorType},
				Reasoning:    reasoning,
			}); err != nil {
				return fmt.Errorf("log decision for variant %s: %w", v.VariantID, err)
			}
		}
		return nil
	})
	if err != nil {
		return evaluator.BatchResult{}, err
	}
	return batch, nil
}
