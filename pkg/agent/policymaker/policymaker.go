// Package policymaker implements the PolicyMaker agent (spec.md
// §4.7.4): materializes and persists a selection Policy, then applies
// it to mark selected variants.
package policymaker

import (
	"context"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/agent"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/policy"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// PolicyMaker is the agent.
type PolicyMaker struct {
	engine *policy.Engine
	audit  *audit.Logger
}

// New builds a PolicyMaker over the given policy Engine.
func New(s *store.Store, engine *policy.Engine) *PolicyMaker {
	return &PolicyMaker{engine: engine, audit: audit.New(s)}
}

// ExecuteInput mirrors PolicyMaker.execute()'s arguments (spec.md §4.7.4).
type ExecuteInput struct {
	RoundNumber       int
	SelectionPressure float64
	Strategy          policy.Strategy
	MinLineages       int
	CurrentAverage    float64
}

// logFailure writes a failure AgentDecision row whose reasoning is the
// cause's error message, then returns cause (or a combined error if
// even the failure log write itself fails). Every exit from
// ExecuteAndApply's traced closure must go through either this or a
// success-path LogDecision call, per spec.md §4.3's non-negotiable
// "agent fails ⇒ still writes a decision row" invariant.
func (p *PolicyMaker) logFailure(ctx context.Context, tc tracecontext.Context, spanID, decisionType string, cause error) error {
	if logErr := p.audit.LogDecision(ctx, tc, audit.Decision{
		AgentType:    "policy_maker",
		DecisionType: decisionType,
		SpanID:       spanID,
		Reasoning:    cause.Error(),
	}); logErr != nil {
		return fmt.Errorf("%w (additionally failed to log failure decision: %v)", cause, logErr)
	}
	return cause
}

// ExecuteAndApply materializes a versioned selection Policy and
// applies it to mark selected variants, both inside the single
// transaction that pkg/policy.Engine.ExecuteAndApply opens (spec.md
// §4.1), then emits the policy_created and selection_applied
// decisions in sequence.
func (p *PolicyMaker) ExecuteAndApply(ctx context.Context, tc tracecontext.Context, roundID string, in ExecuteInput) (*ent.Policy, policy.ApplyResult, error) {
	var created *ent.Policy
	var result policy.ApplyResult
	err := agent.RunWithTracing(ctx, "policy_maker", func(ctx context.Context, spanID string) error {
		var err error
		created, result, err = p.engine.ExecuteAndApply(ctx, policy.ExecuteInput{
			CampaignID:        tc.CampaignID,
			RoundNumber:       in.RoundNumber,
			SelectionPressure: in.SelectionPressure,
			Strategy:          in.Strategy,
			MinLineages:       in.MinLineages,
			CurrentAverage:    in.CurrentAverage,
		}, roundID)
		if err != nil {
			return p.logFailure(ctx, tc.WithRound(roundID), spanID, "policy_created", fmt.Errorf("execute and apply policy: %w", err))
		}

		if err := p.audit.LogDecision(ctx, tc.WithPolicy(created.ID), audit.Decision{
			AgentType:    "policy_maker",
			DecisionType: "policy_created",
			SpanID:       spanID,
			OutputData:   created.Config,
			Reasoning:    fmt.Sprintf("created policy version %d for round %d at pressure %.2f", created.Version, in.RoundNumber, in.SelectionPressure),
		}); err != nil {
			return fmt.Errorf("log policy_created decision: %w", err)
		}

		return p.audit.LogDecision(ctx, tc.WithPolicy(created.ID).WithRound(roundID), audit.Decision{
			AgentType:    "policy_maker",
			DecisionType: "selection_applied",
			SpanID:       spanID,
			OutputData:   map[string]interface{}{"selected_count": len(result.Selected)},
			Reasoning:    fmt.Sprintf("selected %d of %d ranked variants", len(result.Selected), len(result.Ranked)),
		})
	})
	if err != nil {
		return nil, policy.ApplyResult{}, err
	}
	return created, result, nil
}
